// Package selection implements the canvas selection mask: an A8 buffer in
// which 255 means fully selected and 0 means unselected.
package selection

import (
	"image"
	"image/color"
	"strings"

	pimage "github.com/gogpu/paint/internal/image"
)

// Mode selects how a new shape combines with the existing mask.
type Mode uint8

const (
	// Replace discards the current selection first.
	Replace Mode = iota
	// Add unions the shape into the selection.
	Add
	// Subtract removes the shape from the selection.
	Subtract
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Replace:
		return "replace"
	case Add:
		return "add"
	case Subtract:
		return "subtract"
	default:
		return "unknown"
	}
}

// ParseMode returns the mode with the given name, case-insensitively.
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "replace":
		return Replace, true
	case "add":
		return Add, true
	case "subtract":
		return Subtract, true
	}
	return Replace, false
}

// Mask is the selection of one canvas. The zero value is not usable; call New.
type Mask struct {
	buf    *pimage.ImageBuf
	active bool
	bounds image.Rectangle
}

// New returns an empty selection for a width×height canvas.
func New(width, height int) *Mask {
	return &Mask{buf: pimage.MustNew(width, height, pimage.FormatA8)}
}

// Width returns the mask width.
func (m *Mask) Width() int { return m.buf.Width() }

// Height returns the mask height.
func (m *Mask) Height() int { return m.buf.Height() }

// Active reports whether any pixel is selected.
func (m *Mask) Active() bool { return m.active }

// Bounds returns the smallest rectangle containing every selected pixel.
func (m *Mask) Bounds() image.Rectangle { return m.bounds }

// Buffer returns the mask buffer, or nil when nothing is selected so that
// drawing is not gated.
func (m *Mask) Buffer() *pimage.ImageBuf {
	if !m.active {
		return nil
	}
	return m.buf
}

// At returns the selection coverage at (x, y).
func (m *Mask) At(x, y int) uint8 { return m.buf.AlphaAt(x, y) }

// Contains reports whether (x, y) is at least partly selected.
func (m *Mask) Contains(x, y int) bool { return m.At(x, y) > 0 }

// Clone returns an independent copy of m.
func (m *Mask) Clone() *Mask {
	return &Mask{buf: m.buf.Clone(), active: m.active, bounds: m.bounds}
}

// Clear deselects everything.
func (m *Mask) Clear() {
	m.buf.Clear(color.RGBA{})
	m.active, m.bounds = false, image.Rectangle{}
}

// SelectAll selects the whole canvas.
func (m *Mask) SelectAll() {
	m.buf.Clear(color.RGBA{A: 255})
	m.refresh()
}

// SelectRect combines the rectangle at (x, y) of size w×h into the mask.
// Negative sizes extend left or up from (x, y).
func (m *Mask) SelectRect(x, y, w, h int, mode Mode) {
	r := image.Rect(x, y, x+w, y+h).Intersect(m.buf.Bounds())
	if mode == Replace {
		m.buf.Clear(color.RGBA{})
	}
	v := byte(255)
	if mode == Subtract {
		v = 0
	}
	for yy := r.Min.Y; yy < r.Max.Y; yy++ {
		row := m.buf.RowBytes(yy)[r.Min.X:r.Max.X]
		for i := range row {
			row[i] = v
		}
	}
	m.refresh()
}

// SelectPolygon combines the closed polygon pts into the mask. Edges are
// antialiased; fully covered pixels become 255 for Add and Replace and 0
// for Subtract.
func (m *Mask) SelectPolygon(pts []pimage.Point, mode Mode) {
	if mode == Replace {
		m.buf.Clear(color.RGBA{})
	}
	if len(pts) >= 3 {
		_ = m.buf.Paint(func(p *pimage.Painter) error {
			p.SetColor(color.Alpha{A: 255})
			if mode == Subtract {
				p.SetOp(pimage.OpClear)
			}
			p.FillPolygon(pts)
			return nil
		})
	}
	m.refresh()
}

// Invert swaps selected and unselected coverage.
func (m *Mask) Invert() {
	for y := range m.buf.Height() {
		row := m.buf.RowBytes(y)
		for i, v := range row {
			row[i] = 255 - v
		}
	}
	m.refresh()
}

func (m *Mask) refresh() {
	m.bounds = m.buf.OpaqueBounds()
	m.active = !m.bounds.Empty()
}
