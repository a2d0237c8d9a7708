// Package tip provides brush tip textures: grayscale coverage stencils that
// every dab is stamped with.
package tip

import (
	"image"

	"golang.org/x/image/draw"

	pimage "github.com/gogpu/paint/internal/image"
)

// minLevel is the smallest mip level edge kept in a chain.
const minLevel = 4

// Tip is an immutable coverage texture with a precomputed mip chain.
//
// Tips encode only coverage, never color. Level dimensions are always even.
type Tip struct {
	name string
	// margin is the empty border on each side as a fraction of the width.
	margin float64
	levels []*pimage.ImageBuf
}

// New builds a tip from an A8 coverage buffer. Odd dimensions are padded
// with an empty row or column; smaller mip levels are derived with a
// Catmull-Rom filter.
func New(name string, coverage *pimage.ImageBuf, margin float64) *Tip {
	if coverage == nil || coverage.Format() != pimage.FormatA8 {
		return nil
	}
	base := padEven(coverage)
	levels := []*pimage.ImageBuf{base}
	for cur := base; cur.Width() > minLevel*2 && cur.Height() > minLevel*2; {
		next := pimage.MustNew(evenCeil(cur.Width()/2), evenCeil(cur.Height()/2), pimage.FormatA8)
		draw.CatmullRom.Scale(next.Alpha(), next.Bounds(), cur.Alpha(), cur.Bounds(), draw.Src, nil)
		levels = append(levels, next)
		cur = next
	}
	return &Tip{name: name, margin: clampMargin(margin), levels: levels}
}

// newFromLevels builds a tip whose mip levels were generated directly.
func newFromLevels(name string, margin float64, levels []*pimage.ImageBuf) *Tip {
	return &Tip{name: name, margin: clampMargin(margin), levels: levels}
}

// Name returns the logical name of the tip.
func (t *Tip) Name() string { return t.name }

// Margin returns the empty border on each side as a fraction of the width.
func (t *Tip) Margin() float64 { return t.margin }

// Base returns the full resolution coverage.
func (t *Tip) Base() *pimage.ImageBuf { return t.levels[0] }

// Levels returns the number of mip levels.
func (t *Tip) Levels() int { return len(t.levels) }

// Level returns the smallest mip level whose content diameter is at least
// size pixels, falling back to the base level for large dabs.
func (t *Tip) Level(size float64) *pimage.ImageBuf {
	for i := len(t.levels) - 1; i > 0; i-- {
		if t.ContentSize(t.levels[i]) >= size {
			return t.levels[i]
		}
	}
	return t.levels[0]
}

// ContentSize returns the diameter of the painted area of a level, which
// excludes the margin on both sides.
func (t *Tip) ContentSize(level *pimage.ImageBuf) float64 {
	w := float64(max(level.Width(), level.Height()))
	return w * (1 - 2*t.margin)
}

func clampMargin(m float64) float64 {
	return max(0, min(m, 0.45))
}

func evenCeil(n int) int {
	if n%2 == 1 {
		n++
	}
	return max(n, 2)
}

func padEven(b *pimage.ImageBuf) *pimage.ImageBuf {
	w, h := evenCeil(b.Width()), evenCeil(b.Height())
	if w == b.Width() && h == b.Height() {
		return b
	}
	out := pimage.MustNew(w, h, pimage.FormatA8)
	_ = out.Blit(b, image.Point{})
	return out
}
