// Package dab rasterizes single brush dabs into layer pixels.
package dab

import (
	"image"
	"math"

	"github.com/gogpu/paint/internal/blend"
	pimage "github.com/gogpu/paint/internal/image"
	"github.com/gogpu/paint/internal/stroke"
	"github.com/gogpu/paint/internal/tip"
)

// Options control how a dab lands on the destination.
type Options struct {
	Mode blend.Mode
	// Hardness remaps tip coverage t to clamp((t - (1 - h)) / h, 0, 1).
	// Zero passes coverage through.
	Hardness float64
	// Grain multiplies coverage by 1 - g + g·n(x, y) for canvas anchored
	// value noise n.
	Grain float64
	// Diffusion displaces every tip lookup by up to Diffusion·size/8 pixels.
	Diffusion float64
	// Roundness squashes the tip vertically before rotation. Zero means 1.
	Roundness float64
	// AlphaLock keeps every destination alpha unchanged.
	AlphaLock bool
	// Erase removes alpha instead of painting color.
	Erase bool
	// Selection gates coverage per pixel when non-nil. It must match the
	// destination size.
	Selection *pimage.ImageBuf
	// SelectionBounds, when non-empty, is the smallest rectangle holding all
	// selected pixels.
	SelectionBounds image.Rectangle
	// Seed selects the grain and diffusion patterns.
	Seed uint64
}

// Stats counts dab outcomes. Counters only grow.
type Stats struct {
	Stamped uint64 // dabs that changed at least one pixel
	Clipped uint64 // dabs entirely outside the buffer or selection
	Dropped uint64 // dabs rejected for missing or invalid inputs
	Pixels  uint64 // destination pixels changed
}

// Stamper stamps dabs and records statistics.
// The zero value is ready to use. It is not safe for concurrent use.
type Stamper struct {
	Stats Stats
}

// Stamp composites one dab of color c using tp into dst.
// Invalid inputs drop the dab silently. It reports whether dst changed.
func Stamp(dst *pimage.ImageBuf, tp *tip.Tip, d stroke.Dab, c blend.Color, opts Options) bool {
	var s Stamper
	return s.Stamp(dst, tp, d, c, opts)
}

// Stamp is the counting form of the package level Stamp.
func (s *Stamper) Stamp(dst *pimage.ImageBuf, tp *tip.Tip, d stroke.Dab, c blend.Color, opts Options) bool {
	if dst == nil || tp == nil || dst.Format() != pimage.FormatRGBAPremul ||
		d.Size <= 0 || d.Opacity <= 0 || isBad(d.X) || isBad(d.Y) {
		s.Stats.Dropped++
		return false
	}
	sel := opts.Selection
	if sel != nil && (sel.Format() != pimage.FormatA8 || sel.Width() != dst.Width() || sel.Height() != dst.Height()) {
		s.Stats.Dropped++
		return false
	}

	level, fwd, spread := place(tp, d, opts)
	inv, ok := fwd.Invert()
	if !ok {
		s.Stats.Dropped++
		return false
	}

	box := fwd.TransformRect(level.Bounds()).Inset(-int(math.Ceil(spread))).Intersect(dst.Bounds())
	if sel != nil && !opts.SelectionBounds.Empty() {
		box = box.Intersect(opts.SelectionBounds)
	}
	if box.Empty() {
		s.Stats.Clipped++
		return false
	}

	px := blend.Pixel{Mode: opts.Mode, AlphaLock: opts.AlphaLock, Erase: opts.Erase}
	h := opts.Hardness
	alpha := d.Opacity * c.A
	changed := 0
	for y := box.Min.Y; y < box.Max.Y; y++ {
		row := dst.RowBytes(y)
		var srow []byte
		if sel != nil {
			srow = sel.RowBytes(y)
		}
		for x := box.Min.X; x < box.Max.X; x++ {
			m := 1.0
			if srow != nil {
				if srow[x] == 0 {
					continue
				}
				m = float64(srow[x]) / 255
			}
			fx, fy := float64(x)+0.5, float64(y)+0.5
			if spread > 0 {
				fx += (2*hash2(x, y, opts.Seed) - 1) * spread
				fy += (2*hash2(y, x, opts.Seed^0xd1ff) - 1) * spread
			}
			u, v := inv.TransformPoint(fx, fy)
			t := pimage.SampleCoverage(level, u, v)
			if t <= 0 {
				continue
			}
			if h > 0 {
				t = max(0, min((t-(1-h))/h, 1))
			}
			if opts.Grain > 0 {
				t *= 1 - opts.Grain + opts.Grain*valueNoise(x, y, opts.Seed)
			}
			if px.Over(row[x*4:x*4+4], c, t*alpha*m) {
				changed++
			}
		}
	}
	if changed == 0 {
		return false
	}
	s.Stats.Stamped++
	s.Stats.Pixels += uint64(changed)
	return true
}

// Bounds returns the destination rectangle a dab can touch, before
// clipping to any buffer.
func Bounds(tp *tip.Tip, d stroke.Dab, opts Options) image.Rectangle {
	if tp == nil || d.Size <= 0 {
		return image.Rectangle{}
	}
	level, fwd, spread := place(tp, d, opts)
	return fwd.TransformRect(level.Bounds()).Inset(-int(math.Ceil(spread)))
}

// place picks the tip level for the dab size and returns the transform
// from level texels to destination pixels and the diffusion radius.
func place(tp *tip.Tip, d stroke.Dab, opts Options) (*pimage.ImageBuf, pimage.Affine, float64) {
	level := tp.Level(d.Size)
	scale := d.Size / tp.ContentSize(level)
	round := opts.Roundness
	if round <= 0 {
		round = 1
	}
	lw, lh := float64(level.Width()), float64(level.Height())
	fwd := pimage.Translate(d.X, d.Y).
		Multiply(pimage.Rotate(d.Rotation)).
		Multiply(pimage.Scale(scale, scale*round)).
		Multiply(pimage.Translate(-lw/2, -lh/2))
	return level, fwd, opts.Diffusion * d.Size / 8
}

func isBad(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}
