package image

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// CompositeOp selects how painted coverage combines with the destination.
type CompositeOp uint8

const (
	// OpOver composites the source over the destination.
	OpOver CompositeOp = iota
	// OpSrc replaces the destination inside the painted coverage.
	OpSrc
	// OpClear removes destination alpha proportionally to coverage.
	OpClear
)

// Point is a position in buffer coordinates.
type Point struct {
	X, Y float64
}

// Painter draws vector shapes and images into an ImageBuf.
//
// A Painter is obtained through ImageBuf.Paint and is only valid inside the
// callback. Shapes are rasterized with golang.org/x/image/vector and
// composited in premultiplied space, so RGBA targets stay premultiplied.
type Painter struct {
	dst   *ImageBuf
	color color.RGBA // premultiplied
	op    CompositeOp
	clip  image.Rectangle
	xf    Affine

	z    *vector.Rasterizer
	mask *image.Alpha
}

// Paint acquires a painter for b, runs fn and releases the painter even if
// fn returns an error or panics.
func (b *ImageBuf) Paint(fn func(p *Painter) error) error {
	if b == nil {
		return ErrInvalidBuffer
	}
	p := &Painter{
		dst:   b,
		color: color.RGBA{A: 255},
		clip:  b.Bounds(),
		xf:    Identity(),
	}
	defer p.release()
	return fn(p)
}

func (p *Painter) release() {
	p.dst = nil
	p.z = nil
	p.mask = nil
}

// SetColor sets the fill color.
func (p *Painter) SetColor(c color.Color) {
	p.color = color.RGBAModel.Convert(c).(color.RGBA)
}

// SetOp sets the composition mode.
func (p *Painter) SetOp(op CompositeOp) {
	p.op = op
}

// SetClip restricts painting to r. The clip never exceeds the buffer bounds.
func (p *Painter) SetClip(r image.Rectangle) {
	p.clip = r.Intersect(p.dst.Bounds())
}

// ResetClip removes the clip rectangle.
func (p *Painter) ResetClip() {
	p.clip = p.dst.Bounds()
}

// SetTransform sets the transformation applied to shape and image coordinates.
func (p *Painter) SetTransform(m Affine) {
	p.xf = m
}

// Transform returns the current transformation.
func (p *Painter) Transform() Affine {
	return p.xf
}

// FillPolygon fills the closed polygon through pts.
func (p *Painter) FillPolygon(pts []Point) {
	if len(pts) < 3 {
		return
	}
	z := p.rasterizer()
	p.addPath(z, pts)
	p.fill(z)
}

// FillEllipse fills the axis-aligned ellipse centered at (cx, cy).
func (p *Painter) FillEllipse(cx, cy, rx, ry float64) {
	if rx <= 0 || ry <= 0 {
		return
	}
	z := p.rasterizer()
	p.addPath(z, ellipse(cx, cy, rx, ry, true))
	p.fill(z)
}

// StrokeEllipse outlines the ellipse centered at (cx, cy) with a round-joined
// pen of the given width.
func (p *Painter) StrokeEllipse(cx, cy, rx, ry, width float64) {
	pts := ellipse(cx, cy, rx, ry, true)
	p.DrawPolyline(append(pts, pts[0]), width)
}

// StrokeRect outlines r with a round-joined pen of the given width.
func (p *Painter) StrokeRect(x, y, w, h, width float64) {
	p.DrawPolyline([]Point{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}, {x, y}}, width)
}

// DrawLine draws a segment with round caps.
func (p *Painter) DrawLine(x0, y0, x1, y1, width float64) {
	p.DrawPolyline([]Point{{x0, y0}, {x1, y1}}, width)
}

// DrawPolyline strokes the open polyline through pts with round caps and joins.
func (p *Painter) DrawPolyline(pts []Point, width float64) {
	if len(pts) == 0 || width <= 0 {
		return
	}
	hw := width / 2
	z := p.rasterizer()
	// Every sub-path is wound the same way so overlaps accumulate instead of cancelling.
	for i, pt := range pts {
		p.addPath(z, ellipse(pt.X, pt.Y, hw, hw, false))
		if i == 0 {
			continue
		}
		prev := pts[i-1]
		dx, dy := pt.X-prev.X, pt.Y-prev.Y
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		nx, ny := -dy/l*hw, dx/l*hw
		p.addPath(z, []Point{
			{prev.X + nx, prev.Y + ny},
			{pt.X + nx, pt.Y + ny},
			{pt.X - nx, pt.Y - ny},
			{prev.X - nx, prev.Y - ny},
		})
	}
	p.fill(z)
}

// DrawImage draws src with its top-left corner at (x, y), through the
// current transform, using bilinear filtering. Subpixel offsets are honored.
func (p *Painter) DrawImage(src image.Image, x, y float64) {
	m := p.xf.Multiply(Translate(x, y))
	dst := p.target()
	sub, ok := dst.(interface {
		SubImage(image.Rectangle) image.Image
	})
	if !ok {
		return
	}
	clipped, ok := sub.SubImage(p.clip).(draw.Image)
	if !ok || p.clip.Empty() {
		return
	}
	op := draw.Over
	if p.op == OpSrc {
		op = draw.Src
	}
	draw.BiLinear.Transform(clipped, m.Aff3(), src, src.Bounds(), op, nil)
}

// Coverage rasterizes the closed polygon pts into a fresh A8 mask of the
// given size without touching any buffer.
func Coverage(width, height int, pts []Point) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, width, height))
	if len(pts) < 3 || width <= 0 || height <= 0 {
		return mask
	}
	z := vector.NewRasterizer(width, height)
	z.DrawOp = draw.Src
	z.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, pt := range pts[1:] {
		z.LineTo(float32(pt.X), float32(pt.Y))
	}
	z.ClosePath()
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask
}

func (p *Painter) target() draw.Image {
	if p.dst.format == FormatA8 {
		return p.dst.Alpha()
	}
	return p.dst.RGBA()
}

func (p *Painter) rasterizer() *vector.Rasterizer {
	w, h := p.dst.width, p.dst.height
	if p.z == nil {
		p.z = vector.NewRasterizer(w, h)
	} else {
		p.z.Reset(w, h)
	}
	p.z.DrawOp = draw.Src
	return p.z
}

func (p *Painter) addPath(z *vector.Rasterizer, pts []Point) {
	for i, pt := range pts {
		x, y := p.xf.TransformPoint(pt.X, pt.Y)
		if i == 0 {
			z.MoveTo(float32(x), float32(y))
			continue
		}
		z.LineTo(float32(x), float32(y))
	}
	z.ClosePath()
}

// fill composites the rasterized coverage into the destination.
func (p *Painter) fill(z *vector.Rasterizer) {
	if p.mask == nil || p.mask.Rect != p.dst.Bounds() {
		p.mask = image.NewAlpha(p.dst.Bounds())
	} else {
		clear(p.mask.Pix)
	}
	z.Draw(p.mask, p.mask.Bounds(), image.Opaque, image.Point{})

	c := p.color
	for y := p.clip.Min.Y; y < p.clip.Max.Y; y++ {
		mrow := p.mask.Pix[y*p.mask.Stride : y*p.mask.Stride+p.dst.width]
		drow := p.dst.RowBytes(y)
		for x := p.clip.Min.X; x < p.clip.Max.X; x++ {
			m := uint32(mrow[x])
			if m == 0 {
				continue
			}
			if p.dst.format == FormatA8 {
				drow[x] = compositeChannel(drow[x], c.A, c.A, m, p.op)
				continue
			}
			i := x * 4
			drow[i] = compositeChannel(drow[i], c.R, c.A, m, p.op)
			drow[i+1] = compositeChannel(drow[i+1], c.G, c.A, m, p.op)
			drow[i+2] = compositeChannel(drow[i+2], c.B, c.A, m, p.op)
			drow[i+3] = compositeChannel(drow[i+3], c.A, c.A, m, p.op)
		}
	}
}

// compositeChannel combines one premultiplied channel d with source s
// (source alpha sa) under coverage m, all in 0..255.
func compositeChannel(d, s, sa uint8, m uint32, op CompositeOp) uint8 {
	switch op {
	case OpSrc:
		// lerp(d, s, m)
		return uint8((uint32(d)*(255-m) + uint32(s)*m + 127) / 255)
	case OpClear:
		// d * (1 - sa*m)
		k := uint32(sa) * m / 255
		return uint8((uint32(d)*(255-k) + 127) / 255)
	default:
		// s*m + d*(1 - sa*m)
		k := uint32(sa) * m / 255
		return uint8((uint32(s)*m + uint32(d)*(255-k) + 127) / 255)
	}
}

// Ellipse returns a closed polygon approximating the axis-aligned ellipse
// centered at (cx, cy), suitable for Coverage.
func Ellipse(cx, cy, rx, ry float64) []Point {
	return ellipse(cx, cy, rx, ry, true)
}

// ellipse returns a closed polygon approximating an ellipse. ccw selects
// the winding direction in screen space.
func ellipse(cx, cy, rx, ry float64, ccw bool) []Point {
	n := int(math.Ceil(math.Max(rx, ry) * 4))
	n = max(16, min(n, 512))
	pts := make([]Point, n)
	for i := range n {
		t := 2 * math.Pi * float64(i) / float64(n)
		if !ccw {
			t = -t
		}
		sin, cos := math.Sincos(t)
		pts[i] = Point{cx + rx*cos, cy + ry*sin}
	}
	return pts
}
