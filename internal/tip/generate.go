package tip

import (
	"image"
	"image/color"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/anthonynsimon/bild/blur"
	"golang.org/x/image/draw"

	pimage "github.com/gogpu/paint/internal/image"
)

// Style selects a procedural tip generator.
type Style uint8

const (
	// StyleHard is an antialiased disc with a fully opaque interior.
	StyleHard Style = iota
	// StyleSoft is a Gaussian falloff disc.
	StyleSoft
	// StyleSquare is an antialiased square.
	StyleSquare
	// StylePencil is a noisy disc with linear falloff.
	StylePencil
	// StyleBristle is a cluster of small ellipses concentrated at the center.
	StyleBristle
	// StyleCharcoal is a set of blurred blobs with grain and a cubic falloff.
	StyleCharcoal
	// StyleWatercolor is a translucent disc with a darker rim.
	StyleWatercolor

	styleCount
)

var styleNames = [styleCount]string{
	StyleHard:       "hard",
	StyleSoft:       "soft",
	StyleSquare:     "square",
	StylePencil:     "pencil",
	StyleBristle:    "bristle",
	StyleCharcoal:   "charcoal",
	StyleWatercolor: "watercolor",
}

var styleAliases = map[string]Style{
	"round":      StyleHard,
	"round-hard": StyleHard,
	"round-soft": StyleSoft,
	"airbrush":   StyleSoft,
}

// String returns the name a style is requested by.
func (s Style) String() string {
	if s < styleCount {
		return styleNames[s]
	}
	return "unknown"
}

// ParseStyle maps a tip name to its generator.
func ParseStyle(name string) (Style, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range styleNames {
		if n == name {
			return Style(i), true
		}
	}
	s, ok := styleAliases[name]
	return s, ok
}

// supersample is the per-axis oversampling factor for hard edged shapes.
const supersample = 4

// Generate renders a tip of the given style with a base edge of size pixels.
// Noise based styles are fully determined by seed.
func Generate(style Style, size int, seed uint64) *Tip {
	size = evenCeil(max(size, minLevel*2))
	rng := rand.New(rand.NewPCG(seed, uint64(style)))
	name := style.String()

	switch style {
	case StyleHard:
		return newFromLevels(name, 0.1, levels(size, hardDisc))
	case StyleSoft:
		return newFromLevels(name, 0.1, levels(size, softDisc))
	case StyleSquare:
		return newFromLevels(name, 0.1, levels(size, square))
	case StylePencil:
		return New(name, pencil(size, rng), 0.05)
	case StyleBristle:
		return New(name, bristle(size, rng), 0.05)
	case StyleCharcoal:
		return New(name, charcoal(size, rng), 0.05)
	case StyleWatercolor:
		return New(name, watercolor(size, rng), 0.05)
	default:
		return newFromLevels(StyleHard.String(), 0.1, levels(size, hardDisc))
	}
}

// levels renders every mip level directly so edges stay sharp at each size.
func levels(size int, gen func(n int) *pimage.ImageBuf) []*pimage.ImageBuf {
	var out []*pimage.ImageBuf
	for n := size; ; n = evenCeil(n / 2) {
		out = append(out, gen(n))
		if n <= minLevel*2 {
			return out
		}
	}
}

func hardDisc(n int) *pimage.ImageBuf {
	return hardDiscRadius(n, 0.4)
}

func square(n int) *pimage.ImageBuf {
	s := float64(n * supersample)
	lo, hi := 0.1*s, 0.9*s
	pts := []pimage.Point{{X: lo, Y: lo}, {X: hi, Y: lo}, {X: hi, Y: hi}, {X: lo, Y: hi}}
	return downsample(pimage.Coverage(n*supersample, n*supersample, pts), n)
}

func softDisc(n int) *pimage.ImageBuf {
	core := hardDiscRadius(n, 0.25)
	blurred := blur.Gaussian(core.Alpha(), float64(n)/6)
	out := pimage.MustNew(n, n, pimage.FormatA8)
	var peak uint8
	for y := range n {
		row := out.RowBytes(y)
		for x := range n {
			a := blurred.Pix[blurred.PixOffset(x, y)+3]
			row[x] = a
			peak = max(peak, a)
		}
	}
	normalize(out, peak)
	return out
}

func hardDiscRadius(n int, frac float64) *pimage.ImageBuf {
	s := float64(n * supersample)
	pts := pimage.Ellipse(s/2, s/2, frac*s, frac*s)
	return downsample(pimage.Coverage(n*supersample, n*supersample, pts), n)
}

func pencil(n int, rng *rand.Rand) *pimage.ImageBuf {
	out := pimage.MustNew(n, n, pimage.FormatA8)
	r := 0.45 * float64(n)
	forDisc(out, r, func(t float64) float64 {
		return (1 - t) * rng.Float64()
	})
	return out
}

func bristle(n int, rng *rand.Rand) *pimage.ImageBuf {
	out := pimage.MustNew(n, n, pimage.FormatA8)
	c := float64(n) / 2
	reach := 0.4 * float64(n)
	_ = out.Paint(func(p *pimage.Painter) error {
		for range 400 {
			// Triangular distribution with its mode at the center.
			d := reach * (1 - math.Sqrt(rng.Float64()))
			sin, cos := math.Sincos(2 * math.Pi * rng.Float64())
			rad := 1 + 3*rng.Float64()
			p.SetColor(color.Alpha{A: uint8(50 + rng.IntN(206))})
			p.FillEllipse(c+d*cos, c+d*sin, rad, rad)
		}
		return nil
	})
	return out
}

func charcoal(n int, rng *rand.Rand) *pimage.ImageBuf {
	blobs := pimage.MustNew(n, n, pimage.FormatA8)
	c := float64(n) / 2
	_ = blobs.Paint(func(p *pimage.Painter) error {
		for range 20 {
			d := 0.3 * float64(n) * math.Sqrt(rng.Float64())
			sin, cos := math.Sincos(2 * math.Pi * rng.Float64())
			rad := float64(n) * (0.08 + 0.08*rng.Float64())
			p.SetColor(color.Alpha{A: uint8(120 + rng.IntN(136))})
			p.FillEllipse(c+d*cos, c+d*sin, rad, rad)
		}
		return nil
	})
	soft := blur.Gaussian(blobs.Alpha(), float64(n)/32)

	out := pimage.MustNew(n, n, pimage.FormatA8)
	r := 0.45 * float64(n)
	for y := range n {
		row := out.RowBytes(y)
		for x := range n {
			t := math.Hypot(float64(x)+0.5-c, float64(y)+0.5-c) / r
			if t >= 1 {
				continue
			}
			v := float64(soft.Pix[soft.PixOffset(x, y)+3])/255 + 0.15*rng.NormFloat64()
			v = max(0, min(v, 1)) * (1 - t*t*t)
			row[x] = uint8(v*255 + 0.5)
		}
	}
	return out
}

func watercolor(n int, rng *rand.Rand) *pimage.ImageBuf {
	out := pimage.MustNew(n, n, pimage.FormatA8)
	forDisc(out, 0.45*float64(n), func(t float64) float64 {
		rim := (t - 0.85) / 0.08
		v := 0.35*(1-t*t) + 0.65*math.Exp(-rim*rim)
		return min(v, 1) * (0.8 + 0.2*rng.Float64())
	})
	return out
}

// forDisc evaluates f at the normalized radius t in [0, 1) of every pixel
// inside the centered disc of radius r.
func forDisc(b *pimage.ImageBuf, r float64, f func(t float64) float64) {
	c := float64(b.Width()) / 2
	for y := range b.Height() {
		row := b.RowBytes(y)
		for x := range b.Width() {
			t := math.Hypot(float64(x)+0.5-c, float64(y)+0.5-c) / r
			if t >= 1 {
				continue
			}
			row[x] = uint8(max(0, min(f(t), 1))*255 + 0.5)
		}
	}
}

// downsample filters a supersampled mask down to n×n with the tent kernel.
func downsample(src *image.Alpha, n int) *pimage.ImageBuf {
	out := pimage.MustNew(n, n, pimage.FormatA8)
	draw.BiLinear.Scale(out.Alpha(), out.Bounds(), src, src.Bounds(), draw.Src, nil)
	return out
}

func normalize(b *pimage.ImageBuf, peak uint8) {
	if peak == 0 || peak == 255 {
		return
	}
	for y := range b.Height() {
		row := b.RowBytes(y)
		for x, v := range row {
			row[x] = uint8(min(255, (int(v)*255+int(peak)/2)/int(peak)))
		}
	}
}
