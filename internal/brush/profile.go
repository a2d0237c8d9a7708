// Package brush defines the immutable brush profile that drives dab
// placement and compositing.
package brush

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/gogpu/paint/internal/blend"
)

// ErrOutOfRange reports that NewChecked clamped at least one parameter.
var ErrOutOfRange = errors.New("brush: parameter out of range")

// Limits on brush parameters.
const (
	MinSize        = 1.0
	MaxSize        = 5000.0
	MinSpacing     = 0.01
	MaxSpacing     = 10.0
	DefaultSpacing = 0.1
)

// Params is the mutable description of a brush, validated by New.
type Params struct {
	Name string
	// Size is the dab diameter in pixels at full pressure.
	Size float64
	// Opacity scales every dab, in [0, 1].
	Opacity float64
	// Hardness sharpens the tip edge, in [0, 1]. Zero passes coverage through.
	Hardness float64
	// Smoothing damps pointer samples, in [0, 1].
	Smoothing float64
	// Grain modulates coverage with canvas anchored noise, in [0, 1].
	Grain float64
	// Diffusion displaces tip sampling per pixel, in [0, 1].
	Diffusion float64
	// Spacing is the distance between dabs as a fraction of Size.
	// Zero selects DefaultSpacing.
	Spacing float64
	// Impasto is the paint thickness, in [0, 1]. It is carried for presets
	// and persisted, but not rendered.
	Impasto float64
	Mode    blend.Mode
	// Tip names the tip texture in the tip cache.
	Tip string
	// Scatter offsets dabs randomly by up to Scatter·size/2, in [0, 1].
	Scatter float64
	// AngleJitter rotates dabs randomly by up to AngleJitter·π, in [0, 1].
	AngleJitter float64
	// Angle is the fixed tip rotation in radians.
	Angle float64
	// Roundness squashes the tip vertically, in (0, 1]. Zero means 1.
	Roundness float64

	PressureSize    Curve
	PressureOpacity Curve
}

// Profile is an immutable, validated brush.
// The zero Profile is not useful; use New or Default.
type Profile struct {
	p Params
}

// Default returns the hard round brush used when nothing else is selected.
func Default() Profile {
	return New(Params{
		Name:     "Hard Round",
		Size:     20,
		Opacity:  1,
		Hardness: 1,
		Spacing:  DefaultSpacing,
		Tip:      "hard",
	})
}

// New validates p, clamping out of range values without error.
func New(p Params) Profile {
	pr, _ := NewChecked(p)
	return pr
}

// NewChecked is like New but reports whether anything was clamped.
// The returned profile is usable either way.
func NewChecked(p Params) (Profile, error) {
	var bad []string
	fix := func(name string, v *float64, lo, hi float64) {
		c := clamp(*v, lo, hi)
		if c != *v {
			bad = append(bad, name)
			*v = c
		}
	}
	if p.Spacing == 0 {
		p.Spacing = DefaultSpacing
	}
	if p.Roundness == 0 {
		p.Roundness = 1
	}
	fix("size", &p.Size, MinSize, MaxSize)
	fix("opacity", &p.Opacity, 0, 1)
	fix("hardness", &p.Hardness, 0, 1)
	fix("smoothing", &p.Smoothing, 0, 1)
	fix("grain", &p.Grain, 0, 1)
	fix("diffusion", &p.Diffusion, 0, 1)
	fix("spacing", &p.Spacing, MinSpacing, MaxSpacing)
	fix("impasto", &p.Impasto, 0, 1)
	fix("scatter", &p.Scatter, 0, 1)
	fix("angle jitter", &p.AngleJitter, 0, 1)
	fix("roundness", &p.Roundness, 0.01, 1)
	if math.IsNaN(p.Angle) || math.IsInf(p.Angle, 0) {
		bad = append(bad, "angle")
		p.Angle = 0
	}
	if !p.Mode.IsValid() {
		bad = append(bad, "mode")
		p.Mode = blend.Normal
	}
	if p.Tip == "" {
		p.Tip = "hard"
	}
	p.PressureSize = slices.Clone(p.PressureSize)
	p.PressureOpacity = slices.Clone(p.PressureOpacity)

	if len(bad) > 0 {
		return Profile{p: p}, fmt.Errorf("%w: %v", ErrOutOfRange, bad)
	}
	return Profile{p: p}, nil
}

// Params returns a copy of the validated parameters.
func (pr Profile) Params() Params {
	p := pr.p
	p.PressureSize = slices.Clone(p.PressureSize)
	p.PressureOpacity = slices.Clone(p.PressureOpacity)
	return p
}

// Accessors for the validated parameters.
func (pr Profile) Name() string         { return pr.p.Name }
func (pr Profile) Size() float64        { return pr.p.Size }
func (pr Profile) Opacity() float64     { return pr.p.Opacity }
func (pr Profile) Hardness() float64    { return pr.p.Hardness }
func (pr Profile) Smoothing() float64   { return pr.p.Smoothing }
func (pr Profile) Grain() float64       { return pr.p.Grain }
func (pr Profile) Diffusion() float64   { return pr.p.Diffusion }
func (pr Profile) Spacing() float64     { return pr.p.Spacing }
func (pr Profile) Impasto() float64     { return pr.p.Impasto }
func (pr Profile) Mode() blend.Mode     { return pr.p.Mode }
func (pr Profile) Tip() string          { return pr.p.Tip }
func (pr Profile) Scatter() float64     { return pr.p.Scatter }
func (pr Profile) AngleJitter() float64 { return pr.p.AngleJitter }
func (pr Profile) Angle() float64       { return pr.p.Angle }
func (pr Profile) Roundness() float64   { return pr.p.Roundness }

// Step returns the dab spacing in pixels, never below one pixel.
func (pr Profile) Step() float64 {
	return math.Max(1, pr.p.Size*pr.p.Spacing)
}

// SizeAt returns the dab size for pen pressure p.
func (pr Profile) SizeAt(p float64) float64 {
	return pr.p.Size * pr.p.PressureSize.Eval(p)
}

// OpacityAt returns the dab opacity for pen pressure p. Without a curve,
// pressure is clamped to [0.1, 1] so light touches still leave a mark.
func (pr Profile) OpacityAt(p float64) float64 {
	if pr.p.PressureOpacity == nil {
		return pr.p.Opacity * clamp(p, 0.1, 1)
	}
	return pr.p.Opacity * pr.p.PressureOpacity.Eval(p)
}

// WithSize returns a copy with a different size.
func (pr Profile) WithSize(size float64) Profile {
	p := pr.p
	p.Size = size
	return New(p)
}

// WithOpacity returns a copy with a different opacity.
func (pr Profile) WithOpacity(opacity float64) Profile {
	p := pr.p
	p.Opacity = opacity
	return New(p)
}

// WithHardness returns a copy with a different hardness.
func (pr Profile) WithHardness(h float64) Profile {
	p := pr.p
	p.Hardness = h
	return New(p)
}

// WithMode returns a copy with a different blend mode.
func (pr Profile) WithMode(m blend.Mode) Profile {
	p := pr.p
	p.Mode = m
	return New(p)
}

// WithTip returns a copy using a different tip.
func (pr Profile) WithTip(name string) Profile {
	p := pr.p
	p.Tip = name
	return New(p)
}
