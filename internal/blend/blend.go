// Package blend implements the separable blend modes used for dabs and
// layer composition.
//
// Blend functions operate on straight (non-premultiplied) channel values in
// [0, 1]. Buffers stay premultiplied; the compositing helpers unpremultiply
// on the way in and premultiply on the way out.
//
// References:
//   - W3C Compositing and Blending Level 1: https://www.w3.org/TR/compositing-1/
//   - Pegtop soft light: http://www.pegtop.net/delphi/articles/blendmodes/softlight.htm
package blend

import (
	"fmt"
	"math"
	"strings"
)

// Mode is one of the 13 blend modes understood by brushes and layers.
// The ordinal is persisted in project files and must not be reordered.
type Mode uint8

const (
	Normal     Mode = iota // S
	Multiply               // D * S
	Screen                 // 1 - (1-D)(1-S)
	Overlay                // HardLight with swapped operands
	Darken                 // min(D, S)
	Lighten                // max(D, S)
	ColorDodge             // D / (1-S), clamped
	ColorBurn              // 1 - (1-D)/S, clamped
	Add                    // min(1, D + S)
	SoftLight              // Pegtop
	HardLight              // Multiply or Screen depending on S
	Difference             // |D - S|
	Exclusion              // D + S - 2DS

	modeCount
)

var modeNames = [modeCount]string{
	Normal:     "Normal",
	Multiply:   "Multiply",
	Screen:     "Screen",
	Overlay:    "Overlay",
	Darken:     "Darken",
	Lighten:    "Lighten",
	ColorDodge: "Color Dodge",
	ColorBurn:  "Color Burn",
	Add:        "Add",
	SoftLight:  "Soft Light",
	HardLight:  "Hard Light",
	Difference: "Difference",
	Exclusion:  "Exclusion",
}

// Modes returns all blend modes in ordinal order.
func Modes() []Mode {
	m := make([]Mode, modeCount)
	for i := range m {
		m[i] = Mode(i)
	}
	return m
}

// IsValid reports whether m is a known mode.
func (m Mode) IsValid() bool {
	return m < modeCount
}

// String returns the display name of the mode.
func (m Mode) String() string {
	if !m.IsValid() {
		return fmt.Sprintf("Mode(%d)", m)
	}
	return modeNames[m]
}

// ParseMode looks a mode up by name. Matching ignores case, spaces,
// dashes and underscores, so "color-dodge" and "ColorDodge" both work.
func ParseMode(name string) (Mode, bool) {
	key := normalize(name)
	for i, n := range modeNames {
		if normalize(n) == key {
			return Mode(i), true
		}
	}
	return Normal, false
}

func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_':
			return -1
		}
		return r
	}, strings.ToLower(s))
}

// Func is a per-channel blend function B(D, S) on straight values in [0, 1].
type Func func(d, s float64) float64

// FuncFor returns the blend function for m. Unknown modes blend as Normal.
func FuncFor(m Mode) Func {
	switch m {
	case Multiply:
		return multiply
	case Screen:
		return screen
	case Overlay:
		return overlay
	case Darken:
		return math.Min
	case Lighten:
		return math.Max
	case ColorDodge:
		return colorDodge
	case ColorBurn:
		return colorBurn
	case Add:
		return add
	case SoftLight:
		return softLight
	case HardLight:
		return hardLight
	case Difference:
		return difference
	case Exclusion:
		return exclusion
	default:
		return normal
	}
}

func normal(_, s float64) float64 { return s }

func multiply(d, s float64) float64 { return d * s }

func screen(d, s float64) float64 { return 1 - (1-d)*(1-s) }

func overlay(d, s float64) float64 {
	if d < 0.5 {
		return 2 * d * s
	}
	return 1 - 2*(1-d)*(1-s)
}

func hardLight(d, s float64) float64 {
	if s < 0.5 {
		return 2 * d * s
	}
	return 1 - 2*(1-d)*(1-s)
}

func colorDodge(d, s float64) float64 {
	switch {
	case d == 0:
		return 0
	case s >= 1:
		return 1
	}
	return math.Min(1, d/(1-s))
}

func colorBurn(d, s float64) float64 {
	switch {
	case d >= 1:
		return 1
	case s <= 0:
		return 0
	}
	return 1 - math.Min(1, (1-d)/s)
}

func add(d, s float64) float64 { return math.Min(1, d+s) }

// softLight uses the Pegtop formula: (1 - 2S)D² + 2SD.
func softLight(d, s float64) float64 { return (1-2*s)*d*d + 2*s*d }

func difference(d, s float64) float64 { return math.Abs(d - s) }

func exclusion(d, s float64) float64 { return d + s - 2*d*s }
