package paint

import (
	"github.com/gogpu/paint/internal/blend"
	"github.com/gogpu/paint/internal/brush"
	"github.com/gogpu/paint/internal/dab"
	pimage "github.com/gogpu/paint/internal/image"
	"github.com/gogpu/paint/internal/layer"
	"github.com/gogpu/paint/internal/selection"
)

// Types shared with the engine internals.
type (
	// Profile is an immutable brush. Build one with NewProfile.
	Profile = brush.Profile
	// ProfileParams describes a brush before validation.
	ProfileParams = brush.Params
	// Curve maps pen pressure to a factor.
	Curve = brush.Curve
	// CurvePoint is one control point of a Curve.
	CurvePoint = brush.CurvePoint
	// BlendMode is one of the 13 separable blend modes.
	BlendMode = blend.Mode
	// Layer is a copy of one layer stack entry.
	Layer = layer.Layer
	// LayerKind distinguishes pixel layers from groups.
	LayerKind = layer.Kind
	// SelectionMode combines a new shape with the current selection.
	SelectionMode = selection.Mode
	// Affine is a 2D affine transform.
	Affine = pimage.Affine
	// Point is a position in canvas pixels.
	Point = pimage.Point
	// DabStats counts dab outcomes.
	DabStats = dab.Stats
)

// Layer kinds.
const (
	LayerNormal = layer.KindNormal
	LayerGroup  = layer.KindGroup
)

// Selection modes.
const (
	SelectReplace  = selection.Replace
	SelectAdd      = selection.Add
	SelectSubtract = selection.Subtract
)

// Blend modes.
const (
	Normal     = blend.Normal
	Multiply   = blend.Multiply
	Screen     = blend.Screen
	Overlay    = blend.Overlay
	Darken     = blend.Darken
	Lighten    = blend.Lighten
	ColorDodge = blend.ColorDodge
	ColorBurn  = blend.ColorBurn
	Add        = blend.Add
	SoftLight  = blend.SoftLight
	HardLight  = blend.HardLight
	Difference = blend.Difference
	Exclusion  = blend.Exclusion
)

// NewProfile validates p, clamping out of range values. The error wraps
// ErrOutOfRange when anything was clamped; the profile is usable either way.
func NewProfile(p ProfileParams) (Profile, error) {
	return brush.NewChecked(p)
}

// ParseBlendMode returns the mode with the given name, ignoring case,
// spaces and dashes.
func ParseBlendMode(name string) (BlendMode, bool) {
	return blend.ParseMode(name)
}

// Affine constructors.
var (
	Identity  = pimage.Identity
	Translate = pimage.Translate
	Scale     = pimage.Scale
	Rotate    = pimage.Rotate
	RotateAt  = pimage.RotateAt
)
