package brush

import "slices"

// CurvePoint is one control point of a pressure curve.
type CurvePoint struct {
	In, Out float64
}

// Curve maps pen pressure in [0, 1] to a factor in [0, 1] by piecewise
// linear interpolation between control points sorted by In.
//
// A nil Curve is the identity. Inputs before the first point or after the
// last take that point's output.
type Curve []CurvePoint

// NewCurve returns a curve through pts, sorted and clamped to the unit square.
func NewCurve(pts ...CurvePoint) Curve {
	c := make(Curve, len(pts))
	for i, p := range pts {
		c[i] = CurvePoint{In: clamp01(p.In), Out: clamp01(p.Out)}
	}
	slices.SortStableFunc(c, func(a, b CurvePoint) int {
		switch {
		case a.In < b.In:
			return -1
		case a.In > b.In:
			return 1
		}
		return 0
	})
	return c
}

// Eval maps pressure p through the curve.
func (c Curve) Eval(p float64) float64 {
	p = clamp01(p)
	switch len(c) {
	case 0:
		return p
	case 1:
		return c[0].Out
	}
	if p <= c[0].In {
		return c[0].Out
	}
	for i := 1; i < len(c); i++ {
		a, b := c[i-1], c[i]
		if p > b.In {
			continue
		}
		if b.In == a.In {
			return b.Out
		}
		t := (p - a.In) / (b.In - a.In)
		return a.Out + (b.Out-a.Out)*t
	}
	return c[len(c)-1].Out
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

// clamp limits v to [lo, hi] and maps NaN to lo.
func clamp(v, lo, hi float64) float64 {
	if v != v || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
