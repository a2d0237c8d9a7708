package blend

// Color is a straight-alpha color with channels in [0, 1].
type Color struct {
	R, G, B, A float64
}

// Pixel describes how one source sample lands on one destination pixel.
type Pixel struct {
	Mode Mode
	// AlphaLock keeps the destination alpha unchanged.
	AlphaLock bool
	// Erase removes destination alpha by the source alpha instead of blending.
	Erase bool
}

// Over composites a straight-alpha source color with effective alpha sa onto
// the premultiplied destination pixel dst (4 bytes, modified in place).
//
// The color term follows the W3C separable model
//
//	Cr = (1 - Da)·S + Da·B(D, S)
//	co = Sa·Cr + (1 - Sa)·Da·D
//	ao = Sa + Da·(1 - Sa)
//
// It reports whether dst changed.
func (px Pixel) Over(dst []byte, s Color, sa float64) bool {
	if sa <= 0 {
		return false
	}
	if sa > 1 {
		sa = 1
	}
	da := float64(dst[3]) / 255

	var dr, dg, db float64
	if dst[3] > 0 {
		dr = float64(dst[0]) / float64(dst[3])
		dg = float64(dst[1]) / float64(dst[3])
		db = float64(dst[2]) / float64(dst[3])
	}

	var cr, cg, cb, ao float64
	if px.Erase {
		ao = da * (1 - sa)
		cr, cg, cb = dr*ao, dg*ao, db*ao
	} else {
		f := FuncFor(px.Mode)
		ao = sa + da*(1-sa)
		cr = sa*((1-da)*s.R+da*f(dr, s.R)) + (1-sa)*da*dr
		cg = sa*((1-da)*s.G+da*f(dg, s.G)) + (1-sa)*da*dg
		cb = sa*((1-da)*s.B+da*f(db, s.B)) + (1-sa)*da*db
	}

	if px.AlphaLock {
		if ao <= 0 {
			return false
		}
		// Re-express the straight result color at the original alpha.
		k := da / ao
		cr, cg, cb, ao = cr*k, cg*k, cb*k, da
	}

	a := toByte(ao)
	r := min(toByte(cr), a)
	g := min(toByte(cg), a)
	b := min(toByte(cb), a)
	if dst[0] == r && dst[1] == g && dst[2] == b && dst[3] == a {
		return false
	}
	dst[0], dst[1], dst[2], dst[3] = r, g, b, a
	return true
}

// Row composites a premultiplied source row onto a premultiplied
// destination row of the same length using mode m and opacity.
//
// mask, when non-nil, holds one coverage byte per pixel that further scales
// the source alpha (used for clipping masks).
func Row(dst, src, mask []byte, m Mode, opacity float64) {
	px := Pixel{Mode: m}
	n := min(len(dst), len(src)) / 4
	for i := range n {
		o := i * 4
		a := src[o+3]
		if a == 0 {
			continue
		}
		sa := float64(a) / 255 * opacity
		if mask != nil {
			if mask[i] == 0 {
				continue
			}
			sa *= float64(mask[i]) / 255
		}
		if m == Normal && sa >= 1 {
			copy(dst[o:o+4], src[o:o+4])
			continue
		}
		inv := 1 / float64(a)
		px.Over(dst[o:o+4], Color{
			R: float64(src[o]) * inv,
			G: float64(src[o+1]) * inv,
			B: float64(src[o+2]) * inv,
			A: 1,
		}, sa)
	}
}

func toByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}
