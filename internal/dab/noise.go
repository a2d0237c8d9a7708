package dab

// grainCell is the lattice spacing of the grain noise in canvas pixels.
const grainCell = 4

// hash2 maps a lattice point to [0, 1).
func hash2(x, y int, seed uint64) float64 {
	h := seed ^ uint64(uint32(x))*0x9e3779b97f4a7c15 ^ uint64(uint32(y))*0xc2b2ae3d27d4eb4f
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return float64(h>>11) / (1 << 53)
}

// valueNoise returns smooth noise in [0, 1] anchored to canvas pixel (x, y).
func valueNoise(x, y int, seed uint64) float64 {
	cx, cy := floorDiv(x, grainCell), floorDiv(y, grainCell)
	tx := smooth(float64(x-cx*grainCell) / grainCell)
	ty := smooth(float64(y-cy*grainCell) / grainCell)
	a := hash2(cx, cy, seed)
	b := hash2(cx+1, cy, seed)
	c := hash2(cx, cy+1, seed)
	d := hash2(cx+1, cy+1, seed)
	top := a + (b-a)*tx
	bottom := c + (d-c)*tx
	return top + (bottom-top)*ty
}

func smooth(t float64) float64 { return t * t * (3 - 2*t) }

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && (a < 0) {
		q--
	}
	return q
}
