package image

import "math"

// SampleCoverage samples an A8 buffer at continuous pixel coordinates
// (x, y) with bilinear interpolation, returning coverage in [0, 1].
// Pixel centers sit at half-integer coordinates. Samples outside the
// buffer read as zero so that stamped tips fade out at their edges.
func SampleCoverage(b *ImageBuf, x, y float64) float64 {
	fx := x - 0.5
	fy := y - 0.5
	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	tx := fx - float64(x0)
	ty := fy - float64(y0)

	c00 := float64(b.AlphaAt(x0, y0))
	c10 := float64(b.AlphaAt(x0+1, y0))
	c01 := float64(b.AlphaAt(x0, y0+1))
	c11 := float64(b.AlphaAt(x0+1, y0+1))

	top := c00 + (c10-c00)*tx
	bottom := c01 + (c11-c01)*tx
	return (top + (bottom-top)*ty) / 255
}

// SampleNearest returns the coverage of the pixel containing (x, y) in [0, 1].
func SampleNearest(b *ImageBuf, x, y float64) float64 {
	return float64(b.AlphaAt(int(math.Floor(x)), int(math.Floor(y)))) / 255
}
