// Package image provides the pixel buffers the painting core draws into.
//
// Color buffers are RGBA8 with premultiplied alpha, mask buffers are A8.
// Both expose zero-copy views as standard library images so that
// golang.org/x/image rasterizers and scalers can target them directly.
package image

// Format represents a pixel storage format.
type Format uint8

const (
	// FormatRGBAPremul is 32-bit RGBA with premultiplied alpha (4 bytes per pixel).
	// Every color buffer in the engine uses this format.
	FormatRGBAPremul Format = iota

	// FormatA8 is 8-bit coverage (1 byte per pixel), used by selection
	// masks and brush tips.
	FormatA8

	formatCount
)

// IsValid reports whether f is a known format.
func (f Format) IsValid() bool {
	return f < formatCount
}

// BytesPerPixel returns the number of bytes per pixel.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatRGBAPremul:
		return 4
	case FormatA8:
		return 1
	default:
		return 0
	}
}

// RowBytes returns the minimum number of bytes for a row of width pixels.
func (f Format) RowBytes(width int) int {
	return width * f.BytesPerPixel()
}

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatRGBAPremul:
		return "RGBAPremul"
	case FormatA8:
		return "A8"
	default:
		return "Unknown"
	}
}
