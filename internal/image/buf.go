package image

import (
	"bytes"
	"errors"
	"image"
	"image/color"
)

// Common errors for image operations.
var (
	// ErrInvalidDimensions is returned when width or height is non-positive.
	ErrInvalidDimensions = errors.New("image: invalid dimensions")

	// ErrInvalidFormat is returned when the format is not recognized.
	ErrInvalidFormat = errors.New("image: invalid format")

	// ErrInvalidBuffer is returned for operations on a nil buffer or on
	// buffers whose format or size does not match.
	ErrInvalidBuffer = errors.New("image: invalid or mismatched buffer")

	// ErrEmptyRect is returned when a crop rectangle does not intersect the buffer.
	ErrEmptyRect = errors.New("image: empty rectangle")
)

// ImageBuf is a fixed-size rectangular pixel buffer.
//
// Dimensions are fixed at construction; resizing requires a new buffer.
// RGBA buffers always hold premultiplied data and every operation in this
// package keeps them premultiplied.
//
// Thread safety: ImageBuf is safe for concurrent reads. Writes require
// external synchronization (the engine only writes from the paint thread).
type ImageBuf struct {
	data   []byte
	width  int
	height int
	stride int
	format Format
}

// NewImageBuf creates a zeroed buffer with the given dimensions and format.
func NewImageBuf(width, height int, format Format) (*ImageBuf, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}
	if !format.IsValid() {
		return nil, ErrInvalidFormat
	}
	stride := format.RowBytes(width)
	return &ImageBuf{
		data:   make([]byte, stride*height),
		width:  width,
		height: height,
		stride: stride,
		format: format,
	}, nil
}

// MustNew is like NewImageBuf but panics on invalid arguments.
// It is intended for fixed sizes known to be valid.
func MustNew(width, height int, format Format) *ImageBuf {
	b, err := NewImageBuf(width, height, format)
	if err != nil {
		panic(err)
	}
	return b
}

// FromRGBA wraps an existing premultiplied image without copying.
func FromRGBA(img *image.RGBA) *ImageBuf {
	if img == nil || img.Rect.Empty() {
		return nil
	}
	r := img.Rect
	start, end := img.PixOffset(r.Min.X, r.Min.Y), img.PixOffset(r.Max.X-1, r.Max.Y-1)+4
	return &ImageBuf{
		data:   img.Pix[start:end],
		width:  r.Dx(),
		height: r.Dy(),
		stride: img.Stride,
		format: FormatRGBAPremul,
	}
}

// FromAlpha wraps an existing alpha image without copying.
func FromAlpha(img *image.Alpha) *ImageBuf {
	if img == nil || img.Rect.Empty() {
		return nil
	}
	r := img.Rect
	start, end := img.PixOffset(r.Min.X, r.Min.Y), img.PixOffset(r.Max.X-1, r.Max.Y-1)+1
	return &ImageBuf{
		data:   img.Pix[start:end],
		width:  r.Dx(),
		height: r.Dy(),
		stride: img.Stride,
		format: FormatA8,
	}
}

// Clone creates a deep copy of the buffer.
func (b *ImageBuf) Clone() *ImageBuf {
	c := &ImageBuf{
		data:   make([]byte, b.format.RowBytes(b.width)*b.height),
		width:  b.width,
		height: b.height,
		stride: b.format.RowBytes(b.width),
		format: b.format,
	}
	for y := range b.height {
		copy(c.RowBytes(y), b.RowBytes(y))
	}
	return c
}

// CopyFrom copies src into b. Both buffers must share size and format.
func (b *ImageBuf) CopyFrom(src *ImageBuf) error {
	if src == nil || !b.SameShape(src) {
		return ErrInvalidBuffer
	}
	for y := range b.height {
		copy(b.RowBytes(y), src.RowBytes(y))
	}
	return nil
}

// SameShape reports whether o has the same dimensions and format as b.
func (b *ImageBuf) SameShape(o *ImageBuf) bool {
	return o != nil && b.width == o.width && b.height == o.height && b.format == o.format
}

// Crop returns a copy of the region r intersected with the buffer bounds.
func (b *ImageBuf) Crop(r image.Rectangle) (*ImageBuf, error) {
	r = r.Intersect(b.Bounds())
	if r.Empty() {
		return nil, ErrEmptyRect
	}
	c, err := NewImageBuf(r.Dx(), r.Dy(), b.format)
	if err != nil {
		return nil, err
	}
	bpp := b.format.BytesPerPixel()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := b.RowBytes(y)
		copy(c.RowBytes(y-r.Min.Y), row[r.Min.X*bpp:r.Max.X*bpp])
	}
	return c, nil
}

// Blit copies src into b with its top-left corner at p, clipped to b.
// Formats must match.
func (b *ImageBuf) Blit(src *ImageBuf, p image.Point) error {
	if src == nil || src.format != b.format {
		return ErrInvalidBuffer
	}
	dr := src.Bounds().Add(p).Intersect(b.Bounds())
	if dr.Empty() {
		return nil
	}
	bpp := b.format.BytesPerPixel()
	for y := dr.Min.Y; y < dr.Max.Y; y++ {
		srow := src.RowBytes(y - p.Y)
		drow := b.RowBytes(y)
		copy(drow[dr.Min.X*bpp:dr.Max.X*bpp], srow[(dr.Min.X-p.X)*bpp:(dr.Max.X-p.X)*bpp])
	}
	return nil
}

// Width returns the image width in pixels.
func (b *ImageBuf) Width() int {
	return b.width
}

// Height returns the image height in pixels.
func (b *ImageBuf) Height() int {
	return b.height
}

// Stride returns the number of bytes per row.
func (b *ImageBuf) Stride() int {
	return b.stride
}

// Format returns the pixel format.
func (b *ImageBuf) Format() Format {
	return b.format
}

// Bounds returns the buffer rectangle, always anchored at the origin.
func (b *ImageBuf) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.width, b.height)
}

// Data returns the raw pixel data slice.
func (b *ImageBuf) Data() []byte {
	return b.data
}

// RowBytes returns the pixel data for row y, or nil if y is out of bounds.
func (b *ImageBuf) RowBytes(y int) []byte {
	if y < 0 || y >= b.height {
		return nil
	}
	start := y * b.stride
	return b.data[start : start+b.format.RowBytes(b.width)]
}

// PixelOffset returns the byte offset of pixel (x, y), or -1 if out of bounds.
func (b *ImageBuf) PixelOffset(x, y int) int {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return -1
	}
	return y*b.stride + x*b.format.BytesPerPixel()
}

// GetRGBA returns the premultiplied color at (x, y).
// A8 buffers report their coverage in every channel.
// Out-of-bounds reads return transparent black.
func (b *ImageBuf) GetRGBA(x, y int) (r, g, bl, a uint8) {
	i := b.PixelOffset(x, y)
	if i < 0 {
		return 0, 0, 0, 0
	}
	if b.format == FormatA8 {
		v := b.data[i]
		return v, v, v, v
	}
	return b.data[i], b.data[i+1], b.data[i+2], b.data[i+3]
}

// SetRGBA stores a premultiplied color at (x, y). Out-of-bounds writes are ignored.
// For A8 buffers only the alpha is stored.
func (b *ImageBuf) SetRGBA(x, y int, r, g, bl, a uint8) {
	i := b.PixelOffset(x, y)
	if i < 0 {
		return
	}
	if b.format == FormatA8 {
		b.data[i] = a
		return
	}
	b.data[i], b.data[i+1], b.data[i+2], b.data[i+3] = r, g, bl, a
}

// AlphaAt returns the alpha (or coverage) at (x, y), 0 outside the buffer.
func (b *ImageBuf) AlphaAt(x, y int) uint8 {
	i := b.PixelOffset(x, y)
	if i < 0 {
		return 0
	}
	if b.format == FormatA8 {
		return b.data[i]
	}
	return b.data[i+3]
}

// Clear fills the buffer with a premultiplied color.
// For A8 buffers the color's alpha is used.
func (b *ImageBuf) Clear(c color.RGBA) {
	if b.format == FormatA8 {
		for y := range b.height {
			row := b.RowBytes(y)
			for i := range row {
				row[i] = c.A
			}
		}
		return
	}
	for y := range b.height {
		row := b.RowBytes(y)
		for i := 0; i < len(row); i += 4 {
			row[i], row[i+1], row[i+2], row[i+3] = c.R, c.G, c.B, c.A
		}
	}
}

// ClearRect sets the pixels inside r to zero.
func (b *ImageBuf) ClearRect(r image.Rectangle) {
	r = r.Intersect(b.Bounds())
	if r.Empty() {
		return
	}
	bpp := b.format.BytesPerPixel()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		clear(b.RowBytes(y)[r.Min.X*bpp : r.Max.X*bpp])
	}
}

// IsTransparent reports whether every pixel has zero alpha.
func (b *ImageBuf) IsTransparent() bool {
	for y := range b.height {
		row := b.RowBytes(y)
		if b.format == FormatA8 {
			for _, v := range row {
				if v != 0 {
					return false
				}
			}
			continue
		}
		for i := 3; i < len(row); i += 4 {
			if row[i] != 0 {
				return false
			}
		}
	}
	return true
}

// OpaqueBounds returns the smallest rectangle containing every pixel with
// non-zero alpha. It is empty for a fully transparent buffer.
func (b *ImageBuf) OpaqueBounds() image.Rectangle {
	var r image.Rectangle
	for y := range b.height {
		for x := range b.width {
			if b.AlphaAt(x, y) != 0 {
				r = r.Union(image.Rect(x, y, x+1, y+1))
			}
		}
	}
	return r
}

// RGBA returns a zero-copy *image.RGBA view of a premultiplied buffer.
// It returns nil for A8 buffers.
func (b *ImageBuf) RGBA() *image.RGBA {
	if b.format != FormatRGBAPremul {
		return nil
	}
	return &image.RGBA{Pix: b.data, Stride: b.stride, Rect: b.Bounds()}
}

// Alpha returns a zero-copy *image.Alpha view of an A8 buffer.
// It returns nil for RGBA buffers.
func (b *ImageBuf) Alpha() *image.Alpha {
	if b.format != FormatA8 {
		return nil
	}
	return &image.Alpha{Pix: b.data, Stride: b.stride, Rect: b.Bounds()}
}

// Image returns the buffer as a standard library image view.
func (b *ImageBuf) Image() image.Image {
	if b.format == FormatA8 {
		return b.Alpha()
	}
	return b.RGBA()
}

// Equal reports whether o has the same shape and identical pixel bytes.
func (b *ImageBuf) Equal(o *ImageBuf) bool {
	if !b.SameShape(o) {
		return false
	}
	for y := range b.height {
		if !bytes.Equal(b.RowBytes(y), o.RowBytes(y)) {
			return false
		}
	}
	return true
}
