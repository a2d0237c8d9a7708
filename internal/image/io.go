package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg" // registered for tip resources
	"image/png"
	"io"
	"os"
	"path/filepath"
)

// ErrEmptyData is returned when image data is empty.
var ErrEmptyData = errors.New("image: empty data")

// EncodePNG writes the buffer as a regular PNG for display.
// Premultiplied colors are converted to straight alpha by the encoder,
// which rounds; use EncodeRawPNG when bytes must survive a round trip.
func (b *ImageBuf) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, b.Image()); err != nil {
		return fmt.Errorf("image: encode PNG: %w", err)
	}
	return nil
}

// SavePNG writes the buffer to path as a display PNG.
func (b *ImageBuf) SavePNG(path string) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("image: create file: %w", err)
	}
	if err := b.EncodePNG(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// EncodeRawPNG stores the buffer bytes verbatim in a PNG.
//
// RGBA buffers are written as 8-bit RGBA without un-premultiplying, A8
// buffers as 8-bit gray. DecodeRawPNG restores the identical bytes.
func (b *ImageBuf) EncodeRawPNG(w io.Writer) error {
	var img image.Image
	switch b.format {
	case FormatA8:
		img = &image.Gray{Pix: b.data, Stride: b.stride, Rect: b.Bounds()}
	default:
		img = &image.NRGBA{Pix: b.data, Stride: b.stride, Rect: b.Bounds()}
	}
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(w, img); err != nil {
		return fmt.Errorf("image: encode raw PNG: %w", err)
	}
	return nil
}

// DecodeRawPNG reverses EncodeRawPNG. The PNG must be 8-bit RGBA (or gray
// when format is FormatA8) and match the requested dimensions.
func DecodeRawPNG(r io.Reader, width, height int, format Format) (*ImageBuf, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("image: decode raw PNG: %w", err)
	}
	if img.Bounds().Dx() != width || img.Bounds().Dy() != height {
		return nil, fmt.Errorf("image: raw PNG is %v, want %dx%d: %w",
			img.Bounds().Size(), width, height, ErrInvalidBuffer)
	}
	buf, err := NewImageBuf(width, height, format)
	if err != nil {
		return nil, err
	}
	switch src := img.(type) {
	case *image.NRGBA:
		if format != FormatRGBAPremul {
			return nil, ErrInvalidFormat
		}
		for y := range height {
			o := src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+y)
			copy(buf.RowBytes(y), src.Pix[o:o+4*width])
		}
	case *image.RGBA:
		// The encoder drops the alpha channel of fully opaque images.
		if format != FormatRGBAPremul {
			return nil, ErrInvalidFormat
		}
		for y := range height {
			o := src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+y)
			copy(buf.RowBytes(y), src.Pix[o:o+4*width])
		}
	case *image.Gray:
		if format != FormatA8 {
			return nil, ErrInvalidFormat
		}
		for y := range height {
			o := src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+y)
			copy(buf.RowBytes(y), src.Pix[o:o+width])
		}
	default:
		return nil, fmt.Errorf("image: raw PNG has color model %T: %w", img.ColorModel(), ErrInvalidFormat)
	}
	return buf, nil
}

// Decode decodes any registered image format into a premultiplied buffer.
func Decode(data []byte) (*ImageBuf, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("image: decode: %w", err)
	}
	return FromStdImage(img), nil
}

// FromStdImage converts any image to a premultiplied RGBA buffer.
func FromStdImage(img image.Image) *ImageBuf {
	r := img.Bounds()
	buf := MustNew(max(r.Dx(), 1), max(r.Dy(), 1), FormatRGBAPremul)
	draw.Draw(buf.RGBA(), buf.Bounds(), img, r.Min, draw.Src)
	return buf
}

// CoverageFromImage converts an image to an A8 coverage buffer.
//
// Images carrying transparency contribute their alpha channel. Fully
// opaque images contribute luminance, white meaning full coverage.
func CoverageFromImage(img image.Image) *ImageBuf {
	r := img.Bounds()
	buf := MustNew(max(r.Dx(), 1), max(r.Dy(), 1), FormatA8)

	opaque := true
	if o, ok := img.(interface{ Opaque() bool }); ok {
		opaque = o.Opaque()
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := buf.RowBytes(y - r.Min.Y)
		for x := r.Min.X; x < r.Max.X; x++ {
			c := img.At(x, y)
			if opaque {
				row[x-r.Min.X] = color.GrayModel.Convert(c).(color.Gray).Y
				continue
			}
			_, _, _, a := c.RGBA()
			row[x-r.Min.X] = uint8(a >> 8)
		}
	}
	return buf
}
