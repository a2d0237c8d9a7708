// Package transform implements the free-transform stage: pixels are lifted
// from a layer into a holding buffer, moved through an affine matrix, and
// either drawn back or restored unchanged.
package transform

import (
	"errors"
	"image"

	pimage "github.com/gogpu/paint/internal/image"
)

var (
	// ErrActive is returned by Start while a transform is already running.
	ErrActive = errors.New("transform: already active")

	// ErrIdle is returned by operations that need an active transform.
	ErrIdle = errors.New("transform: not active")

	// ErrEmpty is returned when there is nothing to capture.
	ErrEmpty = errors.New("transform: nothing to transform")
)

// Stage holds the state of one transform. The zero value is idle and ready
// to use.
type Stage struct {
	target  *pimage.ImageBuf
	box     image.Rectangle
	backup  *pimage.ImageBuf
	holding *pimage.ImageBuf
	matrix  pimage.Affine
}

// Active reports whether a transform is in progress.
func (s *Stage) Active() bool { return s.target != nil }

// Target returns the layer buffer being transformed, or nil when idle.
func (s *Stage) Target() *pimage.ImageBuf { return s.target }

// Box returns the captured canvas rectangle.
func (s *Stage) Box() image.Rectangle { return s.box }

// Matrix returns the current matrix.
func (s *Stage) Matrix() pimage.Affine { return s.matrix }

// Holding returns the lifted pixels, positioned at Box().Min.
func (s *Stage) Holding() *pimage.ImageBuf { return s.holding }

// Start lifts pixels out of layer. With a nil selection the whole buffer is
// captured; otherwise only the selection bounds, weighted by the selection
// coverage. The lifted pixels are removed from the layer.
func (s *Stage) Start(layer, selection *pimage.ImageBuf) error {
	if s.Active() {
		return ErrActive
	}
	if layer == nil || layer.Format() != pimage.FormatRGBAPremul {
		return pimage.ErrInvalidBuffer
	}
	if selection != nil && (selection.Format() != pimage.FormatA8 ||
		selection.Width() != layer.Width() || selection.Height() != layer.Height()) {
		return pimage.ErrInvalidBuffer
	}

	box := layer.Bounds()
	if selection != nil {
		box = selection.OpaqueBounds()
	}
	if box.Empty() {
		return ErrEmpty
	}

	backup, err := layer.Crop(box)
	if err != nil {
		return err
	}
	holding := backup.Clone()
	if selection != nil {
		for y := box.Min.Y; y < box.Max.Y; y++ {
			hrow := holding.RowBytes(y - box.Min.Y)
			lrow := layer.RowBytes(y)[box.Min.X*4 : box.Max.X*4]
			mrow := selection.RowBytes(y)[box.Min.X:box.Max.X]
			for x, m := range mrow {
				i := x * 4
				for c := range 4 {
					lifted := scale(hrow[i+c], m)
					hrow[i+c] = lifted
					lrow[i+c] -= lifted
				}
			}
		}
	} else {
		layer.ClearRect(box)
	}

	*s = Stage{
		target:  layer,
		box:     box,
		backup:  backup,
		holding: holding,
		matrix:  pimage.Identity(),
	}
	return nil
}

// UpdateMatrix replaces the matrix applied to the holding buffer. The
// matrix maps canvas coordinates of the captured pixels to their new
// canvas position.
func (s *Stage) UpdateMatrix(m pimage.Affine) error {
	if !s.Active() {
		return ErrIdle
	}
	s.matrix = m
	return nil
}

// Bounds returns the canvas rectangle the transformed pixels cover.
func (s *Stage) Bounds() image.Rectangle {
	if !s.Active() {
		return image.Rectangle{}
	}
	return s.matrix.TransformRect(s.box)
}

// Apply draws the holding buffer through the matrix into the layer, returns
// to idle, and reports the changed canvas rectangle.
func (s *Stage) Apply() (image.Rectangle, error) {
	if !s.Active() {
		return image.Rectangle{}, ErrIdle
	}
	dirty := s.box.Union(s.Bounds()).Intersect(s.target.Bounds())
	src := s.holding.RGBA()
	x, y := float64(s.box.Min.X), float64(s.box.Min.Y)
	err := s.target.Paint(func(p *pimage.Painter) error {
		p.SetTransform(s.matrix)
		p.DrawImage(src, x, y)
		return nil
	})
	*s = Stage{}
	return dirty, err
}

// Cancel restores the captured pixels byte for byte, returns to idle, and
// reports the changed canvas rectangle.
func (s *Stage) Cancel() (image.Rectangle, error) {
	if !s.Active() {
		return image.Rectangle{}, ErrIdle
	}
	err := s.target.Blit(s.backup, s.box.Min)
	box := s.box
	*s = Stage{}
	return box, err
}

// scale returns v·m/255 rounded to nearest.
func scale(v, m uint8) uint8 {
	return uint8((uint32(v)*uint32(m) + 127) / 255)
}
