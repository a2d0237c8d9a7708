package paint

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/gogpu/paint/internal/blend"
	"github.com/gogpu/paint/internal/layer"
	"github.com/gogpu/paint/internal/transform"
)

// Layers returns copies of every layer, bottom first. Pixel buffers are
// shared with the engine and must not be modified.
func (e *Engine) Layers() []Layer { return e.stack.Layers() }

// Layer returns a copy of layer i.
func (e *Engine) Layer(i int) (Layer, bool) { return e.stack.Layer(i) }

// LayerCount returns the number of layers, groups included.
func (e *Engine) LayerCount() int { return e.stack.Len() }

// ActiveLayer returns the index of the layer receiving drawing, or -1.
func (e *Engine) ActiveLayer() int { return e.stack.Active() }

// Snapshot returns deep copies of the layers, leaving out private layers
// and their descendants.
func (e *Engine) Snapshot() []Layer { return e.stack.Snapshot() }

// Parent returns the index of the group containing layer i, or -1.
func (e *Engine) Parent(i int) int { return e.stack.Parent(i) }

// Children returns the direct children of group i; -1 lists the top level.
func (e *Engine) Children(i int) []int { return e.stack.Children(i) }

// ClipBase returns the index of the layer that clipped layer i is clipped
// to, or -1.
func (e *Engine) ClipBase(i int) int { return e.stack.ClipBase(i) }

// SetActiveLayer makes layer i the drawing target.
func (e *Engine) SetActiveLayer(i int) error {
	return e.layers(func(s *layer.Stack) error { return s.SetActive(i) })
}

// AddLayer inserts an empty pixel layer above the active layer, makes it
// active and returns its index.
func (e *Engine) AddLayer(name string) (int, error) {
	return e.addAbove(layer.KindNormal, name)
}

// AddGroup inserts an empty group above the active layer.
func (e *Engine) AddGroup(name string) (int, error) {
	return e.addAbove(layer.KindGroup, name)
}

func (e *Engine) addAbove(kind layer.Kind, name string) (int, error) {
	i := -1
	err := e.layers(func(s *layer.Stack) error {
		i = s.AddAbove(kind, name)
		return nil
	})
	return i, err
}

// InsertLayer inserts a layer of the given kind at index at.
func (e *Engine) InsertLayer(kind LayerKind, at int, name string) (int, error) {
	i := -1
	err := e.layers(func(s *layer.Stack) error {
		var err error
		i, err = s.Add(kind, at, name)
		return err
	})
	return i, err
}

// RemoveLayer removes layer i together with its descendants.
func (e *Engine) RemoveLayer(i int) error {
	return e.layers(func(s *layer.Stack) error { return s.Remove(i) })
}

// MoveLayer moves layer i and its descendants so that they start at index
// to of the stack with the moved layers taken out.
func (e *Engine) MoveLayer(from, to int) error {
	return e.layers(func(s *layer.Stack) error { return s.Move(from, to) })
}

// DuplicateLayer copies layer i and its descendants above it.
func (e *Engine) DuplicateLayer(i int) (int, error) {
	j := -1
	err := e.layers(func(s *layer.Stack) error {
		var err error
		j, err = s.Duplicate(i)
		return err
	})
	return j, err
}

// GroupLayers wraps the sibling layers at indices in a new group.
func (e *Engine) GroupLayers(indices []int, name string) (int, error) {
	j := -1
	err := e.layers(func(s *layer.Stack) error {
		var err error
		j, err = s.Group(indices, name)
		return err
	})
	return j, err
}

// Ungroup removes group i, keeping its children.
func (e *Engine) Ungroup(i int) error {
	return e.layers(func(s *layer.Stack) error { return s.Ungroup(i) })
}

// SetLayerName renames layer i.
func (e *Engine) SetLayerName(i int, name string) error {
	return e.layers(func(s *layer.Stack) error { return s.SetName(i, name) })
}

// SetLayerVisible shows or hides layer i.
func (e *Engine) SetLayerVisible(i int, v bool) error {
	return e.layers(func(s *layer.Stack) error { return s.SetVisible(i, v) })
}

// SetLayerOpacity sets the opacity of layer i, clamped to [0, 1].
func (e *Engine) SetLayerOpacity(i int, opacity float64) error {
	return e.layers(func(s *layer.Stack) error { return s.SetOpacity(i, opacity) })
}

// SetLayerMode sets the blend mode of layer i. An invalid mode is stored as
// Normal and reported as ErrOutOfRange.
func (e *Engine) SetLayerMode(i int, m BlendMode) error {
	err := e.layers(func(s *layer.Stack) error { return s.SetMode(i, m) })
	if err == nil && !m.IsValid() {
		return fmt.Errorf("paint: blend mode %d: %w", m, ErrOutOfRange)
	}
	return err
}

// SetLayerAlphaLock sets whether drawing on layer i keeps its alpha.
func (e *Engine) SetLayerAlphaLock(i int, v bool) error {
	return e.layers(func(s *layer.Stack) error { return s.SetAlphaLock(i, v) })
}

// SetLayerLocked sets whether layer i refuses drawing and transforms.
func (e *Engine) SetLayerLocked(i int, v bool) error {
	return e.layers(func(s *layer.Stack) error { return s.SetLocked(i, v) })
}

// SetLayerClipped sets whether layer i is clipped to its clip base.
func (e *Engine) SetLayerClipped(i int, v bool) error {
	return e.layers(func(s *layer.Stack) error { return s.SetClipped(i, v) })
}

// SetLayerExpanded expands or collapses group i.
func (e *Engine) SetLayerExpanded(i int, v bool) error {
	return e.layers(func(s *layer.Stack) error { return s.SetExpanded(i, v) })
}

// SetLayerPrivate sets whether layer i is left out of snapshots.
func (e *Engine) SetLayerPrivate(i int, v bool) error {
	return e.layers(func(s *layer.Stack) error { return s.SetPrivate(i, v) })
}

// ClearLayer makes every pixel of layer i transparent.
func (e *Engine) ClearLayer(i int) error {
	return e.layers(func(s *layer.Stack) error {
		l, ok := s.Layer(i)
		if !ok {
			return fmt.Errorf("%w: %d", layer.ErrIndex, i)
		}
		if l.Pixels == nil {
			return fmt.Errorf("clear group %d: %w", i, ErrInvalidBuffer)
		}
		if l.Locked {
			return ErrLocked
		}
		l.Pixels.Clear(color.RGBA{})
		s.MarkDirty(l.Pixels.Bounds())
		return nil
	})
}

// FillLayer composites the paint color over layer i, restricted to the
// selection when one is active.
func (e *Engine) FillLayer(i int) error {
	return e.layers(func(s *layer.Stack) error {
		l, ok := s.Layer(i)
		if !ok {
			return fmt.Errorf("%w: %d", layer.ErrIndex, i)
		}
		if l.Pixels == nil {
			return fmt.Errorf("fill group %d: %w", i, ErrInvalidBuffer)
		}
		if l.Locked {
			return ErrLocked
		}
		box := l.Pixels.Bounds()
		sel := e.sel.Buffer()
		if sel != nil {
			box = e.sel.Bounds()
		}
		px := blend.Pixel{Mode: blend.Normal, AlphaLock: l.AlphaLock}
		c := e.color.blend()
		for y := box.Min.Y; y < box.Max.Y; y++ {
			row := l.Pixels.RowBytes(y)
			for x := box.Min.X; x < box.Max.X; x++ {
				a := c.A
				if sel != nil {
					a *= float64(sel.RowBytes(y)[x]) / 255
				}
				px.Over(row[x*4:x*4+4], c, a)
			}
		}
		s.MarkDirty(box)
		return nil
	})
}

// layers runs a stack command unless the engine is busy and announces the
// change.
func (e *Engine) layers(fn func(*layer.Stack) error) error {
	if err := e.idle(); err != nil {
		return err
	}
	if err := fn(e.stack); err != nil {
		return fmt.Errorf("paint: %w", err)
	}
	e.emit(Event{Kind: EventLayers})
	return nil
}

// SelectRect combines the rectangle with the selection.
func (e *Engine) SelectRect(x, y, w, h int, mode SelectionMode) {
	e.sel.SelectRect(x, y, w, h, mode)
	e.emit(Event{Kind: EventSelection, Rect: e.sel.Bounds()})
}

// SelectPolygon combines the closed polygon through pts with the selection.
func (e *Engine) SelectPolygon(pts []Point, mode SelectionMode) {
	e.sel.SelectPolygon(pts, mode)
	e.emit(Event{Kind: EventSelection, Rect: e.sel.Bounds()})
}

// SelectAll selects the whole canvas.
func (e *Engine) SelectAll() {
	e.sel.SelectAll()
	e.emit(Event{Kind: EventSelection, Rect: e.sel.Bounds()})
}

// Deselect removes the selection; drawing is no longer restricted.
func (e *Engine) Deselect() {
	e.sel.Clear()
	e.emit(Event{Kind: EventSelection})
}

// InvertSelection swaps selected and unselected pixels.
func (e *Engine) InvertSelection() {
	e.sel.Invert()
	e.emit(Event{Kind: EventSelection, Rect: e.sel.Bounds()})
}

// HasSelection reports whether a selection restricts drawing.
func (e *Engine) HasSelection() bool { return e.sel.Active() }

// SelectionBounds returns the smallest rectangle holding every selected
// pixel.
func (e *Engine) SelectionBounds() image.Rectangle { return e.sel.Bounds() }

// SelectionAt returns the selection coverage at (x, y). Without a
// selection every pixel is fully selected.
func (e *Engine) SelectionAt(x, y int) uint8 {
	if !e.sel.Active() {
		return 255
	}
	return e.sel.At(x, y)
}

// Selection returns a copy of the selection mask, or nil when nothing is
// selected.
func (e *Engine) Selection() *image.Alpha {
	b := e.sel.Buffer()
	if b == nil {
		return nil
	}
	return b.Clone().Alpha()
}

// StartTransform lifts the active layer, or its selected pixels, into a
// floating buffer.
func (e *Engine) StartTransform() error {
	if err := e.idle(); err != nil {
		return err
	}
	l, ok := e.stack.Layer(e.stack.Active())
	switch {
	case !ok || l.Pixels == nil:
		return fmt.Errorf("paint: transform: %w", ErrInvalidBuffer)
	case l.Locked:
		return fmt.Errorf("paint: transform: %w", ErrLocked)
	}
	if err := e.stage.Start(l.Pixels, e.sel.Buffer()); err != nil {
		return fmt.Errorf("paint: %w", err)
	}
	e.stack.MarkDirty(e.stage.Box())
	e.log.Debug("paint: transform started", "box", e.stage.Box())
	e.emit(Event{Kind: EventTransform, Rect: e.stage.Box()})
	return nil
}

// TransformActive reports whether a transform is in progress.
func (e *Engine) TransformActive() bool { return e.stage.Active() }

// TransformMatrix returns the matrix of the running transform.
func (e *Engine) TransformMatrix() Affine { return e.stage.Matrix() }

// SetTransform replaces the matrix of the running transform. The matrix
// maps the lifted pixels from their original canvas position.
func (e *Engine) SetTransform(m Affine) error {
	before := e.stage.Bounds()
	if err := e.stage.UpdateMatrix(m); err != nil {
		return fmt.Errorf("paint: %w", err)
	}
	e.comp.Invalidate(before.Union(e.stage.Bounds()))
	return nil
}

// ApplyTransform draws the floating pixels through the matrix into the
// layer and ends the transform.
func (e *Engine) ApplyTransform() error {
	return e.endTransform(e.stage.Apply)
}

// CancelTransform restores the layer exactly as it was before
// StartTransform.
func (e *Engine) CancelTransform() error {
	return e.endTransform(e.stage.Cancel)
}

func (e *Engine) endTransform(end func() (image.Rectangle, error)) error {
	if e.gesture.tool != nil {
		e.CancelStroke()
	}
	preview := e.stage.Bounds()
	r, err := end()
	if errors.Is(err, transform.ErrIdle) {
		return fmt.Errorf("paint: %w", err)
	}
	e.stack.MarkDirty(r)
	e.comp.Invalidate(preview)
	e.emit(Event{Kind: EventTransform, Rect: r})
	if err != nil {
		return fmt.Errorf("paint: %w", err)
	}
	return nil
}
