package paint

import (
	"image"
	"image/color"
	"math"
	"time"

	"github.com/gogpu/paint/internal/blend"
	"github.com/gogpu/paint/internal/dab"
	pimage "github.com/gogpu/paint/internal/image"
	"github.com/gogpu/paint/internal/stroke"
	"github.com/gogpu/paint/internal/tip"
)

// PointerEvent is one pen, mouse or touch sample in canvas pixels.
type PointerEvent struct {
	X, Y float64
	// Pressure is in [0, 1]. Devices without pressure report 1.
	Pressure float64
	Time     time.Duration
	// TiltX and TiltY are the pen tilt in degrees, zero when unknown.
	TiltX, TiltY float64
}

func (ev PointerEvent) sample() stroke.Sample {
	return stroke.Sample{
		X: ev.X, Y: ev.Y,
		Pressure: max(0, min(ev.Pressure, 1)),
		Time:     ev.Time,
		TiltX:    ev.TiltX, TiltY: ev.TiltY,
	}
}

func (ev PointerEvent) point() pimage.Point { return pimage.Point{X: ev.X, Y: ev.Y} }

// toolState is the state one tool keeps for the duration of a gesture.
type toolState interface {
	move(e *Engine, ev PointerEvent) bool
	up(e *Engine, ev PointerEvent) bool
	cancel(e *Engine)
}

// gesture is the press-drag-release currently in progress, if any.
type gesture struct {
	tool toolState
}

// Tool returns the current tool.
func (e *Engine) Tool() Tool { return e.tool }

// SetTool selects the tool used by the next gesture. A gesture in progress
// is cancelled first.
func (e *Engine) SetTool(t Tool) {
	if t >= toolCount || t == e.tool {
		return
	}
	e.CancelStroke()
	e.tool = t
	e.emit(Event{Kind: EventTool})
}

// Profile returns the current brush.
func (e *Engine) Profile() Profile { return e.profile }

// SetProfile sets the brush used by the next paint gesture.
func (e *Engine) SetProfile(p Profile) {
	e.profile = p
	e.emit(Event{Kind: EventTool})
}

// Color returns the paint color.
func (e *Engine) Color() Color { return e.color }

// SetColor sets the paint color used by the next paint gesture.
func (e *Engine) SetColor(c Color) {
	e.color = c.clamp()
	e.emit(Event{Kind: EventTool})
}

// SelectionMode returns how the selection tools combine with the current
// selection.
func (e *Engine) SelectionMode() SelectionMode { return e.selMode }

// SetSelectionMode sets how the selection tools combine with the current
// selection.
func (e *Engine) SetSelectionMode(m SelectionMode) { e.selMode = m }

// View returns the pan offset set with the hand tool.
func (e *Engine) View() image.Point { return e.view }

// SetView sets the pan offset.
func (e *Engine) SetView(p image.Point) { e.view = p }

// PointerDown starts a gesture with the current tool. It reports whether
// the tool accepted it; paint tools refuse while a transform is active and
// when the active layer is a group or locked.
func (e *Engine) PointerDown(ev PointerEvent) bool {
	if e.gesture.tool != nil {
		e.CancelStroke()
	}
	var st toolState
	switch e.tool {
	case ToolBrush, ToolEraser:
		st = e.beginStroke(ev)
	case ToolLine, ToolRect, ToolEllipse:
		st = e.beginShape(ev)
	case ToolLasso:
		st = &lassoState{pts: []pimage.Point{ev.point()}}
	case ToolRectSelect:
		st = &marqueeState{start: ev.point()}
	case ToolTransform:
		st = e.beginMove(ev)
	case ToolHand:
		st = &panState{start: ev.point(), view: e.view}
	}
	if st == nil {
		if e.tool.paints() {
			e.refused++
		}
		return false
	}
	e.gesture.tool = st
	return true
}

// PointerMove continues the gesture. It reports whether anything changed.
func (e *Engine) PointerMove(ev PointerEvent) bool {
	if e.gesture.tool == nil {
		return false
	}
	return e.gesture.tool.move(e, ev)
}

// PointerUp finishes the gesture. It reports whether anything changed.
func (e *Engine) PointerUp(ev PointerEvent) bool {
	st := e.gesture.tool
	if st == nil {
		return false
	}
	e.gesture.tool = nil
	return st.up(e, ev)
}

// CancelStroke abandons the gesture in progress. Paint gestures restore the
// pixels they changed.
func (e *Engine) CancelStroke() {
	st := e.gesture.tool
	if st == nil {
		return
	}
	e.gesture.tool = nil
	st.cancel(e)
}

// drawTarget returns the active pixel buffer, or nil when drawing must be
// refused.
func (e *Engine) drawTarget() (*pimage.ImageBuf, bool) {
	if e.stage.Active() {
		return nil, false
	}
	l, ok := e.stack.Layer(e.stack.Active())
	if !ok || l.IsGroup() || l.Locked || l.Pixels == nil {
		return nil, false
	}
	return l.Pixels, l.AlphaLock
}

// strokeState paints dabs along the pointer path.
type strokeState struct {
	placer *stroke.Placer
	target *pimage.ImageBuf
	backup *pimage.ImageBuf
	tip    *tip.Tip
	color  blend.Color
	opts   dab.Options
	dabs   []stroke.Dab
	damage image.Rectangle
}

func (e *Engine) beginStroke(ev PointerEvent) toolState {
	dst, alphaLock := e.drawTarget()
	if dst == nil {
		return nil
	}
	pr := e.profile
	e.strokes++
	st := &strokeState{
		placer: stroke.NewPlacer(pr, e.cfg.Seed^e.strokes*0x9e3779b97f4a7c15),
		target: dst,
		backup: dst.Clone(),
		tip:    e.tips.Get(pr.Tip()),
		color:  e.color.blend(),
		opts: dab.Options{
			Mode:            pr.Mode(),
			Hardness:        pr.Hardness(),
			Grain:           pr.Grain(),
			Diffusion:       pr.Diffusion(),
			Roundness:       pr.Roundness(),
			AlphaLock:       alphaLock,
			Erase:           e.tool == ToolEraser,
			Selection:       e.sel.Buffer(),
			SelectionBounds: e.sel.Bounds(),
			Seed:            e.cfg.Seed,
		},
	}
	st.placer.Begin(ev.sample())
	return st
}

func (st *strokeState) move(e *Engine, ev PointerEvent) bool {
	st.dabs = st.placer.Add(st.dabs[:0], ev.sample())
	return st.stamp(e)
}

func (st *strokeState) up(e *Engine, ev PointerEvent) bool {
	st.dabs = st.placer.Add(st.dabs[:0], ev.sample())
	st.dabs = st.placer.End(st.dabs)
	changed := st.stamp(e)
	e.log.Debug("paint: stroke", "dabs", st.placer.Count(), "damage", st.damage)
	return changed
}

func (st *strokeState) cancel(e *Engine) {
	e.strokes--
	if st.damage.Empty() {
		return
	}
	_ = st.target.CopyFrom(st.backup)
	e.stack.MarkDirty(st.damage)
}

// stamp composites the pending dabs in emission order.
func (st *strokeState) stamp(e *Engine) bool {
	var damage image.Rectangle
	for _, d := range st.dabs {
		if e.stamper.Stamp(st.target, st.tip, d, st.color, st.opts) {
			damage = damage.Union(dab.Bounds(st.tip, d, st.opts))
		}
	}
	if damage.Empty() {
		return false
	}
	st.damage = st.damage.Union(damage)
	e.stack.MarkDirty(damage)
	return true
}

// shapeState previews a line, rectangle or ellipse between press and the
// current pointer position, and commits it on release.
type shapeState struct {
	kind      Tool
	start     pimage.Point
	target    *pimage.ImageBuf
	backup    *pimage.ImageBuf
	alphaLock bool
	drawn     image.Rectangle
}

func (e *Engine) beginShape(ev PointerEvent) toolState {
	dst, alphaLock := e.drawTarget()
	if dst == nil {
		return nil
	}
	e.strokes++
	return &shapeState{
		kind:      e.tool,
		start:     ev.point(),
		target:    dst,
		backup:    dst.Clone(),
		alphaLock: alphaLock,
	}
}

func (st *shapeState) move(e *Engine, ev PointerEvent) bool {
	return st.draw(e, ev.point())
}

func (st *shapeState) up(e *Engine, ev PointerEvent) bool {
	return st.draw(e, ev.point())
}

func (st *shapeState) cancel(e *Engine) {
	st.restore(e)
	e.strokes--
}

// restore undoes the previous preview.
func (st *shapeState) restore(e *Engine) {
	if st.drawn.Empty() {
		return
	}
	for y := st.drawn.Min.Y; y < st.drawn.Max.Y; y++ {
		copy(st.target.RowBytes(y)[st.drawn.Min.X*4:st.drawn.Max.X*4],
			st.backup.RowBytes(y)[st.drawn.Min.X*4:st.drawn.Max.X*4])
	}
	e.stack.MarkDirty(st.drawn)
	st.drawn = image.Rectangle{}
}

// draw replaces the preview with the shape ending at p.
func (st *shapeState) draw(e *Engine, p pimage.Point) bool {
	restored := !st.drawn.Empty()
	st.restore(e)

	pr := e.profile
	width := pr.Size()
	cov := e.scratch.Get(st.target.Width(), st.target.Height(), pimage.FormatA8)
	defer e.scratch.Put(cov)

	x0, y0 := min(st.start.X, p.X), min(st.start.Y, p.Y)
	x1, y1 := max(st.start.X, p.X), max(st.start.Y, p.Y)
	_ = cov.Paint(func(pt *pimage.Painter) error {
		pt.SetColor(color.Alpha{A: 255})
		switch st.kind {
		case ToolLine:
			pt.DrawLine(st.start.X, st.start.Y, p.X, p.Y, width)
		case ToolRect:
			pt.StrokeRect(x0, y0, x1-x0, y1-y0, width)
		case ToolEllipse:
			pt.StrokeEllipse((x0+x1)/2, (y0+y1)/2, (x1-x0)/2, (y1-y0)/2, width)
		}
		return nil
	})

	pad := int(math.Ceil(width/2)) + 1
	box := image.Rect(int(math.Floor(x0))-pad, int(math.Floor(y0))-pad,
		int(math.Ceil(x1))+pad, int(math.Ceil(y1))+pad).Intersect(st.target.Bounds())
	if sb := e.sel.Bounds(); e.sel.Active() {
		box = box.Intersect(sb)
	}

	px := blend.Pixel{Mode: pr.Mode(), AlphaLock: st.alphaLock}
	c := e.color.blend()
	alpha := pr.Opacity() * c.A
	sel := e.sel.Buffer()
	changed := false
	for y := box.Min.Y; y < box.Max.Y; y++ {
		row := st.target.RowBytes(y)
		crow := cov.RowBytes(y)
		var srow []byte
		if sel != nil {
			srow = sel.RowBytes(y)
		}
		for x := box.Min.X; x < box.Max.X; x++ {
			a := float64(crow[x]) / 255
			if srow != nil {
				a *= float64(srow[x]) / 255
			}
			if px.Over(row[x*4:x*4+4], c, a*alpha) {
				changed = true
			}
		}
	}
	if changed {
		st.drawn = box
		e.stack.MarkDirty(box)
	}
	return changed || restored
}

// lassoState collects the outline of a freehand selection.
type lassoState struct {
	pts []pimage.Point
}

func (st *lassoState) move(_ *Engine, ev PointerEvent) bool {
	st.pts = append(st.pts, ev.point())
	return false
}

func (st *lassoState) up(e *Engine, ev PointerEvent) bool {
	st.pts = append(st.pts, ev.point())
	if len(st.pts) < 3 {
		return false
	}
	e.sel.SelectPolygon(st.pts, e.selMode)
	e.emit(Event{Kind: EventSelection, Rect: e.sel.Bounds()})
	return true
}

func (st *lassoState) cancel(*Engine) {}

// marqueeState selects the box between press and release. A click without
// a drag in replace mode clears the selection.
type marqueeState struct {
	start pimage.Point
}

func (st *marqueeState) move(*Engine, PointerEvent) bool { return false }

func (st *marqueeState) up(e *Engine, ev PointerEvent) bool {
	x0 := int(math.Round(min(st.start.X, ev.X)))
	y0 := int(math.Round(min(st.start.Y, ev.Y)))
	x1 := int(math.Round(max(st.start.X, ev.X)))
	y1 := int(math.Round(max(st.start.Y, ev.Y)))
	if x1 == x0 || y1 == y0 {
		if e.selMode != SelectReplace || !e.sel.Active() {
			return false
		}
		e.sel.Clear()
	} else {
		e.sel.SelectRect(x0, y0, x1-x0, y1-y0, e.selMode)
	}
	e.emit(Event{Kind: EventSelection, Rect: e.sel.Bounds()})
	return true
}

func (st *marqueeState) cancel(*Engine) {}

// moveState drags the floating pixels of a transform. The transform is
// started on press when needed and stays active after release.
type moveState struct {
	start pimage.Point
	base  pimage.Affine
}

func (e *Engine) beginMove(ev PointerEvent) toolState {
	if !e.stage.Active() {
		if err := e.StartTransform(); err != nil {
			e.log.Debug("paint: transform refused", "err", err)
			return nil
		}
	}
	return &moveState{start: ev.point(), base: e.stage.Matrix()}
}

func (st *moveState) move(e *Engine, ev PointerEvent) bool {
	m := pimage.Translate(ev.X-st.start.X, ev.Y-st.start.Y).Multiply(st.base)
	return e.SetTransform(m) == nil
}

func (st *moveState) up(e *Engine, ev PointerEvent) bool { return st.move(e, ev) }

func (st *moveState) cancel(e *Engine) { _ = e.SetTransform(st.base) }

// panState moves the view.
type panState struct {
	start pimage.Point
	view  image.Point
}

func (st *panState) move(e *Engine, ev PointerEvent) bool {
	v := st.view.Add(image.Pt(int(math.Round(ev.X-st.start.X)), int(math.Round(ev.Y-st.start.Y))))
	if v == e.view {
		return false
	}
	e.view = v
	return true
}

func (st *panState) up(e *Engine, ev PointerEvent) bool { return st.move(e, ev) }

func (st *panState) cancel(e *Engine) { e.view = st.view }
