package paint

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"testing"

	"github.com/gogpu/paint/internal/brush"
)

func newTestEngine(t *testing.T, w, h int) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.TileSize = 16
	cfg.Workers = 2
	e := NewEngine(w, h, WithConfig(cfg))
	t.Cleanup(e.Close)
	e.SetProfile(brush.New(brush.Params{Size: 20, Opacity: 1, Hardness: 1, Spacing: 0.1, Tip: "hard"}))
	e.SetColor(Red)
	return e
}

func drag(e *Engine, pts ...[2]float64) bool {
	if !e.PointerDown(PointerEvent{X: pts[0][0], Y: pts[0][1], Pressure: 1}) {
		return false
	}
	for _, p := range pts[1 : len(pts)-1] {
		e.PointerMove(PointerEvent{X: p[0], Y: p[1], Pressure: 1})
	}
	last := pts[len(pts)-1]
	e.PointerUp(PointerEvent{X: last[0], Y: last[1], Pressure: 1})
	return true
}

func rgbaAt(img *image.RGBA, x, y int) [4]uint8 {
	i := img.PixOffset(x, y)
	return [4]uint8{img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]}
}

func TestNewEngine(t *testing.T) {
	e := NewEngine(0, -3)
	defer e.Close()
	if e.Width() != 1 || e.Height() != 1 {
		t.Errorf("size = %dx%d, want 1x1", e.Width(), e.Height())
	}
	if e.LayerCount() != 1 || e.ActiveLayer() != 0 {
		t.Errorf("LayerCount() = %d, ActiveLayer() = %d, want 1, 0", e.LayerCount(), e.ActiveLayer())
	}
	if e.Tool() != ToolBrush {
		t.Errorf("Tool() = %v, want brush", e.Tool())
	}
}

func TestBrushStroke(t *testing.T) {
	e := newTestEngine(t, 100, 100)
	if !drag(e, [2]float64{20, 50}, [2]float64{50, 50}, [2]float64{80, 50}) {
		t.Fatal("PointerDown() refused on an empty layer")
	}
	img := e.Composite()
	if got := rgbaAt(img, 50, 50); got != [4]uint8{255, 0, 0, 255} {
		t.Errorf("composite at (50, 50) = %v, want opaque red", got)
	}
	if got := rgbaAt(img, 50, 10); got[3] != 0 {
		t.Errorf("composite at (50, 10) alpha = %d, want 0", got[3])
	}
	st := e.Stats()
	if st.Strokes != 1 || st.Dabs.Stamped == 0 {
		t.Errorf("Stats() = %+v, want one stroke with stamped dabs", st)
	}
}

func TestEraser(t *testing.T) {
	e := newTestEngine(t, 64, 64)
	if err := e.FillLayer(0); err != nil {
		t.Fatalf("FillLayer() error = %v", err)
	}
	e.SetTool(ToolEraser)
	drag(e, [2]float64{32, 32}, [2]float64{32, 32})
	img := e.Composite()
	if got := rgbaAt(img, 32, 32); got[3] != 0 {
		t.Errorf("erased pixel alpha = %d, want 0", got[3])
	}
	if got := rgbaAt(img, 2, 2); got != [4]uint8{255, 0, 0, 255} {
		t.Errorf("untouched pixel = %v, want opaque red", got)
	}
}

func TestCancelStrokeRestores(t *testing.T) {
	e := newTestEngine(t, 64, 64)
	l, _ := e.Layer(0)
	before := l.Pixels.Clone()

	e.PointerDown(PointerEvent{X: 10, Y: 10, Pressure: 1})
	if !e.PointerMove(PointerEvent{X: 50, Y: 50, Pressure: 1}) {
		t.Fatal("PointerMove() did not paint")
	}
	e.CancelStroke()
	if !l.Pixels.Equal(before) {
		t.Error("CancelStroke() did not restore the layer")
	}
	if got := e.Stats().Strokes; got != 0 {
		t.Errorf("Strokes = %d after cancel, want 0", got)
	}
	if e.PointerUp(PointerEvent{X: 50, Y: 50}) {
		t.Error("PointerUp() after cancel reported a change")
	}
}

func TestShapeTools(t *testing.T) {
	tests := []struct {
		tool   Tool
		inside image.Point // on the outline
		empty  image.Point
	}{
		{ToolLine, image.Pt(50, 50), image.Pt(50, 10)},
		{ToolRect, image.Pt(20, 50), image.Pt(50, 50)},
		{ToolEllipse, image.Pt(50, 20), image.Pt(50, 50)},
	}
	for _, tt := range tests {
		t.Run(tt.tool.String(), func(t *testing.T) {
			e := newTestEngine(t, 100, 100)
			e.SetProfile(e.Profile().WithSize(4))
			e.SetTool(tt.tool)
			var from, to [2]float64
			if tt.tool == ToolLine {
				from, to = [2]float64{10, 50}, [2]float64{90, 50}
			} else {
				from, to = [2]float64{20, 20}, [2]float64{80, 80}
			}
			// The preview at (30, 30) must be replaced by the final shape.
			drag(e, from, [2]float64{30, 30}, to)
			img := e.Composite()
			if got := rgbaAt(img, tt.inside.X, tt.inside.Y); got[3] != 255 {
				t.Errorf("outline pixel %v alpha = %d, want 255", tt.inside, got[3])
			}
			if got := rgbaAt(img, tt.empty.X, tt.empty.Y); got[3] != 0 {
				t.Errorf("pixel %v alpha = %d, want 0", tt.empty, got[3])
			}
		})
	}
}

func TestDrawingRespectsSelection(t *testing.T) {
	e := newTestEngine(t, 100, 100)
	e.SelectRect(0, 0, 50, 100, SelectReplace)
	drag(e, [2]float64{10, 50}, [2]float64{90, 50})
	img := e.Composite()
	if got := rgbaAt(img, 30, 50); got[3] != 255 {
		t.Errorf("selected pixel alpha = %d, want 255", got[3])
	}
	if got := rgbaAt(img, 70, 50); got[3] != 0 {
		t.Errorf("unselected pixel alpha = %d, want 0", got[3])
	}
}

func TestAlphaLockKeepsAlpha(t *testing.T) {
	e := newTestEngine(t, 64, 64)
	e.SetColor(Color{R: 0, G: 0, B: 1, A: 0.5})
	e.SelectRect(0, 0, 32, 64, SelectReplace)
	if err := e.FillLayer(0); err != nil {
		t.Fatal(err)
	}
	e.Deselect()
	if err := e.SetLayerAlphaLock(0, true); err != nil {
		t.Fatal(err)
	}
	l, _ := e.Layer(0)
	before := l.Pixels.Clone()

	e.SetColor(Red)
	drag(e, [2]float64{10, 32}, [2]float64{54, 32})
	for y := range 64 {
		for x := range 64 {
			if l.Pixels.AlphaAt(x, y) != before.AlphaAt(x, y) {
				t.Fatalf("alpha at (%d, %d) changed under alpha lock", x, y)
			}
		}
	}
}

func TestRefusedTargets(t *testing.T) {
	tests := []struct {
		name  string
		setup func(e *Engine)
	}{
		{"locked", func(e *Engine) { _ = e.SetLayerLocked(0, true) }},
		{"group", func(e *Engine) { _, _ = e.AddGroup("g") }},
		{"transform", func(e *Engine) { _ = e.StartTransform() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, 32, 32)
			tt.setup(e)
			if e.PointerDown(PointerEvent{X: 16, Y: 16, Pressure: 1}) {
				t.Error("PointerDown() accepted, want refused")
			}
			if got := e.Stats().Refused; got != 1 {
				t.Errorf("Refused = %d, want 1", got)
			}
		})
	}
}

func TestTransformCancelRestores(t *testing.T) {
	e := newTestEngine(t, 200, 200)
	drag(e, [2]float64{40, 40}, [2]float64{160, 120})
	l, _ := e.Layer(0)
	before := l.Pixels.Clone()

	if err := e.StartTransform(); err != nil {
		t.Fatalf("StartTransform() error = %v", err)
	}
	if err := e.SetTransform(RotateAt(0.785398, 100, 100)); err != nil {
		t.Fatalf("SetTransform() error = %v", err)
	}
	e.Composite()
	if _, err := e.AddLayer("x"); !errors.Is(err, ErrBusy) {
		t.Errorf("AddLayer() during transform error = %v, want ErrBusy", err)
	}
	if err := e.CancelTransform(); err != nil {
		t.Fatalf("CancelTransform() error = %v", err)
	}
	if !l.Pixels.Equal(before) {
		t.Error("CancelTransform() did not restore the layer byte for byte")
	}
	if err := e.CancelTransform(); err == nil {
		t.Error("CancelTransform() when idle should fail")
	}
}

func TestTransformToolDrag(t *testing.T) {
	e := newTestEngine(t, 100, 100)
	e.SelectRect(10, 10, 10, 10, SelectReplace)
	if err := e.FillLayer(0); err != nil {
		t.Fatal(err)
	}
	e.SetTool(ToolTransform)
	drag(e, [2]float64{15, 15}, [2]float64{35, 15}, [2]float64{55, 15})
	if !e.TransformActive() {
		t.Fatal("transform should stay active after the drag")
	}
	if err := e.ApplyTransform(); err != nil {
		t.Fatalf("ApplyTransform() error = %v", err)
	}
	img := e.Composite()
	if got := rgbaAt(img, 55, 15); got != [4]uint8{255, 0, 0, 255} {
		t.Errorf("moved pixel = %v, want opaque red", got)
	}
	if got := rgbaAt(img, 15, 15); got[3] != 0 {
		t.Errorf("vacated pixel alpha = %d, want 0", got[3])
	}
}

func TestSelectionTools(t *testing.T) {
	e := newTestEngine(t, 100, 100)
	e.SetTool(ToolRectSelect)
	drag(e, [2]float64{0, 0}, [2]float64{100, 100})
	e.SetSelectionMode(SelectSubtract)
	drag(e, [2]float64{25, 25}, [2]float64{75, 75})
	if got := e.SelectionAt(50, 50); got != 0 {
		t.Errorf("SelectionAt(50, 50) = %d, want 0", got)
	}
	if got := e.SelectionAt(10, 10); got != 255 {
		t.Errorf("SelectionAt(10, 10) = %d, want 255", got)
	}

	e.SetTool(ToolLasso)
	e.SetSelectionMode(SelectReplace)
	drag(e, [2]float64{10, 10}, [2]float64{90, 10}, [2]float64{90, 90}, [2]float64{10, 90})
	if got := e.SelectionAt(50, 50); got != 255 {
		t.Errorf("lasso SelectionAt(50, 50) = %d, want 255", got)
	}
	if got := e.SelectionAt(95, 95); got != 0 {
		t.Errorf("lasso SelectionAt(95, 95) = %d, want 0", got)
	}

	e.InvertSelection()
	if got := e.SelectionAt(95, 95); got != 255 {
		t.Errorf("inverted SelectionAt(95, 95) = %d, want 255", got)
	}
	e.Deselect()
	if e.HasSelection() || e.Selection() != nil {
		t.Error("Deselect() left a selection")
	}
}

func TestHandTool(t *testing.T) {
	e := newTestEngine(t, 10, 10)
	e.SetTool(ToolHand)
	drag(e, [2]float64{5, 5}, [2]float64{25, -5})
	if got := e.View(); got != image.Pt(20, -10) {
		t.Errorf("View() = %v, want (20,-10)", got)
	}
}

func TestLayerCommandsEmitEvents(t *testing.T) {
	e := newTestEngine(t, 16, 16)
	var kinds []EventKind
	remove := e.OnEvent(func(ev Event) { kinds = append(kinds, ev.Kind) })

	i, err := e.AddLayer("top")
	if err != nil || i != 1 {
		t.Fatalf("AddLayer() = %d, %v", i, err)
	}
	if err := e.SetLayerOpacity(i, 0.5); err != nil {
		t.Fatal(err)
	}
	if err := e.SetLayerMode(i, BlendMode(200)); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("SetLayerMode(invalid) error = %v, want ErrOutOfRange", err)
	}
	if err := e.RemoveLayer(7); err == nil {
		t.Error("RemoveLayer(7) should fail")
	}
	remove()
	_, _ = e.AddLayer("unobserved")

	want := []EventKind{EventLayers, EventLayers, EventLayers}
	if len(kinds) != len(want) {
		t.Fatalf("events = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestCompositeDamageEvent(t *testing.T) {
	e := newTestEngine(t, 64, 64)
	e.Composite()

	var got image.Rectangle
	e.OnEvent(func(ev Event) {
		if ev.Kind == EventDamage {
			got = got.Union(ev.Rect)
		}
	})
	drag(e, [2]float64{5, 5}, [2]float64{5, 5})
	e.Composite()
	if !image.Pt(5, 5).In(got) {
		t.Errorf("damage %v does not cover the dab", got)
	}
	if st := e.Stats(); st.TilesRendered >= st.Tiles {
		t.Errorf("TilesRendered = %d of %d, want a partial update", st.TilesRendered, st.Tiles)
	}
}

func TestProjectRoundTrip(t *testing.T) {
	e := newTestEngine(t, 48, 32)
	drag(e, [2]float64{4, 4}, [2]float64{40, 28})
	if _, err := e.AddLayer("second"); err != nil {
		t.Fatal(err)
	}
	_ = e.SetLayerMode(1, Multiply)
	e.SelectAll()
	path := filepath.Join(t.TempDir(), "doc.paint")
	if err := e.SaveProject(path); err != nil {
		t.Fatalf("SaveProject() error = %v", err)
	}

	f := NewEngine(1, 1)
	defer f.Close()
	if err := f.LoadProject(path); err != nil {
		t.Fatalf("LoadProject() error = %v", err)
	}
	if f.Width() != 48 || f.Height() != 32 || f.LayerCount() != 2 {
		t.Fatalf("loaded %dx%d with %d layers", f.Width(), f.Height(), f.LayerCount())
	}
	if f.HasSelection() {
		t.Error("LoadProject() kept a selection")
	}
	a, _ := e.Layer(0)
	b, _ := f.Layer(0)
	if !a.Pixels.Equal(b.Pixels) {
		t.Error("pixels differ after round trip")
	}
	if l, _ := f.Layer(1); l.Mode != Multiply || l.Name != "second" {
		t.Errorf("layer 1 = %q %v, want second Multiply", l.Name, l.Mode)
	}
}

func TestApplyConfig(t *testing.T) {
	e := newTestEngine(t, 64, 64)
	var got int
	e.OnEvent(func(ev Event) {
		if ev.Kind == EventConfig {
			got++
		}
	})
	cfg := e.Config()
	cfg.TileSize = 32
	cfg.Brush.Size = 7
	e.ApplyConfig(cfg)
	if got != 1 {
		t.Errorf("config events = %d, want 1", got)
	}
	if e.Profile().Size() != 7 {
		t.Errorf("Profile().Size() = %v, want 7", e.Profile().Size())
	}
	e.Composite()
	if st := e.Stats(); st.Tiles != 4 {
		t.Errorf("Tiles = %d, want 4 after resizing tiles to 32", st.Tiles)
	}
}

func TestImportBrushesRejectsGarbage(t *testing.T) {
	e := newTestEngine(t, 8, 8)
	_, err := e.ImportBrushes(context.Background(), []byte("definitely not brushes"))
	if !errors.Is(err, ErrMalformedArchive) {
		t.Errorf("ImportBrushes() error = %v, want ErrMalformedArchive", err)
	}
	if e.Catalog() != nil {
		t.Error("failed import published a catalog")
	}
}

func TestParseTool(t *testing.T) {
	for tool := ToolBrush; tool < toolCount; tool++ {
		got, ok := ParseTool(tool.String())
		if !ok || got != tool {
			t.Errorf("ParseTool(%q) = %v, %v", tool.String(), got, ok)
		}
	}
	if _, ok := ParseTool("smudge"); ok {
		t.Error(`ParseTool("smudge") ok = true`)
	}
}
