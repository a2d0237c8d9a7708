package paint

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/paint/abr"
	"github.com/gogpu/paint/internal/brush"
	"github.com/gogpu/paint/internal/composite"
	"github.com/gogpu/paint/internal/dab"
	pimage "github.com/gogpu/paint/internal/image"
	"github.com/gogpu/paint/internal/layer"
	"github.com/gogpu/paint/internal/project"
	"github.com/gogpu/paint/internal/selection"
	"github.com/gogpu/paint/internal/tip"
	"github.com/gogpu/paint/internal/transform"
)

// Engine is one painting document: a layer stack, its selection, the
// current tool and brush, and the composite shown to the user.
//
// Engine methods must be called from a single goroutine, the paint thread.
// The exceptions are Catalog, OnEvent and ImportBrushesAsync, which are safe
// for concurrent use.
type Engine struct {
	cfg Config
	log *slog.Logger

	stack   *layer.Stack
	comp    *composite.Compositor
	tips    *tip.Cache
	sel     *selection.Mask
	stage   transform.Stage
	stamper dab.Stamper
	scratch *pimage.Pool
	display *pimage.ImageBuf

	profile brush.Profile
	color   Color
	tool    Tool
	selMode selection.Mode
	view    image.Point

	gesture gesture

	catalog atomic.Pointer[Catalog]

	obsMu     sync.Mutex
	observers []observer
	obsSeq    int

	strokes    uint64
	refused    uint64
	composites uint64
	closed     bool
}

type observer struct {
	id int
	fn func(Event)
}

// Stats are engine counters. Counters only grow.
type Stats struct {
	// Strokes is the number of committed paint gestures.
	Strokes uint64
	// Refused counts pointer gestures dropped because the active layer
	// could not be drawn on.
	Refused uint64
	// Dabs counts stamped, clipped and dropped dabs.
	Dabs DabStats
	// Composites is the number of Composite calls.
	Composites uint64
	// Tiles and TilesRendered describe the last composite.
	Tiles         int
	TilesRendered int
	// Revision is the layer stack revision.
	Revision uint64
}

// NewEngine creates a width×height document holding one empty layer.
// Sizes below one pixel are raised to one.
func NewEngine(width, height int, opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger
	if log == nil {
		log = Logger()
	}
	cfg := o.config.normalize()
	width, height = max(width, 1), max(height, 1)

	e := &Engine{
		cfg:     cfg,
		log:     log,
		tips:    o.tips,
		sel:     selection.New(width, height),
		scratch: pimage.NewPool(4),
		profile: cfg.Profile(),
		color:   Black,
		tool:    ToolBrush,
	}
	if e.tips == nil {
		e.tips = tip.NewCache(tip.Options{
			Dir:    cfg.ResourceDir,
			Size:   cfg.TipSize,
			Limit:  cfg.TipCacheLimit,
			Seed:   cfg.Seed,
			Logger: log,
		})
	}
	for _, fn := range o.observers {
		e.addObserver(fn)
	}
	e.stack = layer.NewStack(width, height, e.stackOptions())
	e.stack.AddAbove(layer.KindNormal, "Layer 1")
	e.comp = e.newCompositor(width, height)

	log.Info("paint: engine created", "width", width, "height", height,
		"tile", cfg.TileSize, "workers", cfg.Workers)
	return e
}

// Close stops the compositor workers. The engine must not be used after.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.comp.Close()
}

// Width returns the canvas width.
func (e *Engine) Width() int { return e.stack.Width() }

// Height returns the canvas height.
func (e *Engine) Height() int { return e.stack.Height() }

// Config returns the configuration in effect.
func (e *Engine) Config() Config { return e.cfg }

// Tips returns the tip cache used by the engine.
func (e *Engine) Tips() *tip.Cache { return e.tips }

// ApplyConfig replaces the configuration. Tile size and worker changes
// rebuild the compositor; a changed resource directory reloads tips; a
// changed default brush becomes the current brush. TipSize only applies to
// engines created afterwards.
func (e *Engine) ApplyConfig(c Config) {
	c = c.normalize()
	old := e.cfg
	e.cfg = c

	if c.TileSize != old.TileSize || c.Workers != old.Workers {
		e.comp.Close()
		e.comp = e.newCompositor(e.stack.Width(), e.stack.Height())
	}
	if c.ResourceDir != old.ResourceDir {
		e.tips.SetDir(c.ResourceDir)
	}
	if c.Brush != old.Brush {
		e.profile = c.Profile()
	}
	e.log.Debug("paint: config applied", "tile", c.TileSize, "workers", c.Workers, "dir", c.ResourceDir)
	e.emit(Event{Kind: EventConfig})
}

// OnEvent registers fn and returns a function that removes it. Observers
// run on the goroutine that caused the event and must not block.
func (e *Engine) OnEvent(fn func(Event)) (remove func()) {
	if fn == nil {
		return func() {}
	}
	id := e.addObserver(fn)
	return func() {
		e.obsMu.Lock()
		defer e.obsMu.Unlock()
		for i, o := range e.observers {
			if o.id == id {
				e.observers = append(e.observers[:i:i], e.observers[i+1:]...)
				return
			}
		}
	}
}

func (e *Engine) addObserver(fn func(Event)) int {
	e.obsMu.Lock()
	defer e.obsMu.Unlock()
	e.obsSeq++
	e.observers = append(e.observers, observer{id: e.obsSeq, fn: fn})
	return e.obsSeq
}

func (e *Engine) emit(ev Event) {
	e.obsMu.Lock()
	obs := e.observers
	e.obsMu.Unlock()
	if e.stack != nil {
		ev.Layer = e.stack.Active()
	}
	for _, o := range obs {
		o.fn(ev)
	}
}

// Composite brings the composite up to date and returns it. Only tiles
// touched since the previous call are recomposited. While a transform is
// active the floating pixels are drawn over the result.
//
// The image is owned by the engine and valid until the next call.
func (e *Engine) Composite() *image.RGBA {
	rects := e.comp.Update(e.stack)
	e.composites++
	var damage image.Rectangle
	for _, r := range rects {
		damage = damage.Union(r)
	}
	if !damage.Empty() {
		e.emit(Event{Kind: EventDamage, Rect: damage})
	}

	out := e.comp.Output()
	if !e.stage.Active() {
		return out.RGBA()
	}
	if e.display == nil || !e.display.SameShape(out) {
		e.display = pimage.MustNew(out.Width(), out.Height(), pimage.FormatRGBAPremul)
	}
	_ = e.display.CopyFrom(out)
	box := e.stage.Box()
	_ = e.display.Paint(func(p *pimage.Painter) error {
		p.SetTransform(e.stage.Matrix())
		p.DrawImage(e.stage.Holding().RGBA(), float64(box.Min.X), float64(box.Min.Y))
		return nil
	})
	return e.display.RGBA()
}

// Stats returns the engine counters.
func (e *Engine) Stats() Stats {
	cs := e.comp.Stats()
	return Stats{
		Strokes:       e.strokes,
		Refused:       e.refused,
		Dabs:          e.stamper.Stats,
		Composites:    e.composites,
		Tiles:         cs.Tiles,
		TilesRendered: cs.Rendered,
		Revision:      e.stack.Revision(),
	}
}

// Catalog returns the most recently imported brush catalog, or nil.
func (e *Engine) Catalog() *Catalog { return e.catalog.Load() }

// ImportBrushes decodes a brush archive, registers its tips and publishes
// the catalog. Failures wrap ErrMalformedArchive or ErrCancelled and leave
// the previous catalog in place.
func (e *Engine) ImportBrushes(ctx context.Context, data []byte) (*Catalog, error) {
	cat, err := e.importBrushes(ctx, data)
	if err != nil {
		return nil, err
	}
	e.emit(Event{Kind: EventCatalog})
	return cat, nil
}

// ImportBrushesAsync decodes on a new goroutine. The catalog is published
// before the result is sent; no event is emitted, so the receiver decides
// when the paint thread learns about it. The channel is buffered and
// closed after the single result.
func (e *Engine) ImportBrushesAsync(ctx context.Context, data []byte) <-chan ImportResult {
	out := make(chan ImportResult, 1)
	go func() {
		defer close(out)
		cat, err := e.importBrushes(ctx, data)
		out <- ImportResult{Catalog: cat, Err: err}
	}()
	return out
}

func (e *Engine) importBrushes(ctx context.Context, data []byte) (*Catalog, error) {
	dec := abr.Decoder{Logger: e.log}
	cat, err := decodeCatalog(ctx, e.tips, data, &dec)
	if err != nil {
		e.log.Warn("paint: brush import failed", "err", err)
		return nil, err
	}
	e.catalog.Store(cat)
	for _, w := range cat.Warnings {
		e.log.Warn("paint: brush import recovered", "err", w)
	}
	e.log.Info("paint: brushes imported", "version", cat.Version, "groups", len(cat.Groups), "presets", cat.Len())
	return cat, nil
}

// SaveProject writes the document to path. Private layers are included.
func (e *Engine) SaveProject(path string) error {
	if err := e.idle(); err != nil {
		return err
	}
	if err := project.SaveFile(path, e.stack); err != nil {
		return fmt.Errorf("paint: save project: %w", err)
	}
	e.log.Info("paint: project saved", "path", path, "layers", e.stack.Len())
	return nil
}

// LoadProject replaces the document with the project at path. The
// selection is cleared and the canvas takes the project size.
func (e *Engine) LoadProject(path string) error {
	if err := e.idle(); err != nil {
		return err
	}
	s, err := project.LoadFile(path, e.stackOptions())
	if err != nil {
		return fmt.Errorf("paint: load project: %w", err)
	}
	e.replaceStack(s)
	e.log.Info("paint: project loaded", "path", path, "layers", s.Len())
	return nil
}

// ExportPNG writes the current composite to path as a straight-alpha PNG.
func (e *Engine) ExportPNG(path string) error {
	e.Composite()
	if err := e.comp.Output().SavePNG(path); err != nil {
		return fmt.Errorf("paint: export: %w", err)
	}
	return nil
}

// replaceStack installs s, resetting every piece of per-document state.
func (e *Engine) replaceStack(s *layer.Stack) {
	e.stack = s
	e.sel = selection.New(s.Width(), s.Height())
	e.gesture = gesture{}
	e.comp.Close()
	e.comp = e.newCompositor(s.Width(), s.Height())
	e.emit(Event{Kind: EventLayers})
	e.emit(Event{Kind: EventSelection})
}

func (e *Engine) newCompositor(width, height int) *composite.Compositor {
	return composite.New(width, height, composite.Options{
		TileSize: e.cfg.TileSize,
		Workers:  e.cfg.Workers,
		Logger:   e.log,
	})
}

func (e *Engine) stackOptions() layer.Options {
	return layer.Options{Logger: e.log, Debug: e.cfg.Debug}
}

// idle returns ErrBusy while a transform or pointer gesture is running.
func (e *Engine) idle() error {
	if e.stage.Active() || e.gesture.tool != nil {
		return ErrBusy
	}
	return nil
}
