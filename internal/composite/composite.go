// Package composite flattens a layer stack into a single premultiplied
// RGBA buffer.
//
// The canvas is split into square tiles. Update recomposites only the tiles
// touched since the previous call, fanning them out to a worker pool. Every
// tile runs the same per-pixel pass, so the output does not depend on the
// tile size or the number of workers.
package composite

import (
	"image"
	"log/slog"

	"github.com/gogpu/paint/internal/blend"
	pimage "github.com/gogpu/paint/internal/image"
	"github.com/gogpu/paint/internal/layer"
	"github.com/gogpu/paint/internal/parallel"
)

// Options configures a Compositor.
type Options struct {
	// TileSize is the tile edge in pixels. Zero selects parallel.DefaultTileSize.
	TileSize int
	// Workers is the pool size used when Pool is nil. Zero selects GOMAXPROCS.
	Workers int
	// Pool runs tile jobs. When nil the compositor owns a pool and Close stops it.
	Pool *parallel.WorkerPool
	// Logger receives per-update diagnostics. Nil discards.
	Logger *slog.Logger
}

// Stats describes the last Update.
type Stats struct {
	Tiles    int
	Rendered int
	Revision uint64
}

// Compositor owns the composite buffer of one canvas.
//
// Render, Update and the invalidation methods must be called from the
// paint thread. Tile workers only read layer pixels and write disjoint
// regions of the output.
type Compositor struct {
	opts    Options
	out     *pimage.ImageBuf
	grid    *parallel.Grid
	dirty   *parallel.DirtyRegion
	pool    *parallel.WorkerPool
	ownPool bool
	scratch *pimage.Pool
	stats   Stats
	log     *slog.Logger
}

// New creates a compositor for a width×height canvas. The whole canvas
// starts dirty.
func New(width, height int, opts Options) *Compositor {
	if opts.TileSize <= 0 {
		opts.TileSize = parallel.DefaultTileSize
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	c := &Compositor{
		opts:    opts,
		pool:    opts.Pool,
		scratch: pimage.NewPool(16),
		log:     log,
	}
	if c.pool == nil {
		c.pool = parallel.NewWorkerPool(opts.Workers)
		c.ownPool = true
	}
	c.resize(width, height)
	return c
}

// Close releases the worker pool if the compositor created it.
func (c *Compositor) Close() {
	if c.ownPool {
		c.pool.Close()
	}
}

// Output returns the composite buffer. Its contents are valid after Render
// or Update.
func (c *Compositor) Output() *pimage.ImageBuf { return c.out }

// Grid returns the tile grid.
func (c *Compositor) Grid() *parallel.Grid { return c.grid }

// Stats returns counters from the last Update or Render.
func (c *Compositor) Stats() Stats { return c.stats }

// Invalidate marks the tiles overlapping r for recomposition.
func (c *Compositor) Invalidate(r image.Rectangle) { c.dirty.MarkRect(r) }

// InvalidateAll marks every tile for recomposition.
func (c *Compositor) InvalidateAll() { c.dirty.MarkAll() }

// Render recomposites the whole canvas and returns the output.
func (c *Compositor) Render(s *layer.Stack) *pimage.ImageBuf {
	s.TakeDamage()
	c.InvalidateAll()
	c.update(s)
	return c.out
}

// Update folds the stack damage into the dirty tiles, recomposites them,
// and returns the rectangles that were rendered.
func (c *Compositor) Update(s *layer.Stack) []image.Rectangle {
	c.Invalidate(s.TakeDamage())
	return c.update(s)
}

func (c *Compositor) update(s *layer.Stack) []image.Rectangle {
	if s.Width() != c.out.Width() || s.Height() != c.out.Height() {
		c.resize(s.Width(), s.Height())
	}
	rects := c.dirty.TakeRects()
	c.stats = Stats{Tiles: c.grid.Count(), Rendered: len(rects), Revision: s.Revision()}
	if len(rects) == 0 {
		return nil
	}

	layers := s.Layers()
	jobs := make([]func(), len(rects))
	for i, r := range rects {
		jobs[i] = func() { c.renderTile(layers, r) }
	}
	c.pool.Run(jobs)

	c.log.Debug("composite: update", "tiles", len(rects), "revision", s.Revision())
	return rects
}

func (c *Compositor) resize(width, height int) {
	c.out = pimage.MustNew(width, height, pimage.FormatRGBAPremul)
	c.grid = parallel.NewGrid(width, height, c.opts.TileSize)
	c.dirty = parallel.NewDirtyRegion(c.grid)
	c.dirty.MarkAll()
}

func (c *Compositor) renderTile(layers []layer.Layer, r image.Rectangle) {
	c.out.ClearRect(r)
	t := tile{
		r:       r,
		mask:    make([]byte, r.Dx()),
		scratch: c.scratch,
	}
	t.level(layers, 0, len(layers), 0, view{buf: c.out})
}

// view addresses a buffer in canvas coordinates: canvas pixel (x, y) lives
// at (x-off.X, y-off.Y) of buf.
type view struct {
	buf *pimage.ImageBuf
	off image.Point
}

func (v view) row(r image.Rectangle, y int) []byte {
	row := v.buf.RowBytes(y - v.off.Y)
	return row[(r.Min.X-v.off.X)*4 : (r.Max.X-v.off.X)*4]
}

type tile struct {
	r       image.Rectangle
	mask    []byte
	scratch *pimage.Pool
}

// level composites the layers of one nesting level, layers[start:end] at
// the given depth, onto dst.
func (t *tile) level(layers []layer.Layer, start, end, depth int, dst view) {
	var (
		held    []*pimage.ImageBuf
		base    view
		baseOp  float64
		hasBase bool
	)
	defer func() {
		for _, b := range held {
			t.scratch.Put(b)
		}
	}()

	for i := start; i < end; {
		l := &layers[i]
		next := subtreeEnd(layers, i, end)
		if l.Depth != depth || !l.Visible {
			i = next
			continue
		}

		var src view
		if l.IsGroup() {
			buf := t.scratch.Get(t.r.Dx(), t.r.Dy(), pimage.FormatRGBAPremul)
			held = append(held, buf)
			src = view{buf: buf, off: t.r.Min}
			t.level(layers, i+1, next, depth+1, src)
		} else {
			if l.Pixels == nil {
				i = next
				continue
			}
			src = view{buf: l.Pixels}
		}

		if l.Clipped {
			if hasBase {
				t.blend(dst, src, &base, baseOp, l.Mode, l.Opacity)
			}
		} else {
			t.blend(dst, src, nil, 0, l.Mode, l.Opacity)
			base, baseOp, hasBase = src, l.Opacity, true
		}
		i = next
	}
}

// blend composites src onto dst inside the tile. When clip is non-nil the
// source alpha is scaled by the clip base alpha times clipOp.
func (t *tile) blend(dst, src view, clip *view, clipOp float64, m blend.Mode, opacity float64) {
	if opacity <= 0 {
		return
	}
	for y := t.r.Min.Y; y < t.r.Max.Y; y++ {
		var mask []byte
		if clip != nil {
			base := clip.row(t.r, y)
			for x := range t.mask {
				t.mask[x] = uint8(float64(base[x*4+3])*clipOp + 0.5)
			}
			mask = t.mask
		}
		blend.Row(dst.row(t.r, y), src.row(t.r, y), mask, m, opacity)
	}
}

func subtreeEnd(layers []layer.Layer, i, end int) int {
	d := layers[i].Depth
	j := i + 1
	for j < end && layers[j].Depth > d {
		j++
	}
	return j
}
