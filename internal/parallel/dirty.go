package parallel

import (
	"image"
	"math/bits"
	"sync/atomic"
)

// DirtyRegion tracks which tiles need recomposing using an atomic bitmap.
//
// The bitmap packs one bit per tile into uint64 words; bit index is
// ty*tilesX + tx. All methods are safe for concurrent use without external
// synchronization.
type DirtyRegion struct {
	grid  *Grid
	words []atomic.Uint64
}

// NewDirtyRegion creates a tracker for g with every tile clean.
// It returns nil for a nil grid.
func NewDirtyRegion(g *Grid) *DirtyRegion {
	if g == nil {
		return nil
	}
	return &DirtyRegion{
		grid:  g,
		words: make([]atomic.Uint64, (g.Count()+63)/64),
	}
}

// Grid returns the tile layout being tracked.
func (d *DirtyRegion) Grid() *Grid { return d.grid }

// Mark marks tile (tx, ty) dirty. Out of range tiles are ignored.
func (d *DirtyRegion) Mark(tx, ty int) {
	if tx < 0 || tx >= d.grid.tilesX || ty < 0 || ty >= d.grid.tilesY {
		return
	}
	idx := ty*d.grid.tilesX + tx
	d.words[idx/64].Or(1 << (idx & 63))
}

// MarkRect marks every tile intersecting the pixel rectangle r.
func (d *DirtyRegion) MarkRect(r image.Rectangle) {
	tx0, ty0, tx1, ty1, ok := d.grid.Span(r)
	if !ok {
		return
	}
	for ty := ty0; ty <= ty1; ty++ {
		for tx := tx0; tx <= tx1; tx++ {
			d.Mark(tx, ty)
		}
	}
}

// MarkAll marks every tile dirty.
func (d *DirtyRegion) MarkAll() {
	total := d.grid.Count()
	full := total / 64
	for i := range full {
		d.words[i].Store(^uint64(0))
	}
	if rem := total % 64; rem > 0 {
		d.words[full].Store(uint64(1)<<rem - 1)
	}
}

// Clear marks every tile clean.
func (d *DirtyRegion) Clear() {
	for i := range d.words {
		d.words[i].Store(0)
	}
}

// IsDirty reports whether tile (tx, ty) is dirty.
func (d *DirtyRegion) IsDirty(tx, ty int) bool {
	if tx < 0 || tx >= d.grid.tilesX || ty < 0 || ty >= d.grid.tilesY {
		return false
	}
	idx := ty*d.grid.tilesX + tx
	return d.words[idx/64].Load()&(1<<(idx&63)) != 0
}

// IsEmpty reports whether no tile is dirty.
func (d *DirtyRegion) IsEmpty() bool {
	for i := range d.words {
		if d.words[i].Load() != 0 {
			return false
		}
	}
	return true
}

// Count returns the number of dirty tiles.
func (d *DirtyRegion) Count() int {
	n := 0
	for i := range d.words {
		n += bits.OnesCount64(d.words[i].Load())
	}
	return n
}

// TakeRects atomically clears the bitmap and returns the canvas rectangles
// of the tiles that were dirty, in row-major order.
func (d *DirtyRegion) TakeRects() []image.Rectangle {
	var rects []image.Rectangle
	total := d.grid.Count()
	for wi := range d.words {
		word := d.words[wi].Swap(0)
		for word != 0 {
			bit := bits.TrailingZeros64(word)
			word &^= 1 << bit
			idx := wi*64 + bit
			if idx >= total {
				break
			}
			rects = append(rects, d.grid.TileRect(idx%d.grid.tilesX, idx/d.grid.tilesX))
		}
	}
	return rects
}
