// Package parallel provides the tile infrastructure the compositor uses to
// recompose a canvas in parallel and incrementally.
//
// The canvas is divided into square tiles (64×64 by default) that are
// rendered independently. A DirtyRegion bitmap records which tiles changed
// since the last frame and a WorkerPool fans tile jobs out across
// goroutines. Tiles never overlap, so workers write disjoint regions of a
// shared output buffer without locking.
package parallel

import "image"

// DefaultTileSize is the edge of a tile in pixels.
// 64×64 RGBA is 16KB, which fits in L1 cache.
const DefaultTileSize = 64

// Grid divides a canvas into square tiles. Edge tiles may be smaller.
type Grid struct {
	width, height int
	size          int
	tilesX        int
	tilesY        int
}

// NewGrid creates a grid over a width×height canvas. A tileSize of zero or
// less selects DefaultTileSize. It returns nil for an empty canvas.
func NewGrid(width, height, tileSize int) *Grid {
	if width <= 0 || height <= 0 {
		return nil
	}
	if tileSize <= 0 {
		tileSize = DefaultTileSize
	}
	return &Grid{
		width:  width,
		height: height,
		size:   tileSize,
		tilesX: (width + tileSize - 1) / tileSize,
		tilesY: (height + tileSize - 1) / tileSize,
	}
}

// TileSize returns the edge of a full tile.
func (g *Grid) TileSize() int { return g.size }

// TilesX returns the number of tile columns.
func (g *Grid) TilesX() int { return g.tilesX }

// TilesY returns the number of tile rows.
func (g *Grid) TilesY() int { return g.tilesY }

// Count returns the number of tiles.
func (g *Grid) Count() int { return g.tilesX * g.tilesY }

// Bounds returns the canvas rectangle.
func (g *Grid) Bounds() image.Rectangle { return image.Rect(0, 0, g.width, g.height) }

// TileRect returns the canvas pixels covered by tile (tx, ty), clipped to
// the canvas. It is empty for out of range tiles.
func (g *Grid) TileRect(tx, ty int) image.Rectangle {
	if tx < 0 || tx >= g.tilesX || ty < 0 || ty >= g.tilesY {
		return image.Rectangle{}
	}
	r := image.Rect(tx*g.size, ty*g.size, (tx+1)*g.size, (ty+1)*g.size)
	return r.Intersect(g.Bounds())
}

// Span returns the inclusive tile index range covering the pixel rectangle
// r. ok is false when r misses the canvas.
func (g *Grid) Span(r image.Rectangle) (tx0, ty0, tx1, ty1 int, ok bool) {
	r = r.Intersect(g.Bounds())
	if r.Empty() {
		return 0, 0, 0, 0, false
	}
	return r.Min.X / g.size, r.Min.Y / g.size,
		(r.Max.X - 1) / g.size, (r.Max.Y - 1) / g.size, true
}
