// Package paint is a raster painting engine: brush strokes, layers,
// selections and transforms over premultiplied RGBA canvases.
//
// # Overview
//
// An Engine holds one document. Pointer input is routed to the current
// Tool; paint tools expand the samples into dabs with the current brush
// Profile and stamp them into the active layer, honoring the selection and
// the layer alpha lock. Composite recomposites only the tiles touched since
// the previous call, on a pool of workers.
//
// # Quick Start
//
//	e := paint.NewEngine(1024, 768)
//	defer e.Close()
//
//	e.SetColor(paint.Red)
//	e.PointerDown(paint.PointerEvent{X: 100, Y: 100, Pressure: 1})
//	e.PointerMove(paint.PointerEvent{X: 300, Y: 180, Pressure: 0.6})
//	e.PointerUp(paint.PointerEvent{X: 400, Y: 200, Pressure: 0.2})
//
//	img := e.Composite() // *image.RGBA, premultiplied
//
// # Threading
//
// All Engine methods run on one goroutine, the paint thread. Brush archives
// can be decoded in the background with ImportBrushesAsync; the resulting
// catalog is published atomically and never observed half built.
//
// # Configuration
//
// Config is a plain value passed with WithConfig. LoadConfig reads TOML,
// WatchConfig delivers reloaded values on a channel, and ApplyConfig
// installs one on the paint thread.
//
// # Brush archives
//
// ImportBrushes reads Adobe ABR files (versions 1, 2, 6 and 10) through
// package abr and registers their sampled tips in the tip cache.
//
// # Projects
//
// SaveProject and LoadProject store the layer stack as a zip archive with a
// TOML manifest and one lossless PNG per pixel layer.
//
// # Logging
//
// The engine logs through log/slog. It is silent by default; see SetLogger.
package paint
