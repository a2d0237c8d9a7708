package paint

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync/atomic"

	"github.com/gogpu/paint/abr"
	"github.com/gogpu/paint/internal/brush"
	pimage "github.com/gogpu/paint/internal/image"
	"github.com/gogpu/paint/internal/tip"
)

// Preset is one imported brush.
type Preset struct {
	Name    string
	Profile Profile
	// Computed presets are described by parameters only and paint with a
	// procedural tip.
	Computed bool
}

// PresetGroup is a named list of presets. Presets outside any group share
// the group with the empty name.
type PresetGroup struct {
	Name    string
	Presets []Preset
}

// Catalog is an imported brush archive, ready for use. Its tips are
// registered in the engine tip cache under the names used by the profiles.
type Catalog struct {
	Version int
	Groups  []PresetGroup
	// Warnings lists problems recovered while decoding.
	Warnings []error
}

// Len returns the total number of presets.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, g := range c.Groups {
		n += len(g.Presets)
	}
	return n
}

// Find returns the first preset with the given name.
func (c *Catalog) Find(name string) (Preset, bool) {
	if c == nil {
		return Preset{}, false
	}
	for _, g := range c.Groups {
		for _, p := range g.Presets {
			if p.Name == name {
				return p, true
			}
		}
	}
	return Preset{}, false
}

// ImportResult is delivered by ImportBrushesAsync.
type ImportResult struct {
	Catalog *Catalog
	Err     error
}

// importSeq numbers imports so that tip names never collide across
// engines sharing a tip cache.
var importSeq atomic.Uint64

// decodeCatalog parses data and registers its tips in tips. Nothing is
// registered when decoding fails.
func decodeCatalog(ctx context.Context, tips *tip.Cache, data []byte, dec *abr.Decoder) (*Catalog, error) {
	if !abr.IsArchive(data) {
		return nil, fmt.Errorf("paint: import brushes: not a brush archive: %w", ErrMalformedArchive)
	}
	src, err := dec.Parse(ctx, data)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("paint: import brushes: %w: %w", ErrCancelled, err)
		}
		return nil, fmt.Errorf("paint: import brushes: %w", err)
	}

	prefix := "abr/" + strconv.FormatUint(importSeq.Add(1), 10) + "/"
	names := make([]string, len(src.Tips))
	for i := range src.Tips {
		t := tip.New(prefix+strconv.Itoa(i), pimage.FromAlpha(src.Tips[i].Image()), 0)
		if t == nil {
			continue
		}
		tips.Put(t.Name(), t)
		names[i] = t.Name()
	}

	cat := &Catalog{Version: src.Version, Warnings: src.Warnings}
	for _, g := range src.Groups {
		pg := PresetGroup{Name: g.Name, Presets: make([]Preset, 0, len(g.Brushes))}
		for _, b := range g.Brushes {
			pg.Presets = append(pg.Presets, presetFrom(b, src.Tips, names))
		}
		cat.Groups = append(cat.Groups, pg)
	}
	return cat, nil
}

// presetFrom maps one archive brush to a profile. Sampled brushes whose tip
// could not be registered fall back to the hard round tip.
func presetFrom(b abr.Brush, tips []abr.Tip, names []string) Preset {
	p := brush.Params{
		Name:      b.Name,
		Size:      b.Diameter,
		Opacity:   1,
		Spacing:   b.Spacing,
		Roundness: b.Roundness,
		Angle:     b.Angle * math.Pi / 180,
	}
	if b.Computed() {
		p.Hardness = b.Hardness
		p.Tip = "hard"
		if b.Hardness < 1 {
			p.Tip = "soft"
		}
		return Preset{Name: b.Name, Profile: brush.New(p), Computed: true}
	}
	if b.Tip < len(names) && names[b.Tip] != "" {
		p.Tip = names[b.Tip]
		if p.Size <= 0 {
			p.Size = float64(max(tips[b.Tip].Width, tips[b.Tip].Height))
		}
	}
	if p.Size <= 0 {
		p.Size = brush.Default().Size()
	}
	return Preset{Name: b.Name, Profile: brush.New(p)}
}
