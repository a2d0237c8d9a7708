// Package abr decodes Adobe brush preset archives (.abr).
//
// Versions 1 and 2 hold a flat list of brush records. Versions 6 and 10
// hold tagged 8BIM blocks: sampled tips in "samp" and the preset tree in a
// serialized action descriptor under "desc". Both are turned into a
// Catalog of tips and named groups of brushes.
//
// Writing archives is not supported.
package abr

import (
	"context"
	"encoding/binary"
	"fmt"
	"image"
	"log/slog"

	"github.com/h2non/filetype"
)

// Type is the filetype registration for brush archives.
var Type = filetype.NewType("abr", "application/x-photoshop-abr")

func init() {
	filetype.AddMatcher(Type, Detect)
}

// Tip is one sampled brush tip. Coverage holds Width×Height bytes, 255
// meaning full paint.
type Tip struct {
	// Name is the brush name stored with the sample (version 2 only).
	Name string
	// UUID identifies the sample in version 6 and later archives.
	UUID     string
	Width    int
	Height   int
	Coverage []byte
}

// Image returns the coverage as an *image.Alpha sharing the tip bytes.
func (t *Tip) Image() *image.Alpha {
	return &image.Alpha{
		Pix:    t.Coverage,
		Stride: t.Width,
		Rect:   image.Rect(0, 0, t.Width, t.Height),
	}
}

// Brush is one preset.
type Brush struct {
	Name string
	// Tip indexes Catalog.Tips, or is -1 for computed brushes.
	Tip int
	// Diameter in pixels.
	Diameter float64
	// Hardness, Spacing and Roundness are fractions in [0, 1]; spacing is
	// relative to the diameter.
	Hardness  float64
	Spacing   float64
	Roundness float64
	// Angle in degrees.
	Angle float64
}

// Computed reports whether the brush is described by parameters only.
func (b *Brush) Computed() bool { return b.Tip < 0 }

// Group is a named list of brushes. The unnamed group holds brushes that
// belong to no group.
type Group struct {
	Name    string
	Brushes []Brush
}

// Catalog is the decoded content of one archive.
type Catalog struct {
	Version    int
	Subversion int
	Tips       []Tip
	Groups     []Group
	// Warnings lists recovered problems such as an unreadable descriptor.
	Warnings []error
}

// Len returns the total number of brushes.
func (c *Catalog) Len() int {
	n := 0
	for _, g := range c.Groups {
		n += len(g.Brushes)
	}
	return n
}

// Group returns the group with the given name.
func (c *Catalog) Group(name string) (*Group, bool) {
	for i := range c.Groups {
		if c.Groups[i].Name == name {
			return &c.Groups[i], true
		}
	}
	return nil, false
}

// add appends b to the named group, creating it on first use.
func (c *Catalog) add(group string, b Brush) {
	for i := range c.Groups {
		if c.Groups[i].Name == group {
			c.Groups[i].Brushes = append(c.Groups[i].Brushes, b)
			return
		}
	}
	c.Groups = append(c.Groups, Group{Name: group, Brushes: []Brush{b}})
}

// Detect reports whether buf starts like a brush archive.
func Detect(buf []byte) bool {
	if len(buf) < 4 {
		return false
	}
	version := binary.BigEndian.Uint16(buf)
	second := binary.BigEndian.Uint16(buf[2:])
	switch version {
	case 1, 2:
		if len(buf) < 6 {
			return second == 0
		}
		kind := binary.BigEndian.Uint16(buf[4:])
		return kind == brushComputed || kind == brushSampled
	case 6, 10:
		return (second == 1 || second == 2) && (len(buf) < 8 || string(buf[4:8]) == blockSignature)
	}
	return false
}

// Decoder holds decoding options. The zero value is ready to use.
type Decoder struct {
	// Logger receives recovered problems. Nil discards.
	Logger *slog.Logger
}

// Parse decodes data with a zero Decoder.
func Parse(ctx context.Context, data []byte) (*Catalog, error) {
	var d Decoder
	return d.Parse(ctx, data)
}

// Parse decodes data. It checks ctx between top-level records and blocks
// and returns ctx.Err() wrapped when cancelled. A catalog is returned only
// when decoding succeeds.
func (d *Decoder) Parse(ctx context.Context, data []byte) (*Catalog, error) {
	log := d.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	r := newReader(data, 0)
	version, err := r.u16()
	if err != nil {
		return nil, err
	}

	var cat *Catalog
	switch version {
	case 1, 2:
		cat, err = parseV1(ctx, r, int(version))
	case 6, 10:
		cat, err = parseV6(ctx, r, int(version), log)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupported, version)
	}
	if err != nil {
		return nil, err
	}
	log.Debug("abr: parsed", "version", cat.Version, "tips", len(cat.Tips),
		"brushes", cat.Len(), "groups", len(cat.Groups))
	return cat, nil
}

// IsArchive reports whether filetype sniffs buf as a brush archive.
func IsArchive(buf []byte) bool {
	kind, err := filetype.Match(buf)
	return err == nil && kind == Type
}

func cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("abr: %w", err)
	}
	return nil
}
