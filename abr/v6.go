package abr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
)

const blockSignature = "8BIM"

var errNoBrushList = errors.New("abr: descriptor has no brush list")

// Default spacing of sampled brushes that carry no descriptor.
const defaultSpacing = 0.25

// parseV6 reads the 8BIM blocks of a version 6 or 10 archive.
func parseV6(ctx context.Context, r *reader, version int, log *slog.Logger) (*Catalog, error) {
	at := r.pos()
	sub, err := r.u16()
	if err != nil {
		return nil, err
	}
	if sub != 1 && sub != 2 {
		return nil, malformed(at, ReasonVersion, "subversion %d", sub)
	}
	cat := &Catalog{Version: version, Subversion: int(sub)}

	var root *descriptor
	for {
		skipPadding(r)
		if r.eof() {
			break
		}
		if err := cancelled(ctx); err != nil {
			return nil, err
		}
		start := r.pos()
		sig, err := r.key()
		if err != nil {
			return nil, err
		}
		if sig != blockSignature {
			return nil, malformed(start, ReasonSignature, "got %q", sig)
		}
		key, err := r.key()
		if err != nil {
			return nil, err
		}
		n, err := r.length(1)
		if err != nil {
			return nil, err
		}
		base := r.pos()
		payload, _ := r.bytes(n)

		switch key {
		case "samp":
			if extra := sampleOverrun(r); extra > 0 {
				more, _ := r.bytes(extra)
				payload = r.buf[base : base+len(payload)+len(more)]
				log.Debug("abr: samp block extends past its declared size", "offset", start, "extra", extra)
			}
			if err := readSamples(newReader(payload, base), int(sub), cat); err != nil {
				return nil, err
			}
		case "desc":
			d, err := readDescBlock(newReader(payload, base))
			if err != nil {
				log.Warn("abr: descriptor skipped", "offset", start, "err", err)
				cat.Warnings = append(cat.Warnings, err)
				continue
			}
			root = d
		default:
			log.Debug("abr: block skipped", "key", key, "offset", start, "size", n)
		}
	}

	if root != nil {
		if brushes, ok := root.list("Brsh"); ok {
			collect(cat, brushes, "")
			return cat, nil
		}
		cat.Warnings = append(cat.Warnings, errNoBrushList)
	}
	for i, t := range cat.Tips {
		name := t.Name
		if name == "" {
			name = fmt.Sprintf("Sampled %d", i+1)
		}
		cat.add("", Brush{
			Name:      name,
			Tip:       i,
			Diameter:  float64(max(t.Width, t.Height)),
			Spacing:   defaultSpacing,
			Hardness:  1,
			Roundness: 1,
		})
	}
	return cat, nil
}

// skipPadding consumes up to three zero bytes that precede the next block.
func skipPadding(r *reader) {
	for i := 0; i < 3 && !r.eof() && r.buf[r.off] == 0; i++ {
		if r.remaining() >= 4 && string(r.buf[r.off:r.off+4]) == blockSignature {
			return
		}
		r.off++
	}
}

// sampleOverrun returns how many bytes after the declared end of a samp
// block still belong to it. Some writers store a short block size while
// packing further samples before the next 8BIM signature; the signature is
// taken as the real end of the block.
func sampleOverrun(r *reader) int {
	rest := r.buf[r.off:]
	i := 0
	for i < len(rest) && i < 3 && rest[i] == 0 {
		i++
	}
	if i == len(rest) || bytes.HasPrefix(rest[i:], []byte(blockSignature)) {
		return 0
	}
	if j := bytes.Index(rest, []byte(blockSignature)); j >= 0 {
		return j
	}
	return len(rest)
}

// readSamples reads the length prefixed samples of a samp block.
func readSamples(r *reader, sub int, cat *Catalog) error {
	for r.remaining() >= 4 {
		if allZero(r.buf[r.off:]) {
			return nil
		}
		n, err := r.length(1)
		if err != nil {
			return err
		}
		base := r.pos()
		body, _ := r.bytes(n)
		tip, align, err := readSample(newReader(body, base), sub)
		if err != nil {
			return err
		}
		cat.Tips = append(cat.Tips, tip)
		if pad := (align - n%align) % align; pad <= r.remaining() {
			r.off += pad
		}
	}
	return nil
}

// readSample decodes one sample. Photoshop writes a Pascal string UUID and
// a fixed header before the bounds and pads samples to 4 bytes; the short
// form has 4 bytes of header and pads to 2. The alignment is returned.
func readSample(r *reader, sub int) (Tip, int, error) {
	var tip Tip
	align := 2
	if hasUUID(r.buf) {
		align = 4
		uuid, err := r.pascalString()
		if err != nil {
			return tip, align, err
		}
		tip.UUID = uuid
		skip := 10
		if sub == 2 {
			skip = 264
		}
		if err := r.skip(skip); err != nil {
			return tip, align, err
		}
	} else if err := r.skip(4); err != nil {
		return tip, align, err
	}

	w, h, err := readBounds(r)
	if err != nil {
		return tip, align, err
	}
	depth, err := r.u16()
	if err != nil {
		return tip, align, err
	}
	comp, err := r.u8()
	if err != nil {
		return tip, align, err
	}
	cov, err := readPixels(r, w, h, int(depth), int(comp))
	if err != nil {
		return tip, align, err
	}
	tip.Width, tip.Height, tip.Coverage = w, h, cov
	return tip, align, nil
}

func hasUUID(b []byte) bool {
	if len(b) < 37 || b[0] != 36 {
		return false
	}
	for _, c := range b[1:37] {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F', c == '-':
		default:
			return false
		}
	}
	return true
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

// readDescBlock skips the 4-byte descriptor version and reads the root.
func readDescBlock(r *reader) (*descriptor, error) {
	if err := r.skip(4); err != nil {
		return nil, err
	}
	return readDescriptor(r, 0)
}

// collect adds the presets of a Brsh list to cat. An entry holding its own
// Brsh list is a group named by the entry; otherwise an entry is a brush,
// filed under its brushGroup name when present.
func collect(cat *Catalog, entries []any, group string) {
	uuids := make(map[string]int, len(cat.Tips))
	for i, t := range cat.Tips {
		if t.UUID != "" {
			uuids[t.UUID] = i
		}
	}
	var walk func(entries []any, group string)
	walk = func(entries []any, group string) {
		for _, v := range entries {
			e, ok := v.(*descriptor)
			if !ok {
				continue
			}
			name, _ := e.str("Nm  ")
			if children, ok := e.list("Brsh"); ok {
				walk(children, name)
				continue
			}
			g := group
			if bg, ok := e.obj("brushGroup"); ok {
				if n, ok := bg.str("Nm  "); ok {
					g = n
				}
			}
			cat.add(g, brushFrom(cat, e, name, uuids))
		}
	}
	walk(entries, group)
}

func brushFrom(cat *Catalog, e *descriptor, name string, uuids map[string]int) Brush {
	b := Brush{Name: name, Tip: -1, Spacing: defaultSpacing, Hardness: 1, Roundness: 1}
	tip, ok := e.obj("Brsh")
	if !ok {
		return b
	}
	if idx, ok := tip.num("SmpI"); ok && int(idx) >= 0 && int(idx) < len(cat.Tips) {
		b.Tip = int(idx)
	} else if id, ok := tip.str("sampledData"); ok {
		if i, ok := uuids[id]; ok {
			b.Tip = i
		}
	}
	if v, ok := tip.num("Dmtr"); ok {
		b.Diameter = v
	} else if b.Tip >= 0 {
		t := cat.Tips[b.Tip]
		b.Diameter = float64(max(t.Width, t.Height))
	}
	if v, ok := tip.num("Hrdn"); ok {
		b.Hardness = percent(v)
	}
	if v, ok := tip.num("Spcn"); ok {
		b.Spacing = max(0, v/100)
	}
	if v, ok := tip.num("Rndn"); ok {
		b.Roundness = percent(v)
	}
	if v, ok := tip.num("Angl"); ok {
		b.Angle = v
	}
	if b.Name == "" {
		if n, ok := tip.str("Nm  "); ok {
			b.Name = n
		}
	}
	return b
}
