package abr

import (
	"context"
	"fmt"
)

// Record kinds of version 1 and 2 archives.
const (
	brushComputed = 1
	brushSampled  = 2
)

// parseV1 reads the records of a version 1 or 2 archive until EOF. The
// record count in the header is informational only.
func parseV1(ctx context.Context, r *reader, version int) (*Catalog, error) {
	if _, err := r.u16(); err != nil {
		return nil, err
	}
	cat := &Catalog{Version: version}
	for n := 1; !r.eof(); n++ {
		if err := cancelled(ctx); err != nil {
			return nil, err
		}
		kind, err := r.u16()
		if err != nil {
			return nil, err
		}
		size, err := r.length(1)
		if err != nil {
			return nil, err
		}
		base := r.pos()
		body, _ := r.bytes(size)
		br := newReader(body, base)

		switch kind {
		case brushComputed:
			b, err := readComputedV1(br)
			if err != nil {
				return nil, err
			}
			b.Name = fmt.Sprintf("Computed %d", n)
			cat.add("", b)
		case brushSampled:
			tip, b, err := readSampledV1(br, version)
			if err != nil {
				return nil, err
			}
			b.Tip = len(cat.Tips)
			if b.Name == "" {
				b.Name = fmt.Sprintf("Sampled %d", n)
			}
			cat.Tips = append(cat.Tips, tip)
			cat.add("", b)
		default:
			cat.Warnings = append(cat.Warnings, malformed(base-6, ReasonType, "skipped record kind %d", kind))
		}
	}
	return cat, nil
}

func readComputedV1(r *reader) (Brush, error) {
	var v [5]uint16
	if err := r.skip(4); err != nil {
		return Brush{}, err
	}
	for i := range v {
		var err error
		if v[i], err = r.u16(); err != nil {
			return Brush{}, err
		}
	}
	spacing, diameter, roundness, angle, hardness := v[0], v[1], v[2], int16(v[3]), v[4]
	return Brush{
		Tip:       -1,
		Diameter:  float64(diameter),
		Spacing:   float64(spacing) / 100,
		Roundness: percent(float64(roundness)),
		Angle:     float64(angle),
		Hardness:  percent(float64(hardness)),
	}, nil
}

func readSampledV1(r *reader, version int) (Tip, Brush, error) {
	var tip Tip
	if err := r.skip(4); err != nil {
		return tip, Brush{}, err
	}
	spacing, err := r.u16()
	if err != nil {
		return tip, Brush{}, err
	}
	if version == 2 {
		if tip.Name, err = r.unicodeString(); err != nil {
			return tip, Brush{}, err
		}
	}
	// Antialiasing flag and the 16-bit bounds that precede the 32-bit ones.
	if err := r.skip(1 + 8); err != nil {
		return tip, Brush{}, err
	}
	w, h, err := readBounds(r)
	if err != nil {
		return tip, Brush{}, err
	}
	depth, err := r.u16()
	if err != nil {
		return tip, Brush{}, err
	}
	comp, err := r.u8()
	if err != nil {
		return tip, Brush{}, err
	}
	cov, err := readPixels(r, w, h, int(depth), int(comp))
	if err != nil {
		return tip, Brush{}, err
	}
	tip.Width, tip.Height, tip.Coverage = w, h, cov
	return tip, Brush{
		Name:      tip.Name,
		Diameter:  float64(max(w, h)),
		Spacing:   float64(spacing) / 100,
		Hardness:  1,
		Roundness: 1,
	}, nil
}

// percent converts 0..100 to a clamped fraction.
func percent(v float64) float64 {
	return max(0, min(v/100, 1))
}
