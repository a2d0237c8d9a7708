package abr

const (
	compressRaw = 0
	compressRLE = 1

	maxEdge = 1 << 14
)

// readBounds reads a top, left, bottom, right rectangle of 32-bit values
// and returns its size.
func readBounds(r *reader) (w, h int, err error) {
	at := r.pos()
	var v [4]int32
	for i := range v {
		if v[i], err = r.i32(); err != nil {
			return 0, 0, err
		}
	}
	w, h = int(v[3])-int(v[1]), int(v[2])-int(v[0])
	if w <= 0 || h <= 0 || w > maxEdge || h > maxEdge {
		return 0, 0, malformed(at, ReasonBounds, "sample is %dx%d", w, h)
	}
	return w, h, nil
}

// readPixels reads a w×h sample of the given bit depth and compression
// and returns 8-bit coverage.
func readPixels(r *reader, w, h, depth, compression int) ([]byte, error) {
	at := r.pos()
	if depth != 8 && depth != 16 {
		return nil, malformed(at, ReasonDepth, "depth %d", depth)
	}
	bpp := depth / 8
	rowBytes := w * bpp
	raw := make([]byte, rowBytes*h)

	switch compression {
	case compressRaw:
		b, err := r.bytes(len(raw))
		if err != nil {
			return nil, err
		}
		copy(raw, b)
	case compressRLE:
		lens := make([]int, h)
		for y := range lens {
			n, err := r.u16()
			if err != nil {
				return nil, err
			}
			lens[y] = int(n)
		}
		for y, n := range lens {
			src, err := r.bytes(n)
			if err != nil {
				return nil, err
			}
			unpackBits(raw[y*rowBytes:(y+1)*rowBytes], src)
		}
	default:
		return nil, malformed(at, ReasonCompression, "compression %d", compression)
	}

	if bpp == 1 {
		return raw, nil
	}
	out := make([]byte, w*h)
	for i := range out {
		out[i] = raw[i*2]
	}
	return out, nil
}
