package abr

// unpackBits decodes one PackBits scanline from src into dst, which must be
// sized to the row. It returns the number of bytes written.
//
// A header byte n in 0..127 copies the next n+1 bytes, -127..-1 repeats the
// next byte 1-n times, and -128 is a no-op.
func unpackBits(dst, src []byte) int {
	w := 0
	for i := 0; i < len(src) && w < len(dst); {
		n := int(int8(src[i]))
		i++
		switch {
		case n >= 0:
			cnt := min(n+1, len(src)-i, len(dst)-w)
			copy(dst[w:], src[i:i+cnt])
			w += cnt
			i += n + 1
		case n != -128:
			if i >= len(src) {
				return w
			}
			v := src[i]
			i++
			for range min(1-n, len(dst)-w) {
				dst[w] = v
				w++
			}
		}
	}
	return w
}
