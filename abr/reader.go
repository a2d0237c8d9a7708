package abr

import (
	"bytes"
	"encoding/binary"
	"math"

	"golang.org/x/text/encoding/unicode"
)

// reader walks a big-endian byte slice. Every read is bounds checked and
// fails with a ParseError carrying the absolute offset.
type reader struct {
	buf  []byte
	off  int
	base int // absolute offset of buf[0]
}

func newReader(buf []byte, base int) *reader {
	return &reader{buf: buf, base: base}
}

func (r *reader) pos() int       { return r.base + r.off }
func (r *reader) remaining() int { return len(r.buf) - r.off }
func (r *reader) eof() bool      { return r.off >= len(r.buf) }

func (r *reader) need(n int) error {
	if n < 0 || n > r.remaining() {
		return malformed(r.pos(), ReasonTruncated, "need %d bytes, have %d", n, r.remaining())
	}
	return nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) skip(n int) error {
	_, err := r.bytes(n)
	return err
}

func (r *reader) u8() (uint8, error) {
	b, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u16() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *reader) i16() (int16, error) {
	v, err := r.u16()
	return int16(v), err
}

func (r *reader) u32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) i32() (int32, error) {
	v, err := r.u32()
	return int32(v), err
}

func (r *reader) u64() (uint64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (r *reader) f64() (float64, error) {
	v, err := r.u64()
	return math.Float64frombits(v), err
}

// length reads a 32-bit length and checks it against the remaining bytes
// divided by unit.
func (r *reader) length(unit int) (int, error) {
	at := r.pos()
	v, err := r.u32()
	if err != nil {
		return 0, err
	}
	if int64(v)*int64(unit) > int64(r.remaining()) {
		return 0, malformed(at, ReasonLength, "length %d exceeds %d remaining bytes", v, r.remaining())
	}
	return int(v), nil
}

// key reads a 4-byte code.
func (r *reader) key() (string, error) {
	b, err := r.bytes(4)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// id reads a descriptor identifier: a 32-bit length followed by that many
// ASCII bytes, or by a 4-byte code when the length is zero.
func (r *reader) id() (string, error) {
	n, err := r.length(1)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return r.key()
	}
	b, err := r.bytes(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// unicodeString reads a 32-bit character count followed by UTF-16BE code
// units. A trailing NUL is dropped.
func (r *reader) unicodeString() (string, error) {
	n, err := r.length(2)
	if err != nil {
		return "", err
	}
	b, err := r.bytes(n * 2)
	if err != nil {
		return "", err
	}
	return decodeUTF16(b)
}

// pascalString reads a 1-byte length followed by that many bytes.
func (r *reader) pascalString() (string, error) {
	n, err := r.u8()
	if err != nil {
		return "", err
	}
	b, err := r.bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var utf16be = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

func decodeUTF16(b []byte) (string, error) {
	s, err := utf16be.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(bytes.TrimRight(s, "\x00")), nil
}
