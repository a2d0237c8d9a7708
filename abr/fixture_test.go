package abr

import (
	"bytes"
	"encoding/binary"
	"math"
)

// builder assembles archive fixtures.
type builder struct {
	bytes.Buffer
}

func (b *builder) u8(v uint8)   { b.WriteByte(v) }
func (b *builder) u16(v uint16) { _ = binary.Write(b, binary.BigEndian, v) }
func (b *builder) u32(v uint32) { _ = binary.Write(b, binary.BigEndian, v) }
func (b *builder) i32(v int32)  { _ = binary.Write(b, binary.BigEndian, v) }
func (b *builder) f64(v float64) {
	b.u32(uint32(math.Float64bits(v) >> 32))
	b.u32(uint32(math.Float64bits(v)))
}
func (b *builder) key(s string) { b.WriteString(s[:4]) }

func (b *builder) id(s string) {
	if len(s) == 4 {
		b.u32(0)
		b.key(s)
		return
	}
	b.u32(uint32(len(s)))
	b.WriteString(s)
}

// ustr writes a NUL terminated UTF-16BE string of ASCII text.
func (b *builder) ustr(s string) {
	b.u32(uint32(len(s) + 1))
	for _, c := range []byte(s) {
		b.u16(uint16(c))
	}
	b.u16(0)
}

// Descriptor fixture values.
type (
	kv struct {
		key, typ string
		val      any
	}
	obj struct {
		class string
		items []kv
	}
	typed struct {
		typ string
		val any
	}
	unit struct {
		unit string
		v    float64
	}
)

func (b *builder) descriptor(o obj) {
	b.ustr("")
	b.id(o.class)
	b.u32(uint32(len(o.items)))
	for _, it := range o.items {
		b.id(it.key)
		b.key(it.typ)
		b.value(it.typ, it.val)
	}
}

func (b *builder) value(typ string, v any) {
	switch typ {
	case "Objc":
		b.descriptor(v.(obj))
	case "VlLs":
		list := v.([]typed)
		b.u32(uint32(len(list)))
		for _, e := range list {
			b.key(e.typ)
			b.value(e.typ, e.val)
		}
	case "UntF":
		u := v.(unit)
		b.key(u.unit)
		b.f64(u.v)
	case "doub":
		b.f64(v.(float64))
	case "TEXT":
		b.ustr(v.(string))
	case "long":
		b.i32(int32(v.(int)))
	case "bool":
		if v.(bool) {
			b.u8(1)
		} else {
			b.u8(0)
		}
	case "enum":
		e := v.([2]string)
		b.id(e[0])
		b.id(e[1])
	case "tdta":
		d := v.([]byte)
		b.u32(uint32(len(d)))
		b.Write(d)
	default:
		panic("fixture: unsupported type " + typ)
	}
}

// pattern returns deterministic w×h coverage.
func pattern(w, h int) []byte {
	out := make([]byte, w*h)
	for y := range h {
		for x := range w {
			out[y*w+x] = byte((x*7 + y*13) % 256)
		}
	}
	return out
}

// pixels encodes 8-bit coverage at the given depth and compression.
func pixels(cov []byte, w, h, depth, comp int) []byte {
	var raw []byte
	if depth == 16 {
		for _, v := range cov {
			raw = append(raw, v, v)
		}
	} else {
		raw = cov
	}
	if comp == compressRaw {
		return raw
	}
	row := w * depth / 8
	var lens builder
	var data []byte
	for y := range h {
		p := packBits(raw[y*row : (y+1)*row])
		lens.u16(uint16(len(p)))
		data = append(data, p...)
	}
	return append(lens.Bytes(), data...)
}

type sampleSpec struct {
	w, h, depth, comp int
	uuid              string
}

// sample encodes one samp entry, length prefix and padding included.
func sample(s sampleSpec, sub int) []byte {
	var body builder
	align := 2
	if s.uuid != "" {
		align = 4
		body.u8(uint8(len(s.uuid)))
		body.WriteString(s.uuid)
		if sub == 2 {
			body.Write(make([]byte, 264))
		} else {
			body.Write(make([]byte, 10))
		}
	} else {
		body.u32(0)
	}
	body.i32(0)
	body.i32(0)
	body.i32(int32(s.h))
	body.i32(int32(s.w))
	body.u16(uint16(s.depth))
	body.u8(uint8(s.comp))
	body.Write(pixels(pattern(s.w, s.h), s.w, s.h, s.depth, s.comp))

	var b builder
	b.u32(uint32(body.Len()))
	b.Write(body.Bytes())
	for pad := (align - body.Len()%align) % align; pad > 0; pad-- {
		b.u8(0)
	}
	return b.Bytes()
}

func block(key string, payload []byte) []byte {
	var b builder
	b.key(blockSignature)
	b.key(key)
	b.u32(uint32(len(payload)))
	b.Write(payload)
	if len(payload)%2 == 1 {
		b.u8(0)
	}
	return b.Bytes()
}

func descBlock(root obj) []byte {
	var b builder
	b.u32(16)
	b.descriptor(root)
	return block("desc", b.Bytes())
}

func v6(version, sub int, blocks ...[]byte) []byte {
	var b builder
	b.u16(uint16(version))
	b.u16(uint16(sub))
	for _, bl := range blocks {
		b.Write(bl)
	}
	return b.Bytes()
}

func sampBlock(sub int, specs ...sampleSpec) []byte {
	var payload []byte
	for _, s := range specs {
		payload = append(payload, sample(s, sub)...)
	}
	return block("samp", payload)
}

// preset returns a Brsh list entry for a sampled brush.
func preset(name string, tip int, group string) typed {
	items := []kv{
		{"Nm  ", "TEXT", name},
		{"Brsh", "Objc", obj{"sampledBrush", []kv{
			{"Dmtr", "UntF", unit{"#Pxl", 30}},
			{"Hrdn", "UntF", unit{"#Prc", 80}},
			{"Spcn", "UntF", unit{"#Prc", 15}},
			{"Angl", "UntF", unit{"#Ang", 45}},
			{"Rndn", "UntF", unit{"#Prc", 50}},
			{"SmpI", "long", tip},
			{"Intr", "bool", true},
		}}},
		{"useTipDynamics", "bool", false},
	}
	if group != "" {
		items = append(items, kv{"brushGroup", "Objc", obj{"brushGroup", []kv{{"Nm  ", "TEXT", group}}}})
	}
	return typed{"Objc", obj{"brushPreset", items}}
}

// packBits encodes src with PackBits runs.
func packBits(src []byte) []byte {
	var out []byte
	for i := 0; i < len(src); {
		run := 1
		for i+run < len(src) && run < 128 && src[i+run] == src[i] {
			run++
		}
		if run >= 2 {
			out = append(out, byte(int8(1-run)), src[i])
			i += run
			continue
		}
		j := i + 1
		for j < len(src) && j-i < 128 && (j+1 >= len(src) || src[j] != src[j+1]) {
			j++
		}
		out = append(out, byte(j-i-1))
		out = append(out, src[i:j]...)
		i = j
	}
	return out
}

// v1Sampled encodes a version 1 or 2 sampled record.
func v1Sampled(version int, name string, w, h, depth, comp int, spacing uint16) []byte {
	var body builder
	body.u32(0)
	body.u16(spacing)
	if version == 2 {
		body.ustr(name)
	}
	body.u8(1)
	body.Write(make([]byte, 8))
	body.i32(0)
	body.i32(0)
	body.i32(int32(h))
	body.i32(int32(w))
	body.u16(uint16(depth))
	body.u8(uint8(comp))
	body.Write(pixels(pattern(w, h), w, h, depth, comp))

	var b builder
	b.u16(brushSampled)
	b.u32(uint32(body.Len()))
	b.Write(body.Bytes())
	return b.Bytes()
}

func v1Computed(spacing, diameter, roundness uint16, angle int16, hardness uint16) []byte {
	var b builder
	b.u16(brushComputed)
	b.u32(14)
	b.u32(0)
	b.u16(spacing)
	b.u16(diameter)
	b.u16(roundness)
	b.u16(uint16(angle))
	b.u16(hardness)
	return b.Bytes()
}
