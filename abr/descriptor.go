package abr

// maxNesting bounds descriptor recursion.
const maxNesting = 32

// descriptor is a decoded action descriptor: a class and ordered items.
type descriptor struct {
	class string
	items []item
}

type item struct {
	key   string
	value any
}

// Descriptor value types other than the Go built-ins used for doub
// (float64), long (int), comp (int64), bool, TEXT (string), VlLs ([]any),
// tdta and alis ([]byte).
type (
	unitFloat struct {
		unit  string
		value float64
	}
	unitFloats struct {
		unit   string
		values []float64
	}
	enumValue struct {
		typ, value string
	}
	classRef struct {
		name, id string
	}
)

func (d *descriptor) get(key string) (any, bool) {
	for _, it := range d.items {
		if it.key == key {
			return it.value, true
		}
	}
	return nil, false
}

func (d *descriptor) str(key string) (string, bool) {
	v, _ := d.get(key)
	s, ok := v.(string)
	return s, ok
}

func (d *descriptor) obj(key string) (*descriptor, bool) {
	v, _ := d.get(key)
	o, ok := v.(*descriptor)
	return o, ok
}

func (d *descriptor) list(key string) ([]any, bool) {
	v, _ := d.get(key)
	l, ok := v.([]any)
	return l, ok
}

// num returns a numeric item regardless of its storage type.
func (d *descriptor) num(key string) (float64, bool) {
	v, _ := d.get(key)
	switch n := v.(type) {
	case float64:
		return n, true
	case unitFloat:
		return n.value, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// readDescriptor reads the class name, class id and items of a descriptor.
func readDescriptor(r *reader, depth int) (*descriptor, error) {
	if depth > maxNesting {
		return nil, malformed(r.pos(), ReasonType, "descriptor nested deeper than %d", maxNesting)
	}
	if _, err := r.unicodeString(); err != nil {
		return nil, err
	}
	class, err := r.id()
	if err != nil {
		return nil, err
	}
	// Every item takes at least 8 bytes: a zero-length id plus its code,
	// then a type code.
	n, err := r.length(12)
	if err != nil {
		return nil, err
	}
	d := &descriptor{class: class, items: make([]item, 0, n)}
	for range n {
		key, err := r.id()
		if err != nil {
			return nil, err
		}
		typ, err := r.key()
		if err != nil {
			return nil, err
		}
		v, err := readValue(r, typ, depth)
		if err != nil {
			return nil, err
		}
		d.items = append(d.items, item{key: key, value: v})
	}
	return d, nil
}

func readValue(r *reader, typ string, depth int) (any, error) {
	switch typ {
	case "Objc", "GlbO":
		return readDescriptor(r, depth+1)
	case "VlLs":
		n, err := r.length(4)
		if err != nil {
			return nil, err
		}
		list := make([]any, 0, n)
		for range n {
			t, err := r.key()
			if err != nil {
				return nil, err
			}
			v, err := readValue(r, t, depth+1)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	case "doub":
		return r.f64()
	case "UntF":
		unit, err := r.key()
		if err != nil {
			return nil, err
		}
		v, err := r.f64()
		return unitFloat{unit: unit, value: v}, err
	case "UnFl":
		unit, err := r.key()
		if err != nil {
			return nil, err
		}
		n, err := r.length(8)
		if err != nil {
			return nil, err
		}
		vals := make([]float64, n)
		for i := range vals {
			if vals[i], err = r.f64(); err != nil {
				return nil, err
			}
		}
		return unitFloats{unit: unit, values: vals}, nil
	case "TEXT":
		return r.unicodeString()
	case "enum":
		t, err := r.id()
		if err != nil {
			return nil, err
		}
		v, err := r.id()
		return enumValue{typ: t, value: v}, err
	case "long":
		v, err := r.i32()
		return int(v), err
	case "comp":
		v, err := r.u64()
		return int64(v), err
	case "bool":
		v, err := r.u8()
		return v != 0, err
	case "type", "GlbC":
		name, err := r.unicodeString()
		if err != nil {
			return nil, err
		}
		id, err := r.id()
		return classRef{name: name, id: id}, err
	case "tdta", "alis":
		n, err := r.length(1)
		if err != nil {
			return nil, err
		}
		return r.bytes(n)
	}
	return nil, malformed(r.pos()-4, ReasonType, "unknown descriptor type %q", typ)
}
