package paint

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

// v1Archive builds a version 1 archive with one computed and one 8×8
// sampled brush.
func v1Archive() []byte {
	var b bytes.Buffer
	put := func(v any) { _ = binary.Write(&b, binary.BigEndian, v) }
	put(uint16(1)) // version
	put(uint16(2)) // count

	put(uint16(1)) // computed
	put(uint32(14))
	put(uint32(0))
	put([]uint16{25, 30, 100, 45, 50}) // spacing, diameter, roundness, angle, hardness

	const w, h = 8, 8
	var body bytes.Buffer
	bput := func(v any) { _ = binary.Write(&body, binary.BigEndian, v) }
	bput(uint32(0))
	bput(uint16(10)) // spacing
	bput(uint8(1))
	bput(make([]byte, 8))
	bput([]int32{0, 0, h, w})
	bput(uint16(8)) // depth
	bput(uint8(0))  // raw
	bput(bytes.Repeat([]byte{255}, w*h))

	put(uint16(2)) // sampled
	put(uint32(body.Len()))
	b.Write(body.Bytes())
	return b.Bytes()
}

func TestImportBrushes(t *testing.T) {
	e := newTestEngine(t, 32, 32)
	var events int
	e.OnEvent(func(ev Event) {
		if ev.Kind == EventCatalog {
			events++
		}
	})

	cat, err := e.ImportBrushes(context.Background(), v1Archive())
	if err != nil {
		t.Fatalf("ImportBrushes() error = %v", err)
	}
	if events != 1 || e.Catalog() != cat {
		t.Errorf("events = %d, Catalog() published = %v", events, e.Catalog() == cat)
	}
	if cat.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", cat.Len())
	}

	computed, ok := cat.Find("Computed 1")
	if !ok || !computed.Computed {
		t.Fatalf("Find(Computed 1) = %+v, %v", computed, ok)
	}
	pr := computed.Profile
	if pr.Size() != 30 || pr.Hardness() != 0.5 || pr.Tip() != "soft" {
		t.Errorf("computed profile size %v hardness %v tip %q, want 30 0.5 soft", pr.Size(), pr.Hardness(), pr.Tip())
	}
	if math.Abs(pr.Angle()-math.Pi/4) > 1e-9 {
		t.Errorf("computed angle = %v, want π/4", pr.Angle())
	}

	sampled, ok := cat.Find("Sampled 2")
	if !ok || sampled.Computed {
		t.Fatalf("Find(Sampled 2) = %+v, %v", sampled, ok)
	}
	if sampled.Profile.Size() != 8 {
		t.Errorf("sampled size = %v, want 8", sampled.Profile.Size())
	}
	if !e.Tips().Contains(sampled.Profile.Tip()) {
		t.Errorf("tip %q not registered", sampled.Profile.Tip())
	}

	// Painting with the imported tip works like any other brush.
	e.SetProfile(sampled.Profile.WithSize(8))
	drag(e, [2]float64{16, 16}, [2]float64{16, 16})
	if got := rgbaAt(e.Composite(), 16, 16); got[3] != 255 {
		t.Errorf("alpha under the imported tip = %d, want 255", got[3])
	}
}

func TestImportBrushesAsync(t *testing.T) {
	e := newTestEngine(t, 8, 8)
	res := <-e.ImportBrushesAsync(context.Background(), v1Archive())
	if res.Err != nil {
		t.Fatalf("ImportBrushesAsync() error = %v", res.Err)
	}
	if e.Catalog() != res.Catalog {
		t.Error("catalog not published before the result")
	}
}

func TestImportBrushesCancelled(t *testing.T) {
	e := newTestEngine(t, 8, 8)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.ImportBrushes(ctx, v1Archive())
	if !errors.Is(err, ErrCancelled) || !errors.Is(err, context.Canceled) {
		t.Errorf("ImportBrushes() error = %v, want ErrCancelled wrapping context.Canceled", err)
	}
}

func TestImportBrushesTruncated(t *testing.T) {
	e := newTestEngine(t, 8, 8)
	data := v1Archive()
	_, err := e.ImportBrushes(context.Background(), data[:len(data)-10])
	if !errors.Is(err, ErrMalformedArchive) {
		t.Errorf("ImportBrushes() error = %v, want ErrMalformedArchive", err)
	}
}
