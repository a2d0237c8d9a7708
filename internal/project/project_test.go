package project

import (
	"archive/zip"
	"bytes"
	"errors"
	"image/color"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/gogpu/paint/internal/blend"
	"github.com/gogpu/paint/internal/layer"
)

func sampleStack(t *testing.T) *layer.Stack {
	t.Helper()
	s := layer.NewStack(33, 17, layer.Options{Debug: true})
	_, _ = s.Add(layer.KindNormal, 0, "background")
	_, _ = s.Add(layer.KindGroup, 1, "group")
	_, _ = s.Add(layer.KindNormal, 2, "ink")
	_, _ = s.Add(layer.KindNormal, 3, "tone")
	_ = s.SetOpacity(1, 0.37)
	_ = s.SetMode(1, blend.ColorBurn)
	_ = s.SetClipped(3, true)
	_ = s.SetAlphaLock(2, true)
	_ = s.SetPrivate(3, true)
	_ = s.SetExpanded(1, false)
	_ = s.SetLocked(0, true)
	_ = s.SetVisible(2, false)
	_ = s.SetActive(2)

	l, _ := s.Layer(2)
	for y := range 17 {
		for x := range 33 {
			a := uint8((x*31 + y*7) % 256)
			l.Pixels.SetRGBA(x, y, a/3, a/2, a, a)
		}
	}
	bg, _ := s.Layer(0)
	bg.Pixels.Clear(color.RGBA{R: 10, G: 20, B: 30, A: 255})
	return s
}

func TestRoundTrip(t *testing.T) {
	s := sampleStack(t)
	var buf bytes.Buffer
	if err := Save(&buf, s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Load(bytes.NewReader(buf.Bytes()), int64(buf.Len()), layer.Options{Debug: true})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got.Width() != 33 || got.Height() != 17 || got.Active() != 2 {
		t.Errorf("Load() = %dx%d active %d", got.Width(), got.Height(), got.Active())
	}
	want := s.Layers()
	have := got.Layers()
	if len(have) != len(want) {
		t.Fatalf("Load() layers = %d, want %d", len(have), len(want))
	}
	for i := range want {
		wp, hp := want[i].Pixels, have[i].Pixels
		want[i].Pixels, have[i].Pixels = nil, nil
		if !reflect.DeepEqual(have[i], want[i]) {
			t.Errorf("layer %d = %+v, want %+v", i, have[i], want[i])
		}
		if (wp == nil) != (hp == nil) || wp != nil && !wp.Equal(hp) {
			t.Errorf("layer %d pixels differ", i)
		}
	}
}

func TestSaveFileLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "art.paint")
	s := sampleStack(t)
	if err := SaveFile(path, s); err != nil {
		t.Fatal(err)
	}
	got, err := LoadFile(path, layer.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got.Len() != s.Len() {
		t.Errorf("LoadFile() Len() = %d, want %d", got.Len(), s.Len())
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing"), layer.Options{}); err == nil {
		t.Error("LoadFile(missing) error = nil")
	}
}

func archive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		f, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = f.Write([]byte(body))
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"not zip", []byte("hello"), ErrFormat},
		{"no manifest", archive(t, map[string]string{"x": "y"}), ErrFormat},
		{"future version", archive(t, map[string]string{manifestName: "version = 9\nwidth = 1\nheight = 1\n"}), ErrVersion},
		{"bad kind", archive(t, map[string]string{manifestName: "version = 1\nwidth = 1\nheight = 1\n[[layers]]\nkind = \"vector\"\n"}), ErrFormat},
		{"bad mode", archive(t, map[string]string{manifestName: "version = 1\nwidth = 1\nheight = 1\n[[layers]]\nkind = \"group\"\nmode = 99\n"}), ErrFormat},
		{"missing pixels", archive(t, map[string]string{manifestName: "version = 1\nwidth = 1\nheight = 1\n[[layers]]\nkind = \"normal\"\npixels = \"nope.png\"\n"}), ErrFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(bytes.NewReader(tt.data), int64(len(tt.data)), layer.Options{})
			if !errors.Is(err, tt.want) {
				t.Errorf("Load() error = %v, want %v", err, tt.want)
			}
		})
	}

	unknown := archive(t, map[string]string{manifestName: "version = 1\nwidth = 1\nheight = 1\ncolor = \"red\"\n"})
	if _, err := Load(bytes.NewReader(unknown), int64(len(unknown)), layer.Options{}); err == nil {
		t.Error("Load() accepted an unknown manifest key")
	}
}
