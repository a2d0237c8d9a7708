// Package project reads and writes the native project container: a zip
// archive holding a TOML manifest and one lossless PNG per pixel layer.
package project

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/paint/internal/blend"
	pimage "github.com/gogpu/paint/internal/image"
	"github.com/gogpu/paint/internal/layer"
)

// Version is the manifest version written by Save.
const Version = 1

const manifestName = "manifest.toml"

var (
	// ErrFormat is returned for archives that are not projects.
	ErrFormat = errors.New("project: not a project file")

	// ErrVersion is returned for manifests newer than Version.
	ErrVersion = errors.New("project: unsupported version")
)

// Manifest is the TOML document stored in every project.
type Manifest struct {
	Version int     `toml:"version"`
	Width   int     `toml:"width"`
	Height  int     `toml:"height"`
	Active  int     `toml:"active"`
	Layers  []Entry `toml:"layers"`
}

// Entry describes one layer. Mode is the blend mode ordinal; ModeName is
// informational.
type Entry struct {
	Name      string  `toml:"name"`
	Kind      string  `toml:"kind"`
	Visible   bool    `toml:"visible"`
	Locked    bool    `toml:"locked"`
	AlphaLock bool    `toml:"alpha_lock"`
	Clipped   bool    `toml:"clipped"`
	Expanded  bool    `toml:"expanded"`
	Private   bool    `toml:"private"`
	Opacity   float64 `toml:"opacity"`
	Mode      int     `toml:"mode"`
	ModeName  string  `toml:"mode_name,omitempty"`
	Depth     int     `toml:"depth"`
	Pixels    string  `toml:"pixels,omitempty"`
}

// Save writes every layer of s, private ones included, to w.
func Save(w io.Writer, s *layer.Stack) error {
	layers := s.Layers()
	m := Manifest{
		Version: Version,
		Width:   s.Width(),
		Height:  s.Height(),
		Active:  s.Active(),
		Layers:  make([]Entry, len(layers)),
	}

	zw := zip.NewWriter(w)
	for i, l := range layers {
		e := Entry{
			Name:      l.Name,
			Kind:      l.Kind.String(),
			Visible:   l.Visible,
			Locked:    l.Locked,
			AlphaLock: l.AlphaLock,
			Clipped:   l.Clipped,
			Expanded:  l.Expanded,
			Private:   l.Private,
			Opacity:   l.Opacity,
			Mode:      int(l.Mode),
			ModeName:  l.Mode.String(),
			Depth:     l.Depth,
		}
		if l.Pixels != nil {
			e.Pixels = fmt.Sprintf("layers/%04d.png", i)
			// PNG data is already deflated.
			f, err := zw.CreateHeader(&zip.FileHeader{Name: e.Pixels, Method: zip.Store})
			if err != nil {
				return fmt.Errorf("project: %w", err)
			}
			if err := l.Pixels.EncodeRawPNG(f); err != nil {
				return fmt.Errorf("project: layer %d: %w", i, err)
			}
		}
		m.Layers[i] = e
	}

	f, err := zw.Create(manifestName)
	if err != nil {
		return fmt.Errorf("project: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(m); err != nil {
		return fmt.Errorf("project: manifest: %w", err)
	}
	return zw.Close()
}

// Load reads a project written by Save.
func Load(r io.ReaderAt, size int64, opts layer.Options) (*layer.Stack, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	m, err := readManifest(zr)
	if err != nil {
		return nil, err
	}

	layers := make([]layer.Layer, len(m.Layers))
	for i, e := range m.Layers {
		l, err := readLayer(zr, m, e)
		if err != nil {
			return nil, fmt.Errorf("project: layer %d %q: %w", i, e.Name, err)
		}
		layers[i] = l
	}
	s, err := layer.Restore(m.Width, m.Height, layers, m.Active, opts)
	if err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	return s, nil
}

// SaveFile writes the project to path, replacing it atomically.
func SaveFile(path string, s *layer.Stack) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".paint-*")
	if err != nil {
		return fmt.Errorf("project: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Save(tmp, s); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("project: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// LoadFile reads the project at path.
func LoadFile(path string, opts layer.Options) (*layer.Stack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	return Load(bytes.NewReader(data), int64(len(data)), opts)
}

func readManifest(zr *zip.Reader) (Manifest, error) {
	var m Manifest
	f, err := zr.Open(manifestName)
	if err != nil {
		return m, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	defer f.Close()

	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return m, fmt.Errorf("project: manifest: %w", err)
	}
	switch {
	case m.Version < 1 || m.Version > Version:
		return m, fmt.Errorf("%w: %d", ErrVersion, m.Version)
	case m.Width <= 0 || m.Height <= 0:
		return m, fmt.Errorf("%w: canvas %dx%d", ErrFormat, m.Width, m.Height)
	}
	return m, nil
}

func readLayer(zr *zip.Reader, m Manifest, e Entry) (layer.Layer, error) {
	l := layer.Layer{
		Name:      e.Name,
		Visible:   e.Visible,
		Locked:    e.Locked,
		AlphaLock: e.AlphaLock,
		Clipped:   e.Clipped,
		Expanded:  e.Expanded,
		Private:   e.Private,
		Opacity:   e.Opacity,
		Mode:      blend.Mode(e.Mode),
		Depth:     e.Depth,
	}
	if e.Mode < 0 || e.Mode >= len(blend.Modes()) {
		return l, fmt.Errorf("%w: blend mode %d", ErrFormat, e.Mode)
	}
	switch e.Kind {
	case layer.KindGroup.String():
		l.Kind = layer.KindGroup
		return l, nil
	case layer.KindNormal.String():
		l.Kind = layer.KindNormal
	default:
		return l, fmt.Errorf("%w: kind %q", ErrFormat, e.Kind)
	}

	f, err := zr.Open(e.Pixels)
	if err != nil {
		return l, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	defer f.Close()
	l.Pixels, err = pimage.DecodeRawPNG(f, m.Width, m.Height, pimage.FormatRGBAPremul)
	return l, err
}
