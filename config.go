package paint

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/paint/internal/blend"
	"github.com/gogpu/paint/internal/brush"
	"github.com/gogpu/paint/internal/parallel"
	"github.com/gogpu/paint/internal/tip"
)

// Config is the engine configuration. It is passed by value at
// construction and replaced as a whole by Engine.ApplyConfig.
type Config struct {
	// TileSize is the compositor tile edge in pixels.
	TileSize int `toml:"tile_size"`
	// Workers is the compositor pool size. Zero selects GOMAXPROCS.
	Workers int `toml:"workers"`
	// ResourceDir holds tip images; a leading ~ is expanded.
	ResourceDir string `toml:"resource_dir"`
	// TipSize is the edge of procedurally generated tips.
	TipSize int `toml:"tip_size"`
	// TipCacheLimit bounds the number of cached tips.
	TipCacheLimit int `toml:"tip_cache_limit"`
	// Seed makes jitter, grain and generated tips reproducible.
	Seed uint64 `toml:"seed"`
	// Debug panics on internal invariant violations instead of logging.
	Debug bool `toml:"debug"`
	// Brush is the profile selected when the engine starts.
	Brush BrushConfig `toml:"brush"`
}

// BrushConfig is the TOML form of the default brush.
type BrushConfig struct {
	Size      float64 `toml:"size"`
	Opacity   float64 `toml:"opacity"`
	Hardness  float64 `toml:"hardness"`
	Spacing   float64 `toml:"spacing"`
	Smoothing float64 `toml:"smoothing"`
	Tip       string  `toml:"tip"`
	Mode      string  `toml:"mode"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	d := brush.Default()
	return Config{
		TileSize:      parallel.DefaultTileSize,
		TipSize:       tip.DefaultSize,
		TipCacheLimit: 64,
		Brush: BrushConfig{
			Size:     d.Size(),
			Opacity:  d.Opacity(),
			Hardness: d.Hardness(),
			Spacing:  d.Spacing(),
			Tip:      d.Tip(),
			Mode:     d.Mode().String(),
		},
	}
}

// Profile returns the brush described by the configuration.
func (c Config) Profile() brush.Profile {
	mode, _ := blend.ParseMode(c.Brush.Mode)
	return brush.New(brush.Params{
		Name:      "default",
		Size:      c.Brush.Size,
		Opacity:   c.Brush.Opacity,
		Hardness:  c.Brush.Hardness,
		Spacing:   c.Brush.Spacing,
		Smoothing: c.Brush.Smoothing,
		Tip:       c.Brush.Tip,
		Mode:      mode,
	})
}

// normalize fills zero values from DefaultConfig and expands paths.
func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.TileSize <= 0 {
		c.TileSize = def.TileSize
	}
	if c.TipSize <= 0 {
		c.TipSize = def.TipSize
	}
	if c.TipCacheLimit <= 0 {
		c.TipCacheLimit = def.TipCacheLimit
	}
	if c.Brush.Size <= 0 {
		c.Brush.Size = def.Brush.Size
	}
	if c.Brush.Tip == "" {
		c.Brush.Tip = def.Brush.Tip
	}
	if dir, err := homedir.Expand(c.ResourceDir); err == nil {
		c.ResourceDir = dir
	}
	return c
}

// ParseConfig decodes a TOML document over DefaultConfig. Unknown keys are
// rejected.
func ParseConfig(data []byte) (Config, error) {
	c := DefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("paint: config: %w", err)
	}
	if _, ok := blend.ParseMode(c.Brush.Mode); c.Brush.Mode != "" && !ok {
		return Config{}, fmt.Errorf("paint: config: unknown blend mode %q: %w", c.Brush.Mode, ErrOutOfRange)
	}
	return c.normalize(), nil
}

// LoadConfig reads the TOML file at path. A leading ~ is expanded.
func LoadConfig(path string) (Config, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return Config{}, fmt.Errorf("paint: config: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("paint: config: %w", err)
	}
	return ParseConfig(data)
}

// WatchConfig delivers a freshly parsed Config each time the file at path
// is written, until ctx is done. Files that fail to parse are logged and
// skipped. The channel is closed when watching stops.
//
// The directory is watched rather than the file so that editors which
// replace files on save are followed.
func WatchConfig(ctx context.Context, path string) (<-chan Config, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("paint: config: %w", err)
	}
	path = filepath.Clean(path)
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("paint: watch config: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("paint: watch config %s: %w", path, err)
	}

	log := Logger()
	out := make(chan Config, 1)
	go func() {
		defer close(out)
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Create|fsnotify.Write) {
					continue
				}
				c, err := LoadConfig(path)
				if err != nil {
					log.Warn("paint: config reload failed", "path", path, "err", err)
					continue
				}
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("paint: config watcher error", "err", err)
			}
		}
	}()
	return out, nil
}
