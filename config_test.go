package paint

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"

	"github.com/gogpu/paint/internal/blend"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	if c.TileSize <= 0 || c.TipSize <= 0 || c.TipCacheLimit <= 0 {
		t.Errorf("DefaultConfig() = %+v", c)
	}
	p := c.Profile()
	if p.Size() != 20 || p.Opacity() != 1 || p.Tip() != "hard" || p.Mode() != blend.Normal {
		t.Errorf("DefaultConfig().Profile() = %+v", p.Params())
	}
}

func TestParseConfig(t *testing.T) {
	c, err := ParseConfig([]byte(`
tile_size = 32
workers = 3
resource_dir = "~/brushes"
seed = 7
debug = true

[brush]
size = 42
opacity = 0.5
mode = "multiply"
tip = "soft"
`))
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if c.TileSize != 32 || c.Workers != 3 || c.Seed != 7 || !c.Debug {
		t.Errorf("ParseConfig() = %+v", c)
	}
	home, err := homedir.Dir()
	if err == nil && c.ResourceDir != filepath.Join(home, "brushes") {
		t.Errorf("ResourceDir = %q, want expanded home", c.ResourceDir)
	}
	// Keys absent from the file keep their defaults.
	if c.TipSize != DefaultConfig().TipSize || c.Brush.Hardness != 1 {
		t.Errorf("defaults lost: %+v", c)
	}
	p := c.Profile()
	if p.Size() != 42 || p.Opacity() != 0.5 || p.Mode() != blend.Multiply || p.Tip() != "soft" {
		t.Errorf("Profile() = %+v", p.Params())
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown key", "colour = 1\n"},
		{"bad syntax", "tile_size = \n"},
		{"bad type", "tile_size = \"big\"\n"},
		{"bad mode", "[brush]\nmode = \"glow\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseConfig([]byte(tt.data)); err == nil {
				t.Error("ParseConfig() error = nil")
			}
		})
	}
}

func TestLoadConfigMissing(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "none.toml")); err == nil {
		t.Error("LoadConfig(missing) error = nil")
	}
}

func TestWatchConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "paint.toml")
	if err := os.WriteFile(path, []byte("tile_size = 16\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := WatchConfig(ctx, path)
	if err != nil {
		t.Fatalf("WatchConfig() error = %v", err)
	}

	if err := os.WriteFile(path, []byte("tile_size = 48\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	// The write may surface as several events; wait for the final content.
	timeout := time.After(5 * time.Second)
	for got := false; !got; {
		select {
		case c := <-ch:
			got = c.TileSize == 48
		case <-timeout:
			t.Fatal("no config with tile_size 48 delivered after write")
		}
	}

	cancel()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after cancel")
		}
	}
}
