package tip

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/h2non/filetype"
	"golang.org/x/sync/singleflight"

	"github.com/gogpu/paint/internal/cache"
	pimage "github.com/gogpu/paint/internal/image"
)

// ErrUnknownTip is returned when a name is neither a procedural style nor a
// readable image in the resource directory.
var ErrUnknownTip = errors.New("tip: unknown tip")

// resourceExts are the file extensions tried, in order, for a tip name.
var resourceExts = []string{".png", ".jpg", ".jpeg"}

// DefaultSize is the base edge of generated tips.
const DefaultSize = 128

// Options configures a Cache.
type Options struct {
	// Dir holds tip images named <tip>.png or <tip>.jpg. May be empty.
	Dir string
	// Size is the base edge of generated tips. Zero means DefaultSize.
	Size int
	// Limit bounds the number of evictable tips. Zero means unlimited.
	Limit int
	// Seed makes noise based tips reproducible.
	Seed uint64
	// Logger receives load failures. Nil discards.
	Logger *slog.Logger
}

// Cache maps tip names to immutable tips.
//
// Generated and file backed tips live in an LRU and are rebuilt on demand.
// Tips added with Put (imported brush samples) are pinned and never
// evicted. Concurrent misses for one name share a single load.
//
// Thread safety: All methods are safe for concurrent use.
type Cache struct {
	size int
	seed uint64
	log  *slog.Logger

	mu     sync.RWMutex
	dir    string
	pinned map[string]*Tip

	lru      *cache.Cache[string, *Tip]
	group    singleflight.Group
	fallback *Tip
}

// NewCache creates a tip cache.
func NewCache(opts Options) *Cache {
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Cache{
		size:     opts.Size,
		seed:     opts.Seed,
		log:      log,
		dir:      opts.Dir,
		pinned:   make(map[string]*Tip),
		lru:      cache.New[string, *Tip](opts.Limit),
		fallback: Generate(StyleHard, opts.Size, opts.Seed),
	}
}

// Get returns the tip for name, loading it on a miss.
// It never returns nil: names that cannot be resolved yield the hard
// round tip and the failure is logged once per load.
func (c *Cache) Get(name string) *Tip {
	if t, ok := c.lookup(name); ok {
		return t
	}
	v, _, _ := c.group.Do(name, func() (any, error) {
		if t, ok := c.lru.Peek(name); ok {
			return t, nil
		}
		t, err := c.load(name)
		if err != nil {
			c.log.Warn("tip: falling back to hard round", "tip", name, "err", err)
			t = c.fallback
		}
		c.lru.Set(name, t)
		return t, nil
	})
	return v.(*Tip)
}

// Request returns the tip for name if it is already resident. Otherwise it
// returns a placeholder and a channel that delivers the real tip once it has
// been loaded in the background. The channel is nil on a hit.
func (c *Cache) Request(name string) (*Tip, <-chan *Tip) {
	if t, ok := c.lookup(name); ok {
		return t, nil
	}
	ch := make(chan *Tip, 1)
	go func() {
		ch <- c.Get(name)
		close(ch)
	}()
	return c.fallback, ch
}

// Contains reports whether name is resident without loading it.
func (c *Cache) Contains(name string) bool {
	c.mu.RLock()
	_, ok := c.pinned[name]
	c.mu.RUnlock()
	if ok {
		return true
	}
	_, ok = c.lru.Peek(name)
	return ok
}

// Put pins t under name, replacing any existing tip of that name.
func (c *Cache) Put(name string, t *Tip) {
	if t == nil {
		return
	}
	c.mu.Lock()
	c.pinned[name] = t
	c.mu.Unlock()
	c.lru.Delete(name)
}

// Remove unpins name.
func (c *Cache) Remove(name string) {
	c.mu.Lock()
	delete(c.pinned, name)
	c.mu.Unlock()
}

// Pinned returns the sorted names of all pinned tips.
func (c *Cache) Pinned() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.pinned))
	for n := range c.pinned {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Invalidate drops the evictable entry for name so the next Get reloads it.
func (c *Cache) Invalidate(name string) {
	c.lru.Delete(name)
}

// Dir returns the resource directory.
func (c *Cache) Dir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dir
}

// SetDir changes the resource directory and drops every evictable tip.
func (c *Cache) SetDir(dir string) {
	c.mu.Lock()
	changed := c.dir != dir
	c.dir = dir
	c.mu.Unlock()
	if changed {
		c.lru.Clear()
	}
}

// Stats returns LRU statistics for the evictable tips.
func (c *Cache) Stats() cache.Stats {
	return c.lru.Stats()
}

// Watch invalidates tips whose backing files change in the resource
// directory until ctx is done. It returns immediately; the watcher runs in
// its own goroutine. A cache without a directory has nothing to watch.
func (c *Cache) Watch(ctx context.Context) error {
	dir := c.Dir()
	if dir == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tip: watch: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("tip: watch %s: %w", dir, err)
	}
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename) {
					continue
				}
				base := filepath.Base(ev.Name)
				ext := filepath.Ext(base)
				if !slices.Contains(resourceExts, strings.ToLower(ext)) {
					continue
				}
				name := strings.TrimSuffix(base, ext)
				c.log.Debug("tip: resource changed", "tip", name, "op", ev.Op.String())
				c.Invalidate(name)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				c.log.Warn("tip: watcher error", "err", err)
			}
		}
	}()
	return nil
}

func (c *Cache) lookup(name string) (*Tip, bool) {
	c.mu.RLock()
	t, ok := c.pinned[name]
	c.mu.RUnlock()
	if ok {
		return t, true
	}
	return c.lru.Get(name)
}

func (c *Cache) load(name string) (*Tip, error) {
	if dir := c.Dir(); dir != "" && name != "" && filepath.Base(name) == name {
		for _, ext := range resourceExts {
			data, err := os.ReadFile(filepath.Join(dir, name+ext))
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("tip: read %s: %w", name, err)
			}
			return decode(name, data)
		}
	}
	if style, ok := ParseStyle(name); ok {
		return Generate(style, c.size, c.seed), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTip, name)
}

// decode turns an image file into a tip. Content is sniffed rather than
// trusted from the file extension.
func decode(name string, data []byte) (*Tip, error) {
	if !filetype.IsImage(data) {
		return nil, fmt.Errorf("tip: %s is not an image", name)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("tip: decode %s: %w", name, err)
	}
	return New(name, pimage.CoverageFromImage(img), 0), nil
}
