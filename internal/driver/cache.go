package driver

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	xxhash "github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/lispbm/lbmfmt/internal/format"
)

// Bump when cachePayload changes shape or Digest changes meaning.
const cacheSchemaVersion uint16 = 1

// Cache remembers files known to be formatted so they can be skipped.
// Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	path    string
	entries map[string]uint64
	dirty   bool
}

type cachePayload struct {
	Schema  uint16
	Entries map[string]uint64
}

// DefaultCachePath returns the cache file under $XDG_CACHE_HOME (or ~/.cache).
func DefaultCachePath(app string) (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, app, "format.mp"), nil
}

// OpenCache loads the cache stored at path. A missing, corrupt or outdated
// file yields an empty cache.
func OpenCache(path string) (*Cache, error) {
	c := &Cache{path: path, entries: map[string]uint64{}}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var payload cachePayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return c, nil
	}
	if payload.Schema != cacheSchemaVersion || payload.Entries == nil {
		return c, nil
	}
	c.entries = payload.Entries
	return c, nil
}

// Digest identifies content formatted under opts.
func Digest(content []byte, opts format.Options) uint64 {
	h := xxhash.New()
	if opts.StackClosingBrackets {
		_, _ = h.Write([]byte{1})
	} else {
		_, _ = h.Write([]byte{0})
	}
	_, _ = h.Write(content)
	return h.Sum64()
}

// Known reports whether path was last seen formatted with this digest.
func (c *Cache) Known(path string, digest uint64) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	got, ok := c.entries[cacheKey(path)]
	return ok && got == digest
}

// Remember records that path is formatted with this digest.
func (c *Cache) Remember(path string, digest uint64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey(path)
	if got, ok := c.entries[key]; ok && got == digest {
		return
	}
	c.entries[key] = digest
	c.dirty = true
}

// Save writes the cache atomically when it changed since it was opened.
func (c *Cache) Save() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if err := msgpack.NewEncoder(f).Encode(cachePayload{Schema: cacheSchemaVersion, Entries: c.entries}); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(f.Name(), c.path); err != nil {
		return err
	}
	c.dirty = false
	return nil
}

func cacheKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
