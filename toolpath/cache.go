// Package toolpath finds the SqlPackage executable and remembers where it was found.
package toolpath

import (
	"os"
	"sync"
	"time"

	"github.com/relloyd/dbcop/constants"
)

// Entry is a cached tool location.
type Entry struct {
	Path     string
	CachedAt time.Time
}

// storedEntry is the form an Entry takes in a Store.
type storedEntry struct {
	Path     string `mapstructure:"path"`
	CachedAt string `mapstructure:"cachedAt"`
}

// Store persists cache entries between runs.
type Store interface {
	Get(key string, out interface{}) error
	Set(key string, val interface{}) error
}

// Cache holds tool paths for a limited time.
// Entries whose file has gone are treated as missing.
type Cache struct {
	TTL     time.Duration
	Now     func() time.Time
	Store   Store // optional.
	mu      sync.Mutex
	entries map[string]Entry
}

// NewCache returns a Cache with the default expiry.
func NewCache(store Store) *Cache {
	return &Cache{
		TTL:     constants.ToolPathCacheExpiryHours * time.Hour,
		Now:     time.Now,
		Store:   store,
		entries: make(map[string]Entry),
	}
}

// Get returns the cached path for key while it is fresh and still exists.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok && c.Store != nil { // if we might have it from an earlier run...
		e, ok = c.load(key)
	}
	if !ok {
		return "", false
	}
	if c.now().Sub(e.CachedAt) >= c.TTL || !isFile(e.Path) { // if the entry expired or the tool was removed...
		delete(c.entries, key)
		return "", false
	}
	return e.Path, true
}

// Put stores path for key. Persisting is best effort and errors are returned for logging only.
func (c *Cache) Put(key string, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := Entry{Path: path, CachedAt: c.now()}
	c.entries[key] = e
	if c.Store != nil {
		return c.Store.Set(key, map[string]interface{}{
			"path":     e.Path,
			"cachedAt": e.CachedAt.Format(time.RFC3339Nano),
		})
	}
	return nil
}

// Invalidate forgets key, including any persisted copy.
func (c *Cache) Invalidate(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	if c.Store != nil {
		return c.Store.Set(key, map[string]interface{}{"path": "", "cachedAt": ""})
	}
	return nil
}

func (c *Cache) load(key string) (Entry, bool) {
	s := storedEntry{}
	if err := c.Store.Get(key, &s); err != nil || s.Path == "" {
		return Entry{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s.CachedAt)
	if err != nil {
		return Entry{}, false
	}
	e := Entry{Path: s.Path, CachedAt: t}
	c.entries[key] = e
	return e, true
}

func (c *Cache) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
