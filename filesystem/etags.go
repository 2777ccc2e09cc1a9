package filesystem

import (
	"io/fs"
	"sync"
	"time"
)

// etagCache remembers content hashes keyed by name. An entry is only valid
// while the file's size and modification time are unchanged, so a rewrite
// from outside the Store that keeps both within one mtime tick is missed.
type etagCache struct {
	mu      sync.Mutex
	entries map[string]etagEntry
}

type etagEntry struct {
	size    int64
	modTime time.Time
	etag    string
}

func newETagCache() *etagCache {
	return &etagCache{entries: make(map[string]etagEntry)}
}

func (c *etagCache) get(name string, fi fs.FileInfo) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[name]
	if !ok || e.size != fi.Size() || !e.modTime.Equal(fi.ModTime()) {
		return "", false
	}
	return e.etag, true
}

func (c *etagCache) set(name string, fi fs.FileInfo, etag string) {
	c.mu.Lock()
	c.entries[name] = etagEntry{size: fi.Size(), modTime: fi.ModTime(), etag: etag}
	c.mu.Unlock()
}

func (c *etagCache) forget(name string) {
	c.mu.Lock()
	delete(c.entries, name)
	c.mu.Unlock()
}

func (c *etagCache) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
