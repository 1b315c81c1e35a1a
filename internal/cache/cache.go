package cache

import (
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/golang/groupcache/lru"

	"github.com/dshills/diffcore/internal/diff"
)

// CachedHunk is a hunk together with its materialized lines.
type CachedHunk struct {
	Hunk    diff.Hunk   `json:"hunk"`
	Lines   []diff.Line `json:"lines"`
	FileKey string      `json:"fileKey"` // file/revision the hunk belongs to
}

// NewCachedHunk materializes h for caching under fileKey.
func NewCachedHunk(h diff.Hunk, fileKey string) CachedHunk {
	return CachedHunk{Hunk: h, Lines: h.Lines, FileKey: fileKey}
}

// Size approximates the memory held by the entry: the bytes of its line content.
func (c CachedHunk) Size() int64 {
	var n int64
	for _, l := range c.Lines {
		n += int64(len(l.Content))
	}
	return n
}

func (c CachedHunk) clone() CachedHunk {
	c.Lines = slices.Clone(c.Lines)
	c.Hunk.Lines = slices.Clone(c.Hunk.Lines)
	c.Hunk.Diagnostics = slices.Clone(c.Hunk.Diagnostics)
	return c
}

// Stats are cumulative counters for the lifetime of a Cache.
type Stats struct {
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	Entries    int   `json:"entries"`
	TotalBytes int64 `json:"totalBytes"`
	Evictions  int64 `json:"evictions"`
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for eviction debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Cache is an in-memory LRU cache of hunks bounded by total line bytes and
// by entry count. It is safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	lru        *lru.Cache
	maxBytes   int64
	maxEntries int
	totalBytes int64
	hits       int64
	misses     int64
	evictions  int64
	removing   bool // suppresses eviction accounting during Remove
	logger     *slog.Logger
}

type entry struct {
	value CachedHunk
	size  int64
}

// New creates a Cache. A maxBytes or maxEntries of zero or less disables
// that bound.
func New(maxBytes int64, maxEntries int, opts ...Option) *Cache {
	c := &Cache{
		maxBytes:   maxBytes,
		maxEntries: maxEntries,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lru = lru.New(max(maxEntries, 0))
	c.lru.OnEvicted = c.onEvicted
	return c
}

// onEvicted runs with c.mu held, from lru.Add, RemoveOldest or Remove.
func (c *Cache) onEvicted(key lru.Key, value interface{}) {
	e := value.(entry)
	c.totalBytes -= e.size
	if c.removing {
		return
	}
	c.evictions++
	c.logger.Debug("cache evict", "key", key, "bytes", e.size)
}

// Get returns the entry for key and marks it most recently used.
func (c *Cache) Get(key string) (CachedHunk, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lru.Get(key)
	if !ok {
		c.misses++
		return CachedHunk{}, false
	}
	c.hits++
	return v.(entry).value.clone(), true
}

// Set inserts or replaces the entry for key, then evicts least recently used
// entries until both bounds hold. An entry larger than maxBytes on its own is
// evicted immediately.
func (c *Cache) Set(key string, h CachedHunk) {
	e := entry{value: h.clone(), size: h.Size()}

	c.mu.Lock()
	defer c.mu.Unlock()
	// lru.Add replaces in place without calling OnEvicted.
	if old, ok := c.lru.Get(key); ok {
		c.totalBytes -= old.(entry).size
	}
	c.totalBytes += e.size
	c.lru.Add(key, e) // evicts the oldest entry itself when over maxEntries
	for c.maxBytes > 0 && c.totalBytes > c.maxBytes && c.lru.Len() > 0 {
		c.lru.RemoveOldest()
	}
}

// Remove drops key without counting an eviction. It reports whether key was present.
func (c *Cache) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.lru.Get(key); !ok {
		return false
	}
	c.removing = true
	c.lru.Remove(key)
	c.removing = false
	return true
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:       c.hits,
		Misses:     c.misses,
		Entries:    c.lru.Len(),
		TotalBytes: c.totalBytes,
		Evictions:  c.evictions,
	}
}

// HashKey creates a SHA-256 hash of the given key material.
func HashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", h)
}

// BuildKey creates a cache key for one hunk. revision should change whenever
// the file content does (a blob range or commit sha), so stale entries are
// superseded instead of needing invalidation.
func BuildKey(file, revision, header string) string {
	return HashKey(fmt.Sprintf("%s\x00%s\x00%s", file, revision, header))
}
