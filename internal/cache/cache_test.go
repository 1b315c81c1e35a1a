package cache

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/diffcore/internal/diff"
)

// hunkOfSize builds a cached hunk whose line content totals n bytes.
func hunkOfSize(n int, fileKey string) CachedHunk {
	h := diff.Hunk{
		Header:   "@@ -1 +1 @@",
		OldStart: 1, OldLines: 1, NewStart: 1, NewLines: 1,
		Lines: []diff.Line{
			{Type: diff.LineAdded, Content: strings.Repeat("x", n), NewLineNum: 1},
		},
	}
	return NewCachedHunk(h, fileKey)
}

func TestCache_SetGet(t *testing.T) {
	c := New(1<<20, 100)

	// Miss before set
	_, ok := c.Get("k")
	assert.False(t, ok, "expected miss before set")

	c.Set("k", hunkOfSize(10, "main.go@abc"))

	got, ok := c.Get("k")
	require.True(t, ok, "expected hit after set")
	assert.Equal(t, "main.go@abc", got.FileKey)
	assert.Equal(t, int64(10), got.Size())

	s := c.Stats()
	assert.Equal(t, Stats{Hits: 1, Misses: 1, Entries: 1, TotalBytes: 10}, s)
}

func TestCache_LRUPromotion(t *testing.T) {
	c := New(0, 3)
	c.Set("1", hunkOfSize(1, "f"))
	c.Set("2", hunkOfSize(1, "f"))
	c.Set("3", hunkOfSize(1, "f"))

	_, ok := c.Get("1")
	require.True(t, ok)

	c.Set("4", hunkOfSize(1, "f"))

	_, ok = c.Get("2")
	assert.False(t, ok, "key 2 was least recently used and must be evicted")
	for _, k := range []string{"1", "3", "4"} {
		_, ok := c.Get(k)
		assert.True(t, ok, "key %s should survive", k)
	}
	assert.Equal(t, int64(1), c.Stats().Evictions)
	assert.Equal(t, 3, c.Len())
}

func TestCache_AccessedEntryOutlivesUnaccessed(t *testing.T) {
	c := New(20, 0)
	c.Set("first", hunkOfSize(10, "f"))
	c.Set("second", hunkOfSize(10, "f"))
	_, _ = c.Get("first")

	c.Set("third", hunkOfSize(10, "f"))

	_, ok := c.Get("second")
	assert.False(t, ok)
	_, ok = c.Get("first")
	assert.True(t, ok)
}

func TestCache_ByteBudget(t *testing.T) {
	const maxBytes = 100
	c := New(maxBytes, 1000)
	for i := 0; i < 50; i++ {
		c.Set(fmt.Sprintf("k%d", i), hunkOfSize(7, "f"))
		assert.LessOrEqual(t, c.Stats().TotalBytes, int64(maxBytes))
	}
	s := c.Stats()
	assert.LessOrEqual(t, s.TotalBytes, int64(maxBytes))
	assert.Positive(t, s.Evictions)
	assert.Equal(t, 14, s.Entries) // 14*7 = 98
}

func TestCache_OversizedEntryEvicted(t *testing.T) {
	c := New(10, 0)
	c.Set("small", hunkOfSize(5, "f"))
	c.Set("huge", hunkOfSize(50, "f"))

	s := c.Stats()
	assert.Equal(t, 0, s.Entries)
	assert.Equal(t, int64(0), s.TotalBytes)
	assert.Equal(t, int64(2), s.Evictions)
}

func TestCache_ReplaceUpdatesBytes(t *testing.T) {
	c := New(1000, 10)
	c.Set("k", hunkOfSize(100, "v1"))
	c.Set("k", hunkOfSize(30, "v2"))

	s := c.Stats()
	assert.Equal(t, 1, s.Entries)
	assert.Equal(t, int64(30), s.TotalBytes)
	assert.Zero(t, s.Evictions, "replacing is not an eviction")

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v2", got.FileKey)
}

func TestCache_ReplacePromotes(t *testing.T) {
	c := New(0, 2)
	c.Set("a", hunkOfSize(1, "f"))
	c.Set("b", hunkOfSize(1, "f"))
	c.Set("a", hunkOfSize(1, "f2"))
	c.Set("c", hunkOfSize(1, "f"))

	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
}

func TestCache_Remove(t *testing.T) {
	c := New(1000, 10)
	c.Set("k", hunkOfSize(10, "f"))

	assert.True(t, c.Remove("k"))
	assert.False(t, c.Remove("k"))

	s := c.Stats()
	assert.Equal(t, 0, s.Entries)
	assert.Equal(t, int64(0), s.TotalBytes)
	assert.Zero(t, s.Evictions)
}

func TestCache_ReturnsCopies(t *testing.T) {
	c := New(1000, 10)
	orig := hunkOfSize(3, "f")
	c.Set("k", orig)

	orig.Lines[0].Content = "mutated"
	got, _ := c.Get("k")
	assert.Equal(t, "xxx", got.Lines[0].Content, "cache must not alias the caller's slice")

	got.Lines[0].Content = "mutated"
	again, _ := c.Get("k")
	assert.Equal(t, "xxx", again.Lines[0].Content, "callers must not reach cache internals")
}

func TestCache_CountersMonotonic(t *testing.T) {
	c := New(30, 2)
	var prev Stats
	for i := 0; i < 40; i++ {
		key := fmt.Sprintf("k%d", i%5)
		if i%2 == 0 {
			c.Set(key, hunkOfSize(i%4*5, "f"))
		} else {
			c.Get(key)
		}
		s := c.Stats()
		assert.GreaterOrEqual(t, s.Hits, prev.Hits)
		assert.GreaterOrEqual(t, s.Misses, prev.Misses)
		assert.GreaterOrEqual(t, s.Evictions, prev.Evictions)
		assert.LessOrEqual(t, s.Entries, 2)
		assert.LessOrEqual(t, s.TotalBytes, int64(30))
		prev = s
	}
}

func TestCache_Concurrent(t *testing.T) {
	c := New(500, 20)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*31+i)%40)
				if i%3 == 0 {
					c.Set(key, hunkOfSize(i%50, "f"))
				} else {
					c.Get(key)
				}
			}
		}(g)
	}
	wg.Wait()

	s := c.Stats()
	assert.LessOrEqual(t, s.Entries, 20)
	assert.LessOrEqual(t, s.TotalBytes, int64(500))
	assert.Equal(t, int64(8*200-8*67), s.Hits+s.Misses)
}

func TestHashKey(t *testing.T) {
	h1 := HashKey("test")
	h2 := HashKey("test")
	h3 := HashKey("other")

	assert.Equal(t, h1, h2, "same input should produce same hash")
	assert.NotEqual(t, h1, h3, "different input should produce different hash")
	assert.Len(t, h1, 64) // SHA-256 hex = 64 chars
}

func TestBuildKey(t *testing.T) {
	k1 := BuildKey("main.go", "3b18e51..a1c2f0d", "@@ -1,3 +1,4 @@")
	k2 := BuildKey("main.go", "3b18e51..a1c2f0d", "@@ -1,3 +1,4 @@")
	k3 := BuildKey("main.go", "3b18e51..ffffff0", "@@ -1,3 +1,4 @@")
	k4 := BuildKey("main.go", "3b18e51..a1c2f0d", "@@ -9,3 +9,4 @@")

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3, "new revision must produce a new key")
	assert.NotEqual(t, k1, k4, "different hunk must produce a new key")
}
