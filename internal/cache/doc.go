// Package cache provides an in-memory LRU cache for parsed diff hunks.
//
// Entries are keyed by an opaque caller-supplied string. [BuildKey] derives
// one from a file path, a content revision and the hunk header, so a changed
// file produces new keys and its old entries age out instead of needing
// explicit invalidation.
//
// The cache is bounded twice: by the summed byte size of cached line content
// and by entry count. After every [Cache.Set] the least recently used entries
// are evicted until both bounds hold. A single mutex serializes every
// operation, including the recency update on [Cache.Get], so the LRU order
// and the hit, miss and eviction counters stay consistent under concurrent use.
// Nothing is persisted; a miss simply means the caller re-parses.
package cache
