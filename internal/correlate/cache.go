package correlate

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Cache memoizes correlation results. Keys are derived from the exact
// normalized identifier set of a query, so a cache entry is valid for as
// long as the backing graph is immutable, which is the process lifetime.
// No invalidation policy is needed.
type Cache interface {
	Get(ctx context.Context, key string) ([]string, bool)
	Set(ctx context.Context, key string, incidents []string)
}

// cacheKey builds a deterministic key from a normalized identifier set.
func cacheKey(ids map[string]struct{}) string {
	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

// MapCache is a process-local Cache. Safe for concurrent use.
type MapCache struct {
	mu sync.RWMutex
	m  map[string][]string
}

// NewMapCache returns an empty MapCache.
func NewMapCache() *MapCache {
	return &MapCache{m: make(map[string][]string)}
}

// Get implements Cache.
func (c *MapCache) Get(_ context.Context, key string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[key]
	return v, ok
}

// Set implements Cache.
func (c *MapCache) Set(_ context.Context, key string, incidents []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = incidents
}
