package flickr

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache stores raw response bodies keyed by request
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// MemoryCache is an in-process Cache with a per entry timeout and a bound
// on the number of entries. When full, the least recently used entry goes.
type MemoryCache struct {
	lru        *expirable.LRU[string, []byte]
	timeout    time.Duration
	maxEntries int
}

// NewMemoryCache creates a MemoryCache. Zero values select a timeout of
// five minutes and at most 200 entries.
func NewMemoryCache(timeout time.Duration, maxEntries int) *MemoryCache {
	if timeout <= 0 {
		timeout = defaultCacheTimeout
	}
	if maxEntries <= 0 {
		maxEntries = defaultCacheMaxEntries
	}
	return &MemoryCache{
		lru:        expirable.NewLRU[string, []byte](maxEntries, nil, timeout),
		timeout:    timeout,
		maxEntries: maxEntries,
	}
}

// Get implements Cache
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, ok := c.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

// Set implements Cache
func (c *MemoryCache) Set(_ context.Context, key string, value []byte) error {
	c.lru.Add(key, append([]byte(nil), value...))
	return nil
}

// Delete implements Cache
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

// Len returns the number of stored entries
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}
