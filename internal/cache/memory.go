package cache

import (
	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache implements Memo on top of go-cache.
// Entries never expire: memoized values are pure functions of their key.
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates a new memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(key string) (string, bool) {
	if val, found := c.cache.Get(key); found {
		s, ok := val.(string)
		return s, ok
	}
	return "", false
}

// Set stores a value in the cache
func (c *MemoryCache) Set(key string, value string) {
	c.cache.Set(key, value, gocache.NoExpiration)
}

// Len returns the number of memoized entries
func (c *MemoryCache) Len() int {
	return c.cache.ItemCount()
}
