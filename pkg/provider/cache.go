package provider

import (
	"strconv"
	"strings"
	"time"

	"github.com/maypok86/otter"
	"github.com/zeebo/xxh3"
)

// CacheKey hashes the deterministic parts of a Request into a cache
// key: provider, model, and message transcript. Estimates and
// per-request IDs are excluded since they do not affect the response.
func CacheKey(providerID string, req Request) string {
	var b strings.Builder
	b.WriteString(providerID)
	b.WriteByte('\x00')
	b.WriteString(req.Model)
	b.WriteByte('\x00')
	for _, m := range req.Messages {
		b.WriteString(string(m.Role))
		b.WriteByte('\x01')
		b.WriteString(m.Content)
		b.WriteByte('\x00')
	}
	sum := xxh3.HashString(b.String())
	return strconv.FormatUint(sum, 16)
}

// Cache is a bounded, TTL-expiring response cache keyed by CacheKey.
type Cache struct {
	cache otter.Cache[string, Response]
	ttl   time.Duration
}

// NewCache builds a Cache with capacity entries and the given TTL.
func NewCache(capacity int, ttl time.Duration) (*Cache, error) {
	c, err := otter.MustBuilder[string, Response](capacity).WithTTL(ttl).Build()
	if err != nil {
		return nil, err
	}
	return &Cache{cache: c, ttl: ttl}, nil
}

// Get returns the cached response for key, if present and unexpired.
func (c *Cache) Get(key string) (Response, bool) {
	return c.cache.Get(key)
}

// Set stores resp under key.
func (c *Cache) Set(key string, resp Response) {
	c.cache.Set(key, resp)
}

// Close releases background eviction resources.
func (c *Cache) Close() {
	c.cache.Close()
}
