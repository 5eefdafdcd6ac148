package enrich

import (
	"sync"
	"time"
)

// cacheEntry represents a single cache entry with expiration.
type cacheEntry struct {
	hostname string
	expires  time.Time
	access   time.Time
}

// Cache is a thread-safe hostname cache with TTL and least-recently-used
// eviction. Negative results are cached too, so hosts without PTR records
// are not looked up once per probe.
type Cache struct {
	mu      sync.RWMutex
	data    map[string]cacheEntry
	maxSize int
	ttl     time.Duration
}

// NewCache creates a cache with the specified size and TTL.
func NewCache(maxSize int, ttl time.Duration) *Cache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{
		data:    make(map[string]cacheEntry),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get retrieves a cached hostname. The second return is false when the key
// is absent or expired; an empty hostname with true is a cached negative.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return "", false
	}

	now := time.Now()
	if now.After(entry.expires) {
		c.mu.Lock()
		delete(c.data, key)
		c.mu.Unlock()
		return "", false
	}

	c.mu.Lock()
	entry.access = now
	c.data[key] = entry
	c.mu.Unlock()
	return entry.hostname, true
}

// Set stores a hostname, evicting the least recently used entry at
// capacity.
func (c *Cache) Set(key, hostname string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.data) >= c.maxSize {
		c.evictOldest()
	}
	now := time.Now()
	c.data[key] = cacheEntry{
		hostname: hostname,
		expires:  now.Add(c.ttl),
		access:   now,
	}
}

// Size returns the current number of entries.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]cacheEntry)
}

// evictOldest removes the least recently accessed entry.
// Must be called with the lock held.
func (c *Cache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	first := true
	for key, entry := range c.data {
		if first || entry.access.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.access
			first = false
		}
	}
	if oldestKey != "" {
		delete(c.data, oldestKey)
	}
}
