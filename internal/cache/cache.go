package cache

import (
	"context"
	"sync"
	"time"

	"github.com/kjstillabower/weather-dashboard-service/internal/models"
)

// Cache defines the interface for weather report caching implementations.
// Cached reports are canonical (Celsius); display conversion happens after
// retrieval so one entry serves every requested unit.
// Get returns cached data if present and not expired, Set stores data with TTL.
type Cache interface {
	Get(ctx context.Context, key string) (models.WeatherReport, bool, error)
	Set(ctx context.Context, key string, value models.WeatherReport, ttl time.Duration) error
}

// InMemoryCache implements Cache using a mutex-guarded map with TTL-based
// expiration. Expired entries are removed on access. Safe for concurrent use.
type InMemoryCache struct {
	mu   sync.RWMutex
	data map[string]cacheEntry
}

// cacheEntry stores a cached report with its expiration timestamp.
type cacheEntry struct {
	value     models.WeatherReport
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache instance.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		data: make(map[string]cacheEntry),
	}
}

// Get retrieves a cached report for the key if present and not expired.
// Returns (data, true, nil) on cache hit, (zero, false, nil) on miss or
// expiration. Expired entries are removed from the cache.
func (c *InMemoryCache) Get(ctx context.Context, key string) (models.WeatherReport, bool, error) {
	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return models.WeatherReport{}, false, nil
	}

	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; another goroutine may have replaced
		// the entry since the read.
		if cur, ok := c.data[key]; ok && cur.expiresAt.Equal(entry.expiresAt) {
			delete(c.data, key)
		}
		c.mu.Unlock()
		return models.WeatherReport{}, false, nil
	}

	return entry.value, true, nil
}

// Set stores a report in cache with the specified TTL duration.
// Entry expires after TTL elapses and will be removed on next Get access.
func (c *InMemoryCache) Set(ctx context.Context, key string, value models.WeatherReport, ttl time.Duration) error {
	c.mu.Lock()
	c.data[key] = cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	c.mu.Unlock()
	return nil
}

// Len reports the number of entries currently held, including any expired
// entries not yet removed by access.
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
