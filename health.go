package courier

import (
	"sync"
	"time"
)

// healthCache bounds probe frequency by caching the last health
// snapshot per provider name for a short TTL. Entries are replaced
// wholesale; a snapshot is never mutated after insertion.
type healthCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[ProviderName]healthCacheEntry
}

type healthCacheEntry struct {
	health  *ProviderHealth
	expires time.Time
}

func newHealthCache(ttl time.Duration) *healthCache {
	return &healthCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[ProviderName]healthCacheEntry),
	}
}

func (c *healthCache) get(name ProviderName) (*ProviderHealth, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	if !ok || c.now().After(e.expires) {
		return nil, false
	}
	return e.health, true
}

func (c *healthCache) put(name ProviderName, h *ProviderHealth) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = healthCacheEntry{health: h, expires: c.now().Add(c.ttl)}
}

// reset drops all cached snapshots. Intended for test isolation.
func (c *healthCache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[ProviderName]healthCacheEntry)
}
