package cache

import (
	"sync"
	"time"

	"github.com/Sternrassler/catalog-client/pkg/clock"
)

// DefaultTTL is how long a fetched page is served from memory. It is kept
// short so that admin changes to the display order show up within one
// refresh cycle.
const DefaultTTL = 5000 * time.Millisecond

// TTLCache is an in-memory key to Entry store with a fixed time-to-live.
//
// A TTLCache belongs to a single browser instance and is never shared between
// independent views. Staleness is judged on read; stale entries stay in the
// map until Prune is called or they are overwritten.
type TTLCache struct {
	mu      sync.RWMutex
	entries map[QueryKey]*Entry
	ttl     time.Duration
	clock   clock.Clock
}

// NewTTLCache creates a cache with the given TTL. A non-positive ttl falls
// back to DefaultTTL and a nil clock to the system clock.
func NewTTLCache(ttl time.Duration, clk clock.Clock) *TTLCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &TTLCache{
		entries: make(map[QueryKey]*Entry),
		ttl:     ttl,
		clock:   clk,
	}
}

// TTL returns the configured time-to-live.
func (c *TTLCache) TTL() time.Duration {
	return c.ttl
}

// Get returns the entry for key. It reports false if no entry exists or the
// entry is at least TTL old.
func (c *TTLCache) Get(key QueryKey) (*Entry, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		CacheMisses.WithLabelValues(layerMemory).Inc()
		return nil, false
	}
	if entry.IsStale(c.clock.Now(), c.ttl) {
		CacheStale.Inc()
		CacheMisses.WithLabelValues(layerMemory).Inc()
		return nil, false
	}

	CacheHits.WithLabelValues(layerMemory).Inc()
	return entry, true
}

// Put stores entry under key, replacing any previous entry. Callers must not
// modify entry afterwards.
func (c *TTLCache) Put(key QueryKey, entry *Entry) {
	if entry == nil {
		return
	}
	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
}

// Len returns the number of stored entries, stale ones included.
func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Prune removes stale entries and returns how many were removed.
func (c *TTLCache) Prune() int {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if entry.IsStale(now, c.ttl) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}
