package cache

import (
	"math"
	"strings"
	"sync"
	"time"
)

// sweepEvery is the number of writes between full expiry sweeps.
const sweepEvery = 100

// Cache is an in-memory TTL cache for decoded API payloads.
// All methods are safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time

	hits   uint64
	misses uint64
	writes uint64
}

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Hits    uint64
	Misses  uint64
	Entries int

	// HitRate is the hit percentage rounded to one decimal place.
	// Zero when no lookups have happened yet.
	HitRate float64
}

// New creates a cache whose entries live for ttl.
// A ttl <= 0 disables caching entirely: Get always misses and Set stores
// nothing.
func New(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the payload stored under key.
// Expired entries are removed lazily and count as misses. Every lookup
// increments exactly one of the hit/miss counters.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ttl <= 0 {
		c.miss()
		return nil, false
	}

	e, ok := c.entries[key]
	if !ok {
		c.miss()
		return nil, false
	}

	if e.expired(c.now()) {
		delete(c.entries, key)
		cacheEvictions.Inc()
		cacheEntries.Set(float64(len(c.entries)))
		c.miss()
		return nil, false
	}

	c.hits++
	cacheHits.Inc()
	return e.data, true
}

// Set stores payload under key with expiry now+ttl.
// Every 100th write triggers a sweep that evicts all expired entries.
func (c *Cache) Set(key string, payload []byte) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{data: payload, expiresAt: c.now().Add(c.ttl)}
	c.writes++

	if c.writes%sweepEvery == 0 {
		c.sweepLocked()
	}

	cacheEntries.Set(float64(len(c.entries)))
}

// InvalidatePrefix removes every entry whose key starts with prefix and
// returns the number removed.
func (c *Cache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}

	cacheEntries.Set(float64(len(c.entries)))
	return removed
}

// Clear drops all entries. Hit/miss counters keep their values.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
	cacheEntries.Set(0)
}

// Len returns the current number of entries, including any not yet swept.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of hit/miss counters and entry count.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Hits:    c.hits,
		Misses:  c.misses,
		Entries: len(c.entries),
	}

	if total := c.hits + c.misses; total > 0 {
		s.HitRate = math.Round(float64(c.hits)/float64(total)*1000) / 10
	}

	return s
}

// miss records a miss. Callers must hold c.mu.
func (c *Cache) miss() {
	c.misses++
	cacheMisses.Inc()
}

// sweepLocked evicts all expired entries. Callers must hold c.mu.
func (c *Cache) sweepLocked() {
	now := c.now()
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
			cacheEvictions.Inc()
		}
	}
}
