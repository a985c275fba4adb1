// Package cache provides an in-memory TTL cache for decoded API payloads.
//
// Each API client owns exactly one Cache instance; instances are never
// shared across clients or processes. The cache keeps raw response bytes
// keyed by a deterministic request key, with the following behavior:
//
// - Fixed TTL per cache, set at construction; ttl <= 0 disables caching
// - Lazy expiry: stale entries are removed on read and count as misses
// - Periodic sweep: every 100th write evicts all expired entries
// - Prefix invalidation for targeted flushes
// - Hit/miss accounting with a divide-safe hit rate
// - Prometheus metrics for observability
//
// # Basic Usage
//
//	c := cache.New(5 * time.Minute)
//
//	key := cache.Key("/search/issues", url.Values{"q": []string{"author:alice"}})
//
//	if payload, ok := c.Get(key); ok {
//		// cache hit - use payload
//	} else {
//		// cache miss - fetch upstream, then:
//		c.Set(key, payload)
//	}
//
// # Key Determinism
//
// Key sorts query parameters by name, so two requests that differ only in
// parameter order map to the same entry. Prefix invalidation relies on
// this: InvalidatePrefix("/search/issues") drops every variant of that
// path.
//
// # Metrics
//
// The cache exports Prometheus metrics:
//
//   - workpulse_cache_hits_total - Cache hits
//   - workpulse_cache_misses_total - Cache misses
//   - workpulse_cache_evictions_total - Entries evicted by sweep or lazy expiry
//   - workpulse_cache_entries - Current number of cached entries
package cache
