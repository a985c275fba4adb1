package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheHits tracks cache hits across all client caches.
	cacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "workpulse_cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	// cacheMisses tracks cache misses, including lookups on disabled caches.
	cacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "workpulse_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// cacheEvictions tracks entries removed by lazy expiry or sweeps.
	cacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "workpulse_cache_evictions_total",
			Help: "Total number of expired entries evicted",
		},
	)

	// cacheEntries tracks the current number of cached entries.
	cacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "workpulse_cache_entries",
			Help: "Current number of cached entries",
		},
	)
)
