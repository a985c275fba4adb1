// Package metrics provides the centralized Prometheus registry handle for
// workpulse. All metrics are defined in their respective packages (request,
// cache, ratelimit, batch) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by workpulse.
// All metrics are automatically registered via promauto in their respective
// packages. The stdio server does not expose an HTTP endpoint; embedding
// programs can serve this registry themselves.
var Registry = prometheus.DefaultRegisterer

// Gatherer reads back everything registered on Registry, for embedding
// programs that scrape or dump the collected metrics in-process.
var Gatherer = prometheus.DefaultGatherer

// Handler returns an HTTP handler serving the registry in Prometheus
// exposition format. The stdio server never mounts it; embedding programs
// can.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Request Metrics (pkg/request):
//   - workpulse_requests_total{provider, status} (Counter): Requests by provider and HTTP status
//   - workpulse_request_duration_seconds{provider} (Histogram): Request duration by provider
//   - workpulse_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, decode)
//   - workpulse_retries_total{error_class} (Counter): Retry attempts by error class
//   - workpulse_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - workpulse_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Cache Metrics (pkg/cache):
//   - workpulse_cache_hits_total (Counter): Cache hits
//   - workpulse_cache_misses_total (Counter): Cache misses
//   - workpulse_cache_evictions_total (Counter): Entries evicted by sweep or lazy expiry
//   - workpulse_cache_entries (Gauge): Current number of cached entries
//
// Rate Limit Metrics (pkg/ratelimit):
//   - workpulse_rate_limit_remaining (Gauge): Remaining requests in the provider window
//   - workpulse_rate_limit_waits_total (Counter): Waits taken for rate-limit recovery
//
// Batch Metrics (pkg/batch):
//   - workpulse_batch_items_total{outcome} (Counter): Batch items by outcome (ok, error, panic, timeout)
//   - workpulse_batch_duration_seconds (Histogram): Wall time per batch run
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(workpulse_cache_hits_total[5m])) /
//   (sum(rate(workpulse_cache_hits_total[5m])) + sum(rate(workpulse_cache_misses_total[5m])))
//
//   # Request Error Rate
//   rate(workpulse_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(workpulse_request_duration_seconds_bucket[5m]))
//
//   # Batch Failure Share
//   rate(workpulse_batch_items_total{outcome!="ok"}[5m])
