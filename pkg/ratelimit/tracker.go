package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	rateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "workpulse_rate_limit_remaining",
		Help: "Remaining requests in the provider's current rate limit window",
	})

	// Waits counts rate-limit recovery waits actually taken. Incremented
	// by the request executor when it sleeps before a retry.
	Waits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "workpulse_rate_limit_waits_total",
		Help: "Total number of waits taken for rate limit recovery",
	})
)

// Tracker monitors provider rate-limit headers. The state behind it is
// shared by all concurrent requests of one client and is only reachable
// through these methods, so batch workers can never race on it.
type Tracker struct {
	mu     sync.Mutex
	state  State
	logger zerolog.Logger
}

// NewTracker creates a rate limit tracker.
func NewTracker(logger zerolog.Logger) *Tracker {
	return &Tracker{logger: logger}
}

// UpdateFromHeaders records the primary window headers when present.
// Responses without rate-limit headers leave the state untouched.
func (t *Tracker) UpdateFromHeaders(headers http.Header) {
	remainStr := headers.Get("X-RateLimit-Remaining")
	if remainStr == "" {
		return
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		t.logger.Warn().Str("value", remainStr).Msg("Unparseable X-RateLimit-Remaining header")
		return
	}

	var resetAt time.Time
	if resetStr := headers.Get("X-RateLimit-Reset"); resetStr != "" {
		if epoch, err := strconv.ParseInt(resetStr, 10, 64); err == nil {
			resetAt = time.Unix(epoch, 0)
		} else {
			t.logger.Warn().Str("value", resetStr).Msg("Unparseable X-RateLimit-Reset header")
		}
	}

	t.mu.Lock()
	t.state = State{
		Remaining: remain,
		ResetAt:   resetAt,
		UpdatedAt: time.Now(),
	}
	t.mu.Unlock()

	rateLimitRemaining.Set(float64(remain))
}

// State returns a copy of the current window state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// WaitFor computes the recovery wait for a 403 response. The second return
// is false when the response is not a window rejection (remaining nonzero
// or headers absent); callers treat those as terminal.
//
// The wait is taken from the response's own headers, clamped to
// [0, MaxWait].
func (t *Tracker) WaitFor(headers http.Header, now time.Time) (time.Duration, bool) {
	if headers.Get("X-RateLimit-Remaining") != "0" {
		return 0, false
	}

	var wait time.Duration
	if resetStr := headers.Get("X-RateLimit-Reset"); resetStr != "" {
		if epoch, err := strconv.ParseInt(resetStr, 10, 64); err == nil {
			wait = time.Unix(epoch, 0).Sub(now)
		}
	}

	return clampWait(wait), true
}

// RetryAfter parses the Retry-After header as delay seconds.
// Missing or malformed values yield fallback; negative values clamp to 0.
func RetryAfter(headers http.Header, fallback time.Duration) time.Duration {
	value := headers.Get("Retry-After")
	if value == "" {
		return fallback
	}

	seconds, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	if seconds < 0 {
		return 0
	}

	return time.Duration(seconds) * time.Second
}
