// Package request provides the HTTP request executor shared by the domain
// clients, combining caching, retry with fixed exponential backoff, and
// provider rate-limit handling.
package request

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/workpulse/workpulse/pkg/cache"
	"github.com/workpulse/workpulse/pkg/logging"
	"github.com/workpulse/workpulse/pkg/ratelimit"
)

// Prometheus metrics for request execution.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workpulse_requests_total",
		Help: "Total requests by provider and status",
	}, []string{"provider", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "workpulse_request_duration_seconds",
		Help:    "Request duration in seconds by provider",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"provider"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workpulse_errors_total",
		Help: "Total request errors by class",
	}, []string{"class"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workpulse_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "workpulse_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workpulse_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// Policy selects how a provider signals rate limiting.
type Policy int

const (
	// PolicyPrimaryWindow handles GitHub-style 403 rejections carrying
	// X-RateLimit-Remaining / X-RateLimit-Reset headers.
	PolicyPrimaryWindow Policy = iota

	// PolicyRetryAfter handles Atlassian-style 429 responses carrying a
	// Retry-After header.
	PolicyRetryAfter
)

// Config holds executor configuration.
type Config struct {
	// Provider labels metrics and log lines (e.g. "github", "jira").
	Provider string

	// BaseURL prefixes all request paths.
	BaseURL string

	// Authorize injects credentials into each outgoing request.
	Authorize func(*http.Request)

	// HTTPClient is the underlying client (default: 30s timeout).
	HTTPClient *http.Client

	// Cache holds payloads for cacheable GETs. Nil disables caching.
	Cache *cache.Cache

	// Policy selects the provider's rate-limit style.
	Policy Policy

	// MaxAttempts is the total number of tries per request (default 3).
	MaxAttempts int

	// RetryAfterFallback is the wait used when a Retry-After header is
	// missing or malformed (default 1s).
	RetryAfterFallback time.Duration

	// Logger for request flow. Defaults to a component logger named
	// after the provider.
	Logger *zerolog.Logger
}

// Options describes a single request.
type Options struct {
	// Method defaults to GET.
	Method string

	// Path is appended to the executor's base URL.
	Path string

	// Query parameters, also part of the cache key.
	Query url.Values

	// Body is JSON-marshaled when non-nil.
	Body any

	// Header entries are set after the defaults and the Authorize hook,
	// so per-call headers override client-wide ones.
	Header http.Header

	// UseCache consults and populates the cache. Only effective for GET.
	UseCache bool

	// Raw returns the payload verbatim without JSON validation and is
	// never cached.
	Raw bool
}

// Executor performs HTTP requests against one provider.
// It is safe for concurrent use.
type Executor struct {
	provider    string
	baseURL     string
	authorize   func(*http.Request)
	http        *http.Client
	cache       *cache.Cache
	policy      Policy
	maxAttempts int
	raFallback  time.Duration
	tracker     *ratelimit.Tracker
	logger      zerolog.Logger

	// backoff is the retry pause schedule, replaceable in tests.
	backoff func(attempt int) time.Duration
}

// New creates an executor.
func New(cfg Config) (*Executor, error) {
	if cfg.Provider == "" {
		return nil, fmt.Errorf("provider name is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryAfterFallback <= 0 {
		cfg.RetryAfterFallback = time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	var logger zerolog.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	} else {
		logger = logging.NewLogger(cfg.Provider)
	}

	return &Executor{
		provider:    cfg.Provider,
		baseURL:     cfg.BaseURL,
		authorize:   cfg.Authorize,
		http:        cfg.HTTPClient,
		cache:       cfg.Cache,
		policy:      cfg.Policy,
		maxAttempts: cfg.MaxAttempts,
		raFallback:  cfg.RetryAfterFallback,
		tracker:     ratelimit.NewTracker(logger),
		logger:      logger,
		backoff:     backoffFor,
	}, nil
}

// Do executes the request and returns the response payload.
//
// GETs with UseCache consult the cache before dispatch and store the
// payload after a successful response. Retryable failures (5xx, network
// errors, rate-limit rejections per policy) are attempted up to
// MaxAttempts times; everything else fails terminally on first sight.
func (e *Executor) Do(ctx context.Context, opts Options) ([]byte, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	cacheable := opts.UseCache && method == http.MethodGet && !opts.Raw && e.cache != nil
	key := cache.Key(opts.Path, opts.Query)
	if cacheable {
		if payload, ok := e.cache.Get(key); ok {
			e.logger.Debug().Str("endpoint", opts.Path).Bool("cache_hit", true).Msg("Serving from cache")
			return payload, nil
		}
	}

	fullURL := e.baseURL + opts.Path
	if len(opts.Query) > 0 {
		fullURL += "?" + opts.Query.Encode()
	}

	var bodyBytes []byte
	if opts.Body != nil {
		var err error
		bodyBytes, err = json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	e.logger.Debug().
		Str("endpoint", opts.Path).
		Str("method", method).
		Msg("Executing request")

	var lastErr error
	var lastClass ErrorClass

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		payload, retry, err := e.attempt(ctx, method, fullURL, bodyBytes, opts, attempt)
		if err == nil {
			if cacheable {
				e.cache.Set(key, payload)
			}
			return payload, nil
		}
		if !retry {
			return nil, err
		}

		lastErr = err
		lastClass = classOf(err)

		// Retryable, but this was the final attempt.
		if attempt >= e.maxAttempts {
			break
		}
	}

	retryExhaustedTotal.WithLabelValues(string(lastClass)).Inc()
	e.logger.Warn().
		Str("endpoint", opts.Path).
		Str("error_class", string(lastClass)).
		Int("max_attempts", e.maxAttempts).
		Msg("Retry attempts exhausted")

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, e.maxAttempts, lastErr)
}

// attempt performs one request try. The second return reports whether the
// failure is retryable; a retryable attempt has already waited out its
// backoff or rate-limit pause (unless it was the final one).
func (e *Executor) attempt(ctx context.Context, method, fullURL string, body []byte, opts Options, attempt int) ([]byte, bool, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if e.authorize != nil {
		e.authorize(req)
	}
	for name, values := range opts.Header {
		for _, v := range values {
			req.Header.Set(name, v)
		}
	}

	start := time.Now()
	resp, reqErr := e.http.Do(req)
	requestDuration.WithLabelValues(e.provider).Observe(time.Since(start).Seconds())

	if reqErr != nil {
		e.logger.Warn().Err(reqErr).Str("endpoint", opts.Path).Int("attempt", attempt).Msg("HTTP request failed")
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(e.provider, "network_error").Inc()

		if waitErr := e.pause(ctx, e.backoff(attempt), ErrorClassNetwork, attempt); waitErr != nil {
			return nil, false, waitErr
		}
		return nil, true, &networkError{err: reqErr}
	}

	data, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(e.provider, "network_error").Inc()

		if waitErr := e.pause(ctx, e.backoff(attempt), ErrorClassNetwork, attempt); waitErr != nil {
			return nil, false, waitErr
		}
		return nil, true, &networkError{err: readErr}
	}

	e.tracker.UpdateFromHeaders(resp.Header)
	requestsTotal.WithLabelValues(e.provider, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if opts.Raw {
			return data, false, nil
		}
		if len(data) > 0 && !json.Valid(data) {
			errorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
			return nil, false, &DecodeError{
				URL: e.baseURL + opts.Path,
				Err: fmt.Errorf("response body is not valid JSON"),
			}
		}
		return data, false, nil

	case resp.StatusCode == http.StatusForbidden && e.policy == PolicyPrimaryWindow:
		wait, exhausted := e.tracker.WaitFor(resp.Header, time.Now())
		if !exhausted {
			errorsTotal.WithLabelValues(string(ErrorClassClient)).Inc()
			return nil, false, &HTTPError{
				StatusCode: resp.StatusCode,
				Body:       truncateBody(data),
				URL:        e.baseURL + opts.Path,
			}
		}

		errorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
		e.logger.Warn().
			Str("endpoint", opts.Path).
			Dur("wait", wait).
			Int("attempt", attempt).
			Msg("Rate limit window exhausted, waiting for reset")

		if attempt < e.maxAttempts {
			ratelimit.Waits.Inc()
			if waitErr := e.pause(ctx, wait, ErrorClassRateLimit, attempt); waitErr != nil {
				return nil, false, waitErr
			}
		}
		return nil, true, &rateLimitError{status: resp.StatusCode}

	case resp.StatusCode == http.StatusTooManyRequests && e.policy == PolicyRetryAfter:
		errorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
		wait := ratelimit.RetryAfter(resp.Header, e.raFallback)
		e.logger.Warn().
			Str("endpoint", opts.Path).
			Dur("wait", wait).
			Int("attempt", attempt).
			Msg("Rate limited, honoring Retry-After")

		if attempt < e.maxAttempts {
			ratelimit.Waits.Inc()
			if waitErr := e.pause(ctx, wait, ErrorClassRateLimit, attempt); waitErr != nil {
				return nil, false, waitErr
			}
		}
		return nil, true, &rateLimitError{status: resp.StatusCode}

	case resp.StatusCode >= 500:
		errorsTotal.WithLabelValues(string(ErrorClassServer)).Inc()
		e.logger.Warn().
			Str("endpoint", opts.Path).
			Int("status", resp.StatusCode).
			Int("attempt", attempt).
			Msg("Server error")

		if attempt < e.maxAttempts {
			if waitErr := e.pause(ctx, e.backoff(attempt), ErrorClassServer, attempt); waitErr != nil {
				return nil, false, waitErr
			}
		}
		return nil, true, &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       truncateBody(data),
			URL:        e.baseURL + opts.Path,
		}

	default:
		errorsTotal.WithLabelValues(string(ErrorClassClient)).Inc()
		e.logger.Warn().
			Str("endpoint", opts.Path).
			Int("status", resp.StatusCode).
			Msg("Request rejected")

		return nil, false, &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       truncateBody(data),
			URL:        e.baseURL + opts.Path,
		}
	}
}

// pause sleeps for d with context cancellation support, recording retry
// metrics.
func (e *Executor) pause(ctx context.Context, d time.Duration, class ErrorClass, attempt int) error {
	retriesTotal.WithLabelValues(string(class)).Inc()
	retryBackoffSeconds.WithLabelValues(string(class)).Observe(d.Seconds())

	select {
	case <-ctx.Done():
		e.logger.Warn().
			Str("error_class", string(class)).
			Int("attempt", attempt).
			Msg("Context cancelled during retry wait")
		return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
	case <-time.After(d):
		return nil
	}
}

// RateLimit returns a snapshot of the provider's primary window state.
func (e *Executor) RateLimit() ratelimit.State {
	return e.tracker.State()
}

// Cache returns the executor's cache (nil when caching is disabled).
func (e *Executor) Cache() *cache.Cache {
	return e.cache
}

// Close releases idle connections and clears the cache. The owning client
// calls this after draining its worker pool.
func (e *Executor) Close() {
	e.http.CloseIdleConnections()
	if e.cache != nil {
		e.cache.Clear()
	}
}

// networkError wraps a transport failure for retry bookkeeping.
type networkError struct {
	err error
}

func (e *networkError) Error() string { return fmt.Sprintf("network error: %v", e.err) }
func (e *networkError) Unwrap() error { return e.err }

// rateLimitError marks an attempt rejected by the provider's rate limiter.
type rateLimitError struct {
	status int
}

func (e *rateLimitError) Error() string {
	return fmt.Sprintf("rate limited (status %d)", e.status)
}

// classOf labels an attempt error for exhaustion metrics.
func classOf(err error) ErrorClass {
	switch err.(type) {
	case *networkError:
		return ErrorClassNetwork
	case *rateLimitError:
		return ErrorClassRateLimit
	case *HTTPError:
		return ErrorClassServer
	default:
		return ErrorClassNetwork
	}
}
