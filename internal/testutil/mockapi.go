// Package testutil provides a configurable fake provider API shared by
// package tests that exercise the full request path.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// Response describes one canned mock response.
type Response struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

func (r Response) write(w http.ResponseWriter) {
	if r.Delay > 0 {
		time.Sleep(r.Delay)
	}
	for key, value := range r.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(r.StatusCode)
	if r.Body != "" {
		w.Write([]byte(r.Body))
	}
}

// MockAPI is a fake provider HTTP API. Handlers are keyed by URL path;
// unmatched paths get a 200 JSON body. All methods are safe for
// concurrent use, so batch-fetch tests can hit one instance from many
// goroutines.
type MockAPI struct {
	server *httptest.Server

	mu         sync.RWMutex
	handlers   map[string]http.HandlerFunc
	requests   int
	pathCounts map[string]int
	lastHeader http.Header
}

// NewMockAPI starts a mock provider server. Callers own the Close.
func NewMockAPI() *MockAPI {
	m := &MockAPI{
		handlers:   make(map[string]http.HandlerFunc),
		pathCounts: make(map[string]int),
	}

	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.requests++
		m.pathCounts[r.URL.Path]++
		m.lastHeader = r.Header.Clone()
		handler, ok := m.handlers[r.URL.Path]
		m.mu.Unlock()

		if ok {
			handler(w, r)
			return
		}
		m.defaultHandler(w, r)
	}))

	return m
}

// URL returns the mock server's base URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears the request counters and the captured header.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = 0
	m.pathCounts = make(map[string]int)
	m.lastHeader = nil
}

// SetHandler installs a custom handler for a path.
func (m *MockAPI) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockAPI) SetResponse(path string, resp Response) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		resp.write(w)
	})
}

// SetJSON configures a 200 JSON response for a path.
func (m *MockAPI) SetJSON(path, body string) {
	m.SetResponse(path, JSON(body))
}

// Requests returns the total number of requests served.
func (m *MockAPI) Requests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requests
}

// RequestsFor returns the number of requests served for one path.
func (m *MockAPI) RequestsFor(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[path]
}

// LastHeader returns the headers of the most recent request.
func (m *MockAPI) LastHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader
}

func (m *MockAPI) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}

// Sequence returns a handler that replays the given responses in order,
// repeating the last one once the script runs out. Use it for scenarios
// like "rate limited, then healthy".
func Sequence(responses ...Response) http.HandlerFunc {
	var mu sync.Mutex
	next := 0
	return func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := responses[next]
		if next < len(responses)-1 {
			next++
		}
		mu.Unlock()
		resp.write(w)
	}
}

// JSON creates a 200 OK response carrying the given JSON body.
func JSON(body string) Response {
	return Response{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// RateLimited creates an Atlassian-style 429 carrying a Retry-After
// delay in seconds.
func RateLimited(retryAfterSeconds int) Response {
	return Response{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "rate limit exceeded"}`,
		Headers: map[string]string{
			"Retry-After":  strconv.Itoa(retryAfterSeconds),
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// WindowExhausted creates a GitHub-style 403 with the primary window
// spent and resetting at the given time.
func WindowExhausted(resetAt time.Time) Response {
	return Response{
		StatusCode: http.StatusForbidden,
		Body:       `{"message": "API rate limit exceeded"}`,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     fmt.Sprintf("%d", resetAt.Unix()),
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// ServerError creates a 500 response with a JSON error body.
func ServerError() Response {
	return Response{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
