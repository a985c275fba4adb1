package ratelimit

import (
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testTracker() *Tracker {
	return NewTracker(zerolog.Nop())
}

func headersWith(pairs map[string]string) http.Header {
	h := http.Header{}
	for k, v := range pairs {
		h.Set(k, v)
	}
	return h
}

func TestTracker_UpdateFromHeaders(t *testing.T) {
	tests := []struct {
		name          string
		headers       map[string]string
		wantRemaining int
		wantUpdated   bool
	}{
		{
			name: "both headers present",
			headers: map[string]string{
				"X-RateLimit-Remaining": "28",
				"X-RateLimit-Reset":     fmt.Sprintf("%d", time.Now().Add(time.Minute).Unix()),
			},
			wantRemaining: 28,
			wantUpdated:   true,
		},
		{
			name:        "no headers leaves state untouched",
			headers:     map[string]string{},
			wantUpdated: false,
		},
		{
			name: "malformed remaining ignored",
			headers: map[string]string{
				"X-RateLimit-Remaining": "lots",
			},
			wantUpdated: false,
		},
		{
			name: "malformed reset still records remaining",
			headers: map[string]string{
				"X-RateLimit-Remaining": "3",
				"X-RateLimit-Reset":     "soon",
			},
			wantRemaining: 3,
			wantUpdated:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := testTracker()
			tracker.UpdateFromHeaders(headersWith(tt.headers))

			state := tracker.State()
			if tt.wantUpdated && state.UpdatedAt.IsZero() {
				t.Fatal("state not updated")
			}
			if !tt.wantUpdated && !state.UpdatedAt.IsZero() {
				t.Fatal("state updated unexpectedly")
			}
			if tt.wantUpdated && state.Remaining != tt.wantRemaining {
				t.Errorf("Remaining = %d, want %d", state.Remaining, tt.wantRemaining)
			}
		})
	}
}

func TestTracker_WaitFor(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		headers  map[string]string
		wantWait time.Duration
		wantOK   bool
	}{
		{
			name: "exhausted window with future reset",
			headers: map[string]string{
				"X-RateLimit-Remaining": "0",
				"X-RateLimit-Reset":     fmt.Sprintf("%d", now.Add(30*time.Second).Unix()),
			},
			wantWait: 30 * time.Second,
			wantOK:   true,
		},
		{
			name: "reset beyond cap clamps to sixty seconds",
			headers: map[string]string{
				"X-RateLimit-Remaining": "0",
				"X-RateLimit-Reset":     fmt.Sprintf("%d", now.Add(10*time.Minute).Unix()),
			},
			wantWait: MaxWait,
			wantOK:   true,
		},
		{
			name: "reset in the past means no wait",
			headers: map[string]string{
				"X-RateLimit-Remaining": "0",
				"X-RateLimit-Reset":     fmt.Sprintf("%d", now.Add(-time.Minute).Unix()),
			},
			wantWait: 0,
			wantOK:   true,
		},
		{
			name: "missing reset header means no wait",
			headers: map[string]string{
				"X-RateLimit-Remaining": "0",
			},
			wantWait: 0,
			wantOK:   true,
		},
		{
			name: "nonzero remaining is not a window rejection",
			headers: map[string]string{
				"X-RateLimit-Remaining": "12",
				"X-RateLimit-Reset":     fmt.Sprintf("%d", now.Add(time.Minute).Unix()),
			},
			wantOK: false,
		},
		{
			name:    "no headers at all",
			headers: map[string]string{},
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := testTracker()
			wait, ok := tracker.WaitFor(headersWith(tt.headers), now)

			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && wait != tt.wantWait {
				t.Errorf("wait = %v, want %v", wait, tt.wantWait)
			}
		})
	}
}

func TestRetryAfter(t *testing.T) {
	fallback := 1 * time.Second

	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "valid seconds", value: "7", want: 7 * time.Second},
		{name: "zero means immediate retry", value: "0", want: 0},
		{name: "missing header uses fallback", value: "", want: fallback},
		{name: "malformed uses fallback", value: "later", want: fallback},
		{name: "negative clamps to zero", value: "-3", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.value != "" {
				h.Set("Retry-After", tt.value)
			}

			if got := RetryAfter(h, fallback); got != tt.want {
				t.Errorf("RetryAfter(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestTracker_ConcurrentUpdates(t *testing.T) {
	tracker := testTracker()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tracker.UpdateFromHeaders(headersWith(map[string]string{
					"X-RateLimit-Remaining": fmt.Sprintf("%d", j),
				}))
				_ = tracker.State()
			}
		}(i)
	}
	wg.Wait()

	if tracker.State().UpdatedAt.IsZero() {
		t.Error("state should reflect at least one update")
	}
}
