// Package ratelimit tracks provider rate-limit state from response headers
// and computes recovery waits. It covers the two styles used by the backing
// APIs: the GitHub primary window (X-RateLimit-Remaining / X-RateLimit-Reset)
// and the Retry-After header used by the Atlassian APIs.
package ratelimit

import (
	"time"
)

// MaxWait caps how long a single rate-limit recovery wait may last,
// regardless of what the reset header announces.
const MaxWait = 60 * time.Second

// State is a snapshot of the provider's primary rate-limit window.
// The zero value means no headers have been seen yet.
type State struct {
	// Remaining is the number of requests left in the current window.
	// Extracted from the X-RateLimit-Remaining header.
	Remaining int

	// ResetAt is when the window resets.
	// Calculated from the X-RateLimit-Reset header (epoch seconds).
	ResetAt time.Time

	// UpdatedAt is when this state was last refreshed from headers.
	UpdatedAt time.Time
}

// Exhausted reports whether the window has no requests left.
// A state that never saw headers is not exhausted.
func (s State) Exhausted() bool {
	return !s.UpdatedAt.IsZero() && s.Remaining == 0
}

// WaitUntilReset returns the duration until the window resets,
// clamped to [0, MaxWait].
func (s State) WaitUntilReset(now time.Time) time.Duration {
	return clampWait(s.ResetAt.Sub(now))
}

// clampWait bounds a wait duration to [0, MaxWait].
func clampWait(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > MaxWait {
		return MaxWait
	}
	return d
}
