package cache

import "time"

// entry is a cached payload with its expiry timestamp.
type entry struct {
	data      []byte
	expiresAt time.Time
}

// expired reports whether the entry is stale at the given instant.
func (e entry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// remaining returns the time until expiry. Returns 0 if already expired.
func (e entry) remaining(now time.Time) time.Duration {
	d := e.expiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
