package request

import "time"

// backoffFor returns the pause before retrying after the given 1-based
// attempt: 1s, 2s, 4s, doubling per attempt. The schedule is fixed and
// carries no jitter.
func backoffFor(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(1<<uint(attempt-1)) * time.Second
}
