package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/workpulse/workpulse/pkg/logging"
)

// panicError marks a recovered panic so it can be classified apart from
// ordinary item failures.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// Run executes fn once per key on the pool and returns the successes keyed
// by input. Failed, panicked, or timed-out items are logged and omitted, so
// callers treat a missing key as "item unavailable", never as an error.
// Result order carries no meaning. A timeout > 0 bounds each item
// individually.
func Run[K comparable, V any](ctx context.Context, pool *Pool, keys []K, timeout time.Duration, fn func(ctx context.Context, key K) (V, error)) map[K]V {
	start := time.Now()
	logger := logging.NewLogger("batch")

	results := make(map[K]V, len(keys))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, key := range keys {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()

			value, err := runOne(ctx, key, timeout, fn)
			if err != nil {
				batchItemsTotal.WithLabelValues(outcomeOf(err)).Inc()
				logger.Warn().
					Err(err).
					Str("key", fmt.Sprint(key)).
					Msg("Batch item failed")
				return
			}

			batchItemsTotal.WithLabelValues("ok").Inc()
			mu.Lock()
			results[key] = value
			mu.Unlock()
		})
		if err != nil {
			wg.Done()
			batchItemsTotal.WithLabelValues("error").Inc()
			logger.Warn().
				Err(err).
				Str("key", fmt.Sprint(key)).
				Msg("Batch item rejected")
		}
	}

	wg.Wait()
	batchDurationSeconds.Observe(time.Since(start).Seconds())

	logger.Debug().
		Int("keys", len(keys)).
		Int("ok", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Batch complete")

	return results
}

// runOne applies the per-item timeout and converts a panic into an error so
// one bad record cannot take down the worker.
func runOne[K comparable, V any](ctx context.Context, key K, timeout time.Duration, fn func(context.Context, K) (V, error)) (value V, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(ctx, key)
}

func outcomeOf(err error) string {
	var pe *panicError
	switch {
	case errors.As(err, &pe):
		return "panic"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
