package util

import (
	"context"
	"fmt"
	"time"
)

// maxRetryDelay caps the exponential backoff so slow data sources don't push
// a collector pass past its useful window.
const maxRetryDelay = 30 * time.Second

// Retry calls fn up to maxAttempts times, doubling the delay between attempts
// starting from baseDelay (capped at maxRetryDelay). It returns nil on the
// first success; once attempts are exhausted the last error is returned
// wrapped with the attempt count. Cancelling the context aborts the wait
// between attempts.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	delay := baseDelay

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if delay *= 2; delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
	return fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
}
