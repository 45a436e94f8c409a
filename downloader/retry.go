package downloader

import (
	"context"
	"time"

	"servefetch/internal"
)

// Retry runs f up to maxAttempts times, component D. It stops retrying as
// soon as f succeeds, as soon as an error is classified non-retryable by
// internal.IsRetryable, or once the final attempt is spent — whichever
// comes first. Like the teacher's executeWithRetryContext, a ctx
// cancellation during the backoff sleep aborts immediately instead of
// waiting it out.
func Retry(ctx context.Context, op string, maxAttempts int, f func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = f()
		if lastErr == nil {
			return nil
		}

		if attempt == maxAttempts || !internal.IsRetryable(lastErr) {
			return lastErr
		}

		delay := retryDelay(attempt)
		internal.LogWarn("%s failed (attempt %d/%d): %v. Retrying in %s...", op, attempt, maxAttempts, lastErr, delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return lastErr
}

// retryDelay is min(2^(attempt-1), 8) seconds: 1s, 2s, 4s, 8s, 8s, 8s, ...
func retryDelay(attempt int) time.Duration {
	capped := attempt - 1
	if capped > 3 {
		capped = 3
	}
	if capped < 0 {
		capped = 0
	}
	return time.Duration(1<<uint(capped)) * time.Second
}
