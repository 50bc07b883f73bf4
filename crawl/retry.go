package crawl

import (
	"context"
	"time"
)

// FetchFunc is the signature for a fetch function.
type FetchFunc func(ctx context.Context, url string) (string, error)

// LogFunc is the signature for a logging function.
type LogFunc func(format string, args ...any)

// RetryPolicy bounds how often a failing operation is attempted and how long
// to wait between attempts. The wait doubles after each failure starting at
// BaseDelay and never exceeds MaxDelay.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy returns the extraction policy: 5 attempts with waits of
// 1s, 2s, 4s and 8s, capped at 16s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   1 * time.Second,
		MaxDelay:    16 * time.Second,
	}
}

// SingleAttempt is a policy that never retries.
func SingleAttempt() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1}
}

// Backoff returns the wait after the given failed attempt, counting from 1.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if p.BaseDelay <= 0 || attempt < 1 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// RetryFunc is called before each retry with the attempt about to run, the
// wait preceding it, and the error of the previous attempt.
type RetryFunc func(attempt int, wait time.Duration, err error)

// Do calls op until it succeeds, MaxAttempts is reached, or ctx is done.
// It returns the number of attempts made and the last error.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error, onRetry RetryFunc) (int, error) {
	maxAttempts := max(p.MaxAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return attempt, nil
		}
		if attempt == maxAttempts {
			return attempt, lastErr
		}
		if err := ctx.Err(); err != nil {
			return attempt, err
		}

		wait := p.Backoff(attempt)
		if onRetry != nil {
			onRetry(attempt+1, wait, lastErr)
		}
		if err := sleep(ctx, wait); err != nil {
			return attempt, err
		}
	}

	return maxAttempts, lastErr
}

// FetchWithRetry fetches url under policy. The logger, if provided, is
// called for each retry.
func FetchWithRetry(ctx context.Context, url string, fetch FetchFunc, policy RetryPolicy, logger LogFunc) (string, error) {
	var html string
	_, err := policy.Do(ctx, func(ctx context.Context) error {
		var err error
		html, err = fetch(ctx, url)
		return err
	}, func(attempt int, wait time.Duration, err error) {
		if logger != nil {
			logger("retry %s (attempt %d in %s): %v", url, attempt, wait, err)
		}
	})
	if err != nil {
		return "", err
	}
	return html, nil
}
