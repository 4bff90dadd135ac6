package ratelimit

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"
)

// IsRetryableStatus checks if an HTTP status code is retryable.
// Retryable: 408, 429, 5xx.
func IsRetryableStatus(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests ||
		(status >= 500 && status < 600)
}

// CalculateBackoff returns the delay before retry number attempt (0-based):
// InitialBackoff * 2^attempt capped at MaxBackoff, plus 0-25% jitter.
func CalculateBackoff(attempt int, cfg Config) time.Duration {
	exponential := float64(cfg.InitialBackoff) * math.Pow(2.0, float64(attempt))
	capped := math.Min(exponential, float64(cfg.MaxBackoff))
	jitter := rand.Float64() * 0.25 * capped
	return time.Duration(capped + jitter)
}

// ParseRetryAfter reads a Retry-After header in its delay-seconds form.
func ParseRetryAfter(header string) (time.Duration, bool) {
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds <= 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

// DelayHinter is implemented by errors that carry a server-requested retry
// delay, such as a Retry-After header on a 429.
type DelayHinter interface {
	RetryDelay() time.Duration
}

// retryDelay is the wait before the next attempt: the larger of the backoff
// and the hinted delay. It reports false when the hint exceeds MaxBackoff.
func retryDelay(attempt int, cfg Config, err error) (time.Duration, bool) {
	delay := CalculateBackoff(attempt, cfg)
	var hinter DelayHinter
	if errors.As(err, &hinter) {
		hint := hinter.RetryDelay()
		if hint > cfg.MaxBackoff {
			return 0, false
		}
		delay = max(delay, hint)
	}
	return delay, true
}

// Retry calls fn until it succeeds, returns an error for which retryable
// reports false, or cfg.MaxAttempts attempts have been made. It sleeps
// CalculateBackoff between attempts, or longer when the error carries a
// DelayHinter. A hinted delay above MaxBackoff ends the retries. Retry stops
// early when ctx is done. The returned count is the number of attempts made.
func Retry(ctx context.Context, cfg Config, retryable func(error) bool, fn func(ctx context.Context, attempt int) error) (int, error) {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return attempt, lastErr
			}
			return attempt, err
		}

		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return attempt + 1, nil
		}
		if !retryable(lastErr) || attempt == maxAttempts-1 {
			return attempt + 1, lastErr
		}

		delay, ok := retryDelay(attempt, cfg, lastErr)
		if !ok {
			return attempt + 1, lastErr
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt + 1, lastErr
		case <-timer.C:
		}
	}
	return maxAttempts, lastErr
}
