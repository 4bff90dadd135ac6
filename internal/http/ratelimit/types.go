package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Config holds throttling and retry settings for calls to an upstream source.
type Config struct {
	RequestsPerSecond float64       `mapstructure:"requests_per_second" json:"requestsPerSecond"`
	MaxAttempts       int           `mapstructure:"max_attempts" json:"maxAttempts"`
	InitialBackoff    time.Duration `mapstructure:"initial_backoff" json:"initialBackoff"`
	MaxBackoff        time.Duration `mapstructure:"max_backoff" json:"maxBackoff"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 2,
		MaxAttempts:       3,
		InitialBackoff:    200 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must be >= 0, got %v", c.RequestsPerSecond)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be >= 1, got %d", c.MaxAttempts)
	}
	if c.InitialBackoff < 0 || c.MaxBackoff < 0 {
		return fmt.Errorf("backoff durations must be >= 0")
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("max_backoff (%s) must be >= initial_backoff (%s)", c.MaxBackoff, c.InitialBackoff)
	}
	return nil
}

// RateLimiter spaces out outgoing requests with a token bucket.
// A zero RequestsPerSecond disables throttling.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter from cfg with a burst of one.
func NewRateLimiter(cfg Config) *RateLimiter {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &RateLimiter{limiter: rate.NewLimiter(limit, 1)}
}

// Throttle blocks until the next request may be sent or ctx is done.
// Call this before making a request.
func (r *RateLimiter) Throttle(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
