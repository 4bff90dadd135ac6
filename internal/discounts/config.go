package discounts

import (
	"fmt"
	"time"

	"github.com/kosarica/deal-planner/internal/http/ratelimit"
)

// Config holds Discount Matcher settings.
type Config struct {
	// CacheTTL is how long a fetched result is served without calling upstream.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`

	// StaleTTL is how long a result remains available as a fallback when
	// upstream fails. Must be >= CacheTTL.
	StaleTTL time.Duration `mapstructure:"stale_ttl"`

	// RequestTimeout bounds each upstream attempt.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// DistanceTimeout bounds each call to an external DistanceCalculator.
	DistanceTimeout time.Duration `mapstructure:"distance_timeout"`

	// DefaultRadiusKm is used when a request does not specify a radius.
	DefaultRadiusKm float64 `mapstructure:"default_radius_km"`

	// MinutesPerKm estimates travel time for offers that carry none.
	MinutesPerKm float64 `mapstructure:"minutes_per_km"`

	Retry          ratelimit.Config     `mapstructure:"retry"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// Defaults returns the default configuration.
func Defaults() Config {
	retry := ratelimit.DefaultConfig()
	retry.RequestsPerSecond = 0
	return Config{
		CacheTTL:        6 * time.Hour,
		StaleTTL:        48 * time.Hour,
		RequestTimeout:  20 * time.Second,
		DistanceTimeout: 2 * time.Second,
		DefaultRadiusKm: 5.0,
		MinutesPerKm:    3.0,
		Retry:           retry,
		CircuitBreaker:  DefaultCircuitBreakerConfig(),
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c Config) Validate() error {
	if c.CacheTTL <= 0 {
		return ErrInvalidConfig{Field: "cache_ttl", Reason: "must be positive"}
	}
	if c.StaleTTL < c.CacheTTL {
		return ErrInvalidConfig{Field: "stale_ttl", Reason: "must be >= cache_ttl"}
	}
	if c.RequestTimeout <= 0 {
		return ErrInvalidConfig{Field: "request_timeout", Reason: "must be positive"}
	}
	if c.DistanceTimeout <= 0 {
		return ErrInvalidConfig{Field: "distance_timeout", Reason: "must be positive"}
	}
	if c.DefaultRadiusKm <= 0 {
		return ErrInvalidConfig{Field: "default_radius_km", Reason: "must be positive"}
	}
	if c.MinutesPerKm < 0 {
		return ErrInvalidConfig{Field: "minutes_per_km", Reason: "must be non-negative"}
	}
	if err := c.Retry.Validate(); err != nil {
		return ErrInvalidConfig{Field: "retry", Reason: err.Error()}
	}
	if c.CircuitBreaker.MaxFailures < 1 {
		return ErrInvalidConfig{Field: "circuit_breaker.max_failures", Reason: "must be at least 1"}
	}
	return nil
}

// ErrInvalidConfig is returned for an invalid configuration value.
type ErrInvalidConfig struct {
	Field  string
	Reason string
}

func (e ErrInvalidConfig) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}
