package discounts

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrCircuitOpen is returned when the breaker rejects a fetch.
var ErrCircuitOpen = errors.New("circuit breaker open")

// CircuitBreakerState represents the state of the circuit breaker.
type CircuitBreakerState int

const (
	// CircuitClosed allows requests to pass through.
	CircuitClosed CircuitBreakerState = iota

	// CircuitOpen rejects requests immediately.
	CircuitOpen

	// CircuitHalfOpen allows trial requests to check if the source has recovered.
	CircuitHalfOpen
)

// String returns the string representation of the circuit breaker state.
func (s CircuitBreakerState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds configuration for the circuit breaker.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures before opening the circuit.
	MaxFailures int `mapstructure:"max_failures"`

	// ResetTimeout is how long the circuit stays open before a trial call.
	ResetTimeout time.Duration `mapstructure:"reset_timeout"`

	// HalfOpenMaxCalls is the number of successful trial calls needed to close.
	HalfOpenMaxCalls int `mapstructure:"half_open_max_calls"`
}

// DefaultCircuitBreakerConfig returns the default circuit breaker configuration.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxFailures:      5,
		ResetTimeout:     30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// CircuitBreaker stops calling a failing source for ResetTimeout once
// MaxFailures consecutive attempts have failed.
type CircuitBreaker struct {
	mu              sync.Mutex
	state           CircuitBreakerState
	failureCount    int
	successCount    int // used in half-open state
	inFlight        int // trial calls admitted in half-open state
	lastFailureTime time.Time

	config  CircuitBreakerConfig
	metrics *MetricsRecorder
	logger  zerolog.Logger
	name    string
	now     func() time.Time
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(name string, config CircuitBreakerConfig, metrics *MetricsRecorder, logger *zerolog.Logger) *CircuitBreaker {
	if config.MaxFailures < 1 {
		config.MaxFailures = 1
	}
	if config.HalfOpenMaxCalls < 1 {
		config.HalfOpenMaxCalls = 1
	}
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}

	cb := &CircuitBreaker{
		state:   CircuitClosed,
		config:  config,
		metrics: metrics,
		logger:  l,
		name:    name,
		now:     time.Now,
	}
	cb.recordState()
	return cb
}

// Allow reports whether a call may proceed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true

	case CircuitOpen:
		if cb.now().Sub(cb.lastFailureTime) < cb.config.ResetTimeout {
			return false
		}
		cb.transitionTo(CircuitHalfOpen)
		cb.logger.Info().
			Str("circuit_breaker", cb.name).
			Msg("Circuit breaker transitioning to half-open")
		cb.inFlight = 1
		return true

	case CircuitHalfOpen:
		if cb.inFlight+cb.successCount >= cb.config.HalfOpenMaxCalls {
			return false
		}
		cb.inFlight++
		return true

	default:
		return false
	}
}

// RecordSuccess records a successful call.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		cb.failureCount = 0

	case CircuitHalfOpen:
		if cb.inFlight > 0 {
			cb.inFlight--
		}
		cb.successCount++
		if cb.successCount >= cb.config.HalfOpenMaxCalls {
			cb.transitionTo(CircuitClosed)
			cb.logger.Info().
				Str("circuit_breaker", cb.name).
				Int("success_count", cb.successCount).
				Msg("Circuit breaker closing after successful recovery")
		}
	}
}

// RecordFailure records a failed call.
func (cb *CircuitBreaker) RecordFailure(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	cb.lastFailureTime = cb.now()

	cb.logger.Debug().
		Err(err).
		Str("circuit_breaker", cb.name).
		Int("failure_count", cb.failureCount).
		Msg("Circuit breaker recording failure")

	switch cb.state {
	case CircuitClosed:
		if cb.failureCount >= cb.config.MaxFailures {
			cb.transitionTo(CircuitOpen)
			cb.logger.Warn().
				Str("circuit_breaker", cb.name).
				Int("failure_count", cb.failureCount).
				Dur("reset_timeout", cb.config.ResetTimeout).
				Msg("Circuit breaker opening after max failures")
		}

	case CircuitHalfOpen:
		// any failure while probing re-opens the circuit
		cb.transitionTo(CircuitOpen)
		cb.logger.Warn().
			Str("circuit_breaker", cb.name).
			Msg("Circuit breaker re-opening after failure in half-open state")
	}
}

func (cb *CircuitBreaker) transitionTo(state CircuitBreakerState) {
	cb.state = state
	cb.successCount = 0
	cb.inFlight = 0
	if state == CircuitClosed {
		cb.failureCount = 0
	}
	cb.recordState()
}

func (cb *CircuitBreaker) recordState() {
	if cb.metrics != nil {
		cb.metrics.RecordCircuitState(cb.name, cb.state)
	}
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// FailureCount returns the current consecutive failure count.
func (cb *CircuitBreaker) FailureCount() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failureCount
}

// Reset resets the circuit breaker to closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.transitionTo(CircuitClosed)
	cb.logger.Info().
		Str("circuit_breaker", cb.name).
		Msg("Circuit breaker manually reset to closed state")
}
