package discounts

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestBreaker(maxFailures, halfOpen int) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		MaxFailures:      maxFailures,
		ResetTimeout:     time.Minute,
		HalfOpenMaxCalls: halfOpen,
	}, NewMetricsRecorder("test"), nil)
	cb.now = clock.Now
	return cb, clock
}

func TestCircuitBreakerOpensAfterMaxFailures(t *testing.T) {
	cb, _ := newTestBreaker(3, 1)
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		assert.True(t, cb.Allow())
		cb.RecordFailure(boom)
	}
	assert.Equal(t, CircuitClosed, cb.State())

	cb.RecordFailure(boom)
	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.Allow())
}

func TestCircuitBreakerSuccessResetsFailures(t *testing.T) {
	cb, _ := newTestBreaker(3, 1)
	boom := errors.New("boom")

	cb.RecordFailure(boom)
	cb.RecordFailure(boom)
	cb.RecordSuccess()
	assert.Zero(t, cb.FailureCount())

	cb.RecordFailure(boom)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreakerHalfOpenRecovery(t *testing.T) {
	cb, clock := newTestBreaker(1, 2)
	cb.RecordFailure(errors.New("boom"))
	assert.Equal(t, CircuitOpen, cb.State())

	clock.Advance(time.Minute)
	assert.True(t, cb.Allow())
	assert.Equal(t, CircuitHalfOpen, cb.State())
	assert.True(t, cb.Allow(), "second trial call admitted")
	assert.False(t, cb.Allow(), "trial budget exhausted")

	cb.RecordSuccess()
	assert.Equal(t, CircuitHalfOpen, cb.State())
	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.State())
	assert.True(t, cb.Allow())
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(1, 1)
	cb.RecordFailure(errors.New("boom"))

	clock.Advance(time.Minute)
	assert.True(t, cb.Allow())
	cb.RecordFailure(errors.New("still down"))
	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.Allow())
}

func TestCircuitBreakerReset(t *testing.T) {
	cb, _ := newTestBreaker(1, 1)
	cb.RecordFailure(errors.New("boom"))
	cb.Reset()
	assert.Equal(t, CircuitClosed, cb.State())
	assert.True(t, cb.Allow())
}

func TestCircuitBreakerStateString(t *testing.T) {
	assert.Equal(t, "closed", CircuitClosed.String())
	assert.Equal(t, "open", CircuitOpen.String())
	assert.Equal(t, "half-open", CircuitHalfOpen.String())
	assert.Equal(t, "unknown", CircuitBreakerState(9).String())
}
