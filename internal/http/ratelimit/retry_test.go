package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")
var errPermanent = errors.New("permanent")

func isTransient(err error) bool { return errors.Is(err, errTransient) }

func fastConfig() Config {
	return Config{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

func TestIsRetryableStatus(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{200, false},
		{400, false},
		{401, false},
		{403, false},
		{404, false},
		{408, true},
		{429, true},
		{500, true},
		{502, true},
		{503, true},
		{504, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRetryableStatus(tt.status), "status %d", tt.status)
	}
}

func TestCalculateBackoff(t *testing.T) {
	cfg := Config{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second}

	for attempt, base := range []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond} {
		got := CalculateBackoff(attempt, cfg)
		assert.GreaterOrEqual(t, got, base)
		assert.LessOrEqual(t, got, base+base/4)
	}

	capped := CalculateBackoff(10, cfg)
	assert.GreaterOrEqual(t, capped, time.Second)
	assert.LessOrEqual(t, capped, time.Second+time.Second/4)
}

func TestParseRetryAfter(t *testing.T) {
	d, ok := ParseRetryAfter("3")
	require.True(t, ok)
	assert.Equal(t, 3*time.Second, d)

	_, ok = ParseRetryAfter("")
	assert.False(t, ok)
	_, ok = ParseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT")
	assert.False(t, ok)
}

type hintedErr struct{ delay time.Duration }

func (e hintedErr) Error() string { return "rate limited" }
func (e hintedErr) RetryDelay() time.Duration { return e.delay }

func TestRetryWaitsForHintedDelay(t *testing.T) {
	cfg := Config{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Second}
	calls := 0
	start := time.Now()
	attempts, err := Retry(context.Background(), cfg, func(error) bool { return true }, func(context.Context, int) error {
		calls++
		if calls == 1 {
			return hintedErr{delay: 50 * time.Millisecond}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestRetryStopsWhenHintExceedsMaxBackoff(t *testing.T) {
	cfg := Config{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 10 * time.Millisecond}
	calls := 0
	attempts, err := Retry(context.Background(), cfg, func(error) bool { return true }, func(context.Context, int) error {
		calls++
		return hintedErr{delay: time.Minute}
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	attempts, err := Retry(context.Background(), fastConfig(), isTransient, func(_ context.Context, attempt int) error {
		assert.Equal(t, calls, attempt)
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	attempts, err := Retry(context.Background(), fastConfig(), isTransient, func(context.Context, int) error {
		calls++
		return errPermanent
	})

	assert.ErrorIs(t, err, errPermanent)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	attempts, err := Retry(context.Background(), fastConfig(), isTransient, func(context.Context, int) error {
		calls++
		return errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, calls)
}

func TestRetryHonoursContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{MaxAttempts: 5, InitialBackoff: time.Hour, MaxBackoff: time.Hour}

	calls := 0
	done := make(chan struct{})
	var attempts int
	var err error
	go func() {
		attempts, err = Retry(ctx, cfg, isTransient, func(context.Context, int) error {
			calls++
			return errTransient
		})
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("retry did not stop after cancellation")
	}
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.MaxAttempts = 0
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.MaxBackoff = bad.InitialBackoff / 2
	assert.Error(t, bad.Validate())
}

func TestRateLimiterThrottle(t *testing.T) {
	limiter := NewRateLimiter(Config{RequestsPerSecond: 20})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Throttle(ctx))
	}
	// burst of one: the second and third calls wait ~50ms each
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestRateLimiterDisabled(t *testing.T) {
	limiter := NewRateLimiter(Config{})
	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, limiter.Throttle(context.Background()))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}
