package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetry_Success(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		MaxAttempts:  3,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
	}

	attempts := 0
	err := Do(ctx, cfg, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient error")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_AllAttemptsFail(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		MaxAttempts:  3,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
	}

	attempts := 0
	err := Do(ctx, cfg, func() error {
		attempts++
		return errors.New("persistent error")
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.Equal(t, 3, attempts)
}

func TestRetry_LinearBackoffProgression(t *testing.T) {
	cfg := Linear(10*time.Millisecond, 10*time.Millisecond, 25*time.Millisecond, 0)

	d := cfg.InitialDelay
	d = nextDelay(cfg, d)
	assert.Equal(t, 20*time.Millisecond, d)
	d = nextDelay(cfg, d)
	assert.Equal(t, 25*time.Millisecond, d, "linear backoff caps at MaxDelay")
	d = nextDelay(cfg, d)
	assert.Equal(t, 25*time.Millisecond, d, "delay stays at cap")
}

func TestRetry_UnboundedStopsOnSuccess(t *testing.T) {
	ctx := context.Background()
	cfg := Linear(time.Millisecond, time.Millisecond, 5*time.Millisecond, 0)

	attempts := 0
	err := Do(ctx, cfg, func() error {
		attempts++
		if attempts < 7 {
			return errors.New("still down")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 7, attempts)
}

func TestRetry_NonRetryableStopsImmediately(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Multiplier:   2.0,
	}

	attempts := 0
	sentinel := errors.New("bad request")
	err := Do(ctx, cfg, func() error {
		attempts++
		return NonRetryable(sentinel)
	})

	assert.Error(t, err)
	assert.True(t, errors.Is(err, sentinel))
	assert.Equal(t, 1, attempts)
}

func TestRetry_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{
		MaxAttempts:  5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}

	attempts := 0
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, cfg, func() error {
		attempts++
		return errors.New("error")
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "retry cancelled")
	assert.Less(t, attempts, 5)
}

func TestRetry_InvalidConfig(t *testing.T) {
	ctx := context.Background()

	err := Do(ctx, Config{InitialDelay: -1}, func() error { return nil })
	assert.Error(t, err)

	err = Do(ctx, Config{InitialDelay: time.Second, MaxDelay: time.Millisecond}, func() error { return nil })
	assert.Error(t, err)
}

func TestDoWithResult(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Multiplier:   2.0,
	}

	calls := 0
	got, err := DoWithResult(ctx, cfg, func() (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("not yet")
		}
		return 42, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 42, got)
}
