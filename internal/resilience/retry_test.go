package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoryvault/memoryvault/internal/errs"
)

func TestRetryConfig_DelayStaysWithinJitterBounds(t *testing.T) {
	cfg := RetryConfig{BaseDelay: time.Second, BackoffFactor: 2, MaxDelay: 8 * time.Second}

	cases := []struct {
		attempt  int
		min, max time.Duration
	}{
		{1, 500 * time.Millisecond, time.Second},
		{2, time.Second, 2 * time.Second},
		{10, 4 * time.Second, 8 * time.Second}, // capped at MaxDelay before jitter
	}
	for _, c := range cases {
		d := cfg.Delay(c.attempt)
		assert.GreaterOrEqual(t, d, c.min, "attempt %d", c.attempt)
		assert.LessOrEqual(t, d, c.max, "attempt %d", c.attempt)
	}
}

func TestDo_NonRetryableErrorReturnsImmediately(t *testing.T) {
	calls := 0
	cfg := DefaultRetryConfig()

	_, err := Do(context.Background(), cfg, func(ctx context.Context) (string, error) {
		calls++
		return "", errs.Invalid("bad request")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	code, ok := errs.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, errs.InvalidRequest, code)
}

func TestDo_RetryableErrorExhaustsAndReturnsAPI(t *testing.T) {
	calls := 0
	cfg := RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, BackoffFactor: 1, MaxDelay: time.Millisecond}

	_, err := Do(context.Background(), cfg, func(ctx context.Context) (string, error) {
		calls++
		return "", errs.RetryableErr("upstream 503", errors.New("boom"))
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls) // initial attempt + 2 retries
	code, ok := errs.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, errs.API, code)
}

func TestDo_SucceedsAfterTransientFailure(t *testing.T) {
	calls := 0
	cfg := RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, BackoffFactor: 1, MaxDelay: time.Millisecond}

	out, err := Do(context.Background(), cfg, func(ctx context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", errs.RetryableErr("transient", nil)
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 2, calls)
}
