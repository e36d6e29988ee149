package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/memoryvault/memoryvault/internal/errs"
)

// RetryConfig parameterizes the backoff schedule: a configurable factor
// plus jitter that scales the capped exponential delay by a random factor
// between 0.5 and 1.
type RetryConfig struct {
	MaxRetries    int
	BaseDelay     time.Duration
	BackoffFactor float64
	MaxDelay      time.Duration
}

// DefaultRetryConfig is a conservative baseline: three retries, one
// second base delay, doubling up to an eight second cap.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		BaseDelay:     time.Second,
		BackoffFactor: 2,
		MaxDelay:      8 * time.Second,
	}
}

// Delay returns the sleep duration after a failed attempt k (1-indexed):
// min(base*factor^(k-1), max) * (0.5 + rand()/2).
func (c RetryConfig) Delay(attempt int) time.Duration {
	raw := float64(c.BaseDelay) * math.Pow(c.BackoffFactor, float64(attempt-1))
	capped := math.Min(raw, float64(c.MaxDelay))
	jittered := capped * (0.5 + rand.Float64()/2)
	return time.Duration(jittered)
}

// Do invokes fn, retrying on errs.Retryable-tagged failures up to
// cfg.MaxRetries times with the configured backoff. A non-retryable error
// is returned immediately. On exhaustion the last error is surfaced,
// re-tagged errs.API.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (string, error)) (string, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if !errs.IsRetryable(err) {
			return "", err
		}
		lastErr = err
		if attempt > cfg.MaxRetries {
			break
		}

		delay := cfg.Delay(attempt)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
	return "", errs.API_("retries exhausted", lastErr)
}
