// Package resilience implements the cross-cutting policies applied to
// every LLM and embedding call: a token-bucket rate limiter and a retry
// wrapper with exponential backoff and jitter.
package resilience

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter wraps golang.org/x/time/rate.Limiter, one instance per
// provider client instance (not per request). x/time/rate already
// suspends the waiting goroutine cooperatively and releases it
// immediately on context cancellation, satisfying "sleep outside the
// lock" without a hand-rolled mutex+condvar.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter allowing callsPerSecond sustained
// throughput with a burst of one.
func NewRateLimiter(callsPerSecond float64) *RateLimiter {
	if callsPerSecond <= 0 {
		callsPerSecond = 5
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(callsPerSecond), 1)}
}

// Wait suspends the caller until the bucket admits one more call, or
// returns ctx.Err() immediately if ctx is cancelled first.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
