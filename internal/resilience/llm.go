package resilience

import (
	"context"

	"github.com/memoryvault/memoryvault/internal/llmprovider"
)

// ResilientLLM wraps an llmprovider.Provider with rate limiting and retry,
// so every concrete variant (ollama/anthropic/openai) gets the same
// cross-cutting policy without repeating it per-provider.
type ResilientLLM struct {
	inner   llmprovider.Provider
	limiter *RateLimiter
	retry   RetryConfig
}

// WrapLLM applies the resilience layer to an LLM provider.
func WrapLLM(inner llmprovider.Provider, limiter *RateLimiter, retry RetryConfig) *ResilientLLM {
	return &ResilientLLM{inner: inner, limiter: limiter, retry: retry}
}

func (r *ResilientLLM) Generate(ctx context.Context, systemInstruction, userMessage string, responseSchema []byte) (string, error) {
	return Do(ctx, r.retry, func(ctx context.Context) (string, error) {
		if err := r.limiter.Wait(ctx); err != nil {
			return "", err
		}
		return r.inner.Generate(ctx, systemInstruction, userMessage, responseSchema)
	})
}
