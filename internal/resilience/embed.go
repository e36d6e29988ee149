package resilience

import (
	"context"

	"github.com/memoryvault/memoryvault/internal/embedprovider"
	"github.com/memoryvault/memoryvault/internal/errs"
)

// ResilientEmbed wraps an embedprovider.Provider with rate limiting and
// retry, mirroring ResilientLLM.
type ResilientEmbed struct {
	inner   embedprovider.Provider
	limiter *RateLimiter
	retry   RetryConfig
}

// WrapEmbed applies the resilience layer to an embedding provider.
func WrapEmbed(inner embedprovider.Provider, limiter *RateLimiter, retry RetryConfig) *ResilientEmbed {
	return &ResilientEmbed{inner: inner, limiter: limiter, retry: retry}
}

func (r *ResilientEmbed) Dimensions() int { return r.inner.Dimensions() }

func (r *ResilientEmbed) Generate(ctx context.Context, texts []string) ([][]float32, error) {
	var result [][]float32
	_, err := Do(ctx, r.retry, func(ctx context.Context) (string, error) {
		if err := r.limiter.Wait(ctx); err != nil {
			return "", err
		}
		vectors, err := r.inner.Generate(ctx, texts)
		if err != nil {
			return "", err
		}
		result = vectors
		return "", nil
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, errs.API_("embedding provider returned no vectors", nil)
	}
	return result, nil
}
