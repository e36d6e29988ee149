// Package embedcache decorates an embedding provider with a Redis-backed
// result cache, reusing the go-redis/redis/v8 client construction idiom a
// durable-facts store has no use for directly (no TTL semantics, no
// per-turn episodic retention) but whose connection plumbing is exactly
// what a cross-request embedding cache needs.
package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/memoryvault/memoryvault/internal/embedprovider"
)

// Cache wraps an embedprovider.Provider; a cache hit skips the underlying
// provider call (and therefore its rate limiter) entirely.
type Cache struct {
	inner embedprovider.Provider
	model string
	rdb   *redis.Client
}

// New connects to redisURL and wraps inner. model is folded into every
// cache key so switching embedding models never serves a stale vector.
func New(inner embedprovider.Provider, redisURL, model string) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse embedding cache redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to embedding cache redis: %w", err)
	}

	return &Cache{inner: inner, model: model, rdb: rdb}, nil
}

func (c *Cache) Dimensions() int { return c.inner.Dimensions() }

// Generate resolves each text against the cache, batches the misses
// through the underlying provider in one call, and writes the results
// back before returning the full, order-preserving result set.
func (c *Cache) Generate(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, text := range texts {
		vec, ok := c.lookup(ctx, text)
		if ok {
			out[i] = vec
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	fresh, err := c.inner.Generate(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, idx := range missIdx {
		out[idx] = fresh[j]
		c.store(ctx, missTexts[j], fresh[j])
	}
	return out, nil
}

func (c *Cache) lookup(ctx context.Context, text string) ([]float32, bool) {
	raw, err := c.rdb.Get(ctx, c.key(text)).Bytes()
	if err != nil {
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, false
	}
	return vec, true
}

func (c *Cache) store(ctx context.Context, text string, vec []float32) {
	data, err := json.Marshal(vec)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, c.key(text), data, 0)
}

func (c *Cache) key(text string) string {
	sum := sha256.Sum256([]byte(c.model + ":" + text))
	return "embedcache:" + hex.EncodeToString(sum[:])
}

// Close releases the Redis client.
func (c *Cache) Close() error { return c.rdb.Close() }
