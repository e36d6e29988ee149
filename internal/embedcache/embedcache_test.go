package embedcache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	calls int
	vec   []float32
}

func (p *countingProvider) Dimensions() int { return len(p.vec) }

func (p *countingProvider) Generate(ctx context.Context, texts []string) ([][]float32, error) {
	p.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = p.vec
	}
	return out, nil
}

func setup(t *testing.T) (*Cache, *countingProvider) {
	t.Helper()
	mr := miniredis.RunT(t)
	inner := &countingProvider{vec: []float32{0.1, 0.2, 0.3}}
	c, err := New(inner, "redis://"+mr.Addr(), "test-model")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, inner
}

func TestGenerate_CacheMissPopulatesAndReturnsVector(t *testing.T) {
	c, inner := setup(t)

	out, err := c.Generate(context.Background(), []string{"hello"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, inner.vec, out[0])
	assert.Equal(t, 1, inner.calls)
}

func TestGenerate_CacheHitSkipsInnerProvider(t *testing.T) {
	c, inner := setup(t)
	ctx := context.Background()

	_, err := c.Generate(ctx, []string{"hello"})
	require.NoError(t, err)
	require.Equal(t, 1, inner.calls)

	out, err := c.Generate(ctx, []string{"hello"})
	require.NoError(t, err)
	assert.Equal(t, inner.vec, out[0])
	assert.Equal(t, 1, inner.calls, "second call for the same text must not reach the inner provider")
}

func TestGenerate_MixedHitAndMissBatchesOnlyMisses(t *testing.T) {
	c, inner := setup(t)
	ctx := context.Background()

	_, err := c.Generate(ctx, []string{"cached"})
	require.NoError(t, err)
	require.Equal(t, 1, inner.calls)

	out, err := c.Generate(ctx, []string{"cached", "fresh"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 2, inner.calls)
}

func TestKey_VariesByModel(t *testing.T) {
	a := &Cache{model: "model-a"}
	b := &Cache{model: "model-b"}
	assert.NotEqual(t, a.key("same text"), b.key("same text"))
}
