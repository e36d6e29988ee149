package embedprovider

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimple_DeterministicAcrossCalls(t *testing.T) {
	e := NewSimple(32)

	a, err := e.Generate(context.Background(), []string{"likes coffee"})
	require.NoError(t, err)
	b, err := e.Generate(context.Background(), []string{"likes coffee"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestSimple_VectorsAreUnitNormalized(t *testing.T) {
	e := NewSimple(16)

	out, err := e.Generate(context.Background(), []string{"a reasonably long sentence about preferences"})
	require.NoError(t, err)
	require.Len(t, out, 1)

	var magnitude float64
	for _, v := range out[0] {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)
	assert.InDelta(t, 1.0, magnitude, 1e-4)
}

func TestSimple_DimensionsMatchesRequestedWidth(t *testing.T) {
	e := NewSimple(64)
	out, err := e.Generate(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, 64, e.Dimensions())
	assert.Len(t, out[0], 64)
}
