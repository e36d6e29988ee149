package badgerstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoryvault/memoryvault/internal/model"
	"github.com/memoryvault/memoryvault/internal/vectorstore"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), "test_memories")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_RejectsInvalidCollectionName(t *testing.T) {
	_, err := Open(t.TempDir(), "not a valid name")
	assert.Error(t, err)
}

func TestAddGetUpdateDelete_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	m := model.Memory{ID: "mem-1", Document: "likes coffee", Embedding: []float32{1, 0, 0}}
	require.NoError(t, s.Add(ctx, []model.Memory{m}))

	got, err := s.GetByIDs(ctx, []string{"mem-1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "likes coffee", got[0].Document)

	notFound, err := s.Update(ctx, []vectorstore.Update{{ID: "mem-1", Document: "likes tea now", Embedding: []float32{0, 1, 0}}})
	require.NoError(t, err)
	assert.Empty(t, notFound)

	got, err = s.GetByIDs(ctx, []string{"mem-1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "likes tea now", got[0].Document)

	notFound, err = s.Delete(ctx, []string{"mem-1", "does-not-exist"})
	require.NoError(t, err)
	assert.Equal(t, []string{"does-not-exist"}, notFound)

	got, err = s.GetByIDs(ctx, []string{"mem-1"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQueryBySimilarity_OrdersByCosineDescending(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Add(ctx, []model.Memory{
		{ID: "close", Document: "a", Embedding: []float32{1, 0}},
		{ID: "orthogonal", Document: "b", Embedding: []float32{0, 1}},
		{ID: "opposite", Document: "c", Embedding: []float32{-1, 0}},
	}))

	groups, err := s.QueryBySimilarity(ctx, [][]float32{{1, 0}}, vectorstore.Filter{}, 10)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0], 3)

	assert.Equal(t, "close", groups[0][0].Memory.ID)
	assert.InDelta(t, 1.0, groups[0][0].Similarity, 1e-6)
	assert.Equal(t, float32(0), groups[0][2].Similarity) // clamped, never negative
}

func TestQueryByFilter_MatchesOnlyRequestedMetadata(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Add(ctx, []model.Memory{
		{ID: "mine", Document: "a", Metadata: model.MemoryMetadata{UserID: "u1"}},
		{ID: "theirs", Document: "b", Metadata: model.MemoryMetadata{UserID: "u2"}},
	}))

	out, err := s.QueryByFilter(ctx, vectorstore.Filter{UserID: "u1"}, 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "mine", out[0].ID)
}
