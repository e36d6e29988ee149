package consolidate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoryvault/memoryvault/internal/model"
	"github.com/memoryvault/memoryvault/internal/vectorstore"
)

type stubLLM struct {
	response string
	err      error
}

func (s *stubLLM) Generate(ctx context.Context, systemInstruction, userMessage string, responseSchema []byte) (string, error) {
	return s.response, s.err
}

func TestPlan_NoNeighborsShortCircuitsToCreates(t *testing.T) {
	c := New(&stubLLM{response: `{"plan":[]}`})

	items, err := c.Plan(context.Background(), []string{"likes coffee", "lives in Austin"}, nil)
	require.NoError(t, err)
	require.Len(t, items, 2)
	for i, item := range items {
		assert.Equal(t, model.ActionCreate, item.Action)
		assert.NotEmpty(t, item.ID)
		if i == 0 {
			assert.Equal(t, "likes coffee", item.Text)
		}
	}
}

func TestPlan_UnknownIDDroppedFromUpdate(t *testing.T) {
	llm := &stubLLM{response: `{"plan":[
		{"id":"0","text":"likes tea now","action":"UPDATE"},
		{"id":"mem-does-not-exist","text":"ghost","action":"UPDATE"},
		{"id":"new-0","text":"new fact","action":"CREATE"}
	]}`}
	c := New(llm)

	neighbors := []model.Memory{{ID: "mem-1", Document: "likes coffee"}}
	items, err := c.Plan(context.Background(), []string{"new fact"}, neighbors)
	require.NoError(t, err)

	require.Len(t, items, 2)
	var sawUpdate, sawCreate bool
	for _, item := range items {
		switch item.ID {
		case "mem-1":
			sawUpdate = true
			assert.Equal(t, model.ActionUpdate, item.Action)
		case "new-0":
			sawCreate = true
		case "mem-does-not-exist":
			t.Fatalf("unmapped id should have been dropped")
		}
	}
	assert.True(t, sawUpdate)
	assert.True(t, sawCreate)
}

func TestDeduplicateNeighbors_CollapsesDuplicatesPreservingOrder(t *testing.T) {
	groups := [][]vectorstore.Scored{
		{{Memory: model.Memory{ID: "a"}}, {Memory: model.Memory{ID: "b"}}},
		{{Memory: model.Memory{ID: "b"}}, {Memory: model.Memory{ID: "c"}}},
	}

	out := DeduplicateNeighbors(groups)

	require.Len(t, out, 3)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "b", out[1].ID)
	assert.Equal(t, "c", out[2].ID)
}
