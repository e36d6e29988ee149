package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoryvault/memoryvault/internal/consolidate"
	"github.com/memoryvault/memoryvault/internal/embedprovider"
	"github.com/memoryvault/memoryvault/internal/extract"
	"github.com/memoryvault/memoryvault/internal/memsvc"
	"github.com/memoryvault/memoryvault/internal/obs"
	"github.com/memoryvault/memoryvault/internal/vectorstore/badgerstore"
)

// scriptedLLM answers both the extractor's and the consolidator's prompts
// by pattern-matching the user message it is handed, mimicking the shape
// of a real LLM's output without actually invoking one. It never inspects
// responseSchema; the caller always asks for the right shape for the
// message it sent.
type scriptedLLM struct{}

func (scriptedLLM) Generate(ctx context.Context, systemInstruction, userMessage string, responseSchema []byte) (string, error) {
	switch {
	case strings.Contains(userMessage, "my name is jane"):
		return `{"facts": ["My name is Jane"]}`, nil
	case strings.Contains(userMessage, "hi") && strings.Contains(userMessage, "hello"):
		return `{"facts": []}`, nil
	case strings.Contains(userMessage, "EXISTING_MEMORIES"):
		// Consolidator is only invoked when there are neighbors; every
		// new fact in this test's scenarios is unrelated to whatever
		// neighbor surfaced, so always emit one CREATE per NEW_FACTS line.
		var plan []map[string]string
		for _, line := range strings.Split(userMessage, "\n") {
			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, "- \"") {
				continue
			}
			text := strings.TrimSuffix(strings.TrimPrefix(line, "- \""), "\"")
			plan = append(plan, map[string]string{"id": "new-" + text, "text": text, "action": "CREATE"})
		}
		out, _ := json.Marshal(map[string]any{"plan": plan})
		return string(out), nil
	default:
		return `{"facts": []}`, nil
	}
}

func newScriptedEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := badgerstore.Open(t.TempDir(), "scripted_memories")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	embedder := embedprovider.NewSimple(32)
	svc := memsvc.New(store, embedder, extract.New(scriptedLLM{}), consolidate.New(scriptedLLM{}), nil)
	handlers := NewHandlers(svc, nil, obs.NoopTracer{})
	return NewRouter(handlers)
}

// TestEndToEndScenarios walks the six scenarios named in the spec's
// testable-properties section: small talk yields nothing, a name
// extracted from conversation becomes a memory, a second fact is added
// via create, metadata search finds both, similarity search ranks the
// relevant one, and update reports one UPDATED plus one NOT_FOUND.
func TestEndToEndScenarios(t *testing.T) {
	engine := newScriptedEngine(t)
	md := map[string]string{"user_id": "u1", "app_id": "a1", "session_id": "s1", "agent_name": "root"}

	// 1. Small talk extracts nothing.
	rec := doRequest(engine, http.MethodPost, "/api/v1/memories/generate", map[string]any{
		"messages": []map[string]any{
			{"role": "user", "parts": []map[string]any{{"text": "hi"}}},
			{"role": "model", "parts": []map[string]any{{"text": "hello"}}},
		},
		"metadata": md,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var empty struct {
		Info []any `json:"info"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &empty))
	assert.Empty(t, empty.Info)

	// 2. A name mentioned in conversation becomes one CREATED memory.
	rec = doRequest(engine, http.MethodPost, "/api/v1/memories/generate", map[string]any{
		"messages": []map[string]any{
			{"role": "user", "parts": []map[string]any{{"text": "my name is jane"}}},
			{"role": "model", "parts": []map[string]any{{"text": "nice to meet you Jane"}}},
		},
		"metadata": md,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var generated struct {
		Info []struct {
			ID       string `json:"id"`
			Document string `json:"document"`
			Status   string `json:"status"`
		} `json:"info"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &generated))
	require.Len(t, generated.Info, 1)
	assert.Equal(t, "CREATED", generated.Info[0].Status)
	assert.Equal(t, "My name is Jane", generated.Info[0].Document)

	// 3. A follow-up create adds a second, unrelated fact.
	rec = doRequest(engine, http.MethodPost, "/api/v1/memories/create", map[string]any{
		"documents": []string{"Jane is an AI engineer"},
		"metadata":  md,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var created struct {
		Info []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"info"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Len(t, created.Info, 1)
	assert.Equal(t, "CREATED", created.Info[0].Status)
	engineerID := created.Info[0].ID

	// 4. Metadata search returns both memories for u1.
	rec = doRequest(engine, http.MethodGet, "/api/v1/memories?user_id=u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Memories []struct {
			Metadata struct {
				UserID string `json:"user_id"`
			} `json:"metadata"`
		} `json:"memories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Memories, 2)
	for _, m := range listed.Memories {
		assert.Equal(t, "u1", m.Metadata.UserID)
	}

	// 5. Similarity search for a query sharing words with the engineering
	// fact ranks it first, with a similarity score in [0,1].
	rec = doRequest(engine, http.MethodGet, "/api/v1/memories/similar?query=Jane+is+an+engineer&user_id=u1&limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var similar struct {
		Memories []struct {
			Document   string   `json:"document"`
			Similarity *float32 `json:"similarity"`
		} `json:"memories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &similar))
	require.Len(t, similar.Memories, 1)
	require.NotNil(t, similar.Memories[0].Similarity)
	sim := *similar.Memories[0].Similarity
	assert.GreaterOrEqual(t, sim, float32(0))
	assert.LessOrEqual(t, sim, float32(1))
	assert.Equal(t, "Jane is an AI engineer", similar.Memories[0].Document)

	// 6. Update reports one UPDATED and one NOT_FOUND, with a partial
	// success message.
	rec = doRequest(engine, http.MethodPut, "/api/v1/memories/update", []map[string]string{
		{"id": engineerID, "document": "Jane is a staff AI engineer"},
		{"id": "missing-id", "document": "x"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated struct {
		Message string `json:"message"`
		Info    []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"info"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Len(t, updated.Info, 2)
	assert.Equal(t, "UPDATED", updated.Info[0].Status)
	assert.Equal(t, "NOT_FOUND", updated.Info[1].Status)
	assert.Contains(t, updated.Message, "partial")
}
