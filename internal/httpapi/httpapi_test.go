package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
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

// stubLLM always returns an empty plan, never parsing its prompt. The
// extractor reads that reply as no facts; the consolidator reads it as a
// plan with no items.
type stubLLM struct{}

func (stubLLM) Generate(ctx context.Context, systemInstruction, userMessage string, responseSchema []byte) (string, error) {
	return `{"plan":[]}`, nil
}

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := badgerstore.Open(t.TempDir(), "test_memories")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	embedder := embedprovider.NewSimple(32)
	svc := memsvc.New(store, embedder, extract.New(stubLLM{}), consolidate.New(stubLLM{}), nil)
	handlers := NewHandlers(svc, nil, obs.NoopTracer{})
	return NewRouter(handlers)
}

func doRequest(engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestGenerate_EmptyTranscriptReturnsEmptyInfo(t *testing.T) {
	engine := newTestEngine(t)

	rec := doRequest(engine, http.MethodPost, "/api/v1/memories/generate", map[string]any{
		"messages": []map[string]any{},
		"metadata": map[string]string{"user_id": "u1", "app_id": "a1", "session_id": "s1", "agent_name": "ag1"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []any{}, body["info"])
}

func TestGenerate_MissingMetadataFieldReturns400(t *testing.T) {
	engine := newTestEngine(t)

	rec := doRequest(engine, http.MethodPost, "/api/v1/memories/generate", map[string]any{
		"messages": []map[string]any{},
		"metadata": map[string]string{"user_id": "u1"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "error")
}

func TestCreate_ThenGetByIDs_RoundTrips(t *testing.T) {
	engine := newTestEngine(t)
	md := map[string]string{"user_id": "u1", "app_id": "a1", "session_id": "s1", "agent_name": "ag1"}

	createRec := doRequest(engine, http.MethodPost, "/api/v1/memories/create", map[string]any{
		"documents": []string{"likes coffee"},
		"metadata":  md,
	})
	require.Equal(t, http.StatusOK, createRec.Code)

	var created struct {
		Info []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"info"`
	}
	require.NoError(t, json.Unmarshal(createRec.Body.Bytes(), &created))
	require.Len(t, created.Info, 1)
	assert.Equal(t, "CREATED", created.Info[0].Status)

	getRec := doRequest(engine, http.MethodPost, "/api/v1/memories/get_by_ids", []string{created.Info[0].ID})
	require.Equal(t, http.StatusOK, getRec.Code)

	var fetched struct {
		Memories []struct {
			Document string `json:"document"`
		} `json:"memories"`
	}
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &fetched))
	require.Len(t, fetched.Memories, 1)
	assert.Equal(t, "likes coffee", fetched.Memories[0].Document)
}

func TestDelete_UnknownIDReportsNotFoundNotHTTPError(t *testing.T) {
	engine := newTestEngine(t)

	rec := doRequest(engine, http.MethodDelete, "/api/v1/memories/delete_by_id", []string{"does-not-exist"})

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Info []struct {
			Status string `json:"status"`
		} `json:"info"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Info, 1)
	assert.Equal(t, "NOT_FOUND", body.Info[0].Status)
}

func TestHealthz_ReturnsOK(t *testing.T) {
	engine := newTestEngine(t)
	rec := doRequest(engine, http.MethodGet, "/api/v1/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Result().Header.Get("X-Process-Time"))
}
