// Package chromastore implements the chroma vector store variant: a plain
// net/http client against a running Chroma server's REST API. Mirrors the
// rest of this module's outbound-HTTP idiom (marshal JSON body, check
// status, decode JSON response) rather than taking on a dedicated client
// SDK dependency.
package chromastore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/memoryvault/memoryvault/internal/errs"
	"github.com/memoryvault/memoryvault/internal/model"
	"github.com/memoryvault/memoryvault/internal/vectorstore"
)

// Store is the remote-Chroma adapter.
type Store struct {
	baseURL    string
	collection string
	dim        int
	httpClient *http.Client
}

// Open targets baseURL (e.g. "http://localhost:8000") and scopes
// operations to one named collection, validated the same way every other
// adapter validates its collection identifier.
func Open(baseURL, collection string, dim int) (*Store, error) {
	if err := vectorstore.ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	return &Store{
		baseURL:    baseURL,
		collection: collection,
		dim:        dim,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Setup creates the collection with the cosine metric if it does not
// already exist; the configured dimension is not part of the request. Chroma's create-collection call is itself
// idempotent when get_or_create is set, so repeated Setup calls are safe.
func (s *Store) Setup(ctx context.Context) error {
	body := map[string]any{
		"name":          s.collection,
		"get_or_create": true,
		"metadata":      map[string]any{"hnsw:space": "cosine"},
	}
	return s.post(ctx, "/api/v1/collections", body, nil)
}

func (s *Store) Add(ctx context.Context, memories []model.Memory) error {
	now := time.Now().UTC()
	ids := make([]string, len(memories))
	docs := make([]string, len(memories))
	embeddings := make([][]float32, len(memories))
	metadatas := make([]map[string]any, len(memories))
	for i, m := range memories {
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		ids[i] = m.ID
		docs[i] = m.Document
		embeddings[i] = m.Embedding
		metadatas[i] = metadataToMap(m.Metadata, m.CreatedAt, now)
	}
	body := map[string]any{
		"ids":        ids,
		"documents":  docs,
		"embeddings": embeddings,
		"metadatas":  metadatas,
	}
	return s.post(ctx, s.collectionPath("/upsert"), body, nil)
}

func (s *Store) Update(ctx context.Context, updates []vectorstore.Update) ([]string, error) {
	if len(updates) == 0 {
		return nil, nil
	}
	existing, err := s.GetByIDs(ctx, idsOfUpdates(updates))
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.Memory, len(existing))
	for _, m := range existing {
		byID[m.ID] = m
	}

	var notFound []string
	var ids []string
	var docs []string
	var embeddings [][]float32
	var metadatas []map[string]any
	now := time.Now().UTC()
	for _, u := range updates {
		m, ok := byID[u.ID]
		if !ok {
			notFound = append(notFound, u.ID)
			continue
		}
		ids = append(ids, u.ID)
		docs = append(docs, u.Document)
		embeddings = append(embeddings, u.Embedding)
		metadatas = append(metadatas, metadataToMap(m.Metadata, m.CreatedAt, now))
	}
	if len(ids) == 0 {
		return notFound, nil
	}
	body := map[string]any{
		"ids":        ids,
		"documents":  docs,
		"embeddings": embeddings,
		"metadatas":  metadatas,
	}
	if err := s.post(ctx, s.collectionPath("/upsert"), body, nil); err != nil {
		return nil, err
	}
	return notFound, nil
}

func (s *Store) Delete(ctx context.Context, ids []string) ([]string, error) {
	existing, err := s.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	found := make(map[string]bool, len(existing))
	for _, m := range existing {
		found[m.ID] = true
	}
	var notFound []string
	var toDelete []string
	for _, id := range ids {
		if found[id] {
			toDelete = append(toDelete, id)
		} else {
			notFound = append(notFound, id)
		}
	}
	if len(toDelete) == 0 {
		return notFound, nil
	}
	body := map[string]any{"ids": toDelete}
	if err := s.post(ctx, s.collectionPath("/delete"), body, nil); err != nil {
		return nil, err
	}
	return notFound, nil
}

func (s *Store) GetByIDs(ctx context.Context, ids []string) ([]model.Memory, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	body := map[string]any{
		"ids":     ids,
		"include": []string{"documents", "embeddings", "metadatas"},
	}
	var resp getResponse
	if err := s.post(ctx, s.collectionPath("/get"), body, &resp); err != nil {
		return nil, err
	}
	return resp.toMemories(), nil
}

// QueryByFilter returns up to limit memories matching f in the order the
// Chroma server returns them; results are not sorted by creation time.
func (s *Store) QueryByFilter(ctx context.Context, f vectorstore.Filter, limit int) ([]model.Memory, error) {
	body := map[string]any{
		"where":   whereClause(f),
		"limit":   limitOrDefault(limit),
		"include": []string{"documents", "embeddings", "metadatas"},
	}
	var resp getResponse
	if err := s.post(ctx, s.collectionPath("/get"), body, &resp); err != nil {
		return nil, err
	}
	return resp.toMemories(), nil
}

func (s *Store) QueryBySimilarity(ctx context.Context, queries [][]float32, f vectorstore.Filter, limit int) ([][]vectorstore.Scored, error) {
	body := map[string]any{
		"query_embeddings": queries,
		"n_results":        limitOrDefault(limit),
		"where":            whereClause(f),
		"include":          []string{"documents", "metadatas", "distances"},
	}
	var resp queryResponse
	if err := s.post(ctx, s.collectionPath("/query"), body, &resp); err != nil {
		return nil, err
	}
	return resp.toScoredGroups(), nil
}

func (s *Store) Close() error { return nil }

func (s *Store) collectionPath(suffix string) string {
	return fmt.Sprintf("/api/v1/collections/%s%s", s.collection, suffix)
}

func (s *Store) post(ctx context.Context, path string, reqBody any, respBody any) error {
	data, err := json.Marshal(reqBody)
	if err != nil {
		return errs.Invalid("failed to marshal chroma request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return errs.API_("failed to build chroma request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errs.RetryableErr("chroma request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		b, _ := io.ReadAll(resp.Body)
		return errs.RetryableErr(fmt.Sprintf("chroma returned %d: %s", resp.StatusCode, b), nil)
	}
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return errs.Database(fmt.Sprintf("chroma returned %d: %s", resp.StatusCode, b), nil)
	}
	if respBody == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return errs.Database("failed to decode chroma response", err)
	}
	return nil
}

type getResponse struct {
	IDs        []string         `json:"ids"`
	Documents  []string         `json:"documents"`
	Embeddings [][]float32      `json:"embeddings"`
	Metadatas  []map[string]any `json:"metadatas"`
}

func (r getResponse) toMemories() []model.Memory {
	out := make([]model.Memory, 0, len(r.IDs))
	for i, id := range r.IDs {
		m := model.Memory{ID: id, Document: r.Documents[i]}
		if i < len(r.Embeddings) {
			m.Embedding = r.Embeddings[i]
		}
		if i < len(r.Metadatas) {
			applyMetadata(&m, r.Metadatas[i])
		}
		out = append(out, m)
	}
	return out
}

type queryResponse struct {
	IDs       [][]string         `json:"ids"`
	Documents [][]string         `json:"documents"`
	Metadatas [][]map[string]any `json:"metadatas"`
	Distances [][]float32        `json:"distances"`
}

func (r queryResponse) toScoredGroups() [][]vectorstore.Scored {
	out := make([][]vectorstore.Scored, len(r.IDs))
	for qi := range r.IDs {
		group := make([]vectorstore.Scored, len(r.IDs[qi]))
		for i, id := range r.IDs[qi] {
			m := model.Memory{ID: id}
			if qi < len(r.Documents) && i < len(r.Documents[qi]) {
				m.Document = r.Documents[qi][i]
			}
			if qi < len(r.Metadatas) && i < len(r.Metadatas[qi]) {
				applyMetadata(&m, r.Metadatas[qi][i])
			}
			sim := float32(1)
			if qi < len(r.Distances) && i < len(r.Distances[qi]) {
				sim = clamp01(1 - r.Distances[qi][i])
			}
			group[i] = vectorstore.Scored{Memory: m, Similarity: sim}
		}
		out[qi] = group
	}
	return out
}

func applyMetadata(m *model.Memory, md map[string]any) {
	m.Metadata.UserID, _ = md["user_id"].(string)
	m.Metadata.AppID, _ = md["app_id"].(string)
	m.Metadata.SessionID, _ = md["session_id"].(string)
	m.Metadata.AgentName, _ = md["agent_name"].(string)
	if v, ok := md["created_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			m.CreatedAt = t
		}
	}
	if v, ok := md["updated_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			m.UpdatedAt = t
		}
	}
}

func metadataToMap(md model.MemoryMetadata, created, updated time.Time) map[string]any {
	return map[string]any{
		"user_id":    md.UserID,
		"app_id":     md.AppID,
		"session_id": md.SessionID,
		"agent_name": md.AgentName,
		"created_at": created.Format(time.RFC3339),
		"updated_at": updated.Format(time.RFC3339),
	}
}

func whereClause(f vectorstore.Filter) map[string]any {
	var conds []map[string]any
	add := func(field, val string) {
		if val != "" {
			conds = append(conds, map[string]any{field: val})
		}
	}
	add("user_id", f.UserID)
	add("app_id", f.AppID)
	add("session_id", f.SessionID)
	add("agent_name", f.AgentName)
	switch len(conds) {
	case 0:
		return nil
	case 1:
		return conds[0]
	default:
		return map[string]any{"$and": conds}
	}
}

func idsOfUpdates(updates []vectorstore.Update) []string {
	ids := make([]string, len(updates))
	for i, u := range updates {
		ids[i] = u.ID
	}
	return ids
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
