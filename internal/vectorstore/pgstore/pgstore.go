// Package pgstore implements the postgres vector store variant using
// pgx/v5 and pgvector's cosine operator. Every per-row value is bound as a
// query parameter; the collection name is validated against
// vectorstore.ValidateCollectionName and used only to build the table
// identifier formatted into this package's SQL statements, never
// concatenated with request-supplied data.
package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/memoryvault/memoryvault/internal/errs"
	"github.com/memoryvault/memoryvault/internal/model"
	"github.com/memoryvault/memoryvault/internal/vectorstore"
)

// Store is the postgres/pgvector adapter.
type Store struct {
	pool       *pgxpool.Pool
	collection string
	dim        int
}

// Open connects to postgres via dsn and scopes operations to one table
// named after collection.
func Open(ctx context.Context, dsn, collection string, dim int) (*Store, error) {
	if err := vectorstore.ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errs.Config("failed to create postgres pool", err)
	}
	return &Store{pool: pool, collection: collection, dim: dim}, nil
}

func (s *Store) table() string { return "memory_" + s.collection }

// Setup creates the pgvector extension, the collection's table, and its
// cosine ANN index if they do not already exist. Idempotent via
// IF NOT EXISTS; collection name was validated at Open, so it is safe to
// place directly in this DDL.
func (s *Store) Setup(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			document TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			user_id TEXT NOT NULL,
			app_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			agent_name TEXT NOT NULL,
			event_timestamp TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.table(), s.dim),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING ivfflat (embedding vector_cosine_ops)`,
			s.table(), s.table()),
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return errs.Database("postgres setup failed", err)
		}
	}
	return nil
}

func (s *Store) Add(ctx context.Context, memories []model.Memory) error {
	now := time.Now().UTC()
	query := fmt.Sprintf(`
		INSERT INTO %s (id, document, embedding, user_id, app_id, session_id, agent_name, event_timestamp, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET document=$2, embedding=$3, updated_at=$10
	`, s.table())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errs.Database("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	for _, m := range memories {
		created := m.CreatedAt
		if created.IsZero() {
			created = now
		}
		_, err := tx.Exec(ctx, query, m.ID, m.Document, vectorLiteral(m.Embedding),
			m.Metadata.UserID, m.Metadata.AppID, m.Metadata.SessionID, m.Metadata.AgentName,
			m.Metadata.EventTimestamp, created, now)
		if err != nil {
			return errs.Database("failed to insert memory", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return errs.Database("failed to commit insert", err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, updates []vectorstore.Update) ([]string, error) {
	var notFound []string
	now := time.Now().UTC()
	query := fmt.Sprintf(`UPDATE %s SET document=$1, embedding=$2, updated_at=$3 WHERE id=$4`, s.table())
	for _, u := range updates {
		tag, err := s.pool.Exec(ctx, query, u.Document, vectorLiteral(u.Embedding), now, u.ID)
		if err != nil {
			return notFound, errs.Database("failed to update memory", err)
		}
		if tag.RowsAffected() == 0 {
			notFound = append(notFound, u.ID)
		}
	}
	return notFound, nil
}

func (s *Store) Delete(ctx context.Context, ids []string) ([]string, error) {
	var notFound []string
	query := fmt.Sprintf(`DELETE FROM %s WHERE id=$1`, s.table())
	for _, id := range ids {
		tag, err := s.pool.Exec(ctx, query, id)
		if err != nil {
			return notFound, errs.Database("failed to delete memory", err)
		}
		if tag.RowsAffected() == 0 {
			notFound = append(notFound, id)
		}
	}
	return notFound, nil
}

func (s *Store) GetByIDs(ctx context.Context, ids []string) ([]model.Memory, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT id, document, user_id, app_id, session_id, agent_name, event_timestamp, created_at, updated_at FROM %s WHERE id = ANY($1)`, s.table())
	rows, err := s.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, errs.Database("failed to fetch memories", err)
	}
	defer rows.Close()

	byID := make(map[string]model.Memory)
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, errs.Database("failed to scan memory", err)
		}
		byID[m.ID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Database("failed reading memories", err)
	}

	out := make([]model.Memory, 0, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) QueryByFilter(ctx context.Context, f vectorstore.Filter, limit int) ([]model.Memory, error) {
	where, args := filterClause(f)
	query := fmt.Sprintf(`SELECT id, document, user_id, app_id, session_id, agent_name, event_timestamp, created_at, updated_at
		FROM %s %s ORDER BY created_at DESC LIMIT %s`, s.table(), where, placeholder(len(args)+1))
	args = append(args, limitOrDefault(limit))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errs.Database("failed to query memories", err)
	}
	defer rows.Close()

	var out []model.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, errs.Database("failed to scan memory", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) QueryBySimilarity(ctx context.Context, queries [][]float32, f vectorstore.Filter, limit int) ([][]vectorstore.Scored, error) {
	where, args := filterClause(f)
	embeddingParam := len(args) + 1
	query := fmt.Sprintf(`SELECT id, document, user_id, app_id, session_id, agent_name, event_timestamp, created_at, updated_at,
		1 - (embedding <=> %s) AS similarity
		FROM %s %s ORDER BY embedding <=> %s LIMIT %s`,
		placeholder(embeddingParam), s.table(), where, placeholder(embeddingParam), placeholder(embeddingParam+1))

	results := make([][]vectorstore.Scored, len(queries))
	for qi, q := range queries {
		callArgs := append(append([]any{}, args...), vectorLiteral(q), limitOrDefault(limit))
		rows, err := s.pool.Query(ctx, query, callArgs...)
		if err != nil {
			return nil, errs.Database("failed to query by similarity", err)
		}
		var scored []vectorstore.Scored
		for rows.Next() {
			var m model.Memory
			var sim float64
			if err := rows.Scan(&m.ID, &m.Document, &m.Metadata.UserID, &m.Metadata.AppID, &m.Metadata.SessionID,
				&m.Metadata.AgentName, &m.Metadata.EventTimestamp, &m.CreatedAt, &m.UpdatedAt, &sim); err != nil {
				rows.Close()
				return nil, errs.Database("failed to scan similarity row", err)
			}
			scored = append(scored, vectorstore.Scored{Memory: m, Similarity: clamp01(float32(sim))})
		}
		rows.Close()
		results[qi] = scored
	}
	return results, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemory(rows rowScanner) (model.Memory, error) {
	var m model.Memory
	err := rows.Scan(&m.ID, &m.Document, &m.Metadata.UserID, &m.Metadata.AppID, &m.Metadata.SessionID,
		&m.Metadata.AgentName, &m.Metadata.EventTimestamp, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func filterClause(f vectorstore.Filter) (string, []any) {
	var clauses []string
	var args []any
	add := func(col, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		clauses = append(clauses, fmt.Sprintf("%s = %s", col, placeholder(len(args))))
	}
	add("user_id", f.UserID)
	add("app_id", f.AppID)
	add("session_id", f.SessionID)
	add("agent_name", f.AgentName)
	if len(clauses) == 0 {
		return "", args
	}
	where := "WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args
}

func placeholder(n int) string { return fmt.Sprintf("$%d", n) }

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

// vectorLiteral renders a pgvector literal, e.g. "[0.1,0.2,0.3]".
func vectorLiteral(v []float32) string {
	s := "["
	for i, f := range v {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("%g", f)
	}
	return s + "]"
}
