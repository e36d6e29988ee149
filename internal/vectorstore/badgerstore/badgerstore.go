// Package badgerstore implements the chroma_lite vector store variant: an
// embedded, file-backed collection using BadgerDB with one key prefix per
// collection, a prefix-iterator scan for filter/similarity queries, and a
// brute-force cosine ranking pass for QueryBySimilarity.
package badgerstore

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/memoryvault/memoryvault/internal/errs"
	"github.com/memoryvault/memoryvault/internal/model"
	"github.com/memoryvault/memoryvault/internal/vectorstore"
)

// Store is the chroma_lite adapter.
type Store struct {
	db         *badger.DB
	collection string
}

// Open creates (or opens) a Badger database at dir and scopes all keys to
// collection. dir supports a leading "~/" for the caller's home directory.
func Open(dir, collection string) (*Store, error) {
	if err := vectorstore.ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	opts := badger.DefaultOptions(expandPath(dir)).WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errs.Database("failed to open badger store", err)
	}
	return &Store{db: db, collection: collection}, nil
}

func (s *Store) key(id string) []byte {
	return []byte(fmt.Sprintf("mem:%s:%s", s.collection, id))
}

func (s *Store) prefix() []byte {
	return []byte(fmt.Sprintf("mem:%s:", s.collection))
}

// Setup is idempotent: Badger's Open already created the collection's
// keyspace (a bare prefix, not a physical table), so there is nothing
// further to initialize.
func (s *Store) Setup(ctx context.Context) error { return nil }

func (s *Store) Add(ctx context.Context, memories []model.Memory) error {
	now := time.Now().UTC()
	return s.db.Update(func(txn *badger.Txn) error {
		for _, m := range memories {
			if m.CreatedAt.IsZero() {
				m.CreatedAt = now
			}
			m.UpdatedAt = now
			data, err := json.Marshal(m)
			if err != nil {
				return errs.Database("failed to marshal memory", err)
			}
			if err := txn.Set(s.key(m.ID), data); err != nil {
				return errs.Database("failed to write memory", err)
			}
		}
		return nil
	})
}

func (s *Store) Update(ctx context.Context, updates []vectorstore.Update) ([]string, error) {
	var notFound []string
	now := time.Now().UTC()
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, u := range updates {
			item, err := txn.Get(s.key(u.ID))
			if err == badger.ErrKeyNotFound {
				notFound = append(notFound, u.ID)
				continue
			}
			if err != nil {
				return errs.Database("failed to read memory", err)
			}
			var m model.Memory
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &m) }); err != nil {
				return errs.Database("failed to decode memory", err)
			}
			m.Document = u.Document
			m.Embedding = u.Embedding
			m.UpdatedAt = now
			data, err := json.Marshal(m)
			if err != nil {
				return errs.Database("failed to marshal memory", err)
			}
			if err := txn.Set(s.key(u.ID), data); err != nil {
				return errs.Database("failed to write memory", err)
			}
		}
		return nil
	})
	return notFound, err
}

func (s *Store) Delete(ctx context.Context, ids []string) ([]string, error) {
	var notFound []string
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, id := range ids {
			_, err := txn.Get(s.key(id))
			if err == badger.ErrKeyNotFound {
				notFound = append(notFound, id)
				continue
			}
			if err != nil {
				return errs.Database("failed to read memory", err)
			}
			if err := txn.Delete(s.key(id)); err != nil {
				return errs.Database("failed to delete memory", err)
			}
		}
		return nil
	})
	return notFound, err
}

func (s *Store) GetByIDs(ctx context.Context, ids []string) ([]model.Memory, error) {
	var out []model.Memory
	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			item, err := txn.Get(s.key(id))
			if err == badger.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return errs.Database("failed to read memory", err)
			}
			var m model.Memory
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &m) }); err != nil {
				return errs.Database("failed to decode memory", err)
			}
			out = append(out, m)
		}
		return nil
	})
	return out, err
}

func (s *Store) scanAll(txn *badger.Txn, visit func(model.Memory)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = s.prefix()
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		err := item.Value(func(val []byte) error {
			var m model.Memory
			if err := json.Unmarshal(val, &m); err != nil {
				return nil // tolerate and skip malformed entries rather than aborting the scan
			}
			visit(m)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) QueryByFilter(ctx context.Context, f vectorstore.Filter, limit int) ([]model.Memory, error) {
	var out []model.Memory
	err := s.db.View(func(txn *badger.Txn) error {
		return s.scanAll(txn, func(m model.Memory) {
			if f.Match(m.Metadata) {
				out = append(out, m)
			}
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) QueryBySimilarity(ctx context.Context, queries [][]float32, f vectorstore.Filter, limit int) ([][]vectorstore.Scored, error) {
	var candidates []model.Memory
	err := s.db.View(func(txn *badger.Txn) error {
		return s.scanAll(txn, func(m model.Memory) {
			if f.Match(m.Metadata) {
				candidates = append(candidates, m)
			}
		})
	})
	if err != nil {
		return nil, err
	}

	results := make([][]vectorstore.Scored, len(queries))
	for qi, q := range queries {
		scored := make([]vectorstore.Scored, 0, len(candidates))
		for _, m := range candidates {
			scored = append(scored, vectorstore.Scored{Memory: m, Similarity: cosineSimilarity(q, m.Embedding)})
		}
		sort.Slice(scored, func(i, j int) bool { return scored[i].Similarity > scored[j].Similarity })
		if limit > 0 && len(scored) > limit {
			scored = scored[:limit]
		}
		results[qi] = scored
	}
	return results, nil
}

func (s *Store) Close() error { return s.db.Close() }

// cosineSimilarity returns a value in [0,1] by clamping the standard
// cosine similarity, which can be negative for arbitrary embeddings.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(magA) * math.Sqrt(magB))
	if sim < 0 {
		sim = 0
	}
	if sim > 1 {
		sim = 1
	}
	return float32(sim)
}

// expandPath expands a leading "~/" to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}
