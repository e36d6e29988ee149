// Package vectorstore defines the adapter contract every backing store
// (chroma_lite, chroma, postgres) satisfies: one pluggable collection
// abstraction over CRUD plus metadata and similarity queries.
package vectorstore

import (
	"context"
	"regexp"

	"github.com/memoryvault/memoryvault/internal/errs"
	"github.com/memoryvault/memoryvault/internal/model"
)

// collectionNamePattern is the only form a collection name may take.
// Enforced at construction so no value ever reaches a SQL statement
// unvalidated (adapters still bind all per-row values as query
// parameters; this guards the collection identifier, the one value that
// is interpolated).
var collectionNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateCollectionName rejects anything that is not a safe SQL/path
// identifier.
func ValidateCollectionName(name string) error {
	if !collectionNamePattern.MatchString(name) {
		return errs.Config("invalid collection name: "+name, nil)
	}
	return nil
}

// Filter is an equality-AND-combination over the four filterable metadata
// fields. A zero-value Filter (all fields empty) matches everything.
type Filter struct {
	UserID    string
	AppID     string
	SessionID string
	AgentName string
}

// Match reports whether md satisfies every non-empty field of f.
func (f Filter) Match(md model.MemoryMetadata) bool {
	if f.UserID != "" && md.UserID != f.UserID {
		return false
	}
	if f.AppID != "" && md.AppID != f.AppID {
		return false
	}
	if f.SessionID != "" && md.SessionID != f.SessionID {
		return false
	}
	if f.AgentName != "" && md.AgentName != f.AgentName {
		return false
	}
	return true
}

// Scored pairs a stored Memory with a similarity score in [0,1].
type Scored struct {
	Memory     model.Memory
	Similarity float32
}

// Store is the adapter contract. Add/Update/Delete are idempotent at the
// id level: re-Adding an id already present updates it in place rather
// than duplicating it.
type Store interface {
	// Setup brings the backing collection from absent to open, creating
	// it if necessary. Idempotent: calling Setup twice against the same
	// location is a no-op the second time.
	Setup(ctx context.Context) error

	// Add inserts new memories, assigning CreatedAt if unset and setting
	// UpdatedAt to the current time.
	// If an incoming Memory's ID already exists, it is updated in place.
	Add(ctx context.Context, memories []model.Memory) error

	// Update overwrites the Document and Embedding of existing memories
	// by ID, bumping UpdatedAt. IDs not present are reported via the
	// returned slice, not an error, callers translate these to
	// NOT_FOUND confirmations.
	Update(ctx context.Context, updates []Update) (notFound []string, err error)

	// Delete removes memories by ID. IDs not present are reported via
	// the returned slice, not an error.
	Delete(ctx context.Context, ids []string) (notFound []string, err error)

	// GetByIDs fetches memories by ID, preserving the order of ids.
	// Missing ids are simply absent from the result (no error).
	GetByIDs(ctx context.Context, ids []string) ([]model.Memory, error)

	// QueryByFilter returns up to limit memories matching f, most
	// recently created first.
	QueryByFilter(ctx context.Context, f Filter, limit int) ([]model.Memory, error)

	// QueryBySimilarity ranks stored memories against each query
	// embedding and returns, for every query (same order as input), the
	// top-k matches within f, sorted by similarity descending.
	QueryBySimilarity(ctx context.Context, queries [][]float32, f Filter, limit int) ([][]Scored, error)

	// Close releases any held connections/handles.
	Close() error
}

// Update describes one document replacement targeted at an existing id.
type Update struct {
	ID       string
	Document string
	// Embedding is filled in by the caller (memsvc) after a batch embed
	// call; adapters never compute embeddings themselves.
	Embedding []float32
}
