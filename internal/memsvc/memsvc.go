// Package memsvc implements the Memory Service: orchestrates the
// extractor, consolidator, embedding provider, and vector store, enforcing
// the fixed adds-then-updates-then-deletes plan-application order.
package memsvc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/memoryvault/memoryvault/internal/consolidate"
	"github.com/memoryvault/memoryvault/internal/embedprovider"
	"github.com/memoryvault/memoryvault/internal/errs"
	"github.com/memoryvault/memoryvault/internal/extract"
	"github.com/memoryvault/memoryvault/internal/model"
	"github.com/memoryvault/memoryvault/internal/vectorstore"
)

// NeighborLimit caps how many semantically-nearest existing memories are
// fetched per new fact before consolidation.
const NeighborLimit = 3

// Service orchestrates the embedding provider, vector store, extractor,
// and consolidator behind the seven public memory operations. It holds only
// references to its collaborators and is therefore safe for concurrent
// use by many in-flight HTTP requests.
type Service struct {
	store     vectorstore.Store
	embedder  embedprovider.Provider
	extractor *extract.Extractor
	consolid  *consolidate.Consolidator
	log       *zap.Logger
}

// New constructs the Memory Service over an already-initialized store,
// embedding provider, extractor, and consolidator.
func New(store vectorstore.Store, embedder embedprovider.Provider, extractor *extract.Extractor, consolidator *consolidate.Consolidator, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:     store,
		embedder:  embedder,
		extractor: extractor,
		consolid:  consolidator,
		log:       log,
	}
}

// Close releases the underlying store's resources.
func (s *Service) Close() error {
	return s.store.Close()
}

// Generate implements POST /memories/generate: extract facts from a
// conversation, consolidate them against existing neighbors, and apply
// the resulting plan.
func (s *Service) Generate(ctx context.Context, messages []model.Message, md model.MemoryMetadata) ([]model.ActionConfirmation, error) {
	facts, err := s.extractor.Extract(ctx, messages)
	if err != nil {
		return nil, err
	}
	if len(facts) == 0 {
		return []model.ActionConfirmation{}, nil
	}
	return s.consolidateAndApply(ctx, facts, md)
}

// Create implements POST /memories/create: consolidate the given
// documents as if they were already-extracted facts.
func (s *Service) Create(ctx context.Context, documents []string, md model.MemoryMetadata) ([]model.ActionConfirmation, error) {
	if len(documents) == 0 {
		return nil, errs.Invalid("documents must be non-empty")
	}
	return s.consolidateAndApply(ctx, documents, md)
}

func (s *Service) consolidateAndApply(ctx context.Context, facts []string, md model.MemoryMetadata) ([]model.ActionConfirmation, error) {
	vectors, err := s.embedder.Generate(ctx, facts)
	if err != nil {
		return nil, err
	}

	filter := filterFromMetadata(md)
	groups, err := s.store.QueryBySimilarity(ctx, vectors, filter, NeighborLimit)
	if err != nil {
		return nil, err
	}
	neighbors := consolidate.DeduplicateNeighbors(groups)

	plan, err := s.consolid.Plan(ctx, facts, neighbors)
	if err != nil {
		return nil, err
	}

	return s.applyPlan(ctx, plan, md)
}

// applyPlan partitions the plan into adds/updates/deletes and executes
// them sequentially in that order. Already-applied groups are not rolled
// back if a later group fails: the error surfaces and the partial
// application is noted in logs (see DESIGN.md for the rationale).
func (s *Service) applyPlan(ctx context.Context, plan []model.ConsolidationPlanItem, md model.MemoryMetadata) ([]model.ActionConfirmation, error) {
	var adds []string
	var updates []model.ConsolidationPlanItem
	var deletes []string

	for _, item := range plan {
		switch item.Action {
		case model.ActionCreate:
			adds = append(adds, item.Text)
		case model.ActionUpdate:
			updates = append(updates, item)
		case model.ActionDelete:
			deletes = append(deletes, item.ID)
		case model.ActionNoop:
			// nothing to apply
		}
	}

	var confirmations []model.ActionConfirmation

	if len(adds) > 0 {
		created, err := s.applyAdds(ctx, adds, md)
		if err != nil {
			s.log.Error("plan application failed during adds", zap.Int("applied_so_far", len(confirmations)), zap.Error(err))
			return confirmations, err
		}
		confirmations = append(confirmations, created...)
	}

	if len(updates) > 0 {
		updated, err := s.applyUpdates(ctx, updates)
		if err != nil {
			s.log.Error("plan application failed during updates", zap.Int("applied_so_far", len(confirmations)), zap.Error(err))
			return confirmations, err
		}
		confirmations = append(confirmations, updated...)
	}

	if len(deletes) > 0 {
		deleted, err := s.applyDeletes(ctx, deletes)
		if err != nil {
			s.log.Error("plan application failed during deletes", zap.Int("applied_so_far", len(confirmations)), zap.Error(err))
			return confirmations, err
		}
		confirmations = append(confirmations, deleted...)
	}

	return confirmations, nil
}

func (s *Service) applyAdds(ctx context.Context, texts []string, md model.MemoryMetadata) ([]model.ActionConfirmation, error) {
	vectors, err := s.embedder.Generate(ctx, texts)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	memories := make([]model.Memory, len(texts))
	confirmations := make([]model.ActionConfirmation, len(texts))
	for i, text := range texts {
		id := uuid.NewString()
		memories[i] = model.Memory{
			ID:        id,
			Document:  text,
			Embedding: vectors[i],
			Metadata:  md,
			CreatedAt: now,
			UpdatedAt: now,
		}
		confirmations[i] = model.ActionConfirmation{ID: id, Document: text, Status: model.StatusCreated}
	}
	if err := s.store.Add(ctx, memories); err != nil {
		return nil, err
	}
	return confirmations, nil
}

func (s *Service) applyUpdates(ctx context.Context, items []model.ConsolidationPlanItem) ([]model.ActionConfirmation, error) {
	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Text
	}
	vectors, err := s.embedder.Generate(ctx, texts)
	if err != nil {
		return nil, err
	}

	updates := make([]vectorstore.Update, len(items))
	for i, item := range items {
		updates[i] = vectorstore.Update{ID: item.ID, Document: item.Text, Embedding: vectors[i]}
	}
	notFound, err := s.store.Update(ctx, updates)
	if err != nil {
		return nil, err
	}
	return confirmationsFor(items, notFound, model.StatusUpdated), nil
}

func (s *Service) applyDeletes(ctx context.Context, ids []string) ([]model.ActionConfirmation, error) {
	notFound, err := s.store.Delete(ctx, ids)
	if err != nil {
		return nil, err
	}
	notFoundSet := toSet(notFound)
	out := make([]model.ActionConfirmation, len(ids))
	for i, id := range ids {
		status := model.StatusDeleted
		if notFoundSet[id] {
			status = model.StatusNotFound
		}
		out[i] = model.ActionConfirmation{ID: id, Status: status}
	}
	return out, nil
}

// Update implements PUT /memories/update.
func (s *Service) Update(ctx context.Context, updates []model.ConsolidationPlanItem) ([]model.ActionConfirmation, error) {
	return s.applyUpdates(ctx, updates)
}

// Delete implements DELETE /memories/delete_by_id.
func (s *Service) Delete(ctx context.Context, ids []string) ([]model.ActionConfirmation, error) {
	return s.applyDeletes(ctx, ids)
}

// GetByIDs implements POST /memories/get_by_ids.
func (s *Service) GetByIDs(ctx context.Context, ids []string) ([]model.MemoryResponse, error) {
	memories, err := s.store.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return toResponses(memories), nil
}

// SearchByMetadata implements GET /memories.
func (s *Service) SearchByMetadata(ctx context.Context, filter vectorstore.Filter, limit int) ([]model.MemoryResponse, error) {
	memories, err := s.store.QueryByFilter(ctx, filter, limit)
	if err != nil {
		return nil, err
	}
	return toResponses(memories), nil
}

// SearchSimilar implements GET /memories/similar. Accepts one or more
// query texts, embeds them in a single batch call, queries the adapter,
// and flattens the per-query result groups into one list: group-by-query
// order, ranked within each group.
func (s *Service) SearchSimilar(ctx context.Context, queryTexts []string, filter vectorstore.Filter, limit int) ([]model.MemoryResponse, error) {
	if len(queryTexts) == 0 {
		return nil, errs.Invalid("query must be non-empty")
	}
	vectors, err := s.embedder.Generate(ctx, queryTexts)
	if err != nil {
		return nil, err
	}
	groups, err := s.store.QueryBySimilarity(ctx, vectors, filter, limit)
	if err != nil {
		return nil, err
	}

	var out []model.MemoryResponse
	for _, group := range groups {
		for _, scored := range group {
			sim := scored.Similarity
			out = append(out, scored.Memory.ToResponse(&sim))
		}
	}
	return out, nil
}

func toResponses(memories []model.Memory) []model.MemoryResponse {
	out := make([]model.MemoryResponse, len(memories))
	for i, m := range memories {
		out[i] = m.ToResponse(nil)
	}
	return out
}

func confirmationsFor(items []model.ConsolidationPlanItem, notFound []string, status model.ConfirmationStatus) []model.ActionConfirmation {
	notFoundSet := toSet(notFound)
	out := make([]model.ActionConfirmation, len(items))
	for i, item := range items {
		s := status
		if notFoundSet[item.ID] {
			s = model.StatusNotFound
		}
		out[i] = model.ActionConfirmation{ID: item.ID, Document: item.Text, Status: s}
	}
	return out
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func filterFromMetadata(md model.MemoryMetadata) vectorstore.Filter {
	return vectorstore.Filter{UserID: md.UserID, AppID: md.AppID, SessionID: md.SessionID, AgentName: md.AgentName}
}
