package obs

import (
	"context"
	"strconv"

	"github.com/memoryvault/memoryvault/internal/model"
	"github.com/memoryvault/memoryvault/internal/vectorstore"
)

// TracedStore wraps a vectorstore.Store so every call gets a DB-kind span.
// Embeddings and raw documents are never attached to a span attribute;
// only shapes (counts, ids) are recorded.
type TracedStore struct {
	inner  vectorstore.Store
	tracer Tracer
}

// WrapStore instruments a vector store with tracing.
func WrapStore(inner vectorstore.Store, tracer Tracer) *TracedStore {
	return &TracedStore{inner: inner, tracer: tracer}
}

func (t *TracedStore) Setup(ctx context.Context) error {
	ctx, span := t.tracer.StartSpan(ctx, "vectorstore.setup", KindDB)
	defer span.End()
	err := t.inner.Setup(ctx)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (t *TracedStore) Add(ctx context.Context, memories []model.Memory) error {
	ctx, span := t.tracer.StartSpan(ctx, "vectorstore.add", KindDB)
	defer span.End()
	span.SetAttribute("db.count", strconv.Itoa(len(memories)))
	err := t.inner.Add(ctx, memories)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (t *TracedStore) Update(ctx context.Context, updates []vectorstore.Update) ([]string, error) {
	ctx, span := t.tracer.StartSpan(ctx, "vectorstore.update", KindDB)
	defer span.End()
	span.SetAttribute("db.count", strconv.Itoa(len(updates)))
	notFound, err := t.inner.Update(ctx, updates)
	if err != nil {
		span.RecordError(err)
	}
	return notFound, err
}

func (t *TracedStore) Delete(ctx context.Context, ids []string) ([]string, error) {
	ctx, span := t.tracer.StartSpan(ctx, "vectorstore.delete", KindDB)
	defer span.End()
	span.SetAttribute("db.count", strconv.Itoa(len(ids)))
	notFound, err := t.inner.Delete(ctx, ids)
	if err != nil {
		span.RecordError(err)
	}
	return notFound, err
}

func (t *TracedStore) GetByIDs(ctx context.Context, ids []string) ([]model.Memory, error) {
	ctx, span := t.tracer.StartSpan(ctx, "vectorstore.get_by_ids", KindDB)
	defer span.End()
	span.SetAttribute("db.count", strconv.Itoa(len(ids)))
	out, err := t.inner.GetByIDs(ctx, ids)
	if err != nil {
		span.RecordError(err)
	}
	return out, err
}

func (t *TracedStore) QueryByFilter(ctx context.Context, f vectorstore.Filter, limit int) ([]model.Memory, error) {
	ctx, span := t.tracer.StartSpan(ctx, "vectorstore.query_by_filter", KindDB)
	defer span.End()
	out, err := t.inner.QueryByFilter(ctx, f, limit)
	if err != nil {
		span.RecordError(err)
	}
	return out, err
}

func (t *TracedStore) QueryBySimilarity(ctx context.Context, queries [][]float32, f vectorstore.Filter, limit int) ([][]vectorstore.Scored, error) {
	ctx, span := t.tracer.StartSpan(ctx, "vectorstore.query_by_similarity", KindDB)
	defer span.End()
	span.SetAttribute("db.query_count", strconv.Itoa(len(queries)))
	out, err := t.inner.QueryBySimilarity(ctx, queries, f, limit)
	if err != nil {
		span.RecordError(err)
	}
	return out, err
}

func (t *TracedStore) Close() error { return t.inner.Close() }
