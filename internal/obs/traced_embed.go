package obs

import (
	"context"
	"strconv"

	"github.com/memoryvault/memoryvault/internal/embedprovider"
)

// TracedEmbed wraps an embedprovider.Provider so every call gets an
// EMBEDDING-kind span carrying the batch size and model name.
type TracedEmbed struct {
	inner  embedprovider.Provider
	tracer Tracer
	model  string
}

// WrapEmbed instruments an embedding provider with tracing.
func WrapEmbed(inner embedprovider.Provider, tracer Tracer, model string) *TracedEmbed {
	return &TracedEmbed{inner: inner, tracer: tracer, model: model}
}

func (t *TracedEmbed) Dimensions() int { return t.inner.Dimensions() }

func (t *TracedEmbed) Generate(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, span := t.tracer.StartSpan(ctx, "embedding.generate", KindEmbedding)
	defer span.End()
	span.SetAttribute("embedding.model", t.model)
	span.SetAttribute("embedding.batch_size", strconv.Itoa(len(texts)))

	out, err := t.inner.Generate(ctx, texts)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return out, nil
}
