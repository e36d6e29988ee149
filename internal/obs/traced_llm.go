package obs

import (
	"context"

	"github.com/memoryvault/memoryvault/internal/llmprovider"
)

// TracedLLM wraps an llmprovider.Provider so every call gets an LLM-kind
// span carrying the flattened, length-capped input/output.
type TracedLLM struct {
	inner  llmprovider.Provider
	tracer Tracer
	model  string
}

// WrapLLM instruments an LLM provider with tracing.
func WrapLLM(inner llmprovider.Provider, tracer Tracer, model string) *TracedLLM {
	return &TracedLLM{inner: inner, tracer: tracer, model: model}
}

func (t *TracedLLM) Generate(ctx context.Context, systemInstruction, userMessage string, responseSchema []byte) (string, error) {
	ctx, span := t.tracer.StartSpan(ctx, "llm.generate", KindLLM)
	defer span.End()
	span.SetAttribute("llm.model", t.model)
	span.SetAttribute("llm.input", userMessage)

	out, err := t.inner.Generate(ctx, systemInstruction, userMessage, responseSchema)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	span.SetAttribute("llm.output", out)
	return out, nil
}
