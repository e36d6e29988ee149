package obs

import "context"

// NoopTracer discards every span. It is the default Tracer when
// ENABLE_OTEL is not set.
type NoopTracer struct{}

func (NoopTracer) StartSpan(ctx context.Context, name string, kind Kind) (context.Context, Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) SetAttribute(string, any) {}
func (noopSpan) RecordError(error)        {}
func (noopSpan) End()                     {}
