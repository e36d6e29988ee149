// Package obs implements the observability layer: a small Tracer/Span
// abstraction with a noop implementation (default) and an OpenTelemetry
// implementation, following an OTLP-gRPC-exporter, span-per-operation
// decorator pattern with span.RecordError on failure.
package obs

import "context"

// Kind classifies a span: CHAIN for top-level service operations, DB for
// vector store calls, LLM/EMBEDDING for provider calls, BACKGROUND for
// anything off the request path.
type Kind string

const (
	KindChain      Kind = "CHAIN"
	KindDB         Kind = "DB"
	KindLLM        Kind = "LLM"
	KindEmbedding  Kind = "EMBEDDING"
	KindBackground Kind = "BACKGROUND"
)

// Span is the live handle returned by StartSpan. Callers must call End
// exactly once, typically via defer.
type Span interface {
	SetAttribute(key string, value any)
	RecordError(err error)
	End()
}

// Tracer starts spans. The noop implementation is used when ENABLE_OTEL
// is unset; Generate/Create/etc. are identical either way, so the rest of
// the codebase never branches on whether tracing is active.
type Tracer interface {
	StartSpan(ctx context.Context, name string, kind Kind) (context.Context, Span)
}

// maxFieldLen caps any single string attribute recorded on a span so a
// long prompt or document never bloats span storage.
const maxFieldLen = 4000

// Truncate caps s to maxFieldLen, appending a marker if it was cut.
func Truncate(s string) string {
	if len(s) <= maxFieldLen {
		return s
	}
	return s[:maxFieldLen] + "...(truncated)"
}
