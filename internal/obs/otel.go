package obs

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// OtelTracer wraps an OpenTelemetry trace.Tracer: an OTLP gRPC exporter,
// resource.Merge with the service name, a batched span processor, and
// AlwaysSample.
type OtelTracer struct {
	tracer trace.Tracer
	tp     *sdktrace.TracerProvider
}

// NewOtelTracer connects to an OTLP collector at endpoint and registers a
// TracerProvider for serviceName. headers holds the key/value pairs parsed
// from OTEL_EXPORTER_OTLP_HEADERS.
func NewOtelTracer(ctx context.Context, serviceName, endpoint string, headers map[string]string) (*OtelTracer, error) {
	exporterOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	}
	if len(headers) > 0 {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithHeaders(headers))
	}

	exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	return &OtelTracer{tracer: tp.Tracer(serviceName), tp: tp}, nil
}

// Shutdown flushes and closes the exporter.
func (t *OtelTracer) Shutdown(ctx context.Context) error {
	return t.tp.Shutdown(ctx)
}

func (t *OtelTracer) StartSpan(ctx context.Context, name string, kind Kind) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("span.kind", string(kind)),
	))
	return ctx, otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) SetAttribute(key string, value any) {
	s.span.SetAttributes(attribute.String(key, Truncate(stringify(value))))
}

func (s otelSpan) RecordError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func (s otelSpan) End() { s.span.End() }

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return toString(v)
}

func toString(v any) string {
	type stringer interface{ String() string }
	if s, ok := v.(stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", v)
}
