package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Common operation names.
const (
	OpSweep   = "sweep"   // background reaper scan
	OpRefresh = "refresh" // on-demand active sweep
	OpEvict   = "evict"
)

// Meta identifies a cache instance and operation for telemetry.
type Meta struct {
	Cache string // instance name
	Op    string // operation, e.g. OpSweep
}

// SpanName returns the span name for this operation.
// Format: cache.<op>
func (m Meta) SpanName() string {
	if m.Op == "" {
		return "cache"
	}
	return "cache." + m.Op
}

func (m Meta) attributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if m.Cache != "" {
		attrs = append(attrs, attribute.String("cache.name", m.Cache))
	}
	if m.Op != "" {
		attrs = append(attrs, attribute.String("cache.op", m.Op))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing for cache maintenance operations.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for the operation in meta.
	StartSpan(ctx context.Context, meta Meta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta Meta) (context.Context, trace.Span) {
	attrs := append(meta.attributes(), attribute.Bool("cache.error", false))
	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("cache.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

// NoopTracer returns a tracer that records nothing.
func NoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta Meta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
