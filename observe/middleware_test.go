package observe

import (
	"bytes"
	"context"
	"errors"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type middlewareHarness struct {
	mw     *Middleware
	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader
	logs   *bytes.Buffer
}

func newMiddlewareHarness(t *testing.T, level string) middlewareHarness {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	m, reader := newTestMetrics(t)
	var buf bytes.Buffer
	return middlewareHarness{
		mw:     NewMiddleware(NewTracer(tp.Tracer("test")), m, NewLoggerWithWriter(level, &buf)),
		spans:  sr,
		reader: reader,
		logs:   &buf,
	}
}

func TestMiddleware_Success(t *testing.T) {
	h := newMiddlewareHarness(t, "debug")
	called := false

	wrapped := h.mw.Wrap(func(ctx context.Context, meta Meta) error {
		called = true
		return nil
	})
	if err := wrapped(context.Background(), Meta{Cache: "users", Op: OpSweep}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("wrapped function not called")
	}

	if got := len(h.spans.Ended()); got != 1 {
		t.Errorf("expected 1 span, got %d", got)
	}
	rm := collect(t, h.reader)
	if got := sumOf(t, rm, "cache.sweep.total"); got != 1 {
		t.Errorf("cache.sweep.total = %d, want 1", got)
	}
	if got := sumOf(t, rm, "cache.sweep.errors"); got != 0 {
		t.Errorf("cache.sweep.errors = %d, want 0", got)
	}

	entries := decodeLines(t, h.logs)
	if len(entries) != 1 || entries[0]["level"] != "debug" {
		t.Fatalf("expected one debug entry, got %v", entries)
	}
	if entries[0]["cache.name"] != "users" {
		t.Errorf("cache.name = %v", entries[0]["cache.name"])
	}
}

func TestMiddleware_ErrorPassesThrough(t *testing.T) {
	h := newMiddlewareHarness(t, "info")
	want := errors.New("sweep failed")

	err := h.mw.Wrap(func(ctx context.Context, meta Meta) error {
		return want
	})(context.Background(), Meta{Cache: "users", Op: OpRefresh})
	if !errors.Is(err, want) {
		t.Fatalf("error = %v, want %v", err, want)
	}

	if got := sumOf(t, collect(t, h.reader), "cache.sweep.errors"); got != 1 {
		t.Errorf("cache.sweep.errors = %d, want 1", got)
	}
	entries := decodeLines(t, h.logs)
	if len(entries) != 1 || entries[0]["level"] != "error" {
		t.Fatalf("expected one error entry, got %v", entries)
	}
	if entries[0]["error"] != "sweep failed" {
		t.Errorf("error field = %v", entries[0]["error"])
	}
}

func TestMiddleware_SuccessQuietAtInfo(t *testing.T) {
	h := newMiddlewareHarness(t, "info")
	_ = h.mw.Wrap(func(context.Context, Meta) error { return nil })(context.Background(), Meta{Op: OpSweep})
	if h.logs.Len() != 0 {
		t.Errorf("successful sweep should not log at info: %s", h.logs.String())
	}
}

func TestMiddleware_PropagatesSpanContext(t *testing.T) {
	h := newMiddlewareHarness(t, "info")
	_ = h.mw.Wrap(func(ctx context.Context, meta Meta) error {
		_, span := NewTracer(sdktrace.NewTracerProvider().Tracer("inner")).StartSpan(ctx, Meta{Op: OpEvict})
		if !span.SpanContext().IsValid() {
			t.Error("inner span should have a valid context")
		}
		span.End()
		return nil
	})(context.Background(), Meta{Op: OpRefresh})
}

func TestNewMiddleware_NilComponents(t *testing.T) {
	mw := NewMiddleware(nil, nil, nil)
	if err := mw.Wrap(func(context.Context, Meta) error { return nil })(context.Background(), Meta{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMiddlewareFromObserver(t *testing.T) {
	if _, err := MiddlewareFromObserver(nil); !errors.Is(err, ErrNilObserver) {
		t.Fatalf("error = %v, want ErrNilObserver", err)
	}

	obs, err := NewObserver(context.Background(), Config{ServiceName: "test"})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	mw, err := MiddlewareFromObserver(obs)
	if err != nil {
		t.Fatalf("MiddlewareFromObserver() error = %v", err)
	}
	if mw == nil {
		t.Fatal("expected non-nil middleware")
	}
}
