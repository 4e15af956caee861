package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Eviction reasons reported through CacheMetrics.RecordEvictions.
const (
	ReasonPassive = "passive" // expired entry found on read
	ReasonReaper  = "reaper"  // background sweep
	ReasonRefresh = "refresh" // on-demand sweep
	ReasonDelete  = "delete"
	ReasonFlush   = "flush"
)

// CacheMetrics records cache activity.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly; recording never blocks on export.
// - Errors: implementations must not panic.
type CacheMetrics interface {
	// RecordLookup records a read as a hit or a miss.
	RecordLookup(ctx context.Context, meta Meta, hit bool)

	// RecordSet records a write attempt; stored is false for rejected writes.
	RecordSet(ctx context.Context, meta Meta, stored bool)

	// RecordEvictions records n entries removed for reason.
	RecordEvictions(ctx context.Context, meta Meta, reason string, n int)

	// RecordSweep records one maintenance sweep with its duration and error status.
	RecordSweep(ctx context.Context, meta Meta, duration time.Duration, err error)
}

type metricsImpl struct {
	hits         metric.Int64Counter
	misses       metric.Int64Counter
	sets         metric.Int64Counter
	evictions    metric.Int64Counter
	sweeps       metric.Int64Counter
	sweepErrors  metric.Int64Counter
	sweepLatency metric.Float64Histogram
}

// NewCacheMetrics creates CacheMetrics backed by meter.
func NewCacheMetrics(meter metric.Meter) (CacheMetrics, error) {
	m := &metricsImpl{}
	var err error

	if m.hits, err = meter.Int64Counter("cache.hits",
		metric.WithDescription("Reads that returned a live entry"),
		metric.WithUnit("{lookup}"),
	); err != nil {
		return nil, err
	}
	if m.misses, err = meter.Int64Counter("cache.misses",
		metric.WithDescription("Reads of unknown or expired keys"),
		metric.WithUnit("{lookup}"),
	); err != nil {
		return nil, err
	}
	if m.sets, err = meter.Int64Counter("cache.sets",
		metric.WithDescription("Write attempts, partitioned by outcome"),
		metric.WithUnit("{write}"),
	); err != nil {
		return nil, err
	}
	if m.evictions, err = meter.Int64Counter("cache.evictions",
		metric.WithDescription("Entries removed, partitioned by reason"),
		metric.WithUnit("{entry}"),
	); err != nil {
		return nil, err
	}
	if m.sweeps, err = meter.Int64Counter("cache.sweep.total",
		metric.WithDescription("Maintenance sweeps run"),
		metric.WithUnit("{sweep}"),
	); err != nil {
		return nil, err
	}
	if m.sweepErrors, err = meter.Int64Counter("cache.sweep.errors",
		metric.WithDescription("Maintenance sweeps that faulted"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}
	if m.sweepLatency, err = meter.Float64Histogram("cache.sweep.duration_ms",
		metric.WithDescription("Maintenance sweep duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *metricsImpl) RecordLookup(ctx context.Context, meta Meta, hit bool) {
	opt := metric.WithAttributes(meta.attributes()...)
	if hit {
		m.hits.Add(ctx, 1, opt)
		return
	}
	m.misses.Add(ctx, 1, opt)
}

func (m *metricsImpl) RecordSet(ctx context.Context, meta Meta, stored bool) {
	attrs := append(meta.attributes(), attribute.Bool("cache.stored", stored))
	m.sets.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metricsImpl) RecordEvictions(ctx context.Context, meta Meta, reason string, n int) {
	if n <= 0 {
		return
	}
	attrs := append(meta.attributes(), attribute.String("cache.reason", reason))
	m.evictions.Add(ctx, int64(n), metric.WithAttributes(attrs...))
}

func (m *metricsImpl) RecordSweep(ctx context.Context, meta Meta, duration time.Duration, err error) {
	opt := metric.WithAttributes(meta.attributes()...)
	m.sweeps.Add(ctx, 1, opt)
	if err != nil {
		m.sweepErrors.Add(ctx, 1, opt)
	}
	m.sweepLatency.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

type noopMetrics struct{}

// NoopMetrics returns CacheMetrics that record nothing.
func NoopMetrics() CacheMetrics { return noopMetrics{} }

func (noopMetrics) RecordLookup(context.Context, Meta, bool)                {}
func (noopMetrics) RecordSet(context.Context, Meta, bool)                   {}
func (noopMetrics) RecordEvictions(context.Context, Meta, string, int)      {}
func (noopMetrics) RecordSweep(context.Context, Meta, time.Duration, error) {}
