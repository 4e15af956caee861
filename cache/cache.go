package cache

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/ttlcache/observe"
)

// Cache is an in-process key-value store with per-entry TTL expiration.
//
// Contract:
// - Concurrency: all methods are safe for concurrent use.
// - Errors: reads never fail; Set reports malformed input as false and
// capacity exhaustion as ErrCapacity.
// - Lifecycle: Close stops the reaper; writes after Close return ErrClosed.
type Cache struct {
	mu      sync.Mutex
	entries map[string]record
	stats   Stats
	cfg     settings

	now func() time.Time

	meta      observe.Meta
	logger    observe.Logger
	logCloser io.Closer
	metrics   observe.CacheMetrics
	ops       *observe.Middleware

	reaper *reaper
	flight singleflight.Group

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New creates a Cache and, unless disabled, starts its reaper.
// Construction never fails: invalid configuration falls back to defaults.
func New(cfg Config) *Cache {
	return newCache(cfg, time.Now)
}

func newCache(cfg Config, now func() time.Time) *Cache {
	s := cfg.normalize()

	c := &Cache{
		entries: make(map[string]record),
		cfg:     s,
		now:     now,
		meta:    observe.Meta{Cache: s.name},
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.setupTelemetry(cfg)

	if s.reaperInterval > 0 {
		c.reaper = newReaper(s.reaperInterval, now, c.pullExpiries, c.ops, s.name)
		c.reaper.push(expiries{})

		c.wg.Add(2)
		go func() {
			defer c.wg.Done()
			c.reaper.run(c.ctx)
		}()
		go func() {
			defer c.wg.Done()
			c.applyLoop(c.ctx)
		}()
	}

	c.logger.Info(c.ctx, "cache initialized",
		observe.Field{Key: "max_keys", Value: s.maxKeys},
		observe.Field{Key: "std_ttl_ms", Value: s.stdTTL.Milliseconds()},
		observe.Field{Key: "force_string", Value: s.forceString},
		observe.Field{Key: "reaper_interval_ms", Value: s.reaperInterval.Milliseconds()},
	)
	return c
}

func (c *Cache) setupTelemetry(cfg Config) {
	logger := observe.NoopLogger()
	tracer := observe.NoopTracer()
	c.metrics = observe.NoopMetrics()

	var metricsErr error
	if obs := cfg.Observer; obs != nil {
		logger = obs.Logger()
		tracer = observe.NewTracer(obs.Tracer())
		if m, err := observe.NewCacheMetrics(obs.Meter()); err != nil {
			metricsErr = err
		} else {
			c.metrics = m
		}
	}
	if cfg.Log.Mode != "" || cfg.Log.Path != "" {
		logger, c.logCloser = observe.OpenLogger(cfg.Log)
	}

	c.logger = logger.With(c.meta)
	c.ops = observe.NewMiddleware(tracer, c.metrics, logger)

	if metricsErr != nil {
		c.logger.Warn(context.Background(), "metrics unavailable",
			observe.Field{Key: "error", Value: metricsErr.Error()})
	}
}

// Name returns the instance name used in logs and metrics.
func (c *Cache) Name() string { return c.cfg.name }

// Get returns the value stored under key.
//
// With ValueOnly the result is the bare value, otherwise an Item. Unknown,
// invalid and expired keys report false and count a miss. An expired entry
// is evicted on the spot.
func (c *Cache) Get(key any) (any, bool) {
	it, ok := c.lookup(key)
	if !ok {
		return nil, false
	}
	if c.cfg.valueOnly {
		return it.Value, true
	}
	return it, true
}

// GetItem is Get with the result always wrapped in an Item.
func (c *Cache) GetItem(key any) (Item, bool) {
	return c.lookup(key)
}

func (c *Cache) lookup(key any) (Item, bool) {
	ctx := context.Background()
	k, valid := canonicalKey(key)

	c.mu.Lock()
	r, ok := c.entries[k]
	if !valid || !ok {
		c.stats.Misses++
		c.mu.Unlock()
		c.metrics.RecordLookup(ctx, c.meta, false)
		return Item{}, false
	}
	if r.expired(c.now()) {
		c.removeLocked(k)
		c.stats.Misses++
		c.pushLocked()
		c.mu.Unlock()

		c.metrics.RecordLookup(ctx, c.meta, false)
		c.metrics.RecordEvictions(ctx, c.meta, observe.ReasonPassive, 1)
		c.logger.Debug(ctx, "expired entry evicted on read", observe.Field{Key: "key", Value: k})
		return Item{}, false
	}
	c.stats.Hits++
	c.mu.Unlock()

	c.metrics.RecordLookup(ctx, c.meta, true)
	return r.item(), true
}

// Set stores value under key and reports whether it was stored.
//
// An optional ttl overrides StdTTL; a negative ttl is used by magnitude and
// only the first ttl is read. Malformed keys or values return false with no
// error. Inserting a new key into a full cache returns ErrCapacity;
// overwriting an existing key always succeeds.
//
// Values are not copied. Without ForceString a map or slice stays shared
// with the caller, and mutating it afterwards changes the cached value.
func (c *Cache) Set(key, value any, ttl ...time.Duration) (bool, error) {
	ctx := context.Background()
	if c.closed.Load() {
		return false, ErrClosed
	}

	k, ok := canonicalKey(key)
	if !ok {
		c.metrics.RecordSet(ctx, c.meta, false)
		c.logger.Debug(ctx, "invalid key rejected", observe.Field{Key: "key_type", Value: fmt.Sprintf("%T", key)})
		return false, nil
	}
	v, err := NewValue(value, c.cfg.forceString)
	if err != nil {
		c.metrics.RecordSet(ctx, c.meta, false)
		c.logger.Warn(ctx, "value rejected",
			observe.Field{Key: "key", Value: k},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return false, nil
	}

	var d time.Duration
	if len(ttl) > 0 {
		d = ttl[0]
	}

	c.mu.Lock()
	now := c.now()
	_, exists := c.entries[k]
	reclaimed := 0
	if !exists && c.fullLocked() {
		// Expired entries the reaper has not reached yet do not hold slots.
		if reclaimed = c.evictExpiredLocked(now); reclaimed > 0 {
			c.pushLocked()
		}
	}
	if !exists && c.fullLocked() {
		c.mu.Unlock()
		c.metrics.RecordEvictions(ctx, c.meta, observe.ReasonPassive, reclaimed)
		c.metrics.RecordSet(ctx, c.meta, false)
		c.logger.Warn(ctx, "max keys reached",
			observe.Field{Key: "key", Value: k},
			observe.Field{Key: "max_keys", Value: c.cfg.maxKeys},
		)
		return false, fmt.Errorf("%w: limit %d", ErrCapacity, c.cfg.maxKeys)
	}
	c.entries[k] = record{value: v, expiresAt: deadline(now, d, c.cfg.stdTTL)}
	if !exists {
		c.stats.Keys++
	}
	c.mu.Unlock()

	if reclaimed > 0 {
		c.metrics.RecordEvictions(ctx, c.meta, observe.ReasonPassive, reclaimed)
	}

	c.metrics.RecordSet(ctx, c.meta, true)
	return true, nil
}

// GetTTL returns the expiry of key. The time is zero for entries that never
// expire. Unknown and expired keys report false; expired entries are evicted
// without counting a miss.
func (c *Cache) GetTTL(key any) (time.Time, bool, error) {
	k, err := CanonicalKey(key)
	if err != nil {
		return time.Time{}, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[k]
	if !ok {
		return time.Time{}, false, nil
	}
	if r.expired(c.now()) {
		c.removeLocked(k)
		return time.Time{}, false, nil
	}
	return r.expiresAt, true, nil
}

// SetTTL replaces the expiry of an existing key with now + |ttl|.
// A zero ttl makes the entry never expire. Unknown and expired keys
// report false.
func (c *Cache) SetTTL(key any, ttl time.Duration) (bool, error) {
	k, err := CanonicalKey(key)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	r, ok := c.entries[k]
	if !ok {
		return false, nil
	}
	if r.expired(now) {
		c.removeLocked(k)
		return false, nil
	}
	r.expiresAt = deadline(now, ttl, 0)
	c.entries[k] = r
	return true, nil
}

// Global returns the hit, miss and key counters.
func (c *Cache) Global() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Flush removes every entry and zeroes the counters. Configuration is kept.
func (c *Cache) Flush() {
	c.mu.Lock()
	n := len(c.entries)
	clear(c.entries)
	c.stats = Stats{}
	c.pushLocked()
	c.mu.Unlock()

	ctx := context.Background()
	c.metrics.RecordEvictions(ctx, c.meta, observe.ReasonFlush, n)
	c.logger.Debug(ctx, "cache flushed", observe.Field{Key: "removed", Value: n})
}

// Delete removes key if present.
func (c *Cache) Delete(key any) {
	k, ok := canonicalKey(key)
	if !ok {
		return
	}

	c.mu.Lock()
	_, found := c.entries[k]
	if found {
		c.removeLocked(k)
	}
	c.mu.Unlock()

	if found {
		c.metrics.RecordEvictions(context.Background(), c.meta, observe.ReasonDelete, 1)
	}
}

// Keys returns the canonical keys currently stored, sorted. Expired entries
// not yet evicted are included.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.Unlock()

	slices.Sort(keys)
	return keys
}

// Len returns the number of stored entries, including expired entries not
// yet evicted.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// CacheConfig returns the effective configuration and counters.
func (c *Cache) CacheConfig() ConfigState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ConfigState{
		ForceString: c.cfg.forceString,
		ValueOnly:   c.cfg.valueOnly,
		MaxKeys:     c.cfg.maxKeys,
		StdTTL:      c.cfg.stdTTL,
		Stats:       c.stats,
	}
}

// LogConfig returns the normalized log configuration.
func (c *Cache) LogConfig() observe.LogConfig {
	return c.cfg.log
}

// ReaperStatus reports the state and counters of the background reaper.
func (c *Cache) ReaperStatus() ReaperStatus {
	if c.reaper == nil {
		return ReaperStatus{State: ReaperDisabled}
	}
	return c.reaper.status()
}

// Close stops the reaper, waits for its goroutines and releases the log
// sink. It is safe to call more than once.
func (c *Cache) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.cancel()
		c.wg.Wait()

		c.logger.Info(context.Background(), "cache closed")
		if c.logCloser != nil {
			c.closeErr = c.logCloser.Close()
		}
	})
	return c.closeErr
}
