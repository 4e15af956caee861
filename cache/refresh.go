package cache

import (
	"context"
	"fmt"
	"maps"

	"github.com/jonwraymond/ttlcache/observe"
)

// RefreshResult is the outcome of Refresh.
type RefreshResult struct {
	// Snapshot is the store after the sweep. Each caller gets its own map;
	// structured values inside it are shared, not copied.
	Snapshot Snapshot
	Err      error
}

// Refresh evicts every expired entry and resolves to a copy of the store.
//
// The returned channel receives exactly one result and is then closed.
// Concurrent calls share one sweep. A fault during the sweep resolves to an
// error wrapping ErrRefresh; a done ctx resolves to ctx.Err() without
// cancelling a sweep other callers are waiting on.
func (c *Cache) Refresh(ctx context.Context) <-chan RefreshResult {
	out := make(chan RefreshResult, 1)

	if err := ctx.Err(); err != nil {
		out <- RefreshResult{Err: err}
		close(out)
		return out
	}
	if c.closed.Load() {
		out <- RefreshResult{Err: ErrClosed}
		close(out)
		return out
	}

	shared := c.flight.DoChan("refresh", func() (any, error) {
		var snap Snapshot
		err := c.ops.Wrap(func(ctx context.Context, _ observe.Meta) error {
			var err error
			snap, err = c.sweep(ctx)
			return err
		})(context.WithoutCancel(ctx), observe.Meta{Cache: c.cfg.name, Op: observe.OpRefresh})
		return snap, err
	})

	go func() {
		defer close(out)
		select {
		case res := <-shared:
			if res.Err != nil {
				out <- RefreshResult{Err: res.Err}
				return
			}
			out <- RefreshResult{Snapshot: maps.Clone(res.Val.(Snapshot))}
		case <-ctx.Done():
			out <- RefreshResult{Err: ctx.Err()}
		}
	}()
	return out
}

// sweep is the synchronous body of Refresh.
func (c *Cache) sweep(ctx context.Context) (snap Snapshot, err error) {
	var n int
	func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("%w: %v", ErrRefresh, p)
			}
		}()

		n = c.evictExpiredLocked(c.now())
		snap = c.snapshotLocked()
		if n > 0 {
			c.pushLocked()
		}
	}()
	if err != nil {
		return nil, err
	}

	c.metrics.RecordEvictions(ctx, c.meta, observe.ReasonRefresh, n)
	return snap, nil
}
