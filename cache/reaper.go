package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jonwraymond/ttlcache/observe"
)

var errScanPanic = errors.New("cache: reaper scan panicked")

// ReaperState is the lifecycle state of a cache's background reaper.
type ReaperState int32

const (
	// ReaperIdle is the state before the reaper goroutine starts.
	ReaperIdle ReaperState = iota
	// ReaperArmed waits for the next tick.
	ReaperArmed
	// ReaperScanning is scanning a snapshot.
	ReaperScanning
	// ReaperStopped is terminal, reached through Close.
	ReaperStopped
	// ReaperDisabled reports a cache configured without a reaper.
	ReaperDisabled
)

func (s ReaperState) String() string {
	switch s {
	case ReaperIdle:
		return "idle"
	case ReaperArmed:
		return "armed"
	case ReaperScanning:
		return "scanning"
	case ReaperStopped:
		return "stopped"
	case ReaperDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// ReaperStatus describes the reaper at a point in time.
type ReaperStatus struct {
	State     ReaperState   `json:"state"`
	Interval  time.Duration `json:"interval"`
	LastSweep time.Time     `json:"lastSweep"`
	Sweeps    int64         `json:"sweeps"`
	Evicted   int64         `json:"evicted"`
	Faults    int64         `json:"faults"`
}

// reaper scans store snapshots on a fixed interval and reports expired keys
// on evictions. It never reads or writes the live store.
type reaper struct {
	interval time.Duration
	now      func() time.Time

	// inbox holds at most one pushed snapshot; a newer push replaces it.
	inbox chan expiries
	// pull copies the store when no snapshot was pushed since the last tick.
	pull      func() expiries
	evictions chan []string

	ops  *observe.Middleware
	meta observe.Meta

	state     atomic.Int32
	lastSweep atomic.Int64
	sweeps    atomic.Int64
	evicted   atomic.Int64
	faults    atomic.Int64
}

func newReaper(interval time.Duration, now func() time.Time, pull func() expiries, ops *observe.Middleware, name string) *reaper {
	return &reaper{
		interval:  interval,
		now:       now,
		inbox:     make(chan expiries, 1),
		pull:      pull,
		evictions: make(chan []string, 1),
		ops:       ops,
		meta:      observe.Meta{Cache: name, Op: observe.OpSweep},
	}
}

// push hands snap to the reaper without blocking, replacing any snapshot
// still pending.
func (r *reaper) push(snap expiries) {
	for {
		select {
		case r.inbox <- snap:
			return
		default:
		}
		select {
		case <-r.inbox:
		default:
		}
	}
}

func (r *reaper) run(ctx context.Context) {
	defer r.state.Store(int32(ReaperStopped))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.state.Store(int32(ReaperArmed))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

// sweep runs one scan. Faults are recorded and swallowed.
func (r *reaper) sweep(ctx context.Context) {
	r.state.Store(int32(ReaperScanning))
	defer r.state.CompareAndSwap(int32(ReaperScanning), int32(ReaperArmed))

	err := r.ops.Wrap(r.scan)(ctx, r.meta)

	r.lastSweep.Store(r.now().UnixNano())
	r.sweeps.Add(1)
	if err != nil && !errors.Is(err, context.Canceled) {
		r.faults.Add(1)
	}
}

func (r *reaper) scan(ctx context.Context, _ observe.Meta) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", errScanPanic, p)
		}
	}()

	var snap expiries
	select {
	case snap = <-r.inbox:
	default:
		snap = r.pull()
	}

	keys := snap.expiredKeys(r.now())
	if len(keys) == 0 {
		return nil
	}

	select {
	case r.evictions <- keys:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *reaper) status() ReaperStatus {
	s := ReaperStatus{
		State:    ReaperState(r.state.Load()),
		Interval: r.interval,
		Sweeps:   r.sweeps.Load(),
		Evicted:  r.evicted.Load(),
		Faults:   r.faults.Load(),
	}
	if ns := r.lastSweep.Load(); ns != 0 {
		s.LastSweep = time.Unix(0, ns)
	}
	return s
}

// applyEvictions is the cache side of the reaper: the only place reaper
// results mutate the store. Each key is re-checked against the live entry.
func (c *Cache) applyEvictions(keys []string) int {
	c.mu.Lock()
	now := c.now()
	n := 0
	for _, k := range keys {
		if r, ok := c.entries[k]; ok && r.expired(now) {
			c.removeLocked(k)
			n++
		}
	}
	c.mu.Unlock()

	if n > 0 {
		ctx := context.Background()
		c.metrics.RecordEvictions(ctx, c.meta, observe.ReasonReaper, n)
		c.logger.Debug(ctx, "reaper evicted entries",
			observe.Field{Key: "reported", Value: len(keys)},
			observe.Field{Key: "evicted", Value: n},
		)
	}
	return n
}

func (c *Cache) applyLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case keys := <-c.reaper.evictions:
			c.reaper.evicted.Add(int64(c.applyEvictions(keys)))
		}
	}
}

func (c *Cache) pullExpiries() expiries {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expiriesLocked()
}

// pushLocked sends the current store to the reaper, if there is one.
func (c *Cache) pushLocked() {
	if c.reaper != nil {
		c.reaper.push(c.expiriesLocked())
	}
}
