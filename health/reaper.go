package health

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/ttlcache/cache"
)

// ReaperSource reports the state of a cache's reaper. *cache.Cache
// implements it.
type ReaperSource interface {
	ReaperStatus() cache.ReaperStatus
}

// ReaperConfig configures a ReaperChecker.
type ReaperConfig struct {
	// StaleAfter is how old the last sweep may be before the reaper is
	// reported degraded. Zero means three reaper intervals.
	StaleAfter time.Duration

	// Now is the clock compared with the last sweep. Nil means time.Now.
	Now func() time.Time
}

// ReaperChecker reports whether a cache's reaper is still sweeping.
type ReaperChecker struct {
	name string
	src  ReaperSource
	cfg  ReaperConfig
}

// NewReaperChecker returns a checker named "<name>.reaper".
func NewReaperChecker(name string, src ReaperSource, cfg ReaperConfig) *ReaperChecker {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ReaperChecker{name: name + ".reaper", src: src, cfg: cfg}
}

func (c *ReaperChecker) Name() string { return c.name }

// Check inspects the reaper status.
func (c *ReaperChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context done", err)
	}

	st := c.src.ReaperStatus()
	details := map[string]any{
		"state":   st.State.String(),
		"sweeps":  st.Sweeps,
		"evicted": st.Evicted,
		"faults":  st.Faults,
	}

	switch st.State {
	case cache.ReaperDisabled:
		return Healthy("reaper disabled").WithDetails(details)
	case cache.ReaperStopped:
		return Unhealthy("reaper stopped", ErrReaperStopped).WithDetails(details)
	}

	details["interval"] = st.Interval.String()
	if st.LastSweep.IsZero() {
		return Healthy("awaiting first sweep").WithDetails(details)
	}
	details["last_sweep"] = st.LastSweep.UTC().Format(time.RFC3339Nano)

	staleAfter := c.cfg.StaleAfter
	if staleAfter <= 0 {
		staleAfter = 3 * st.Interval
	}
	age := c.cfg.Now().Sub(st.LastSweep)
	details["age"] = age.String()

	if age > staleAfter {
		return Degraded(fmt.Sprintf("last sweep %s ago", age.Round(time.Millisecond))).WithDetails(details)
	}
	return Healthy("reaper running").WithDetails(details)
}
