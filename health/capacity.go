package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/ttlcache/cache"
)

// CapacitySource reports a cache's limits and counters. *cache.Cache
// implements it.
type CapacitySource interface {
	CacheConfig() cache.ConfigState
}

// CapacityConfig configures a CapacityChecker.
type CapacityConfig struct {
	// Warning is the Keys/MaxKeys ratio that reports degraded. Default: 0.8.
	Warning float64

	// Critical is the ratio that reports unhealthy. Default: 0.95.
	Critical float64
}

func (c CapacityConfig) normalize() CapacityConfig {
	if c.Warning <= 0 || c.Warning >= 1 {
		c.Warning = 0.8
	}
	if c.Critical <= 0 || c.Critical > 1 {
		c.Critical = 0.95
	}
	if c.Critical < c.Warning {
		c.Critical = c.Warning
	}
	return c
}

// CapacityChecker reports how close a cache is to its MaxKeys limit. A
// cache without a limit is always healthy.
type CapacityChecker struct {
	name string
	src  CapacitySource
	cfg  CapacityConfig
}

// NewCapacityChecker returns a checker named "<name>.capacity".
func NewCapacityChecker(name string, src CapacitySource, cfg CapacityConfig) *CapacityChecker {
	return &CapacityChecker{name: name + ".capacity", src: src, cfg: cfg.normalize()}
}

func (c *CapacityChecker) Name() string { return c.name }

// Check compares the key count with MaxKeys.
func (c *CapacityChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context done", err)
	}

	st := c.src.CacheConfig()
	details := map[string]any{
		"keys":     st.Keys,
		"max_keys": st.MaxKeys,
		"hits":     st.Hits,
		"misses":   st.Misses,
	}
	if st.MaxKeys <= 0 {
		return Healthy("no key limit").WithDetails(details)
	}

	ratio := float64(st.Keys) / float64(st.MaxKeys)
	details["usage_percent"] = ratio * 100

	switch {
	case ratio >= c.cfg.Critical:
		return Unhealthy(fmt.Sprintf("key usage critical: %.1f%%", ratio*100), ErrCheckFailed).WithDetails(details)
	case ratio >= c.cfg.Warning:
		return Degraded(fmt.Sprintf("key usage high: %.1f%%", ratio*100)).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("key usage normal: %.1f%%", ratio*100)).WithDetails(details)
	}
}
