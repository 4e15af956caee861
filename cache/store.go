package cache

import (
	"math"
	"time"
)

// Item is a value together with its expiry. A zero ExpiresAt means the
// entry never expires.
type Item struct {
	Value     any       `json:"value"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Snapshot is a point-in-time copy of the store, keyed by canonical key.
type Snapshot map[string]Item

// record is a stored entry.
type record struct {
	value     Value
	expiresAt time.Time
}

func (r record) expired(now time.Time) bool {
	return !r.expiresAt.IsZero() && r.expiresAt.Before(now)
}

func (r record) item() Item {
	return Item{Value: r.value.Any(), ExpiresAt: r.expiresAt}
}

// expiries is the reaper's read-only view of the store: the deadline of
// every entry that can expire.
type expiries map[string]time.Time

// expiredKeys returns the keys in e whose deadline is before now.
func (e expiries) expiredKeys(now time.Time) []string {
	var keys []string
	for k, at := range e {
		if at.Before(now) {
			keys = append(keys, k)
		}
	}
	return keys
}

// deadline returns the expiry for an entry written at now. A non-zero ttl
// wins over stdTTL and is used by magnitude; the magnitude of the minimum
// duration saturates at the maximum. A zero result never expires.
func deadline(now time.Time, ttl, stdTTL time.Duration) time.Time {
	d := stdTTL
	if ttl != 0 {
		d = ttl
		if d < 0 {
			d = -d
		}
		if d < 0 {
			d = math.MaxInt64
		}
	}
	if d == 0 {
		return time.Time{}
	}
	return now.Add(d)
}

// The methods below require c.mu.

func (c *Cache) expiriesLocked() expiries {
	snap := make(expiries, len(c.entries))
	for k, r := range c.entries {
		if !r.expiresAt.IsZero() {
			snap[k] = r.expiresAt
		}
	}
	return snap
}

func (c *Cache) snapshotLocked() Snapshot {
	snap := make(Snapshot, len(c.entries))
	for k, r := range c.entries {
		snap[k] = r.item()
	}
	return snap
}

// removeLocked deletes key and decrements the key count, clamped at zero.
func (c *Cache) removeLocked(key string) {
	delete(c.entries, key)
	if c.stats.Keys > 0 {
		c.stats.Keys--
	}
}

// fullLocked reports whether a new key would exceed MaxKeys.
func (c *Cache) fullLocked() bool {
	return c.cfg.maxKeys >= 0 && len(c.entries) >= c.cfg.maxKeys
}

// evictExpiredLocked removes every entry expired at now.
func (c *Cache) evictExpiredLocked(now time.Time) int {
	n := 0
	for k, r := range c.entries {
		if r.expired(now) {
			c.removeLocked(k)
			n++
		}
	}
	return n
}
