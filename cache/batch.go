package cache

import "time"

// Entry is one element of a SetM batch. A zero TTL applies StdTTL.
type Entry struct {
	Key   any           `json:"key"`
	Value any           `json:"value"`
	TTL   time.Duration `json:"ttl,omitempty"`
}

// GetM looks up each key in order. Misses are nil. Each lookup counts a hit
// or a miss exactly as Get does.
func (c *Cache) GetM(keys []any) []any {
	out := make([]any, len(keys))
	for i, k := range keys {
		if v, ok := c.Get(k); ok {
			out[i] = v
		}
	}
	return out
}

// SetM stores each entry in order and reports the result of every Set.
//
// Rejected entries appear as false. The first hard error (ErrCapacity or
// ErrClosed) stops the batch: it is returned with the results of the
// entries before it, which remain stored. An empty batch returns an empty
// slice.
func (c *Cache) SetM(entries []Entry) ([]bool, error) {
	results := make([]bool, 0, len(entries))
	for _, e := range entries {
		ok, err := c.Set(e.Key, e.Value, e.TTL)
		if err != nil {
			return results, err
		}
		results = append(results, ok)
	}
	return results, nil
}
