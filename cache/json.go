package cache

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// batchJSON decodes numbers as json.Number so keys and ttls keep their
// exact text until normalized.
var batchJSON = jsoniter.Config{
	EscapeHTML:  true,
	SortMapKeys: true,
	UseNumber:   true,
}.Froze()

// ParseEntries decodes a JSON array of {"key", "value", "ttl"} objects.
//
// ttl is optional and given in milliseconds. The document must be an array
// of objects (ErrInvalidBatch) and a present, non-null ttl must be a number
// (ErrInvalidTTL). Key and value are not validated here: malformed ones are
// reported as false by SetM.
func ParseEntries(data []byte) ([]Entry, error) {
	items, err := parseArray(data)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(items))
	for i, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: element %d is %s, want object", ErrInvalidBatch, i, jsonType(it))
		}

		e := Entry{
			Key:   normalizeDecoded(obj["key"]),
			Value: normalizeDecoded(obj["value"]),
		}
		if raw, ok := obj["ttl"]; ok && raw != nil {
			ttl, err := parseTTL(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: element %d: %v", ErrInvalidTTL, i, err)
			}
			e.TTL = ttl
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ParseKeys decodes a JSON array of keys.
func ParseKeys(data []byte) ([]any, error) {
	items, err := parseArray(data)
	if err != nil {
		return nil, err
	}
	for i, it := range items {
		items[i] = normalizeDecoded(it)
	}
	return items, nil
}

// SetMJSON parses data with ParseEntries and stores the entries with SetM.
func (c *Cache) SetMJSON(data []byte) ([]bool, error) {
	entries, err := ParseEntries(data)
	if err != nil {
		return nil, err
	}
	return c.SetM(entries)
}

// GetMJSON parses data with ParseKeys and looks the keys up with GetM.
func (c *Cache) GetMJSON(data []byte) ([]any, error) {
	keys, err := ParseKeys(data)
	if err != nil {
		return nil, err
	}
	return c.GetM(keys), nil
}

func parseArray(data []byte) ([]any, error) {
	var doc any
	if err := batchJSON.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBatch, err)
	}
	items, ok := doc.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %s, want array", ErrInvalidBatch, jsonType(doc))
	}
	return items, nil
}

// maxTTLMillis is the largest ttl, in milliseconds, a time.Duration holds.
const maxTTLMillis = int64(math.MaxInt64 / time.Millisecond)

func parseTTL(raw any) (time.Duration, error) {
	n, ok := asNumber(raw)
	if !ok {
		return 0, fmt.Errorf("got %s", jsonType(raw))
	}
	if ms, err := n.Int64(); err == nil {
		if ms > maxTTLMillis || ms < -maxTTLMillis {
			return 0, fmt.Errorf("%d ms out of range", ms)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
	ms, err := n.Float64()
	if err != nil {
		return 0, err
	}
	if math.Abs(ms) > float64(maxTTLMillis) {
		return 0, fmt.Errorf("%s ms out of range", n)
	}
	return time.Duration(ms * float64(time.Millisecond)), nil
}

func asNumber(v any) (json.Number, bool) {
	s, ok := jsoniter.CastJsonNumber(v)
	return json.Number(s), ok
}

// normalizeDecoded replaces json.Number with int64 or float64 throughout v.
func normalizeDecoded(v any) any {
	if n, ok := asNumber(v); ok {
		return normalizeNumber(n)
	}
	switch x := v.(type) {
	case map[string]any:
		for k, e := range x {
			x[k] = normalizeDecoded(e)
		}
	case []any:
		for i, e := range x {
			x[i] = normalizeDecoded(e)
		}
	}
	return v
}

func jsonType(v any) string {
	if _, ok := asNumber(v); ok {
		return "number"
	}
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
