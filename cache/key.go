package cache

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CanonicalKey returns the string form under which key is stored.
//
// Strings are used as-is and must be non-empty. Integers are written in base
// 10 and floats in their shortest decimal form, so 1, int64(1), 1.0 and "1"
// all map to "1". NaN and infinities are rejected, as are nil and every
// other type. Zero is a valid key.
func CanonicalKey(key any) (string, error) {
	if k, ok := canonicalKey(key); ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: %T", ErrInvalidKeyType, key)
}

func canonicalKey(key any) (string, bool) {
	switch k := key.(type) {
	case string:
		return k, k != ""
	case int:
		return strconv.FormatInt(int64(k), 10), true
	case int8:
		return strconv.FormatInt(int64(k), 10), true
	case int16:
		return strconv.FormatInt(int64(k), 10), true
	case int32:
		return strconv.FormatInt(int64(k), 10), true
	case int64:
		return strconv.FormatInt(k, 10), true
	case uint:
		return strconv.FormatUint(uint64(k), 10), true
	case uint8:
		return strconv.FormatUint(uint64(k), 10), true
	case uint16:
		return strconv.FormatUint(uint64(k), 10), true
	case uint32:
		return strconv.FormatUint(uint64(k), 10), true
	case uint64:
		return strconv.FormatUint(k, 10), true
	case float32:
		return formatFloat(float64(k), 32)
	case float64:
		return formatFloat(k, 64)
	case json.Number:
		if i, err := k.Int64(); err == nil {
			return strconv.FormatInt(i, 10), true
		}
		f, err := k.Float64()
		if err != nil {
			return "", false
		}
		return formatFloat(f, 64)
	default:
		return "", false
	}
}

// formatFloat writes f in its shortest decimal form, switching to exponent
// notation outside [1e-6, 1e21) the way JSON producers do. Zero (including
// -0) is "0". NaN and infinities are rejected.
func formatFloat(f float64, bits int) (string, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	if f == 0 {
		return "0", true
	}
	if abs := math.Abs(f); abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, bits), true
	}
	// strconv pads the exponent to two digits: 1e-07.
	mant, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, bits), "e")
	return mant + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0"), true
}
