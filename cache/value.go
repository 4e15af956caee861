package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

// canonicalJSON sorts map keys, so equal objects serialize identically.
var canonicalJSON = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	errNilValue         = errors.New("value is nil")
	errUnsupportedValue = errors.New("unsupported value type")
)

// Kind identifies the representation a Value was stored with.
type Kind uint8

const (
	// KindText is a string, either given as one or produced by ForceString.
	KindText Kind = iota + 1

	// KindStructured is a number or object retained as given.
	KindStructured
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindStructured:
		return "structured"
	default:
		return "invalid"
	}
}

// Value is a stored cache value: text or structured data.
// The zero Value is invalid.
type Value struct {
	kind Kind
	text string
	data any
}

// Text returns a text Value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Structured returns a structured Value holding v.
func Structured(v any) Value { return Value{kind: KindStructured, data: v} }

// Kind reports the representation of v.
func (v Value) Kind() Kind { return v.kind }

// Text returns the text and true for a text Value.
func (v Value) Text() (string, bool) {
	return v.text, v.kind == KindText
}

// Any returns the value as read by Get: a string for text, the original
// data for structured.
func (v Value) Any() any {
	if v.kind == KindText {
		return v.text
	}
	return v.data
}

// NewValue classifies v for storage.
//
// Strings are always text. Numbers (including json.Number) and objects
// (maps, slices, arrays, structs and non-nil pointers) become text under
// forceString: numbers as decimal text, objects as canonical JSON.
// Otherwise they are kept as structured data. Nil, booleans, functions,
// channels and complex numbers are rejected.
//
// Structured values are not copied: maps, slices and pointers are stored
// and returned by reference. Use ForceString for an isolated copy.
func NewValue(v any, forceString bool) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Value{}, errNilValue
	case string:
		return Text(x), nil
	case json.Number:
		n := normalizeNumber(x)
		if !forceString {
			return Structured(n), nil
		}
		switch n := n.(type) {
		case int64:
			return Text(strconv.FormatInt(n, 10)), nil
		case float64:
			if s, ok := formatFloat(n, 64); ok {
				return Text(s), nil
			}
		}
		return Value{}, fmt.Errorf("%w: number %q out of range", errUnsupportedValue, x)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if forceString {
			return Text(strconv.FormatInt(rv.Int(), 10)), nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if forceString {
			return Text(strconv.FormatUint(rv.Uint(), 10)), nil
		}
	case reflect.Float32, reflect.Float64:
		text, ok := formatFloat(rv.Float(), rv.Type().Bits())
		if !ok {
			return Value{}, fmt.Errorf("%w: non-finite number", errUnsupportedValue)
		}
		if forceString {
			return Text(text), nil
		}
	case reflect.Map, reflect.Slice, reflect.Pointer:
		if rv.IsNil() {
			return Value{}, errNilValue
		}
		return object(v, forceString)
	case reflect.Array, reflect.Struct:
		return object(v, forceString)
	default:
		return Value{}, fmt.Errorf("%w: %T", errUnsupportedValue, v)
	}
	return Structured(v), nil
}

func object(v any, forceString bool) (Value, error) {
	if !forceString {
		return Structured(v), nil
	}
	data, err := canonicalJSON.Marshal(v)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %v", errUnsupportedValue, err)
	}
	return Text(string(data)), nil
}

// normalizeNumber converts a decoded JSON number to int64 when integral,
// float64 otherwise.
func normalizeNumber(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
