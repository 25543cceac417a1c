package canonical

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// Value is a sealed interface over the JSON value kinds.
// Only Null, String, Int, Float, Bool, Array, and Object implement it.
type Value interface {
	value() // Sealed
}

// Null represents a JSON null.
// An explicit type keeps nil interfaces out of the tree.
type Null struct{}

func (Null) value() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String is a JSON string.
type String string

func (String) value() {}

// Int is a JSON number that was written as an integer literal.
type Int int64

func (Int) value() {}

// Float is any other JSON number. Must be finite.
type Float float64

func (Float) value() {}

// Bool is a JSON boolean.
type Bool bool

func (Bool) value() {}

// Array is an ordered list of values.
type Array []Value

func (Array) value() {}

// MarshalJSON implements json.Marshaler using the canonical encoding.
func (a Array) MarshalJSON() ([]byte, error) {
	return Marshal(a)
}

// Object maps string keys to values.
// Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (Object) value() {}

// MarshalJSON implements json.Marshaler using the canonical encoding.
func (o Object) MarshalJSON() ([]byte, error) {
	return Marshal(o)
}

// SortedKeys returns keys in RFC 8785 order (UTF-16 code units).
// Go's native string ordering compares UTF-8 bytes and disagrees for
// characters outside the BMP.
func (o Object) SortedKeys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysUTF16)
	return keys
}

func compareKeysUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// Kind returns a short name for the kind of v, for error messages.
func Kind(v Value) string {
	switch v.(type) {
	case nil:
		return "nil"
	case Null:
		return "null"
	case String:
		return "string"
	case Int, Float:
		return "number"
	case Bool:
		return "boolean"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Parse decodes a single JSON document into a Value.
// Integer literals that fit int64 become Int; every other number becomes Float.
// Trailing data after the document is an error.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}

	return fromDecoded(raw)
}

func fromDecoded(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case json.Number:
		return parseNumber(val)
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			conv, err := fromDecoded(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = conv
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			conv, err := fromDecoded(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = conv
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported decoded type: %T", v)
	}
}

func parseNumber(n json.Number) (Value, error) {
	s := string(n)
	if !strings.ContainsAny(s, ".eE") {
		if i, err := n.Int64(); err == nil {
			return Int(i), nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("number out of range: %s", s)
	}
	return Float(f), nil
}

// FromGo converts a native Go value into a Value.
// Supported: nil, Value, bool, string, signed and unsigned integers, floats,
// json.Number, []any, []string, map[string]any, and map[string]string.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return fromUint(uint64(val))
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		return fromUint(val)
	case float32:
		return fromFloat(float64(val))
	case float64:
		return fromFloat(val)
	case json.Number:
		return parseNumber(val)
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			conv, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = conv
		}
		return arr, nil
	case []string:
		arr := make(Array, len(val))
		for i, s := range val {
			arr[i] = String(s)
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			conv, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = conv
		}
		return obj, nil
	case map[string]string:
		obj := make(Object, len(val))
		for k, s := range val {
			obj[k] = String(s)
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("integer %d overflows int64", u)
	}
	return Int(int64(u)), nil
}

func fromFloat(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite number: %v", f)
	}
	return Float(f), nil
}

// ToGo converts a Value back into plain Go values
// (nil, bool, string, int64, float64, []any, map[string]any).
func ToGo(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Bool:
		return bool(val)
	case Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToGo(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToGo(elem)
		}
		return out
	default:
		return nil
	}
}

// Clone returns a deep copy of v. Arrays and objects are never shared
// between the copy and the original.
func Clone(v Value) Value {
	switch val := v.(type) {
	case Array:
		out := make(Array, len(val))
		for i, elem := range val {
			out[i] = Clone(elem)
		}
		return out
	case Object:
		out := make(Object, len(val))
		for k, elem := range val {
			out[k] = Clone(elem)
		}
		return out
	default:
		return v
	}
}

// Normalize returns a deep copy of v with every string and object key in
// NFC form, which is how Marshal writes them. Keys that collide once
// normalized are rejected with ErrDuplicateKey.
func Normalize(v Value) (Value, error) {
	switch val := v.(type) {
	case String:
		return String(norm.NFC.String(string(val))), nil
	case Array:
		out := make(Array, len(val))
		for i, elem := range val {
			n, err := Normalize(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	case Object:
		keys, err := normalizedKeys(val)
		if err != nil {
			return nil, err
		}
		out := make(Object, len(val))
		for _, k := range keys {
			n, err := Normalize(val[k.raw])
			if err != nil {
				return nil, fmt.Errorf("value for key %q: %w", k.nfc, err)
			}
			out[k.nfc] = n
		}
		return out, nil
	default:
		return v, nil
	}
}

// Equal reports whether a and b have identical canonical encodings.
// Values that cannot be encoded are never equal.
func Equal(a, b Value) bool {
	ab, err := Marshal(a)
	if err != nil {
		return false
	}
	bb, err := Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}
