package canonical

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// ErrDuplicateKey reports an object whose keys collide after NFC
// normalization.
var ErrDuplicateKey = errors.New("canonical: duplicate object key after normalization")

// Marshal produces RFC 8785 canonical JSON for v.
// This is the only encoding used for content hashing.
//
// Differences from json.Marshal:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping (< > & are NOT escaped)
//  3. Strings and object keys are NFC normalized; keys sort by their
//     normalized form and may not collide
//  4. Numbers use the ECMAScript form (1.0 encodes as 1)
//  5. NaN and infinities are rejected
func Marshal(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeValue(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("nil value in canonical JSON")
	case Null:
		buf.WriteString("null")
	case String:
		return writeString(buf, string(val))
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Float:
		s, err := formatFloat(float64(val))
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case Bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Array:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case Object:
		keys, err := normalizedKeys(val)
		if err != nil {
			return err
		}
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, k.nfc); err != nil {
				return fmt.Errorf("key %q: %w", k.nfc, err)
			}
			buf.WriteByte(':')
			if err := writeValue(buf, val[k.raw]); err != nil {
				return fmt.Errorf("value for key %q: %w", k.nfc, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

type objectKey struct {
	raw, nfc string
}

// normalizedKeys returns the keys of o in RFC 8785 order of their NFC
// forms. Keys are written normalized, so ordering must use that form too.
// Two keys with the same NFC form would encode as a duplicate member.
func normalizedKeys(o Object) ([]objectKey, error) {
	keys := make([]objectKey, 0, len(o))
	seen := make(map[string]string, len(o))
	for raw := range o {
		nfc := norm.NFC.String(raw)
		if prev, ok := seen[nfc]; ok {
			return nil, fmt.Errorf("%w: %q and %q", ErrDuplicateKey, prev, raw)
		}
		seen[nfc] = raw
		keys = append(keys, objectKey{raw: raw, nfc: nfc})
	}
	slices.SortFunc(keys, func(a, b objectKey) int { return compareKeysUTF16(a.nfc, b.nfc) })
	return keys, nil
}

// formatFloat renders f the way ECMAScript Number.prototype.toString does,
// which is what RFC 8785 requires. encoding/json uses the same cutoffs.
func formatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("non-finite number in canonical JSON: %v", f)
	}
	if f == 0 {
		return "0", nil // -0 included
	}

	format := byte('f')
	if abs := math.Abs(f); abs < 1e-6 || abs >= 1e21 {
		format = 'e'
	}
	b := strconv.AppendFloat(nil, f, format, -1, 64)
	if format == 'e' {
		// e-07 -> e-7
		n := len(b)
		if n >= 4 && b[n-4] == 'e' && b[n-3] == '-' && b[n-2] == '0' {
			b[n-2] = b[n-1]
			b = b[:n-1]
		}
	}
	return string(b), nil
}

// writeString writes s as a canonical JSON string.
// Only control characters, backslash, and quote are escaped; U+2028 and
// U+2029 are written literally even though encoding/json escapes them.
func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}

	out := bytes.TrimSuffix(tmp.Bytes(), []byte("\n"))
	buf.Write(unescapeLineSeparators(out))
	return nil
}

// unescapeLineSeparators rewrites \u2028 and \u2029 escapes to the literal
// characters. Escape pairs are consumed two bytes at a time, so an escaped
// backslash followed by "u2028" text is left alone.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		c := data[i]
		if c != '\\' || i+1 >= len(data) {
			out = append(out, c)
			continue
		}
		if data[i+1] == 'u' && i+6 <= len(data) && string(data[i+2:i+5]) == "202" {
			switch data[i+5] {
			case '8':
				out = append(out, "\u2028"...)
				i += 5
				continue
			case '9':
				out = append(out, "\u2029"...)
				i += 5
				continue
			}
		}
		out = append(out, c, data[i+1])
		i++
	}
	return out
}
