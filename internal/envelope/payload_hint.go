package envelope

import (
	"fmt"
	"strings"

	"github.com/roach88/umicp/internal/canonical"
)

// PayloadHintKey is the capability key a PayloadHint is stored under.
const PayloadHintKey = "payloadHint"

// PayloadType describes what a message body carries.
type PayloadType uint8

const (
	PayloadVector PayloadType = iota
	PayloadText
	PayloadMetadata
	PayloadBinary
)

var payloadTypeNames = [...]string{"VECTOR", "TEXT", "METADATA", "BINARY"}

func (t PayloadType) String() string {
	if int(t) < len(payloadTypeNames) {
		return payloadTypeNames[t]
	}
	return fmt.Sprintf("PayloadType(%d)", uint8(t))
}

// Valid reports whether t is a defined payload type.
func (t PayloadType) Valid() bool { return int(t) < len(payloadTypeNames) }

// EncodingType is the element encoding of a numeric payload.
type EncodingType uint8

const (
	EncodingFloat32 EncodingType = iota
	EncodingFloat64
	EncodingInt32
	EncodingInt64
	EncodingUint8
	EncodingUint16
	EncodingUint32
	EncodingUint64
)

var encodingNames = [...]string{"FLOAT32", "FLOAT64", "INT32", "INT64", "UINT8", "UINT16", "UINT32", "UINT64"}

var encodingSizes = [...]int{4, 8, 4, 8, 1, 2, 4, 8}

func (t EncodingType) String() string {
	if int(t) < len(encodingNames) {
		return encodingNames[t]
	}
	return fmt.Sprintf("EncodingType(%d)", uint8(t))
}

// Valid reports whether t is a defined encoding.
func (t EncodingType) Valid() bool { return int(t) < len(encodingNames) }

// Size returns the width of one element in bytes, 0 for undefined encodings.
func (t EncodingType) Size() int {
	if !t.Valid() {
		return 0
	}
	return encodingSizes[t]
}

// IsFloat reports whether t is a floating point encoding.
func (t EncodingType) IsFloat() bool {
	return t == EncodingFloat32 || t == EncodingFloat64
}

// ParseEncodingType accepts an encoding name, case-insensitive.
func ParseEncodingType(s string) (EncodingType, error) {
	for i, name := range encodingNames {
		if strings.EqualFold(s, name) {
			return EncodingType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown encoding %q", s)
}

// PayloadHint tells the receiver how to interpret the body that accompanies
// an envelope. It travels inside the capability tree, so the envelope wire
// format is unaffected.
type PayloadHint struct {
	Type     PayloadType
	Size     int64 // body size in bytes
	Encoding EncodingType
	Count    int64 // number of elements
}

// NewVectorHint describes count float32 elements.
func NewVectorHint(count int) PayloadHint {
	return PayloadHint{
		Type:     PayloadVector,
		Size:     int64(count * EncodingFloat32.Size()),
		Encoding: EncodingFloat32,
		Count:    int64(count),
	}
}

func (h PayloadHint) toValue() canonical.Object {
	return canonical.Object{
		"type":     canonical.Int(h.Type),
		"size":     canonical.Int(h.Size),
		"encoding": canonical.Int(h.Encoding),
		"count":    canonical.Int(h.Count),
	}
}

// SetPayloadHint stores h under PayloadHintKey.
func (e *Envelope) SetPayloadHint(h PayloadHint) error {
	if !h.Type.Valid() {
		return &SchemaError{Field: PayloadHintKey + ".type", Reason: fmt.Sprintf("undefined payload type %d", h.Type)}
	}
	if !h.Encoding.Valid() {
		return &SchemaError{Field: PayloadHintKey + ".encoding", Reason: fmt.Sprintf("undefined encoding %d", h.Encoding)}
	}
	return e.SetCapability(PayloadHintKey, h.toValue())
}

// PayloadHint reads the hint back. ok is false when none is present.
// Missing members default to zero; a malformed hint returns a *SchemaError.
func (e *Envelope) PayloadHint() (PayloadHint, bool, error) {
	v, ok := e.Capability(PayloadHintKey)
	if !ok {
		return PayloadHint{}, false, nil
	}
	obj, isObj := v.(canonical.Object)
	if !isObj {
		return PayloadHint{}, true, &SchemaError{Field: PayloadHintKey, Reason: "expected object"}
	}

	var h PayloadHint
	fields := []struct {
		key string
		dst *int64
	}{
		{"size", &h.Size},
		{"count", &h.Count},
	}
	for _, f := range fields {
		n, err := hintInt(obj, f.key)
		if err != nil {
			return PayloadHint{}, true, err
		}
		*f.dst = n
	}

	t, err := hintInt(obj, "type")
	if err != nil {
		return PayloadHint{}, true, err
	}
	h.Type = PayloadType(t)
	if t < 0 || !h.Type.Valid() {
		return PayloadHint{}, true, &SchemaError{Field: PayloadHintKey + ".type", Reason: fmt.Sprintf("undefined payload type %d", t)}
	}

	enc, err := hintInt(obj, "encoding")
	if err != nil {
		return PayloadHint{}, true, err
	}
	h.Encoding = EncodingType(enc)
	if enc < 0 || !h.Encoding.Valid() {
		return PayloadHint{}, true, &SchemaError{Field: PayloadHintKey + ".encoding", Reason: fmt.Sprintf("undefined encoding %d", enc)}
	}
	return h, true, nil
}

func hintInt(obj canonical.Object, key string) (int64, error) {
	switch n := obj[key].(type) {
	case nil, canonical.Null:
		return 0, nil
	case canonical.Int:
		return int64(n), nil
	default:
		return 0, &SchemaError{Field: PayloadHintKey + "." + key, Reason: fmt.Sprintf("expected integer, got %s", canonical.Kind(n))}
	}
}
