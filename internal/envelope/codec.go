package envelope

import (
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/umicp/internal/canonical"
)

// Serialize returns the canonical JSON form of e.
//
// Two envelopes with equal field values always produce identical bytes.
func (e *Envelope) Serialize() ([]byte, error) {
	return canonical.Marshal(e.toObject())
}

// Hash returns the lowercase hex SHA-256 of Serialize.
func (e *Envelope) Hash() (string, error) {
	data, err := e.Serialize()
	if err != nil {
		return "", err
	}
	return canonical.SHA256Hex(data), nil
}

// String returns the canonical form, or a placeholder when it cannot be built.
func (e *Envelope) String() string {
	data, err := e.Serialize()
	if err != nil {
		return fmt.Sprintf("<envelope: %v>", err)
	}
	return string(data)
}

// MarshalJSON implements json.Marshaler with the canonical encoding.
func (e *Envelope) MarshalJSON() ([]byte, error) {
	return e.Serialize()
}

// UnmarshalJSON implements json.Unmarshaler with Deserialize semantics.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	parsed, err := Deserialize(data)
	if err != nil {
		return err
	}
	*e = *parsed
	return nil
}

func (e *Envelope) toObject() canonical.Object {
	obj := canonical.Object{
		keyCapabilities: e.Capabilities(),
		keyFrom:         canonical.String(e.from),
		keyMessageID:    canonical.String(e.messageID),
		keyTo:           canonical.String(e.to),
	}
	if code, ok := e.op.Code(); ok {
		obj[keyOperation] = canonical.Int(code)
	} else {
		obj[keyOperation] = canonical.Null{}
	}
	return obj
}

// Deserialize parses the textual form into a new envelope.
//
// Malformed JSON or a non-object top level returns a *ParseError. A missing
// or empty from/to, a missing or unrecognized operation, a wrongly typed
// field, or an unknown key returns a *SchemaError. The operation may be
// given as a wire code or a name; messageId and capabilities are optional.
func Deserialize(data []byte) (*Envelope, error) {
	v, err := canonical.Parse(data)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	obj, ok := v.(canonical.Object)
	if !ok {
		return nil, &ParseError{Err: fmt.Errorf("top-level value is %s, not an object", canonical.Kind(v))}
	}

	for _, k := range obj.SortedKeys() {
		switch k {
		case keyCapabilities, keyFrom, keyMessageID, keyOperation, keyTo:
		default:
			return nil, &SchemaError{Field: k, Reason: "unknown field"}
		}
	}

	e := New()

	if e.from, err = requiredString(obj, keyFrom); err != nil {
		return nil, err
	}
	if e.to, err = requiredString(obj, keyTo); err != nil {
		return nil, err
	}
	if e.op, err = decodeOperation(obj[keyOperation]); err != nil {
		return nil, err
	}

	switch id := obj[keyMessageID].(type) {
	case nil, canonical.Null:
	case canonical.String:
		e.SetMessageID(string(id))
	default:
		return nil, &SchemaError{Field: keyMessageID, Reason: fmt.Sprintf("expected string, got %s", canonical.Kind(id))}
	}

	if err := e.SetCapabilities(obj[keyCapabilities]); err != nil {
		return nil, err
	}
	return e, nil
}

func requiredString(obj canonical.Object, key string) (string, error) {
	switch s := obj[key].(type) {
	case nil, canonical.Null:
		return "", &SchemaError{Field: key, Reason: "required"}
	case canonical.String:
		if s == "" {
			return "", &SchemaError{Field: key, Reason: "must not be empty"}
		}
		return norm.NFC.String(string(s)), nil
	default:
		return "", &SchemaError{Field: key, Reason: fmt.Sprintf("expected string, got %s", canonical.Kind(s))}
	}
}

func decodeOperation(v canonical.Value) (Operation, error) {
	switch op := v.(type) {
	case nil, canonical.Null:
		return OperationUnset, &SchemaError{Field: keyOperation, Reason: "required"}
	case canonical.Int:
		if parsed := OperationFromCode(int64(op)); parsed.Known() {
			return parsed, nil
		}
		return OperationUnknown, &SchemaError{Field: keyOperation, Reason: fmt.Sprintf("unrecognized operation code %d", op)}
	case canonical.String:
		parsed, err := ParseOperation(string(op))
		if err != nil {
			return OperationUnknown, &SchemaError{Field: keyOperation, Reason: err.Error()}
		}
		return parsed, nil
	default:
		return OperationUnknown, &SchemaError{Field: keyOperation, Reason: fmt.Sprintf("expected integer code or name, got %s", canonical.Kind(op))}
	}
}
