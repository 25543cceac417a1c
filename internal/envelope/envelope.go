package envelope

import (
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/umicp/internal/canonical"
)

// Wire keys. Serialize emits them in RFC 8785 order, which for these five
// happens to be alphabetical.
const (
	keyCapabilities = "capabilities"
	keyFrom         = "from"
	keyMessageID    = "messageId"
	keyOperation    = "operation"
	keyTo           = "to"
)

// Envelope is a UMICP control message.
//
// The zero value is an empty envelope, equivalent to New().
type Envelope struct {
	from      string
	to        string
	op        Operation
	messageID string
	caps      canonical.Value // nil means {}
}

// New returns an envelope with every field unset.
func New() *Envelope {
	return &Envelope{}
}

// From returns the sender identifier.
func (e *Envelope) From() string { return e.from }

// To returns the recipient identifier.
func (e *Envelope) To() string { return e.to }

// Operation returns the operation kind, OperationUnset if none was set.
func (e *Envelope) Operation() Operation { return e.op }

// MessageID returns the message identifier.
func (e *Envelope) MessageID() string { return e.messageID }

// Capabilities returns a deep copy of the capability tree.
// An envelope with no capabilities reports an empty object.
func (e *Envelope) Capabilities() canonical.Value {
	if e.caps == nil {
		return canonical.Object{}
	}
	return canonical.Clone(e.caps)
}

// SetFrom sets the sender. The value is stored NFC normalized.
func (e *Envelope) SetFrom(from string) *Envelope {
	e.from = norm.NFC.String(from)
	return e
}

// SetTo sets the recipient. The value is stored NFC normalized.
func (e *Envelope) SetTo(to string) *Envelope {
	e.to = norm.NFC.String(to)
	return e
}

// SetMessageID sets the message identifier. Uniqueness is the caller's concern.
func (e *Envelope) SetMessageID(id string) *Envelope {
	e.messageID = norm.NFC.String(id)
	return e
}

// SetOperation sets the operation kind. Only the six recognized operations
// are accepted; anything else returns a *SchemaError and leaves the envelope
// unchanged.
func (e *Envelope) SetOperation(op Operation) error {
	if !op.Known() {
		return &SchemaError{Field: keyOperation, Reason: fmt.Sprintf("unrecognized operation %s", op)}
	}
	e.op = op
	return nil
}

// SetOperationCode sets the operation from its wire code (0-5).
func (e *Envelope) SetOperationCode(code int64) error {
	op := OperationFromCode(code)
	if !op.Known() {
		return &SchemaError{Field: keyOperation, Reason: fmt.Sprintf("unrecognized operation code %d", code)}
	}
	e.op = op
	return nil
}

// ClearOperation returns the operation to OperationUnset.
func (e *Envelope) ClearOperation() *Envelope {
	e.op = OperationUnset
	return e
}

// SetCapabilities replaces the capability tree with a deep copy of v.
// nil and null both reset it to the empty object. The value must be
// canonically encodable; a tree containing non-finite numbers, or keys
// that collide once NFC-normalized, is rejected and the envelope is left
// unchanged. Keys and strings are stored normalized.
func (e *Envelope) SetCapabilities(v canonical.Value) error {
	switch v.(type) {
	case nil, canonical.Null:
		e.caps = nil
		return nil
	}
	if _, err := canonical.Marshal(v); err != nil {
		return &SchemaError{Field: keyCapabilities, Reason: err.Error()}
	}
	normalized, err := canonical.Normalize(v)
	if err != nil {
		return &SchemaError{Field: keyCapabilities, Reason: err.Error()}
	}
	e.caps = normalized
	return nil
}

// SetCapabilitiesJSON parses data and installs it as the capability tree.
func (e *Envelope) SetCapabilitiesJSON(data []byte) error {
	v, err := canonical.Parse(data)
	if err != nil {
		return &ParseError{Err: err}
	}
	return e.SetCapabilities(v)
}

// Validate reports whether from, to, and a recognized operation are present.
func (e *Envelope) Validate() bool {
	return e.Check() == nil
}

// Check is Validate returning the first failing field as a *SchemaError.
func (e *Envelope) Check() error {
	switch {
	case e.from == "":
		return &SchemaError{Field: keyFrom, Reason: "required"}
	case e.to == "":
		return &SchemaError{Field: keyTo, Reason: "required"}
	case e.op == OperationUnset:
		return &SchemaError{Field: keyOperation, Reason: "required"}
	case !e.op.Known():
		return &SchemaError{Field: keyOperation, Reason: fmt.Sprintf("unrecognized operation %s", e.op)}
	}
	return nil
}

// Clone returns an independent copy of e.
func (e *Envelope) Clone() *Envelope {
	cp := *e
	if e.caps != nil {
		cp.caps = canonical.Clone(e.caps)
	}
	return &cp
}

// Equal reports whether e and other carry the same field values.
// Capabilities are compared by canonical encoding.
func (e *Envelope) Equal(other *Envelope) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.from == other.from &&
		e.to == other.to &&
		e.op == other.op &&
		e.messageID == other.messageID &&
		canonical.Equal(e.Capabilities(), other.Capabilities())
}

// EnsureMessageID assigns an ID from gen when none is set and returns the
// resulting ID.
func (e *Envelope) EnsureMessageID(gen IDGenerator) string {
	if e.messageID == "" {
		e.messageID = gen.Generate()
	}
	return e.messageID
}
