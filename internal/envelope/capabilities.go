package envelope

import (
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/umicp/internal/canonical"
)

// Capability returns a copy of the capability stored under key.
// ok is false when the key is absent or capabilities is not an object.
func (e *Envelope) Capability(key string) (canonical.Value, bool) {
	obj, isObj := e.caps.(canonical.Object)
	if !isObj {
		return nil, false
	}
	v, ok := obj[norm.NFC.String(key)]
	if !ok {
		return nil, false
	}
	return canonical.Clone(v), true
}

// HasCapability reports whether key is present in the capability object.
func (e *Envelope) HasCapability(key string) bool {
	_, ok := e.Capability(key)
	return ok
}

// SetCapability stores a copy of v under key. If the current capability
// tree is not an object it is replaced by one.
func (e *Envelope) SetCapability(key string, v canonical.Value) error {
	if v == nil {
		v = canonical.Null{}
	}
	if _, err := canonical.Marshal(v); err != nil {
		return &SchemaError{Field: keyCapabilities + "." + key, Reason: err.Error()}
	}
	normalized, err := canonical.Normalize(v)
	if err != nil {
		return &SchemaError{Field: keyCapabilities + "." + key, Reason: err.Error()}
	}

	obj, isObj := e.caps.(canonical.Object)
	if !isObj {
		obj = canonical.Object{}
		e.caps = obj
	}
	obj[norm.NFC.String(key)] = normalized
	return nil
}

// RemoveCapability deletes key and reports whether it was present.
func (e *Envelope) RemoveCapability(key string) bool {
	obj, isObj := e.caps.(canonical.Object)
	if !isObj {
		return false
	}
	key = norm.NFC.String(key)
	if _, ok := obj[key]; !ok {
		return false
	}
	delete(obj, key)
	return true
}
