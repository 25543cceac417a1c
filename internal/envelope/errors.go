package envelope

import (
	"errors"
	"fmt"
)

// ErrInvalid is matched by every SchemaError, so callers that only care
// whether an envelope is acceptable can use errors.Is(err, ErrInvalid).
var ErrInvalid = errors.New("invalid envelope")

// ParseError reports input that is not a well-formed JSON object.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("envelope parse: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError reports well-formed input whose fields are missing, of the
// wrong type, or carry an unrecognized operation.
type SchemaError struct {
	// Field is the offending key, as it appears on the wire.
	Field string

	// Reason is a short human-readable description.
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("envelope schema: %s", e.Reason)
	}
	return fmt.Sprintf("envelope schema: %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrInvalid) true for schema errors.
func (e *SchemaError) Is(target error) bool {
	return target == ErrInvalid
}

// IsParseError returns true if err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsSchemaError returns true if err is or wraps a *SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}
