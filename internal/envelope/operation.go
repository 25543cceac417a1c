package envelope

import (
	"fmt"
	"strconv"
	"strings"
)

// Operation is the closed set of envelope operation kinds.
//
// The zero value is OperationUnset. OperationUnknown stands in for wire codes
// this version does not recognize; neither is accepted by SetOperation.
type Operation uint8

const (
	OperationUnset Operation = iota
	OperationControl
	OperationData
	OperationAck
	OperationError
	OperationRequest
	OperationResponse
	OperationUnknown
)

var operationNames = [...]string{
	OperationUnset:    "UNSET",
	OperationControl:  "CONTROL",
	OperationData:     "DATA",
	OperationAck:      "ACK",
	OperationError:    "ERROR",
	OperationRequest:  "REQUEST",
	OperationResponse: "RESPONSE",
	OperationUnknown:  "UNKNOWN",
}

// Operations lists the recognized operations in wire-code order.
func Operations() []Operation {
	return []Operation{
		OperationControl,
		OperationData,
		OperationAck,
		OperationError,
		OperationRequest,
		OperationResponse,
	}
}

// Known reports whether o is one of the six recognized operations.
func (o Operation) Known() bool {
	return o >= OperationControl && o <= OperationResponse
}

// Code returns the wire code (0-5) for a recognized operation.
func (o Operation) Code() (int, bool) {
	if !o.Known() {
		return 0, false
	}
	return int(o - OperationControl), true
}

func (o Operation) String() string {
	if int(o) < len(operationNames) {
		return operationNames[o]
	}
	return "UNKNOWN"
}

// OperationFromCode maps a wire code to an Operation.
// Codes outside 0-5 map to OperationUnknown.
func OperationFromCode(code int64) Operation {
	if code < 0 || code > int64(OperationResponse-OperationControl) {
		return OperationUnknown
	}
	return OperationControl + Operation(code)
}

// ParseOperation accepts an operation name (case-insensitive) or a decimal
// wire code.
func ParseOperation(s string) (Operation, error) {
	s = strings.TrimSpace(s)
	if code, err := strconv.ParseInt(s, 10, 64); err == nil {
		if op := OperationFromCode(code); op.Known() {
			return op, nil
		}
		return OperationUnknown, fmt.Errorf("unknown operation code %d", code)
	}
	for _, op := range Operations() {
		if strings.EqualFold(s, op.String()) {
			return op, nil
		}
	}
	return OperationUnknown, fmt.Errorf("unknown operation %q", s)
}

// MarshalText implements encoding.TextMarshaler, used by YAML and TOML.
func (o Operation) MarshalText() ([]byte, error) {
	if !o.Known() {
		return nil, fmt.Errorf("cannot marshal operation %s", o)
	}
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Operation) UnmarshalText(text []byte) error {
	op, err := ParseOperation(string(text))
	if err != nil {
		return err
	}
	*o = op
	return nil
}
