package matrix

import (
	"errors"
	"fmt"
)

// ErrDimension is matched by every *DimensionError.
var ErrDimension = errors.New("matrix: dimension mismatch")

// ErrEncoding reports a byte buffer that is not a whole number of float32s.
var ErrEncoding = errors.New("matrix: invalid vector encoding")

// DimensionError reports an operand whose size does not fit the operation.
type DimensionError struct {
	Op      string // operation name, e.g. "dot"
	Operand string // which argument, e.g. "b" or "dst"
	Want    int
	Got     int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("matrix: %s: %s has size %d, want %d", e.Op, e.Operand, e.Got, e.Want)
}

// Is makes errors.Is(err, ErrDimension) true.
func (e *DimensionError) Is(target error) bool {
	return target == ErrDimension
}

func checkVector(op, operand string, v []float32) error {
	if len(v) == 0 {
		return &DimensionError{Op: op, Operand: operand, Want: 1, Got: 0}
	}
	return nil
}

func checkLen(op, operand string, want int, v []float32) error {
	if len(v) != want {
		return &DimensionError{Op: op, Operand: operand, Want: want, Got: len(v)}
	}
	return nil
}

func checkPair(op string, a, b []float32) error {
	if err := checkVector(op, "a", a); err != nil {
		return err
	}
	return checkLen(op, "b", len(a), b)
}
