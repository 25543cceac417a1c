package stream

import (
	"errors"
	"fmt"
)

var (
	ErrBufferFull      = errors.New("stream: reorder buffer full")
	ErrMessageTooLarge = errors.New("stream: assembled message too large")
	ErrNoCompressor    = errors.New("stream: compressed frame but no compressor configured")
	ErrStreamExhausted = errors.New("stream: sequence space exhausted")
)

// OutOfOrderError reports a frame ahead of the next expected sequence under
// PolicyReject.
type OutOfOrderError struct {
	StreamID uint32
	Expected uint64
	Got      uint64
}

func (e *OutOfOrderError) Error() string {
	return fmt.Sprintf("stream %d: out of order: expected sequence %d, got %d", e.StreamID, e.Expected, e.Got)
}

// IsOutOfOrder returns true if err is or wraps an *OutOfOrderError.
func IsOutOfOrder(err error) bool {
	var oe *OutOfOrderError
	return errors.As(err, &oe)
}
