package frame

import (
	"errors"
	"fmt"
)

var ErrPayloadTooLarge = errors.New("frame: payload too large")

// TruncatedFrameError reports a buffer or stream that ended before the
// header, or the payload length the header declares, was complete.
type TruncatedFrameError struct {
	Need int // bytes required
	Have int // bytes available
}

func (e *TruncatedFrameError) Error() string {
	return fmt.Sprintf("frame: truncated: need %d bytes, have %d", e.Need, e.Have)
}

// MalformedFrameError reports a buffer whose length disagrees with the
// declared payload length, i.e. trailing bytes after the payload.
type MalformedFrameError struct {
	Declared  uint32 // payloadLen from the header
	Remaining int    // bytes after the header
}

func (e *MalformedFrameError) Error() string {
	return fmt.Sprintf("frame: malformed: header declares %d payload bytes, buffer holds %d", e.Declared, e.Remaining)
}

// IsTruncated returns true if err is or wraps a *TruncatedFrameError.
func IsTruncated(err error) bool {
	var te *TruncatedFrameError
	return errors.As(err, &te)
}

// IsMalformed returns true if err is or wraps a *MalformedFrameError.
func IsMalformed(err error) bool {
	var me *MalformedFrameError
	return errors.As(err, &me)
}
