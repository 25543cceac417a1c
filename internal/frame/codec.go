package frame

import (
	"errors"
	"io"
)

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPayloadBytes uint32
}

func DefaultLimits() Limits {
	return Limits{
		MaxPayloadBytes: 8 * 1024 * 1024,
	}
}

// Serialize encodes f with DefaultLimits.
func (f *Frame) Serialize() ([]byte, error) {
	return f.SerializeWithLimits(DefaultLimits())
}

// SerializeWithLimits encodes f, rejecting payloads above limits.
func (f *Frame) SerializeWithLimits(limits Limits) ([]byte, error) {
	if uint64(len(f.Payload)) > uint64(limits.MaxPayloadBytes) {
		return nil, ErrPayloadTooLarge
	}
	buf := make([]byte, HeaderLen+len(f.Payload))
	putHeader(buf, f.Header())
	copy(buf[HeaderLen:], f.Payload)
	return buf, nil
}

// Deserialize decodes exactly one frame from b with DefaultLimits.
func Deserialize(b []byte) (*Frame, error) {
	return DeserializeWithLimits(b, DefaultLimits())
}

// DeserializeWithLimits decodes exactly one frame from b.
//
// A buffer shorter than the header, or shorter than the header plus the
// declared payload, returns *TruncatedFrameError. Bytes left over after
// the payload return *MalformedFrameError. The payload is copied.
func DeserializeWithLimits(b []byte, limits Limits) (*Frame, error) {
	h, err := DecodeHeader(b)
	if err != nil {
		return nil, err
	}
	if h.PayloadLen > limits.MaxPayloadBytes {
		return nil, ErrPayloadTooLarge
	}

	remaining := len(b) - HeaderLen
	switch {
	case uint64(remaining) < uint64(h.PayloadLen):
		return nil, &TruncatedFrameError{Need: HeaderLen + int(h.PayloadLen), Have: len(b)}
	case uint64(remaining) > uint64(h.PayloadLen):
		return nil, &MalformedFrameError{Declared: h.PayloadLen, Remaining: remaining}
	}

	return fromHeader(h, append([]byte(nil), b[HeaderLen:]...)), nil
}

func fromHeader(h Header, payload []byte) *Frame {
	return &Frame{
		Type:     h.Type,
		Flags:    h.Flags,
		StreamID: h.StreamID,
		Sequence: h.Sequence,
		Payload:  payload,
	}
}

// ReadFrame reads one frame from a byte stream.
//
// io.EOF is returned unchanged when r is exhausted before any header byte,
// so callers can loop until a clean end of stream. A stream that ends
// mid-frame returns *TruncatedFrameError.
func ReadFrame(r io.Reader, limits Limits) (*Frame, error) {
	var fixed [HeaderLen]byte
	if n, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &TruncatedFrameError{Need: HeaderLen, Have: n}
		}
		return nil, err
	}

	h, err := DecodeHeader(fixed[:])
	if err != nil {
		return nil, err
	}
	if h.PayloadLen > limits.MaxPayloadBytes {
		return nil, ErrPayloadTooLarge
	}

	payload := make([]byte, h.PayloadLen)
	if h.PayloadLen > 0 {
		if n, err := io.ReadFull(r, payload); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, &TruncatedFrameError{Need: HeaderLen + int(h.PayloadLen), Have: HeaderLen + n}
			}
			return nil, err
		}
	}

	return fromHeader(h, payload), nil
}

// WriteFrame writes f to w as one header followed by its payload.
func WriteFrame(w io.Writer, f *Frame, limits Limits) error {
	if uint64(len(f.Payload)) > uint64(limits.MaxPayloadBytes) {
		return ErrPayloadTooLarge
	}

	if _, err := w.Write(EncodeHeader(f.Header())); err != nil {
		return err
	}
	if len(f.Payload) > 0 {
		if _, err := w.Write(f.Payload); err != nil {
			return err
		}
	}
	return nil
}
