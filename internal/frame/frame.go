// Package frame implements the UMICP binary transport unit: a typed,
// flagged, sequenced payload on a multiplexed stream.
//
// Wire format (version 1, all integers big-endian):
//
//	offset  size  field
//	0       2     type
//	2       2     flags
//	4       4     streamId
//	8       8     sequence
//	16      4     payloadLen
//	20      n     payload
//
// A Frame does not enforce ordering; see package stream.
package frame

import (
	"encoding/binary"
	"fmt"
)

// HeaderLen is the size of the fixed header in bytes.
const HeaderLen = 20

// Type distinguishes control from data frames.
type Type uint16

const (
	TypeUnset   Type = 0
	TypeData    Type = 1
	TypeControl Type = 2
	TypeAck     Type = 3
)

// Known reports whether t is defined by this protocol version.
// Unknown types still decode and round-trip.
func (t Type) Known() bool {
	return t <= TypeAck
}

func (t Type) String() string {
	switch t {
	case TypeUnset:
		return "UNSET"
	case TypeData:
		return "DATA"
	case TypeControl:
		return "CONTROL"
	case TypeAck:
		return "ACK"
	default:
		return fmt.Sprintf("TYPE(%d)", uint16(t))
	}
}

// Flags is the frame flag bitmask. Undefined bits are reserved and preserved.
type Flags uint16

const (
	FlagCompressed  Flags = 0x01
	FlagEncrypted   Flags = 0x02
	FlagFinal       Flags = 0x04
	FlagAckRequired Flags = 0x08

	knownFlags = FlagCompressed | FlagEncrypted | FlagFinal | FlagAckRequired
)

// Has reports whether every bit in f2 is set in f.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

// Reserved returns the bits this version does not define.
func (f Flags) Reserved() Flags { return f &^ knownFlags }

func (f Flags) String() string {
	if f == 0 {
		return "0"
	}
	names := []struct {
		bit  Flags
		name string
	}{
		{FlagCompressed, "COMPRESSED"},
		{FlagEncrypted, "ENCRYPTED"},
		{FlagFinal, "FINAL"},
		{FlagAckRequired, "ACK_REQUIRED"},
	}
	var out string
	for _, n := range names {
		if f.Has(n.bit) {
			if out != "" {
				out += "|"
			}
			out += n.name
		}
	}
	if r := f.Reserved(); r != 0 {
		if out != "" {
			out += "|"
		}
		out += fmt.Sprintf("0x%04x", uint16(r))
	}
	return out
}

// Frame is one transport unit. The zero value is a valid empty frame.
type Frame struct {
	Type     Type
	Flags    Flags
	StreamID uint32
	Sequence uint64
	Payload  []byte
}

// New returns a zeroed frame with Type=TypeUnset.
func New() *Frame {
	return &Frame{}
}

func (f *Frame) SetType(t Type) *Frame         { f.Type = t; return f }
func (f *Frame) SetStreamID(id uint32) *Frame  { f.StreamID = id; return f }
func (f *Frame) SetSequence(seq uint64) *Frame { f.Sequence = seq; return f }
func (f *Frame) SetFlags(flags Flags) *Frame   { f.Flags = flags; return f }

// SetPayload stores a copy of p.
func (f *Frame) SetPayload(p []byte) *Frame {
	f.Payload = append([]byte(nil), p...)
	return f
}

// SetCompressed sets or clears FlagCompressed.
func (f *Frame) SetCompressed(on bool) *Frame { return f.setFlag(FlagCompressed, on) }

// SetEncrypted sets or clears FlagEncrypted.
func (f *Frame) SetEncrypted(on bool) *Frame { return f.setFlag(FlagEncrypted, on) }

// SetFinal sets or clears FlagFinal.
func (f *Frame) SetFinal(on bool) *Frame { return f.setFlag(FlagFinal, on) }

func (f *Frame) setFlag(bit Flags, on bool) *Frame {
	if on {
		f.Flags |= bit
	} else {
		f.Flags &^= bit
	}
	return f
}

// IsCompressed reports whether FlagCompressed is set.
func (f *Frame) IsCompressed() bool { return f.Flags.Has(FlagCompressed) }

// IsEncrypted reports whether FlagEncrypted is set.
func (f *Frame) IsEncrypted() bool { return f.Flags.Has(FlagEncrypted) }

// IsFinal reports whether FlagFinal is set.
func (f *Frame) IsFinal() bool { return f.Flags.Has(FlagFinal) }

// Clone returns a deep copy of f.
func (f *Frame) Clone() *Frame {
	cp := *f
	cp.Payload = append([]byte(nil), f.Payload...)
	return &cp
}

func (f *Frame) String() string {
	return fmt.Sprintf("frame{type=%s stream=%d seq=%d flags=%s len=%d}",
		f.Type, f.StreamID, f.Sequence, f.Flags, len(f.Payload))
}

// Header is the fixed wire header.
type Header struct {
	Type       Type
	Flags      Flags
	StreamID   uint32
	Sequence   uint64
	PayloadLen uint32
}

// Header returns the wire header for f.
func (f *Frame) Header() Header {
	return Header{
		Type:       f.Type,
		Flags:      f.Flags,
		StreamID:   f.StreamID,
		Sequence:   f.Sequence,
		PayloadLen: uint32(len(f.Payload)),
	}
}

// EncodeHeader writes h into a new HeaderLen-byte slice.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderLen)
	putHeader(buf, h)
	return buf
}

func putHeader(buf []byte, h Header) {
	binary.BigEndian.PutUint16(buf[0:2], uint16(h.Type))
	binary.BigEndian.PutUint16(buf[2:4], uint16(h.Flags))
	binary.BigEndian.PutUint32(buf[4:8], h.StreamID)
	binary.BigEndian.PutUint64(buf[8:16], h.Sequence)
	binary.BigEndian.PutUint32(buf[16:20], h.PayloadLen)
}

// DecodeHeader parses the first HeaderLen bytes of b.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, &TruncatedFrameError{Need: HeaderLen, Have: len(b)}
	}
	return Header{
		Type:       Type(binary.BigEndian.Uint16(b[0:2])),
		Flags:      Flags(binary.BigEndian.Uint16(b[2:4])),
		StreamID:   binary.BigEndian.Uint32(b[4:8]),
		Sequence:   binary.BigEndian.Uint64(b[8:16]),
		PayloadLen: binary.BigEndian.Uint32(b[16:20]),
	}, nil
}
