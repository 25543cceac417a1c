package testutil

import "github.com/roach88/umicp/internal/frame"

// DataFrame returns an empty, non-final data frame.
func DataFrame(streamID uint32, seq uint64) *frame.Frame {
	return frame.New().SetType(frame.TypeData).SetStreamID(streamID).SetSequence(seq)
}

// Sequences lists the sequence numbers of frames in order.
func Sequences(frames []*frame.Frame) []uint64 {
	out := make([]uint64, len(frames))
	for i, f := range frames {
		out[i] = f.Sequence
	}
	return out
}
