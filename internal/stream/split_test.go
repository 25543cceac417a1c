package stream

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/umicp/internal/canonical"
	"github.com/roach88/umicp/internal/compress"
	"github.com/roach88/umicp/internal/envelope"
	"github.com/roach88/umicp/internal/frame"
	"github.com/roach88/umicp/internal/testutil"
)

func TestSplitChunks(t *testing.T) {
	s := NewSplitter(NewSequencer(), WithChunkSize(4))
	frames, err := s.Split(5, []byte("0123456789"))
	require.NoError(t, err)
	require.Len(t, frames, 3)

	assert.Equal(t, []uint64{1, 2, 3}, testutil.Sequences(frames))
	assert.Equal(t, []byte("0123"), frames[0].Payload)
	assert.Equal(t, []byte("89"), frames[2].Payload)
	for i, f := range frames {
		assert.Equal(t, frame.TypeData, f.Type)
		assert.Equal(t, uint32(5), f.StreamID)
		assert.Equal(t, i == 2, f.IsFinal())
		assert.False(t, f.IsCompressed())
	}

	// Sequences continue across messages on the same stream.
	next, err := s.Split(5, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, uint64(4), next[0].Sequence)
}

func TestSplitEmptyMessage(t *testing.T) {
	frames, err := NewSplitter(NewSequencer()).Split(1, nil)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.True(t, frames[0].IsFinal())
	assert.Empty(t, frames[0].Payload)

	msg, done, err := NewAssembler(nil).Push(frames[0])
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, []byte{}, msg)
}

func TestSplitAssembleWithCompression(t *testing.T) {
	comp, err := compress.New(compress.Gzip, compress.DefaultLevel)
	require.NoError(t, err)

	msg := bytes.Repeat([]byte("vector "), 1000)
	s := NewSplitter(NewSequencer(), WithChunkSize(1024), WithCompression(comp, 64))
	frames, err := s.Split(2, msg)
	require.NoError(t, err)
	require.Len(t, frames, 7)
	for _, f := range frames {
		assert.True(t, f.IsCompressed())
		assert.Less(t, len(f.Payload), 1024)
	}

	a := NewAssembler(comp)
	for i, f := range frames {
		out, done, err := a.Push(f)
		require.NoError(t, err)
		if i < len(frames)-1 {
			assert.False(t, done)
			assert.Positive(t, a.Partial(2))
			continue
		}
		assert.True(t, done)
		assert.Equal(t, msg, out)
	}
	assert.Zero(t, a.Partial(2))
}

func TestSplitBelowMinSizeIsNotCompressed(t *testing.T) {
	comp, err := compress.New(compress.Deflate, 9)
	require.NoError(t, err)

	frames, err := NewSplitter(NewSequencer(), WithCompression(comp, 1024)).Split(1, []byte("tiny"))
	require.NoError(t, err)
	assert.False(t, frames[0].IsCompressed())
	assert.Equal(t, []byte("tiny"), frames[0].Payload)
}

func TestAssemblerErrors(t *testing.T) {
	compressed := frame.New().SetType(frame.TypeData).SetStreamID(1).SetSequence(1).SetCompressed(true).SetFinal(true).SetPayload([]byte("x"))
	_, _, err := NewAssembler(nil).Push(compressed)
	assert.ErrorIs(t, err, ErrNoCompressor)

	comp, _ := compress.New(compress.Gzip, 6)
	_, _, err = NewAssembler(comp).Push(compressed)
	assert.ErrorIs(t, err, compress.ErrCompression)

	a := NewAssembler(nil, WithMaxMessage(4))
	_, _, err = a.Push(frame.New().SetType(frame.TypeData).SetStreamID(1).SetSequence(1).SetPayload([]byte("abc")))
	require.NoError(t, err)
	_, _, err = a.Push(frame.New().SetType(frame.TypeData).SetStreamID(1).SetSequence(2).SetPayload([]byte("de")))
	assert.ErrorIs(t, err, ErrMessageTooLarge)
	assert.Zero(t, a.Partial(1))
}

func TestAssemblerIgnoresNonDataFrames(t *testing.T) {
	msg, done, err := NewAssembler(nil).Push(frame.New().SetType(frame.TypeAck).SetFinal(true))
	require.NoError(t, err)
	assert.False(t, done)
	assert.Nil(t, msg)
}

func TestEnvelopeOverReorderedFrames(t *testing.T) {
	env := envelope.New().SetFrom("alice").SetTo("bob").SetMessageID("m1")
	require.NoError(t, env.SetOperation(envelope.OperationData))
	require.NoError(t, env.SetCapability("note", canonical.String("a fairly long capability value to force several chunks")))

	frames, err := SplitEnvelope(NewSplitter(NewSequencer(), WithChunkSize(16)), 7, env)
	require.NoError(t, err)
	require.Greater(t, len(frames), 3)

	// Deliver in reverse through a buffering receiver.
	r := NewReceiver(Config{})
	a := NewAssembler(nil)
	var got *envelope.Envelope
	for i := len(frames) - 1; i >= 0; i-- {
		res, err := r.Accept(frames[i])
		require.NoError(t, err)
		for _, f := range res.Delivered {
			out, done, err := AssembleEnvelope(a, f)
			require.NoError(t, err)
			if done {
				got = out
			}
		}
	}
	require.NotNil(t, got)
	assert.True(t, env.Equal(got))
}

func TestSplitEnvelopeRejectsInvalid(t *testing.T) {
	_, err := SplitEnvelope(NewSplitter(NewSequencer()), 1, envelope.New())
	assert.ErrorIs(t, err, envelope.ErrInvalid)
}
