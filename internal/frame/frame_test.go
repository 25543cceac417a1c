package frame

import (
	"bytes"
	"encoding/hex"
	"errors"
	"io"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stream7Hex = "0001000000000007000000000000000300000003010203"

func stream7Frame() *Frame {
	return New().
		SetType(TypeData).
		SetStreamID(7).
		SetSequence(3).
		SetFlags(0).
		SetPayload([]byte{0x01, 0x02, 0x03})
}

func TestNewIsZeroed(t *testing.T) {
	f := New()
	assert.Equal(t, TypeUnset, f.Type)
	assert.Zero(t, f.StreamID)
	assert.Zero(t, f.Sequence)
	assert.Zero(t, f.Flags)
	assert.Empty(t, f.Payload)

	b, err := f.Serialize()
	require.NoError(t, err)
	assert.Equal(t, make([]byte, HeaderLen), b)
}

func TestSerializeFixedVector(t *testing.T) {
	b, err := stream7Frame().Serialize()
	require.NoError(t, err)
	assert.Len(t, b, HeaderLen+3)
	assert.Equal(t, stream7Hex, hex.EncodeToString(b))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "data_stream7_seq3", []byte(hex.EncodeToString(b)))
}

func TestDeserializeFixedVector(t *testing.T) {
	b, err := hex.DecodeString(stream7Hex)
	require.NoError(t, err)

	f, err := Deserialize(b)
	require.NoError(t, err)
	assert.Equal(t, stream7Frame(), f)
}

func TestDeserializeTruncatedByOneByte(t *testing.T) {
	b, err := stream7Frame().Serialize()
	require.NoError(t, err)

	_, err = Deserialize(b[:len(b)-1])
	require.Error(t, err)

	var te *TruncatedFrameError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, HeaderLen+3, te.Need)
	assert.Equal(t, HeaderLen+2, te.Have)
}

func TestDeserializeShortHeader(t *testing.T) {
	for _, n := range []int{0, 1, HeaderLen - 1} {
		_, err := Deserialize(make([]byte, n))
		assert.True(t, IsTruncated(err), "len %d: %v", n, err)
	}
}

func TestDeserializeTrailingBytes(t *testing.T) {
	b, err := stream7Frame().Serialize()
	require.NoError(t, err)

	_, err = Deserialize(append(b, 0xff))
	require.Error(t, err)

	var me *MalformedFrameError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, uint32(3), me.Declared)
	assert.Equal(t, 4, me.Remaining)
	assert.False(t, IsTruncated(err))
}

func TestRoundTripPreservesUnknownTypeAndReservedFlags(t *testing.T) {
	in := New().
		SetType(Type(0x7fff)).
		SetFlags(FlagFinal | FlagAckRequired | Flags(0x8000)).
		SetStreamID(0xffffffff).
		SetSequence(1 << 40)

	b, err := in.Serialize()
	require.NoError(t, err)
	assert.Equal(t, "7fff800cffffffff000001000000000000000000", hex.EncodeToString(b))

	out, err := Deserialize(b)
	require.NoError(t, err)
	assert.False(t, out.Type.Known())
	assert.Equal(t, Flags(0x8000), out.Flags.Reserved())
	assert.True(t, out.IsFinal())
	assert.Equal(t, in.Sequence, out.Sequence)
}

func TestFlagToggles(t *testing.T) {
	f := New().SetCompressed(true).SetEncrypted(true)
	assert.True(t, f.IsCompressed())
	assert.True(t, f.IsEncrypted())
	assert.Equal(t, "COMPRESSED|ENCRYPTED", f.Flags.String())

	f.SetCompressed(false).SetFinal(true)
	assert.False(t, f.IsCompressed())
	assert.Equal(t, FlagEncrypted|FlagFinal, f.Flags)
	assert.Equal(t, "0", Flags(0).String())
	assert.Equal(t, "FINAL|0x0100", (FlagFinal | 0x0100).String())
}

func TestSetPayloadCopies(t *testing.T) {
	p := []byte("abc")
	f := New().SetPayload(p)
	p[0] = 'z'
	assert.Equal(t, []byte("abc"), f.Payload)

	cp := f.Clone()
	cp.Payload[0] = 'y'
	assert.Equal(t, []byte("abc"), f.Payload)
}

func TestDeserializeCopiesPayload(t *testing.T) {
	b, _ := stream7Frame().Serialize()
	f, err := Deserialize(b)
	require.NoError(t, err)

	b[HeaderLen] = 0xee
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, f.Payload)
}

func TestLimits(t *testing.T) {
	limits := Limits{MaxPayloadBytes: 2}

	_, err := stream7Frame().SerializeWithLimits(limits)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)

	b, _ := stream7Frame().Serialize()
	_, err = DeserializeWithLimits(b, limits)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)

	_, err = ReadFrame(bytes.NewReader(b), limits)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)

	assert.ErrorIs(t, WriteFrame(io.Discard, stream7Frame(), limits), ErrPayloadTooLarge)
}

func TestReadWriteFrameRoundTrip(t *testing.T) {
	frames := []*Frame{
		stream7Frame(),
		New().SetType(TypeControl).SetStreamID(1).SetSequence(1),
		New().SetType(TypeAck).SetStreamID(7).SetSequence(4).SetFinal(true).SetPayload(bytes.Repeat([]byte{0xab}, 1024)),
	}

	var buf bytes.Buffer
	for _, f := range frames {
		require.NoError(t, WriteFrame(&buf, f, DefaultLimits()))
	}

	for i, want := range frames {
		got, err := ReadFrame(&buf, DefaultLimits())
		require.NoError(t, err, "frame %d", i)
		assert.Equal(t, want.Header(), got.Header())
		assert.Equal(t, len(want.Payload), len(got.Payload))
		assert.True(t, bytes.Equal(want.Payload, got.Payload))
	}

	_, err := ReadFrame(&buf, DefaultLimits())
	assert.True(t, errors.Is(err, io.EOF))
}

func TestReadFrameTruncated(t *testing.T) {
	b, _ := stream7Frame().Serialize()

	_, err := ReadFrame(bytes.NewReader(b[:5]), DefaultLimits())
	var te *TruncatedFrameError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 5, te.Have)

	_, err = ReadFrame(bytes.NewReader(b[:HeaderLen+1]), DefaultLimits())
	require.ErrorAs(t, err, &te)
	assert.Equal(t, HeaderLen+3, te.Need)
	assert.Equal(t, HeaderLen+1, te.Have)

	_, err = ReadFrame(bytes.NewReader(b[:HeaderLen]), DefaultLimits())
	assert.True(t, IsTruncated(err))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("boom") }

func TestWriteFramePropagatesWriterErrors(t *testing.T) {
	err := WriteFrame(failingWriter{}, stream7Frame(), DefaultLimits())
	assert.EqualError(t, err, "boom")
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "DATA", TypeData.String())
	assert.Equal(t, "TYPE(9)", Type(9).String())
	assert.True(t, TypeAck.Known())
}
