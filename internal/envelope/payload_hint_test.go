package envelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/umicp/internal/canonical"
)

func TestPayloadHintRoundTrip(t *testing.T) {
	e := aliceBob(t)
	hint := NewVectorHint(3)
	require.NoError(t, e.SetPayloadHint(hint))

	data, err := e.Serialize()
	require.NoError(t, err)
	assert.Equal(t,
		`{"capabilities":{"payloadHint":{"count":3,"encoding":0,"size":12,"type":0},"v":1},"from":"alice","messageId":"m1","operation":4,"to":"bob"}`,
		string(data))

	back, err := Deserialize(data)
	require.NoError(t, err)
	got, ok, err := back.PayloadHint()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, hint, got)
}

func TestPayloadHintAbsent(t *testing.T) {
	_, ok, err := aliceBob(t).PayloadHint()
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestPayloadHintRejectsUndefinedValues(t *testing.T) {
	e := aliceBob(t)
	assert.Error(t, e.SetPayloadHint(PayloadHint{Type: PayloadType(9)}))
	assert.Error(t, e.SetPayloadHint(PayloadHint{Encoding: EncodingType(8)}))

	require.NoError(t, e.SetCapability(PayloadHintKey, canonical.Object{"type": canonical.String("VECTOR")}))
	_, ok, err := e.PayloadHint()
	assert.True(t, ok)
	assert.ErrorIs(t, err, ErrInvalid)

	require.NoError(t, e.SetCapability(PayloadHintKey, canonical.Object{"encoding": canonical.Int(-1)}))
	_, _, err = e.PayloadHint()
	assert.Error(t, err)
}

func TestEncodingTypeSizes(t *testing.T) {
	want := map[EncodingType]int{
		EncodingFloat32: 4, EncodingFloat64: 8,
		EncodingInt32: 4, EncodingInt64: 8,
		EncodingUint8: 1, EncodingUint16: 2, EncodingUint32: 4, EncodingUint64: 8,
	}
	for enc, size := range want {
		assert.Equal(t, size, enc.Size(), enc.String())
	}
	assert.Equal(t, 0, EncodingType(42).Size())
	assert.True(t, EncodingFloat64.IsFloat())
	assert.False(t, EncodingUint8.IsFloat())

	enc, err := ParseEncodingType("uint16")
	require.NoError(t, err)
	assert.Equal(t, EncodingUint16, enc)
}

func TestCapabilityHelpers(t *testing.T) {
	e := New()
	assert.False(t, e.HasCapability("x"))
	assert.False(t, e.RemoveCapability("x"))

	require.NoError(t, e.SetCapability("x", canonical.String("1")))
	require.NoError(t, e.SetCapability("y", nil))
	assert.True(t, e.HasCapability("x"))

	y, ok := e.Capability("y")
	require.True(t, ok)
	assert.Equal(t, canonical.Null{}, y)

	assert.True(t, e.RemoveCapability("x"))
	assert.False(t, e.HasCapability("x"))

	// A non-object tree is replaced on set.
	require.NoError(t, e.SetCapabilities(canonical.Array{canonical.Int(1)}))
	assert.False(t, e.HasCapability("y"))
	require.NoError(t, e.SetCapability("z", canonical.Bool(true)))
	assert.Equal(t, canonical.Object{"z": canonical.Bool(true)}, e.Capabilities())
}
