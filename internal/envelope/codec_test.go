package envelope

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeserializeParseErrors(t *testing.T) {
	inputs := map[string]string{
		"empty":          ``,
		"truncated":      `{"from":"a"`,
		"not json":       `envelope`,
		"trailing data":  `{"from":"a","to":"b","operation":1} x`,
		"array top":      `[1,2,3]`,
		"string top":     `"hello"`,
		"bad escape":     `{"from":"\x"}`,
		"unquoted key":   `{from:"a"}`,
		"trailing comma": `{"from":"a",}`,
	}

	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := Deserialize([]byte(in))
			require.Error(t, err)
			assert.True(t, IsParseError(err), "got %T: %v", err, err)
		})
	}
}

func TestDeserializeSchemaErrors(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		field string
	}{
		{"missing from", `{"to":"b","operation":1}`, "from"},
		{"empty from", `{"from":"","to":"b","operation":1}`, "from"},
		{"null from", `{"from":null,"to":"b","operation":1}`, "from"},
		{"numeric from", `{"from":7,"to":"b","operation":1}`, "from"},
		{"missing to", `{"from":"a","operation":1}`, "to"},
		{"missing operation", `{"from":"a","to":"b"}`, "operation"},
		{"null operation", `{"from":"a","to":"b","operation":null}`, "operation"},
		{"operation out of range", `{"from":"a","to":"b","operation":6}`, "operation"},
		{"negative operation", `{"from":"a","to":"b","operation":-1}`, "operation"},
		{"fractional operation", `{"from":"a","to":"b","operation":1.5}`, "operation"},
		{"unknown operation name", `{"from":"a","to":"b","operation":"PUBLISH"}`, "operation"},
		{"boolean operation", `{"from":"a","to":"b","operation":true}`, "operation"},
		{"numeric message id", `{"from":"a","to":"b","operation":1,"messageId":5}`, "messageId"},
		{"unknown key", `{"from":"a","to":"b","operation":1,"hash":"x"}`, "hash"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Deserialize([]byte(tt.in))
			require.Error(t, err)

			var se *SchemaError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.field, se.Field)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestDeserializeAcceptsOperationNames(t *testing.T) {
	for _, in := range []string{`"REQUEST"`, `"request"`, `"4"`, `4`} {
		e, err := Deserialize([]byte(`{"from":"a","to":"b","operation":` + in + `}`))
		require.NoError(t, err, in)
		assert.Equal(t, OperationRequest, e.Operation(), in)
	}
}

func TestDeserializeOptionalFields(t *testing.T) {
	e, err := Deserialize([]byte(`{"to":"b","from":"a","operation":0}`))
	require.NoError(t, err)
	assert.Equal(t, "", e.MessageID())
	assert.Equal(t, OperationControl, e.Operation())
	assert.True(t, e.Validate())

	data, err := e.Serialize()
	require.NoError(t, err)
	assert.Equal(t, `{"capabilities":{},"from":"a","messageId":"","operation":0,"to":"b"}`, string(data))
}

func TestSerializeIsCanonicalRegardlessOfInputOrder(t *testing.T) {
	a, err := Deserialize([]byte(`{"to":"b","capabilities":{"z":1,"a":[true]},"from":"a","operation":2}`))
	require.NoError(t, err)
	b, err := Deserialize([]byte("{\n  \"from\": \"a\",\n  \"operation\": \"ACK\",\n  \"capabilities\": {\"a\": [true], \"z\": 1},\n  \"to\": \"b\"\n}"))
	require.NoError(t, err)

	sa, _ := a.Serialize()
	sb, _ := b.Serialize()
	assert.Equal(t, `{"capabilities":{"a":[true],"z":1},"from":"a","messageId":"","operation":2,"to":"b"}`, string(sa))
	assert.Equal(t, sa, sb)
}

func TestJSONMarshalerUsesCanonicalForm(t *testing.T) {
	e := aliceBob(t)

	wrapped, err := json.Marshal(map[string]any{"envelope": e})
	require.NoError(t, err)
	assert.Equal(t, `{"envelope":`+aliceBobCanonical+`}`, string(wrapped))

	var back struct {
		Envelope *Envelope `json:"envelope"`
	}
	require.NoError(t, json.Unmarshal(wrapped, &back))
	assert.True(t, e.Equal(back.Envelope))
}

func TestStringFallsBackToCanonical(t *testing.T) {
	assert.Equal(t, aliceBobCanonical, aliceBob(t).String())
}
