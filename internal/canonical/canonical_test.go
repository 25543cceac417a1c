package canonical

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalSortsKeys(t *testing.T) {
	obj := Object{
		"zebra": Int(1),
		"apple": Int(2),
		"mango": Object{"b": Bool(true), "a": Null{}},
	}

	got, err := Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"apple":2,"mango":{"a":null,"b":true},"zebra":1}`, string(got))
}

func TestMarshalKeyOrderIsUTF16(t *testing.T) {
	// UTF-8 byte order puts U+FFFD first; UTF-16 puts the surrogate pair first.
	obj := Object{
		"\uFFFD":     Int(1),
		"\U0001F600": Int(2),
	}

	got, err := Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"\uFFFD\":1}", string(got))
}

func TestMarshalStrings(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", `"hello"`},
		{"html not escaped", "<a&b>", `"<a&b>"`},
		{"quote and backslash", `a"b\c`, `"a\"b\\c"`},
		{"newline", "a\nb", `"a\nb"`},
		{"control char", "a\x01b", `"a\u0001b"`},
		{"line separator literal", "a\u2028b", "\"a\u2028b\""},
		{"paragraph separator literal", "a\u2029b", "\"a\u2029b\""},
		{"escaped backslash then u2028 text", `\u2028`, `"\\u2028"`},
		{"nfc normalized", "e\u0301", "\"\u00e9\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(String(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalNumbers(t *testing.T) {
	tests := []struct {
		name string
		in   Value
		want string
	}{
		{"int", Int(42), "42"},
		{"negative int", Int(-7), "-7"},
		{"integral float", Float(1.0), "1"},
		{"fraction", Float(0.5), "0.5"},
		{"negative zero", Float(math.Copysign(0, -1)), "0"},
		{"large exponent", Float(1e21), "1e+21"},
		{"small exponent", Float(1e-7), "1e-7"},
		{"just below exponent cutoff", Float(1e20), "100000000000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalRejectsNonFinite(t *testing.T) {
	_, err := Marshal(Float(math.NaN()))
	assert.Error(t, err)

	_, err = Marshal(Object{"x": Float(math.Inf(1))})
	assert.Error(t, err)
}

func TestMarshalRejectsNil(t *testing.T) {
	_, err := Marshal(Array{nil})
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	v, err := Parse([]byte(`{"a":1,"b":1.5,"c":[true,null,"x"],"d":9223372036854775808}`))
	require.NoError(t, err)

	obj, ok := v.(Object)
	require.True(t, ok)
	assert.Equal(t, Int(1), obj["a"])
	assert.Equal(t, Float(1.5), obj["b"])
	assert.Equal(t, Array{Bool(true), Null{}, String("x")}, obj["c"])
	// Overflows int64, falls back to float.
	assert.IsType(t, Float(0), obj["d"])
}

func TestParseRejectsTrailingData(t *testing.T) {
	_, err := Parse([]byte(`{"a":1} {"b":2}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"a":1}   `))
	assert.NoError(t, err)
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, in := range []string{``, `{`, `{"a":}`, `[1,2`, `nope`} {
		_, err := Parse([]byte(in))
		assert.Error(t, err, "input %q", in)
	}
}

func TestParseMarshalRoundTrip(t *testing.T) {
	in := `{"nested":{"list":[1,2.25,"three",false]},"v":1}`
	v, err := Parse([]byte(in))
	require.NoError(t, err)

	out, err := Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, in, string(out))
}

func TestFromGo(t *testing.T) {
	v, err := FromGo(map[string]any{
		"s":    "x",
		"i":    3,
		"u":    uint8(4),
		"f":    2.5,
		"b":    true,
		"n":    nil,
		"list": []any{1, "two"},
		"tags": []string{"a", "b"},
	})
	require.NoError(t, err)

	got, err := Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"b":true,"f":2.5,"i":3,"list":[1,"two"],"n":null,"s":"x","tags":["a","b"],"u":4}`, string(got))
}

func TestFromGoRejects(t *testing.T) {
	_, err := FromGo(math.NaN())
	assert.Error(t, err)

	_, err = FromGo(uint64(math.MaxUint64))
	assert.Error(t, err)

	_, err = FromGo(struct{}{})
	assert.Error(t, err)
}

func TestToGo(t *testing.T) {
	v := Object{"a": Array{Int(1), Float(0.5), Null{}}, "b": String("x")}
	assert.Equal(t, map[string]any{
		"a": []any{int64(1), 0.5, nil},
		"b": "x",
	}, ToGo(v))
}

func TestCloneIsDeep(t *testing.T) {
	orig := Object{"inner": Object{"k": Int(1)}}
	cp := Clone(orig).(Object)

	cp["inner"].(Object)["k"] = Int(2)
	assert.Equal(t, Int(1), orig["inner"].(Object)["k"])
}

func TestEqualComparesCanonically(t *testing.T) {
	assert.True(t, Equal(Int(1), Float(1.0)))
	assert.True(t, Equal(Object{"a": Int(1), "b": Int(2)}, Object{"b": Int(2), "a": Int(1)}))
	assert.False(t, Equal(String("1"), Int(1)))
	assert.False(t, Equal(Float(math.NaN()), Float(math.NaN())))
}

func TestSHA256Hex(t *testing.T) {
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		SHA256Hex(nil))
}

func TestHashWithDomainSeparates(t *testing.T) {
	data := []byte(`{"id":"test"}`)
	h1 := HashWithDomain("umicp/a/v1", data)
	h2 := HashWithDomain("umicp/b/v1", data)

	assert.Len(t, h1, 64)
	assert.NotEqual(t, h1, h2)
	assert.NotEqual(t, SHA256Hex(data), h1)
}

func TestMarshalSortsNormalizedKeys(t *testing.T) {
	// "e" + U+0301 normalizes to U+00E9, which sorts after "f".
	got, err := Marshal(Object{"e\u0301": Int(1), "f": Int(2)})
	require.NoError(t, err)
	assert.Equal(t, "{\"f\":2,\"\u00e9\":1}", string(got))
}

func TestMarshalRejectsCollidingKeys(t *testing.T) {
	_, err := Marshal(Object{"\u00e9": Int(1), "e\u0301": Int(2)})
	assert.ErrorIs(t, err, ErrDuplicateKey)

	_, err = Normalize(Array{Object{"\u00e9": Int(1), "e\u0301": Int(2)}})
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestNormalize(t *testing.T) {
	got, err := Normalize(Object{"e\u0301": Array{String("e\u0301"), Int(1)}})
	require.NoError(t, err)
	assert.Equal(t, Object{"\u00e9": Array{String("\u00e9"), Int(1)}}, got)
}
