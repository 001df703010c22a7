package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"empty string", "", `""`},
		{"html stays literal", "<a & b>", `"<a & b>"`},
		{"line separators stay literal", "a\u2028b\u2029c", "\"a\u2028b\u2029c\""},
		{"escaped backslash-u text", `\u2028`, `"\\u2028"`},
		{"int", 42, "42"},
		{"int64 bounds", []any{int64(-100), int64(9223372036854775807)}, "[-100,9223372036854775807]"},
		{"integral json.Number", json.Number("7"), "7"},
		{"bools", []any{true, false}, "[true,false]"},
		{"empty containers", []any{[]any{}, map[string]any{}}, "[[],{}]"},
		{"keys sorted at every depth",
			map[string]any{"zebra": 1, "alpha": 2, "beta": map[string]any{"b": 1, "a": 2}},
			`{"alpha":2,"beta":{"a":2,"b":1},"zebra":1}`},
		// U+10000 encodes as surrogate 0xD800 in UTF-16, before U+E000.
		{"keys in UTF-16 order",
			map[string]any{"\uE000": 1, "\U00010000": 2},
			"{\"\U00010000\":2,\"\uE000\":1}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalCanonical_Rejects(t *testing.T) {
	for name, in := range map[string]any{
		"float":                  1.5,
		"fractional json.Number": json.Number("1.5"),
		"null":                   nil,
		"nested null":            map[string]any{"a": nil},
		"struct":                 struct{}{},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := MarshalCanonical(in)
			assert.Error(t, err)
		})
	}
}

func TestMarshalCanonical_NFC(t *testing.T) {
	decomposed, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(decomposed))
}

func TestCanonicalOf_StreamSpec(t *testing.T) {
	got, err := CanonicalOf(StreamSpec{ElementBytes: 1, LenMin: 0, LenMax: Unbounded, StartOffsets: []int{1}})
	require.NoError(t, err)
	assert.Equal(t, `{"element_bytes":1,"len_max":-1,"len_min":0,"start_offsets":[1]}`, string(got))
}
