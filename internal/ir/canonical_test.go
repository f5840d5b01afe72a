package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/simtree/internal/array"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    Value
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"empty string", String(""), `""`},
		{"int", Int(42), "42"},
		{"negative int", Int(-100), "-100"},
		{"bool true", Bool(true), "true"},
		{"null", Null{}, "null"},
		{"float", Float(1.5), `{"$float":"1.5"}`},
		{"integral float", Float(2), `{"$float":"2.0"}`},
		{"negative zero", Float(math.Copysign(0, -1)), `{"$float":"0.0"}`},
		{"nan", Float(math.NaN()), `{"$float":"NaN"}`},
		{"neg inf", Float(math.Inf(-1)), `{"$float":"-Infinity"}`},
		{"enum", Enum("rk4"), `{"$enum":"rk4"}`},
		{"empty list", List{}, "[]"},
		{"empty map", Map{}, "{}"},
		{"list of ints", List{Int(1), Int(2), Int(3)}, "[1,2,3]"},
		{"simple map", Map{"a": Int(1)}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	m := Map{
		"zebra": Int(1),
		"alpha": Int(2),
		"beta":  Int(3),
	}

	result, err := MarshalCanonical(m)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":3,"zebra":1}`, string(result))
}

func TestMarshalCanonicalUTF16KeyOrder(t *testing.T) {
	// U+1F600 encodes as surrogates 0xD83D..., which sort below U+FF61 in UTF-16
	// but above it in UTF-8.
	m := Map{"｡": Int(1), "\U0001F600": Int(2)}

	result, err := MarshalCanonical(m)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"｡\":1}", string(result))
}

func TestMarshalCanonicalStringEscaping(t *testing.T) {
	result, err := MarshalCanonical(String("a\"b\\c\n<&> \x01"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\\\"b\\\\c\\n<&> \\u0001\"", string(result))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	composed, err := MarshalCanonical(String("\u00e9"))
	require.NoError(t, err)
	decomposed, err := MarshalCanonical(String("e\u0301"))
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)
}

func TestMarshalCanonicalHostArray(t *testing.T) {
	h := HostArrayOf(array.FromBools(true, false))
	result, err := MarshalCanonical(h)
	require.NoError(t, err)
	assert.Equal(t, `{"$host_array":{"bytes":"AQA=","dtype":"bool","shape":[2]}}`, string(result))
}

func TestMarshalCanonicalRecord(t *testing.T) {
	cfg := MustRecordType("Solver",
		Field{Name: "steps", Type: IntType},
		Field{Name: "integrator", Type: EnumType{Values: []string{"euler", "rk4"}}},
	)
	r := MustRecord(cfg, F("steps", Int(4)), F("integrator", Enum("rk4")))

	result, err := MarshalCanonical(r)
	require.NoError(t, err)
	assert.Equal(t, `{"$record":{"fields":{"integrator":{"$enum":"rk4"},"steps":4},"name":"Solver"}}`, string(result))
}

func TestMarshalCanonicalOpaque(t *testing.T) {
	result, err := MarshalCanonical(Opaque{Tag: "mesh", V: meshHandle{"ab"}})
	require.NoError(t, err)
	assert.Equal(t, `{"$opaque":{"bytes":"YWI=","tag":"mesh"}}`, string(result))

	_, err = MarshalCanonical(Opaque{Tag: "fn", V: func() {}})
	assert.True(t, IsUnsupportedFieldType(err))
}

func TestMarshalCanonicalRejectsNumericArrays(t *testing.T) {
	_, err := MarshalCanonical(List{ArrayOf(array.FromFloat64s(1))})
	require.Error(t, err)
	assert.True(t, IsUnsupportedFieldType(err))
	assert.Contains(t, err.Error(), "list[0]")
}
