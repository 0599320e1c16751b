package ir

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValueSealed(t *testing.T) {
	values := []IRValue{
		IRNull{},
		IRString("a"),
		IRInt(1),
		IRBool(true),
		NewIRDecimal(decimal.RequireFromString("1.5")),
		IRArray{},
		IRObject{},
		IRGrouping{Key: IRString("k")},
	}
	for _, v := range values {
		assert.NotNil(t, v)
	}
}

func TestIRObjectSortedKeys(t *testing.T) {
	obj := IRObject{"zebra": IRInt(1), "alpha": IRInt(2), "beta": IRInt(3)}
	assert.Equal(t, []string{"alpha", "beta", "zebra"}, obj.SortedKeys())
}

func TestIRObjectSortedKeysUTF16(t *testing.T) {
	obj := IRObject{"": IRInt(1), "𐀀": IRInt(2)}
	assert.Equal(t, []string{"𐀀", ""}, obj.SortedKeys())
}

func TestUnmarshalIRValueNumbers(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected IRValue
	}{
		{"int", "42", IRInt(42)},
		{"negative", "-7", IRInt(-7)},
		{"decimal", "2.5", NewIRDecimal(decimal.RequireFromString("2.5"))},
		{"exponent", "1e2", NewIRDecimal(decimal.RequireFromString("100"))},
		{"null", "null", IRNull{}},
		{"string", `"x"`, IRString("x")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := UnmarshalIRValue([]byte(tt.input))
			require.NoError(t, err)
			assert.True(t, Equal(tt.expected, v), "got %#v", v)
		})
	}
}

func TestUnmarshalIRObjectNested(t *testing.T) {
	var obj IRObject
	err := json.Unmarshal([]byte(`{"name":"ann","tags":["a","b"],"score":1.25,"n":null}`), &obj)
	require.NoError(t, err)

	assert.Equal(t, IRString("ann"), obj["name"])
	assert.Equal(t, IRArray{IRString("a"), IRString("b")}, obj["tags"])
	assert.Equal(t, IRNull{}, obj["n"])
	score, ok := obj["score"].(IRDecimal)
	require.True(t, ok)
	assert.Equal(t, "1.25", score.String())
}

func TestMarshalIRValueRoundTrip(t *testing.T) {
	original := IRObject{
		"a": IRArray{IRInt(1), IRBool(false), IRNull{}},
		"b": NewIRDecimal(decimal.RequireFromString("3.75")),
	}
	data, err := MarshalIRValue(original)
	require.NoError(t, err)
	assert.Equal(t, `{"a":[1,false,null],"b":3.75}`, string(data))

	back, err := UnmarshalIRValue(data)
	require.NoError(t, err)
	assert.True(t, Equal(original, back))
}

func TestMarshalGrouping(t *testing.T) {
	g := IRGrouping{Key: IRString("x"), Elements: IRArray{IRInt(1), IRInt(2)}}
	data, err := json.Marshal(g)
	require.NoError(t, err)
	assert.Equal(t, `{"elements":[1,2],"key":"x"}`, string(data))
}

func TestFromGo(t *testing.T) {
	v, err := FromGo(map[string]any{
		"i":   7,
		"f":   2.5,
		"whl": 3.0,
		"s":   "str",
		"nil": nil,
		"arr": []any{true, int64(2)},
	})
	require.NoError(t, err)

	obj := v.(IRObject)
	assert.Equal(t, IRInt(7), obj["i"])
	assert.Equal(t, IRInt(3), obj["whl"])
	assert.Equal(t, IRString("str"), obj["s"])
	assert.Equal(t, IRNull{}, obj["nil"])
	assert.Equal(t, IRArray{IRBool(true), IRInt(2)}, obj["arr"])
	f, ok := obj["f"].(IRDecimal)
	require.True(t, ok)
	assert.Equal(t, "2.5", f.String())
}

func TestFromGoUnsupported(t *testing.T) {
	_, err := FromGo(struct{}{})
	assert.Error(t, err)
}
