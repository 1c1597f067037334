package canonical

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_SortsKeys(t *testing.T) {
	data, err := Marshal(map[string]any{"b": 1, "a": "x", "c": true})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":1,"c":true}`, string(data))
}

func TestMarshal_UTF16KeyOrder(t *testing.T) {
	// U+FF61 is a single UTF-16 unit above the surrogate range, U+1F600 is a
	// surrogate pair starting at 0xD83D, so the emoji sorts first.
	data, err := Marshal(map[string]any{"\uff61": 1, "\U0001F600": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"\uff61\":1}", string(data))
}

func TestMarshal_NoHTMLEscaping(t *testing.T) {
	data, err := Marshal("<a & b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(data))
}

func TestMarshal_LineSeparatorsLiteral(t *testing.T) {
	data, err := Marshal("a\u2028b\u2029c")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(data))
}

func TestMarshal_EscapedBackslashBeforeU2028Text(t *testing.T) {
	data, err := Marshal(`\u2028`)
	require.NoError(t, err)
	assert.Equal(t, `"\\u2028"`, string(data))
}

func TestMarshal_NFCNormalization(t *testing.T) {
	decomposed := "e\u0301"
	data, err := Marshal(decomposed)
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(data))
}

func TestMarshal_Numbers(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{1, "1"},
		{int64(-7), "-7"},
		{1.0, "1"},
		{2.5, "2.5"},
		{json.Number("3"), "3"},
		{json.Number("3.25"), "3.25"},
		{1e21, "1e+21"},
		{float32(0.5), "0.5"},
	}
	for _, tc := range cases {
		data, err := Marshal(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, string(data), "input %v", tc.in)
	}
}

func TestMarshal_RejectsNonFinite(t *testing.T) {
	_, err := Marshal(math.NaN())
	require.Error(t, err)
	_, err = Marshal(math.Inf(1))
	require.Error(t, err)
}

func TestMarshal_NullAndNested(t *testing.T) {
	data, err := Marshal(map[string]any{"list": []any{nil, false, map[string]any{"z": 0}}})
	require.NoError(t, err)
	assert.Equal(t, `{"list":[null,false,{"z":0}]}`, string(data))
}

func TestMarshal_Struct(t *testing.T) {
	type point struct {
		Y int `json:"y"`
		X int `json:"x"`
	}
	data, err := Marshal(point{Y: 2, X: 1})
	require.NoError(t, err)
	assert.Equal(t, `{"x":1,"y":2}`, string(data))
}

func TestEqual_IntAndFloat(t *testing.T) {
	eq, err := Equal(map[string]any{"n": 1}, map[string]any{"n": 1.0})
	require.NoError(t, err)
	assert.True(t, eq)

	eq, err = Equal(map[string]any{"n": 1}, map[string]any{"n": "1"})
	require.NoError(t, err)
	assert.False(t, eq)
}

func TestNormalize_TypedMap(t *testing.T) {
	out, err := Normalize(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": json.Number("1")}, out)
}

func TestDeepCopy_Independent(t *testing.T) {
	orig := map[string]any{
		"rows":   [][]any{{"a", "b"}, {1, 2}},
		"nested": map[string]any{"list": []any{"x"}},
		"lines":  []map[string]any{{"k": "v"}},
		"raw":    []byte("abc"),
	}
	cp := DeepCopy(orig).(map[string]any)

	cp["rows"].([][]any)[0][0] = "changed"
	cp["nested"].(map[string]any)["list"].([]any)[0] = "changed"
	cp["lines"].([]map[string]any)[0]["k"] = "changed"
	cp["raw"].([]byte)[0] = 'z'

	assert.Equal(t, "a", orig["rows"].([][]any)[0][0])
	assert.Equal(t, "x", orig["nested"].(map[string]any)["list"].([]any)[0])
	assert.Equal(t, "v", orig["lines"].([]map[string]any)[0]["k"])
	assert.Equal(t, byte('a'), orig["raw"].([]byte)[0])
}

func TestCopyMap_Nil(t *testing.T) {
	assert.Nil(t, CopyMap(nil))
}
