package canon

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_SortsKeys(t *testing.T) {
	out, err := Marshal(map[string]any{
		"zebra": int64(1),
		"alpha": int64(2),
		"mango": int64(3),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"mango":3,"zebra":1}`, string(out))
}

func TestMarshal_OrderIndependent(t *testing.T) {
	a := map[string]any{"x": int64(1), "y": "two", "z": []any{"a", "b"}}
	b := map[string]any{"z": []any{"a", "b"}, "y": "two", "x": int64(1)}

	outA, err := Marshal(a)
	require.NoError(t, err)
	outB, err := Marshal(b)
	require.NoError(t, err)

	assert.Equal(t, outA, outB, "key construction order must not affect output")
}

func TestMarshal_NoHTMLEscaping(t *testing.T) {
	out, err := Marshal(map[string]any{"expr": "a<b && c>d"})
	require.NoError(t, err)
	assert.Equal(t, `{"expr":"a<b && c>d"}`, string(out))
}

func TestMarshal_NumberTextPreserved(t *testing.T) {
	decoded, err := Decode([]byte(`{"total":"5000.00","rate":0.0750,"count":12}`))
	require.NoError(t, err)

	out, err := Marshal(decoded)
	require.NoError(t, err)
	assert.Equal(t, `{"count":12,"rate":0.0750,"total":"5000.00"}`, string(out))
}

func TestMarshal_RejectsRawFloat(t *testing.T) {
	_, err := Marshal(map[string]any{"v": 0.1})
	assert.Error(t, err, "float64 must be rejected; use canon.Decode")
}

func TestMarshal_NullAllowed(t *testing.T) {
	out, err := Marshal(map[string]any{"v": nil})
	require.NoError(t, err)
	assert.Equal(t, `{"v":null}`, string(out))
}

func TestDecode_RoundTripStable(t *testing.T) {
	src := []byte(`{"a":[1,2,{"b":"c"}],"n":null,"s":"<tag>","x":1e3}`)

	v1, err := Decode(src)
	require.NoError(t, err)
	out1, err := Marshal(v1)
	require.NoError(t, err)

	v2, err := Decode(out1)
	require.NoError(t, err)
	out2, err := Marshal(v2)
	require.NoError(t, err)

	assert.Equal(t, out1, out2, "canonical form must be a fixed point")
}

func TestDecode_TrailingDataRejected(t *testing.T) {
	_, err := Decode([]byte(`{"a":1} {"b":2}`))
	assert.Error(t, err)
}

func TestMarshal_NFCNormalization(t *testing.T) {
	// e + combining acute accent vs precomposed é
	composed := "café"
	decomposed := "café"

	outA, err := Marshal(map[string]any{"k": composed})
	require.NoError(t, err)
	outB, err := Marshal(map[string]any{"k": decomposed})
	require.NoError(t, err)

	assert.Equal(t, outA, outB, "NFC normalization must unify equivalent strings")
}

func TestSortedKeys_UTF16Order(t *testing.T) {
	// U+1D306 (surrogate pair in UTF-16) sorts before U+FF01 under UTF-16
	// code unit order, after it under UTF-8 byte order.
	obj := map[string]any{
		"\U0001D306": int64(1),
		"！":     int64(2),
	}
	keys := SortedKeys(obj)
	assert.Equal(t, []string{"\U0001D306", "！"}, keys)
}

func TestMarshal_JSONNumberVerbatim(t *testing.T) {
	out, err := Marshal(map[string]any{"v": json.Number("10.50")})
	require.NoError(t, err)
	assert.Equal(t, `{"v":10.50}`, string(out))
}
