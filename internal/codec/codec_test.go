package codec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/qudex/internal/codec"
)

type record struct {
	Name   string            `cbor:"name"`
	Fields map[string]string `cbor:"fields"`
}

func TestMarshal_RoundTrip(t *testing.T) {
	in := record{Name: "Bandage", Fields: map[string]string{"Weight": "0", "Value": "1"}}
	data, err := codec.Marshal(in)
	require.NoError(t, err)

	var out record
	require.NoError(t, codec.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestMarshal_DeterministicMapOrder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		fields := rapid.MapOf(rapid.StringMatching(`[A-Za-z]{1,8}`), rapid.String()).Draw(rt, "fields")
		a, err := codec.Marshal(record{Name: "x", Fields: fields})
		require.NoError(rt, err)

		copied := make(map[string]string, len(fields))
		for k, v := range fields {
			copied[k] = v
		}
		b, err := codec.Marshal(record{Name: "x", Fields: copied})
		require.NoError(rt, err)
		assert.Equal(rt, a, b)
	})
}

func TestFingerprint_EqualValuesEqualHashes(t *testing.T) {
	a, err := codec.Fingerprint(record{Name: "Bandage", Fields: map[string]string{"a": "1", "b": "2"}})
	require.NoError(t, err)
	b, err := codec.Fingerprint(record{Name: "Bandage", Fields: map[string]string{"b": "2", "a": "1"}})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.False(t, a.IsZero())
}

func TestFingerprint_DifferentValuesDiffer(t *testing.T) {
	a, err := codec.Fingerprint(record{Name: "Bandage"})
	require.NoError(t, err)
	b, err := codec.Fingerprint(record{Name: "Dagger"})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHash_StringParseRoundTrip(t *testing.T) {
	h, err := codec.Fingerprint("x")
	require.NoError(t, err)
	parsed, err := codec.ParseHash(h.String())
	require.NoError(t, err)
	assert.Equal(t, h, parsed)
	assert.Len(t, h.Short(), 12)
}

func TestParseHash_Errors(t *testing.T) {
	_, err := codec.ParseHash("zz")
	assert.Error(t, err)
	_, err = codec.ParseHash("abcd")
	assert.Error(t, err)
}
