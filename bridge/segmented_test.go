package bridge

import (
	"testing"

	"github.com/colorfulnotion/evmbridge/bridgeerrors"
	"github.com/colorfulnotion/evmbridge/felt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func felts(vs ...uint64) []felt.Felt {
	out := make([]felt.Felt, len(vs))
	for i, v := range vs {
		out[i] = felt.FromUint64(v)
	}
	return out
}

func TestSegmentedRoundTripBytes(t *testing.T) {
	enc, err := EncodeSegmented(EthCallSchemaV1, []Segment{ArraySegment(BytesToFelts([]byte{0x41, 0x42}))})
	require.NoError(t, err)
	assert.Equal(t, felts(1, 2, 0x41, 0x42), enc)

	segs, err := DecodeSegmented(EthCallSchemaV1, enc)
	require.NoError(t, err)
	require.Len(t, segs, 1)
	b, err := segs[0].Bytes(false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x41, 0x42}, b)
}

func TestSegmentedMixedSchema(t *testing.T) {
	schema := Schema{Name: "mixed", Version: 1, Segments: []SegmentKind{SegmentFelt, SegmentFeltArray, SegmentFelt}}
	in := []Segment{FeltSegment(felt.FromUint64(9)), ArraySegment(felts()), FeltSegment(felt.Max())}
	enc, err := EncodeSegmented(schema, in)
	require.NoError(t, err)

	out, err := DecodeSegmented(schema, enc)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, uint64(9), out[0].Value.Uint64())
	assert.Empty(t, out[1].Values)
	assert.True(t, out[2].Value.Equal(felt.Max()))

	_, err = out[0].Bytes(false)
	assert.Error(t, err)

	_, err = EncodeSegmented(schema, in[:2])
	assert.Error(t, err)
	_, err = EncodeSegmented(schema, []Segment{in[1], in[0], in[2]})
	assert.Error(t, err)
}

func TestSegmentedMalformed(t *testing.T) {
	cases := []struct {
		name   string
		felts  []felt.Felt
		offset string
	}{
		{"empty", nil, "@0"},
		{"zero segments", felts(0), "@0"},
		{"count mismatch", felts(2, 0, 0), "@0"},
		{"huge count", []felt.Felt{felt.Max()}, "@0"},
		{"missing array", felts(1), "@1"},
		{"length past end", felts(1, 3, 1, 2), "@1"},
		{"huge length", []felt.Felt{felt.One(), felt.Max()}, "@1"},
		{"trailing", felts(1, 1, 7, 8), "@3"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var segs []Segment
			var err error
			assert.NotPanics(t, func() { segs, err = DecodeSegmented(EthCallSchemaV1, c.felts) })
			require.Error(t, err)
			assert.Nil(t, segs)
			assert.ErrorIs(t, err, bridgeerrors.ErrDecode)
			assert.Contains(t, err.Error(), "eth_call/v1"+c.offset)
		})
	}

	_, err := DecodeSegmented(Schema{Name: "x", Version: 2}, felts(0))
	assert.ErrorIs(t, err, bridgeerrors.ErrDecode)
}

func TestFeltsToBytesStrictAndLossy(t *testing.T) {
	in := []felt.Felt{felt.FromUint64(0x41), felt.FromUint64(0x100), felt.FromUint64(0x42)}

	_, err := FeltsToBytes(in, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "element 1")

	// Known risk: lossy mode drops the offending element and shifts the
	// remaining bytes instead of failing.
	b, err := FeltsToBytes(in, true)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x41, 0x42}, b)

	b, err = FeltsToBytes([]felt.Felt{felt.Zero, felt.FromUint64(0xff)}, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xff}, b)

	assert.Equal(t, felts(0, 0xff), BytesToFelts([]byte{0, 0xff}))
}
