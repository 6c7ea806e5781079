package bridge

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/colorfulnotion/evmbridge/bridgeerrors"
	"github.com/colorfulnotion/evmbridge/felt"
	"github.com/colorfulnotion/evmbridge/native"
	"github.com/colorfulnotion/evmbridge/native/memprovider"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicLowOne(t *testing.T) {
	want := common.Hash{}
	want[31] = 1
	assert.Equal(t, want, Topic(felt.One(), felt.Zero))
}

func TestTopicInvertsSplit(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	two128 := new(big.Int).Lsh(big.NewInt(1), 128)
	for i := 0; i < 200; i++ {
		var buf [32]byte
		rng.Read(buf[:])
		full := new(big.Int).SetBytes(buf[:])
		low := new(big.Int).Mod(full, two128)
		high := new(big.Int).Rsh(full, 128)

		lf, err := felt.FromBigInt(low)
		require.NoError(t, err)
		hf, err := felt.FromBigInt(high)
		require.NoError(t, err)
		assert.Equal(t, common.BigToHash(full), Topic(lf, hf))
	}
}

func TestReconstructLog(t *testing.T) {
	c := newTestClient(t, memprovider.New())
	emitter := common.HexToAddress("0x5eed00000000000000000000000000000000beef")
	bh := common.HexToHash("0xb10c")
	num := uint64(12)
	idx := uint64(3)

	l, err := c.ReconstructLog(native.Event{
		FromAddress: testInterpreter,
		Keys: []felt.Felt{
			felt.MustHex("0x1"), felt.MustHex("0x2"), // topic 0
			felt.MustHex("0x3"), // topic 1, high missing
			AddressToFelt(emitter),
		},
		Data: felts(0xde, 0xad),
	}, LogContext{BlockHash: &bh, BlockNumber: &num, TxHash: common.HexToHash("0x77"), TxIndex: &idx, LogIndex: 4})
	require.NoError(t, err)

	assert.Equal(t, emitter, l.Address)
	require.Len(t, l.Topics, 2)
	assert.Equal(t, common.HexToHash("0x200000000000000000000000000000001"), l.Topics[0])
	assert.Equal(t, common.HexToHash("0x3"), l.Topics[1])
	assert.Equal(t, []byte{0xde, 0xad}, []byte(l.Data))
	assert.Equal(t, uint64(12), uint64(*l.BlockNumber))
	assert.Equal(t, uint64(3), uint64(*l.TransactionIndex))
	assert.Equal(t, uint64(4), uint64(l.LogIndex))
	assert.Equal(t, &bh, l.BlockHash)
}

func TestReconstructLogEmitterOnly(t *testing.T) {
	c := newTestClient(t, memprovider.New())
	l, err := c.ReconstructLog(native.Event{FromAddress: testInterpreter, Keys: felts(0xaa)}, LogContext{})
	require.NoError(t, err)
	assert.Empty(t, l.Topics)
	assert.Empty(t, l.Data)
	assert.Nil(t, l.BlockHash)
	assert.Nil(t, l.BlockNumber)
}

func TestReconstructLogRejects(t *testing.T) {
	c := newTestClient(t, memprovider.New())

	_, err := c.ReconstructLog(native.Event{FromAddress: felt.FromUint64(1), Keys: felts(1)}, LogContext{})
	assert.ErrorIs(t, err, bridgeerrors.ErrNotBridgeEvent)

	_, err = c.ReconstructLog(native.Event{FromAddress: testInterpreter}, LogContext{})
	assert.ErrorIs(t, err, bridgeerrors.ErrMalformedEvent)

	_, err = c.ReconstructLog(native.Event{FromAddress: testInterpreter, Keys: felts(1), Data: felts(0x1ff)}, LogContext{})
	assert.ErrorIs(t, err, bridgeerrors.ErrMalformedEvent)
}
