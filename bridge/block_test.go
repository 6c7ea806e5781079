package bridge

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/colorfulnotion/evmbridge/felt"
	"github.com/colorfulnotion/evmbridge/native"
	"github.com/colorfulnotion/evmbridge/native/memprovider"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mixedBlock seals a block holding one relayed invoke, one deploy and one
// invoke whose calldata is not a relay.
func mixedBlock(t *testing.T, d *memprovider.Devnet) (*native.Block, common.Hash) {
	t.Helper()
	key, from := newKey(t)
	account := d.Deploy(from, nil, nil)
	_, raw := signedTx(t, key, 0, common.HexToAddress("0x01"), nil)

	relayed := native.Transaction{
		TransactionHash: felt.FromUint64(0xa1),
		Type:            native.TxInvoke,
		Version:         felt.One(),
		SenderAddress:   &account,
		Calldata:        RawCalldata(testInterpreter, raw),
	}
	other := felt.FromUint64(0xbad)
	b := &native.Block{
		BlockHeader: native.BlockHeader{
			Timestamp:        1700000000,
			SequencerAddress: felt.MustHex("0x5e9000000000000000000000000000000000000000000000000000000000001"),
		},
		Transactions: []native.Transaction{
			{TransactionHash: felt.FromUint64(0xa0), Type: native.TxDeploy},
			relayed,
			{TransactionHash: felt.FromUint64(0xa2), Type: native.TxInvoke, SenderAddress: &other, Calldata: felts(1, 2, 3)},
		},
	}
	d.AddBlock(b)
	return b, FeltToHash(relayed.TransactionHash)
}

func TestBlockHashesOnly(t *testing.T) {
	c, d := newDevnetClient(t)
	b, _ := mixedBlock(t, d)

	out, err := c.BlockByID(context.Background(), native.LatestBlock(), false)
	require.NoError(t, err)
	assert.False(t, out.Transactions.IsFull())
	assert.Equal(t, 3, out.Transactions.Len())
	assert.Equal(t, FeltToHash(*b.BlockHash), *out.Hash)
	assert.Equal(t, uint64(1), uint64(*out.Number))
	assert.Equal(t, FeltToHash(b.ParentHash), out.ParentHash)
	assert.Equal(t, Truncate(b.SequencerAddress), out.Miner)
	assert.Equal(t, uint64(1700000000), uint64(out.Timestamp))
	assert.Equal(t, types.EmptyUncleHash, out.Sha3Uncles)
	assert.Equal(t, int64(BaseFeeWei), out.BaseFeePerGas.ToInt().Int64())
	assert.Empty(t, out.Uncles)
}

func TestBlockHydratedExcludesFailures(t *testing.T) {
	c, d := newDevnetClient(t)
	_, relayed := mixedBlock(t, d)
	ctx := context.Background()

	out, err := c.BlockByID(ctx, native.BlockNumber(1), true)
	require.NoError(t, err)
	require.True(t, out.Transactions.IsFull())
	require.Len(t, out.Transactions.Full, 1)
	tx := out.Transactions.Full[0]
	assert.Equal(t, relayed, tx.Hash)
	assert.Equal(t, *out.Hash, *tx.BlockHash)
	assert.Equal(t, uint64(1), uint64(*tx.TransactionIndex))

	n, err := c.BlockTransactionCount(ctx, native.BlockNumber(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	// hydrating a hash-only block fetches each transaction
	hashes, err := d.BlockWithTxHashes(ctx, native.BlockNumber(1))
	require.NoError(t, err)
	out, err = c.TranslateBlock(ctx, hashes, true)
	require.NoError(t, err)
	assert.Len(t, out.Transactions.Full, 1)
}

func TestPendingBlockHasNullHashAndNumber(t *testing.T) {
	c, d := newDevnetClient(t)
	d.SetPending(&native.Block{Transactions: []native.Transaction{}})

	out, err := c.BlockByID(context.Background(), native.PendingBlock(), false)
	require.NoError(t, err)
	assert.Nil(t, out.Hash)
	assert.Nil(t, out.Number)

	data, err := json.Marshal(out)
	require.NoError(t, err)
	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Nil(t, wire["hash"])
	assert.Nil(t, wire["number"])
	assert.Equal(t, []interface{}{}, wire["transactions"])
}

func TestBlockCancelled(t *testing.T) {
	c, d := newDevnetClient(t)
	b, _ := mixedBlock(t, d)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.TranslateBlock(ctx, b, true)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBlockIDFromNumberOrHash(t *testing.T) {
	cases := map[string]string{
		`"latest"`:    "latest",
		`"safe"`:      "latest",
		`"finalized"`: "latest",
		`"pending"`:   "pending",
		`"earliest"`:  "#0",
		`"0x10"`:      "#16",
		`{"blockHash":"0x0000000000000000000000000000000000000000000000000000000000000abc"}`: "0xabc",
	}
	for in, want := range cases {
		var ref rpc.BlockNumberOrHash
		require.NoError(t, json.Unmarshal([]byte(in), &ref), in)
		id, err := BlockIDFromNumberOrHash(ref)
		require.NoError(t, err, in)
		assert.Equal(t, want, id.String(), in)
	}
}
