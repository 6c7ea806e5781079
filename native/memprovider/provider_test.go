package memprovider

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/colorfulnotion/evmbridge/felt"
	"github.com/colorfulnotion/evmbridge/native"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlocksByTagNumberAndHash(t *testing.T) {
	p := New()
	ctx := context.Background()

	_, err := p.BlockNumber(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	p.AddBlock(&native.Block{})
	tx := native.Transaction{TransactionHash: felt.FromUint64(0xa1), Type: native.TxInvoke}
	p.AddBlock(&native.Block{Transactions: []native.Transaction{tx}})

	n, err := p.BlockNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	latest, err := p.BlockWithTxHashes(ctx, native.LatestBlock())
	require.NoError(t, err)
	assert.Equal(t, []felt.Felt{tx.TransactionHash}, latest.TransactionHashes)

	byHash, err := p.BlockWithTxs(ctx, native.BlockHash(*latest.BlockHash))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), *byHash.BlockNumber)

	genesis, err := p.BlockWithTxs(ctx, native.BlockNumber(0))
	require.NoError(t, err)
	assert.Equal(t, *genesis.BlockHash, byHash.ParentHash)

	// no pending block falls back to latest
	pending, err := p.BlockWithTxs(ctx, native.PendingBlock())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), *pending.BlockNumber)

	_, err = p.BlockWithTxs(ctx, native.BlockNumber(9))
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := p.TransactionByBlockIDAndIndex(ctx, native.BlockNumber(1), 0)
	require.NoError(t, err)
	assert.Equal(t, tx.TransactionHash, got.TransactionHash)
	_, err = p.TransactionByBlockIDAndIndex(ctx, native.BlockNumber(1), 1)
	assert.Error(t, err)
}

func TestFailWithAndCancellation(t *testing.T) {
	p := New()
	boom := errors.New("boom")
	p.FailWith(MethodSyncing, boom)
	_, err := p.Syncing(context.Background())
	assert.ErrorIs(t, err, boom)
	p.FailWith(MethodSyncing, nil)
	st, err := p.Syncing(context.Background())
	require.NoError(t, err)
	assert.Nil(t, st)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Call(ctx, native.FunctionCall{}, native.LatestBlock())
	assert.ErrorIs(t, err, context.Canceled)

	_, err = p.Call(context.Background(), native.FunctionCall{}, native.LatestBlock())
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestInvokeAndSeal(t *testing.T) {
	d := NewDevnet(felt.FromUint64(0x1111), felt.FromUint64(0x2222))
	ctx := context.Background()
	sender := felt.FromUint64(0x77)

	hash, err := d.AddInvokeTransaction(ctx, native.InvokeTransaction{
		SenderAddress: sender,
		Calldata:      []felt.Felt{felt.One()},
		Nonce:         felt.FromUint64(4),
	})
	require.NoError(t, err)
	assert.Len(t, d.Invokes(), 1)

	r, err := d.TransactionReceipt(ctx, hash)
	require.NoError(t, err)
	assert.True(t, r.IsPending())

	nonce, err := d.Nonce(ctx, native.LatestBlock(), sender)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), nonce.Uint64())

	b := d.Seal(1234)
	assert.Equal(t, uint64(1), *b.BlockNumber)
	r, err = d.TransactionReceipt(ctx, hash)
	require.NoError(t, err)
	assert.False(t, r.IsPending())
	assert.Equal(t, native.StatusAcceptedOnL2, r.Status)

	tx, err := d.TransactionByHash(ctx, hash)
	require.NoError(t, err)
	assert.True(t, tx.IsInvoke())
	assert.Equal(t, uint64(4), tx.Nonce.Uint64())
}

func TestDevnetEntrypoints(t *testing.T) {
	interp, token := felt.FromUint64(0x1111), felt.FromUint64(0x2222)
	d := NewDevnet(interp, token)
	ctx := context.Background()
	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	account := d.Deploy(addr, []byte{0x60, 0x00}, big.NewInt(500))

	out, err := d.Call(ctx, native.FunctionCall{
		ContractAddress:    interp,
		EntryPointSelector: felt.Selector("compute_starknet_address"),
		Calldata:           []felt.Felt{felt.FromUint64(0xaa)},
	}, native.LatestBlock())
	require.NoError(t, err)
	assert.Equal(t, []felt.Felt{account}, out)

	out, err = d.Call(ctx, native.FunctionCall{ContractAddress: account, EntryPointSelector: felt.Selector("bytecode")}, native.LatestBlock())
	require.NoError(t, err)
	assert.Equal(t, []felt.Felt{felt.FromUint64(0x60), felt.Zero}, out)

	out, err = d.Call(ctx, native.FunctionCall{
		ContractAddress:    token,
		EntryPointSelector: felt.Selector("balance_of"),
		Calldata:           []felt.Felt{account},
	}, native.LatestBlock())
	require.NoError(t, err)
	assert.Equal(t, uint64(500), out[0].Uint64())

	d.SetCallResult(addr, []byte{0x41, 0x42})
	out, err = d.Call(ctx, native.FunctionCall{
		ContractAddress:    interp,
		EntryPointSelector: felt.Selector("eth_call"),
		Calldata:           []felt.Felt{account, felt.Max(), felt.Zero, felt.Zero, felt.Zero},
	}, native.LatestBlock())
	require.NoError(t, err)
	assert.Equal(t, []felt.Felt{felt.One(), felt.FromUint64(2), felt.FromUint64(0x41), felt.FromUint64(0x42)}, out)
}
