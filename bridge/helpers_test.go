package bridge

import (
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/colorfulnotion/evmbridge/felt"
	"github.com/colorfulnotion/evmbridge/native"
	"github.com/colorfulnotion/evmbridge/native/memprovider"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

var (
	testInterpreter = felt.MustHex("0x7ea7e2")
	testToken       = felt.MustHex("0x70ce")
	testChainID     = uint64(1263227476)
)

func newTestClient(t *testing.T, p native.Provider) *Client {
	t.Helper()
	c, err := NewClient(p, Config{
		InterpreterAddress: testInterpreter,
		NativeTokenAddress: testToken,
		ChainID:            testChainID,
	})
	require.NoError(t, err)
	return c
}

func newDevnetClient(t *testing.T) (*Client, *memprovider.Devnet) {
	t.Helper()
	d := memprovider.NewDevnet(testInterpreter, testToken)
	return newTestClient(t, d), d
}

// signedTx returns a signed dynamic fee transaction and its encoding.
func signedTx(t *testing.T, key *ecdsa.PrivateKey, nonce uint64, to common.Address, data []byte) (*types.Transaction, []byte) {
	t.Helper()
	chainID := new(big.Int).SetUint64(testChainID)
	tx, err := types.SignNewTx(key, types.LatestSignerForChainID(chainID), &types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: big.NewInt(0),
		GasFeeCap: big.NewInt(1),
		Gas:       100_000,
		To:        &to,
		Value:     big.NewInt(7),
		Data:      data,
	})
	require.NoError(t, err)
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return tx, raw
}

func newKey(t *testing.T) (*ecdsa.PrivateKey, common.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key, crypto.PubkeyToAddress(key.PublicKey)
}
