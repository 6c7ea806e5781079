package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/colorfulnotion/evmbridge/bridge"
	"github.com/colorfulnotion/evmbridge/felt"
	"github.com/colorfulnotion/evmbridge/native"
	"github.com/colorfulnotion/evmbridge/native/memprovider"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var interpreter = felt.MustHex("0x7ea7e2")

func TestAccountStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts")
	addr := common.HexToAddress("0x1000000000000000000000000000000000000001")
	account := felt.MustHex("0x4a11ce")

	ps, err := NewPersistenceStore(path)
	require.NoError(t, err)
	s := NewAccountStore(ps)
	_, ok, err := s.Account(interpreter, addr)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, s.PutAccount(interpreter, addr, account))
	require.NoError(t, ps.Close())

	ps, err = NewPersistenceStore(path)
	require.NoError(t, err)
	defer ps.Close()
	s = NewAccountStore(ps)
	got, ok, err := s.Account(interpreter, addr)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, account, got)

	// entries are per interpreter
	_, ok, err = s.Account(felt.MustHex("0x1"), addr)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClientUsesAccountStore(t *testing.T) {
	ps, err := NewPersistenceStore("")
	require.NoError(t, err)
	defer ps.Close()

	d := memprovider.NewDevnet(interpreter, felt.MustHex("0x70ce"))
	c, err := bridge.NewClient(d, bridge.Config{InterpreterAddress: interpreter, Accounts: NewAccountStore(ps)})
	require.NoError(t, err)

	ctx := context.Background()
	addr := common.HexToAddress("0x2000000000000000000000000000000000000002")
	first, err := c.ToNative(ctx, addr, native.LatestBlock())
	require.NoError(t, err)
	assert.Equal(t, memprovider.AccountAddress(bridge.AddressToFelt(addr)), first)

	// served from the store once the interpreter stops answering
	d.FailWith(memprovider.MethodCall, assert.AnError)
	second, err := c.ToNative(ctx, addr, native.LatestBlock())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = c.ToNative(ctx, common.HexToAddress("0x03"), native.LatestBlock())
	assert.Error(t, err)
}
