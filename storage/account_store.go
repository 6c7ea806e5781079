package storage

import (
	"fmt"

	"github.com/colorfulnotion/evmbridge/bridge"
	"github.com/colorfulnotion/evmbridge/felt"
	"github.com/ethereum/go-ethereum/common"
)

const accountPrefix = 'n'

// AccountStore is a bridge.AccountCache backed by a PersistenceStore.
// Keys are 'n' || interpreter (32 bytes) || evm address (20 bytes).
type AccountStore struct {
	ps *PersistenceStore
}

var _ bridge.AccountCache = (*AccountStore)(nil)

func NewAccountStore(ps *PersistenceStore) *AccountStore {
	return &AccountStore{ps: ps}
}

func accountKey(interpreter felt.Felt, addr common.Address) []byte {
	ib := interpreter.Bytes()
	key := make([]byte, 0, 1+felt.Size+common.AddressLength)
	key = append(key, accountPrefix)
	key = append(key, ib[:]...)
	return append(key, addr.Bytes()...)
}

func (s *AccountStore) Account(interpreter felt.Felt, addr common.Address) (felt.Felt, bool, error) {
	v, ok, err := s.ps.Get(accountKey(interpreter, addr))
	if err != nil || !ok {
		return felt.Zero, false, err
	}
	if len(v) != felt.Size {
		return felt.Zero, false, fmt.Errorf("account entry for %s has %d bytes", addr.Hex(), len(v))
	}
	return felt.FromBytes(v), true, nil
}

func (s *AccountStore) PutAccount(interpreter felt.Felt, addr common.Address, account felt.Felt) error {
	b := account.Bytes()
	return s.ps.Put(accountKey(interpreter, addr), b[:])
}
