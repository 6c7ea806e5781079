package memprovider

import (
	"errors"
	"math/big"
	"sync"

	"github.com/colorfulnotion/evmbridge/felt"
	"github.com/colorfulnotion/evmbridge/native"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Devnet wires the interpreter, account and token entrypoints onto a
// Provider so the bridge can be exercised without a ledger node.
type Devnet struct {
	*Provider

	Interpreter felt.Felt
	Token       felt.Felt

	mu       sync.RWMutex
	balances map[felt.Felt]felt.Felt
	results  map[felt.Felt][]byte
}

// NewDevnet returns a devnet with a genesis block already sealed.
func NewDevnet(interpreter, token felt.Felt) *Devnet {
	d := &Devnet{
		Provider:    New(),
		Interpreter: interpreter,
		Token:       token,
		balances:    make(map[felt.Felt]felt.Felt),
		results:     make(map[felt.Felt][]byte),
	}
	d.Handle(interpreter, "compute_starknet_address", func(calldata []felt.Felt, _ native.BlockID) ([]felt.Felt, error) {
		if len(calldata) != 1 {
			return nil, errBadArgs
		}
		return []felt.Felt{AccountAddress(calldata[0])}, nil
	})
	d.Handle(interpreter, "eth_call", d.ethCall)
	d.Handle(token, "balance_of", func(calldata []felt.Felt, _ native.BlockID) ([]felt.Felt, error) {
		if len(calldata) != 1 {
			return nil, errBadArgs
		}
		d.mu.RLock()
		defer d.mu.RUnlock()
		return []felt.Felt{d.balances[calldata[0]]}, nil
	})
	d.AddBlock(&native.Block{Transactions: []native.Transaction{}})
	return d
}

var errBadArgs = errors.New("wrong number of arguments")

// AccountAddress derives the native account of an EVM address the same way
// for every caller: keccak of the 32-byte form masked to 250 bits.
func AccountAddress(evm felt.Felt) felt.Felt {
	b := evm.Bytes()
	sum := crypto.Keccak256(b[:])
	sum[0] &= 0x03
	return felt.FromBytes(sum)
}

// Deploy registers the account contract of addr with code and balance and
// returns its native address.
func (d *Devnet) Deploy(addr common.Address, code []byte, balance *big.Int) felt.Felt {
	evm := felt.FromBytes(addr.Bytes())
	account := AccountAddress(evm)
	d.Returns(account, "get_evm_address", evm)

	codeFelts := make([]felt.Felt, len(code))
	for i, c := range code {
		codeFelts[i] = felt.FromUint64(uint64(c))
	}
	d.Returns(account, "bytecode", codeFelts...)
	d.SetNonce(account, felt.Zero)

	if balance != nil {
		d.mu.Lock()
		d.balances[account] = felt.FromBytes(balance.Bytes())
		d.mu.Unlock()
	}
	return account
}

// SetCallResult makes eth_call against addr return ret.
func (d *Devnet) SetCallResult(addr common.Address, ret []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.results[AccountAddress(felt.FromBytes(addr.Bytes()))] = ret
}

// ethCall answers with a single byte-array segment: [1, len, ...bytes].
func (d *Devnet) ethCall(calldata []felt.Felt, _ native.BlockID) ([]felt.Felt, error) {
	if len(calldata) < 5 {
		return nil, errBadArgs
	}
	d.mu.RLock()
	ret := d.results[calldata[0]]
	d.mu.RUnlock()

	out := make([]felt.Felt, 0, len(ret)+2)
	out = append(out, felt.One(), felt.FromUint64(uint64(len(ret))))
	for _, b := range ret {
		out = append(out, felt.FromUint64(uint64(b)))
	}
	return out, nil
}
