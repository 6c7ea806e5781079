// Package memprovider is an in-memory native.Provider. Contracts are modelled
// as handlers keyed by address and entrypoint selector.
package memprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/colorfulnotion/evmbridge/felt"
	"github.com/colorfulnotion/evmbridge/native"
	"github.com/ethereum/go-ethereum/crypto"
)

// Method names accepted by FailWith.
const (
	MethodCall                         = "Call"
	MethodBlockWithTxs                 = "BlockWithTxs"
	MethodBlockWithTxHashes            = "BlockWithTxHashes"
	MethodTransactionByHash            = "TransactionByHash"
	MethodTransactionByBlockIDAndIndex = "TransactionByBlockIDAndIndex"
	MethodTransactionReceipt           = "TransactionReceipt"
	MethodNonce                        = "Nonce"
	MethodAddInvokeTransaction         = "AddInvokeTransaction"
	MethodBlockNumber                  = "BlockNumber"
	MethodSyncing                      = "Syncing"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrEntryNotFound  = errors.New("entry point not found")
	ErrBlockNotFound  = fmt.Errorf("block %w", ErrNotFound)
	ErrTxNotFound     = fmt.Errorf("transaction hash %w", ErrNotFound)
	ErrContractAbsent = errors.New("contract not deployed")
)

// Handler serves one contract entrypoint.
type Handler func(calldata []felt.Felt, at native.BlockID) ([]felt.Felt, error)

type entry struct {
	contract felt.Felt
	selector felt.Felt
}

// Provider is safe for concurrent use.
type Provider struct {
	mu       sync.RWMutex
	handlers map[entry]Handler
	blocks   []*native.Block
	pending  *native.Block
	txs      map[felt.Felt]*native.Transaction
	receipts map[felt.Felt]*native.Receipt
	nonces   map[felt.Felt]felt.Felt
	invokes  []native.InvokeTransaction
	unsealed []felt.Felt
	failures map[string]error
	syncing  *native.SyncStatus
}

var _ native.Provider = (*Provider)(nil)

func New() *Provider {
	return &Provider{
		handlers: make(map[entry]Handler),
		txs:      make(map[felt.Felt]*native.Transaction),
		receipts: make(map[felt.Felt]*native.Receipt),
		nonces:   make(map[felt.Felt]felt.Felt),
		failures: make(map[string]error),
	}
}

// Handle registers h for contract.entrypoint.
func (p *Provider) Handle(contract felt.Felt, entrypoint string, h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[entry{contract, felt.Selector(entrypoint)}] = h
}

// Returns registers a handler answering every call with out.
func (p *Provider) Returns(contract felt.Felt, entrypoint string, out ...felt.Felt) {
	p.Handle(contract, entrypoint, func([]felt.Felt, native.BlockID) ([]felt.Felt, error) {
		return out, nil
	})
}

// FailWith makes every call of method fail with err. A nil err clears it.
func (p *Provider) FailWith(method string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.failures, method)
		return
	}
	p.failures[method] = err
}

// AddBlock appends b as the next confirmed block and indexes its
// transactions. Number and hash are assigned if missing.
func (p *Provider) AddBlock(b *native.Block) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := uint64(len(p.blocks))
	b.BlockNumber = &n
	if b.BlockHash == nil {
		h := felt.FromUint64(0x1000 + n)
		b.BlockHash = &h
	}
	if b.Status == "" {
		b.Status = native.StatusAcceptedOnL2
	}
	if n > 0 {
		b.ParentHash = *p.blocks[n-1].BlockHash
	}
	p.indexBlock(b)
	p.blocks = append(p.blocks, b)
}

// SetPending installs b as the pending block. Hash and number are cleared.
func (p *Provider) SetPending(b *native.Block) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b.BlockHash, b.BlockNumber, b.NewRoot = nil, nil, nil
	b.Status = native.StatusPending
	p.indexBlock(b)
	p.pending = b
}

func (p *Provider) indexBlock(b *native.Block) {
	for i := range b.Transactions {
		tx := b.Transactions[i]
		p.txs[tx.TransactionHash] = &tx
	}
}

func (p *Provider) AddTransaction(tx native.Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.txs[tx.TransactionHash] = &tx
}

func (p *Provider) AddReceipt(r native.Receipt) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.receipts[r.TransactionHash] = &r
}

func (p *Provider) SetNonce(contract, nonce felt.Felt) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nonces[contract] = nonce
}

func (p *Provider) SetSyncing(st *native.SyncStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.syncing = st
}

// Invokes returns the invoke transactions submitted so far.
func (p *Provider) Invokes() []native.InvokeTransaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]native.InvokeTransaction(nil), p.invokes...)
}

func (p *Provider) check(ctx context.Context, method string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.failures[method]; err != nil {
		return err
	}
	return nil
}

func (p *Provider) block(id native.BlockID) (*native.Block, error) {
	switch {
	case id.Number != nil:
		if *id.Number < uint64(len(p.blocks)) {
			return p.blocks[*id.Number], nil
		}
	case id.Hash != nil:
		for _, b := range p.blocks {
			if b.BlockHash.Equal(*id.Hash) {
				return b, nil
			}
		}
	case id.Tag == native.TagPending:
		if p.pending != nil {
			return p.pending, nil
		}
		return p.block(native.LatestBlock())
	default:
		if len(p.blocks) > 0 {
			return p.blocks[len(p.blocks)-1], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrBlockNotFound, id)
}

func (p *Provider) Call(ctx context.Context, call native.FunctionCall, at native.BlockID) ([]felt.Felt, error) {
	p.mu.RLock()
	if err := p.check(ctx, MethodCall); err != nil {
		p.mu.RUnlock()
		return nil, err
	}
	h, ok := p.handlers[entry{call.ContractAddress, call.EntryPointSelector}]
	p.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s at %s", ErrEntryNotFound, call.EntryPointSelector, call.ContractAddress)
	}
	return h(call.Calldata, at)
}

func (p *Provider) BlockWithTxs(ctx context.Context, id native.BlockID) (*native.Block, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.check(ctx, MethodBlockWithTxs); err != nil {
		return nil, err
	}
	b, err := p.block(id)
	if err != nil {
		return nil, err
	}
	out := &native.Block{BlockHeader: b.BlockHeader, Transactions: append([]native.Transaction{}, b.Transactions...)}
	return out, nil
}

func (p *Provider) BlockWithTxHashes(ctx context.Context, id native.BlockID) (*native.Block, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.check(ctx, MethodBlockWithTxHashes); err != nil {
		return nil, err
	}
	b, err := p.block(id)
	if err != nil {
		return nil, err
	}
	hashes := b.Hashes()
	if hashes == nil {
		hashes = []felt.Felt{}
	}
	return &native.Block{BlockHeader: b.BlockHeader, TransactionHashes: hashes}, nil
}

func (p *Provider) TransactionByHash(ctx context.Context, hash felt.Felt) (*native.Transaction, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.check(ctx, MethodTransactionByHash); err != nil {
		return nil, err
	}
	tx, ok := p.txs[hash]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTxNotFound, hash)
	}
	cp := *tx
	return &cp, nil
}

func (p *Provider) TransactionByBlockIDAndIndex(ctx context.Context, id native.BlockID, index uint64) (*native.Transaction, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.check(ctx, MethodTransactionByBlockIDAndIndex); err != nil {
		return nil, err
	}
	b, err := p.block(id)
	if err != nil {
		return nil, err
	}
	hashes := b.Hashes()
	if index >= uint64(len(hashes)) {
		return nil, fmt.Errorf("invalid transaction index %d in block %s", index, id)
	}
	tx, ok := p.txs[hashes[index]]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTxNotFound, hashes[index])
	}
	cp := *tx
	return &cp, nil
}

func (p *Provider) TransactionReceipt(ctx context.Context, hash felt.Felt) (*native.Receipt, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.check(ctx, MethodTransactionReceipt); err != nil {
		return nil, err
	}
	r, ok := p.receipts[hash]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTxNotFound, hash)
	}
	cp := *r
	return &cp, nil
}

func (p *Provider) Nonce(ctx context.Context, at native.BlockID, contract felt.Felt) (felt.Felt, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.check(ctx, MethodNonce); err != nil {
		return felt.Zero, err
	}
	n, ok := p.nonces[contract]
	if !ok {
		return felt.Zero, fmt.Errorf("%w: %s", ErrContractAbsent, contract)
	}
	return n, nil
}

// AddInvokeTransaction records tx as a pending invoke with a receipt and
// returns a hash derived from its contents.
func (p *Provider) AddInvokeTransaction(ctx context.Context, tx native.InvokeTransaction) (felt.Felt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check(ctx, MethodAddInvokeTransaction); err != nil {
		return felt.Zero, err
	}
	data, err := json.Marshal(tx)
	if err != nil {
		return felt.Zero, err
	}
	sum := crypto.Keccak256(data)
	sum[0] &= 0x03
	hash := felt.FromBytes(sum)

	sender, nonce, maxFee := tx.SenderAddress, tx.Nonce, tx.MaxFee
	p.invokes = append(p.invokes, tx)
	p.txs[hash] = &native.Transaction{
		TransactionHash: hash,
		Type:            native.TxInvoke,
		Version:         felt.One(),
		MaxFee:          &maxFee,
		Signature:       tx.Signature,
		Nonce:           &nonce,
		SenderAddress:   &sender,
		Calldata:        tx.Calldata,
	}
	p.receipts[hash] = &native.Receipt{
		TransactionHash: hash,
		Status:          native.StatusPending,
		Type:            native.TxInvoke,
	}
	p.nonces[sender] = felt.FromUint64(nonce.Uint64() + 1)
	p.unsealed = append(p.unsealed, hash)
	return hash, nil
}

// Seal moves every invoke submitted since the last seal into a new confirmed
// block and marks their receipts accepted.
func (p *Provider) Seal(timestamp uint64) *native.Block {
	p.mu.Lock()
	hashes := p.unsealed
	p.unsealed = nil
	txs := make([]native.Transaction, 0, len(hashes))
	for _, h := range hashes {
		txs = append(txs, *p.txs[h])
	}
	p.mu.Unlock()

	b := &native.Block{
		BlockHeader:  native.BlockHeader{Timestamp: timestamp},
		Transactions: txs,
	}
	p.AddBlock(b)

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, h := range hashes {
		r := p.receipts[h]
		r.Status = native.StatusAcceptedOnL2
		r.BlockHash, r.BlockNumber = b.BlockHash, b.BlockNumber
	}
	return b
}

func (p *Provider) BlockNumber(ctx context.Context) (uint64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.check(ctx, MethodBlockNumber); err != nil {
		return 0, err
	}
	if len(p.blocks) == 0 {
		return 0, ErrBlockNotFound
	}
	return uint64(len(p.blocks) - 1), nil
}

func (p *Provider) Syncing(ctx context.Context) (*native.SyncStatus, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.check(ctx, MethodSyncing); err != nil {
		return nil, err
	}
	return p.syncing, nil
}
