package native

import (
	"context"

	"github.com/colorfulnotion/evmbridge/felt"
)

//go:generate mockgen -source provider.go -destination nativemock/provider_mock.go -package nativemock

// Provider is the ledger capability the bridge consumes. Implementations
// must honour ctx cancellation and return their own errors unchanged.
type Provider interface {
	Call(ctx context.Context, call FunctionCall, at BlockID) ([]felt.Felt, error)
	BlockWithTxs(ctx context.Context, id BlockID) (*Block, error)
	BlockWithTxHashes(ctx context.Context, id BlockID) (*Block, error)
	TransactionByHash(ctx context.Context, hash felt.Felt) (*Transaction, error)
	TransactionByBlockIDAndIndex(ctx context.Context, id BlockID, index uint64) (*Transaction, error)
	TransactionReceipt(ctx context.Context, hash felt.Felt) (*Receipt, error)
	Nonce(ctx context.Context, at BlockID, contract felt.Felt) (felt.Felt, error)
	AddInvokeTransaction(ctx context.Context, tx InvokeTransaction) (felt.Felt, error)
	BlockNumber(ctx context.Context) (uint64, error)
	// Syncing returns nil when the node is caught up.
	Syncing(ctx context.Context) (*SyncStatus, error)
}
