// Package rpcprovider implements native.Provider over the ledger's JSON-RPC
// interface, reachable through HTTP or WebSocket.
package rpcprovider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/colorfulnotion/evmbridge/felt"
	"github.com/colorfulnotion/evmbridge/log"
	"github.com/colorfulnotion/evmbridge/native"
	"github.com/colorfulnotion/evmbridge/telemetry"
	"github.com/ethereum/go-ethereum/rpc"
)

const (
	methodCall                            = "starknet_call"
	methodGetBlockWithTxs                 = "starknet_getBlockWithTxs"
	methodGetBlockWithTxHashes            = "starknet_getBlockWithTxHashes"
	methodGetTransactionByHash            = "starknet_getTransactionByHash"
	methodGetTransactionByBlockIDAndIndex = "starknet_getTransactionByBlockIdAndIndex"
	methodGetTransactionReceipt           = "starknet_getTransactionReceipt"
	methodGetNonce                        = "starknet_getNonce"
	methodAddInvokeTransaction            = "starknet_addInvokeTransaction"
	methodBlockNumber                     = "starknet_blockNumber"
	methodSyncing                         = "starknet_syncing"
)

// NodeClient talks to one ledger node.
type NodeClient struct {
	url    string
	client *rpc.Client
}

var _ native.Provider = (*NodeClient)(nil)

// Dial connects to url. http(s) and ws(s) schemes are supported.
func Dial(ctx context.Context, url string) (*NodeClient, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial native ledger %s: %w", url, err)
	}
	return &NodeClient{url: url, client: c}, nil
}

// NewNodeClient wraps an existing rpc client, e.g. one from rpc.DialInProc.
func NewNodeClient(c *rpc.Client) *NodeClient {
	return &NodeClient{url: "inproc", client: c}
}

func (c *NodeClient) Close() {
	c.client.Close()
}

func (c *NodeClient) call(ctx context.Context, result interface{}, method string, args ...interface{}) (err error) {
	ctx, span := telemetry.StartSpan(ctx, method)
	defer func() { telemetry.EndSpan(span, err) }()

	log.Trace(log.ProviderMonitoring, "native request", "method", method, "url", c.url)
	if err = c.client.CallContext(ctx, result, method, args...); err != nil {
		log.Debug(log.ProviderMonitoring, "native request failed", "method", method, "err", err)
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

func (c *NodeClient) Call(ctx context.Context, call native.FunctionCall, at native.BlockID) ([]felt.Felt, error) {
	if call.Calldata == nil {
		call.Calldata = []felt.Felt{}
	}
	var out []felt.Felt
	if err := c.call(ctx, &out, methodCall, call, at); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *NodeClient) BlockWithTxs(ctx context.Context, id native.BlockID) (*native.Block, error) {
	var b native.Block
	if err := c.call(ctx, &b, methodGetBlockWithTxs, id); err != nil {
		return nil, err
	}
	if b.Transactions == nil {
		b.Transactions = []native.Transaction{}
	}
	return &b, nil
}

func (c *NodeClient) BlockWithTxHashes(ctx context.Context, id native.BlockID) (*native.Block, error) {
	var b native.Block
	if err := c.call(ctx, &b, methodGetBlockWithTxHashes, id); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *NodeClient) TransactionByHash(ctx context.Context, hash felt.Felt) (*native.Transaction, error) {
	var tx native.Transaction
	if err := c.call(ctx, &tx, methodGetTransactionByHash, hash); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (c *NodeClient) TransactionByBlockIDAndIndex(ctx context.Context, id native.BlockID, index uint64) (*native.Transaction, error) {
	var tx native.Transaction
	if err := c.call(ctx, &tx, methodGetTransactionByBlockIDAndIndex, id, index); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (c *NodeClient) TransactionReceipt(ctx context.Context, hash felt.Felt) (*native.Receipt, error) {
	var r native.Receipt
	if err := c.call(ctx, &r, methodGetTransactionReceipt, hash); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *NodeClient) Nonce(ctx context.Context, at native.BlockID, contract felt.Felt) (felt.Felt, error) {
	var n felt.Felt
	if err := c.call(ctx, &n, methodGetNonce, at, contract); err != nil {
		return felt.Zero, err
	}
	return n, nil
}

type invokeResult struct {
	TransactionHash felt.Felt `json:"transaction_hash"`
}

func (c *NodeClient) AddInvokeTransaction(ctx context.Context, tx native.InvokeTransaction) (felt.Felt, error) {
	var res invokeResult
	if err := c.call(ctx, &res, methodAddInvokeTransaction, tx); err != nil {
		return felt.Zero, err
	}
	log.Info(log.ProviderMonitoring, "invoke submitted", "sender", tx.SenderAddress, "hash", res.TransactionHash)
	return res.TransactionHash, nil
}

func (c *NodeClient) BlockNumber(ctx context.Context) (uint64, error) {
	var n uint64
	if err := c.call(ctx, &n, methodBlockNumber); err != nil {
		return 0, err
	}
	return n, nil
}

// Syncing decodes the ledger's `false | object` result.
func (c *NodeClient) Syncing(ctx context.Context) (*native.SyncStatus, error) {
	var raw json.RawMessage
	if err := c.call(ctx, &raw, methodSyncing); err != nil {
		return nil, err
	}
	var syncing bool
	if err := json.Unmarshal(raw, &syncing); err == nil {
		return nil, nil
	}
	var st native.SyncStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("%s: %w", methodSyncing, err)
	}
	return &st, nil
}
