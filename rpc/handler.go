package rpc

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/colorfulnotion/evmbridge/bridge"
	"github.com/colorfulnotion/evmbridge/bridgeerrors"
	"github.com/colorfulnotion/evmbridge/log"
	"github.com/colorfulnotion/evmbridge/native"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// methodFunc serves one JSON-RPC method. The result is marshalled as is; a
// nil pointer result is sent as null.
type methodFunc func(ctx context.Context, params []json.RawMessage) (interface{}, error)

// Handler serves the Ethereum JSON-RPC methods on top of a bridge client.
type Handler struct {
	bridge  *bridge.Client
	version string
	methods map[string]methodFunc
}

// NewHandler creates a handler. version is reported by web3_clientVersion.
func NewHandler(client *bridge.Client, version string) *Handler {
	h := &Handler{bridge: client, version: version}
	h.methods = map[string]methodFunc{
		"web3_clientVersion": h.ClientVersion,
		"net_version":        h.NetVersion,
		"eth_chainId":        h.ChainID,
		"eth_blockNumber":    h.BlockNumber,
		"eth_syncing":        h.Syncing,

		"eth_getCode":             h.GetCode,
		"eth_call":                h.Call,
		"eth_estimateGas":         h.EstimateGas,
		"eth_getBalance":          h.GetBalance,
		"eth_getTransactionCount": h.GetTransactionCount,

		"eth_sendRawTransaction":                  h.SendRawTransaction,
		"eth_getTransactionByHash":                h.GetTransactionByHash,
		"eth_getTransactionByBlockNumberAndIndex": h.GetTransactionByBlockNumberAndIndex,
		"eth_getTransactionByBlockHashAndIndex":   h.GetTransactionByBlockHashAndIndex,
		"eth_getTransactionReceipt":               h.GetTransactionReceipt,

		"eth_getBlockByNumber":                 h.GetBlockByNumber,
		"eth_getBlockByHash":                   h.GetBlockByHash,
		"eth_getBlockTransactionCountByNumber": h.GetBlockTransactionCountByNumber,
		"eth_getBlockTransactionCountByHash":   h.GetBlockTransactionCountByHash,

		"eth_gasPrice":             h.GasPrice,
		"eth_maxPriorityFeePerGas": h.MaxPriorityFeePerGas,
		"eth_feeHistory":           h.FeeHistory,
		"bridge_getTokenBalances":  h.GetTokenBalances,
	}
	return h
}

// Methods lists the served method names.
func (h *Handler) Methods() []string {
	out := make([]string, 0, len(h.methods))
	for name := range h.methods {
		out = append(out, name)
	}
	return out
}

func (h *Handler) lookup(method string) (methodFunc, bool) {
	fn, ok := h.methods[method]
	return fn, ok
}

// parseParams decodes positional parameters into dst. The first required
// entries must be present; the rest may be omitted and keep their value.
func parseParams(method string, raw []json.RawMessage, required int, dst ...interface{}) error {
	if len(raw) < required || len(raw) > len(dst) {
		return bridgeerrors.Newf(method, bridgeerrors.ErrDecode, len(raw), "expected %d to %d params", required, len(dst))
	}
	for i, r := range raw {
		if err := json.Unmarshal(r, dst[i]); err != nil {
			return bridgeerrors.Newf(method, bridgeerrors.ErrDecode, i, "param %d: %v", i, err)
		}
	}
	return nil
}

func latest() gethrpc.BlockNumberOrHash {
	return gethrpc.BlockNumberOrHashWithNumber(gethrpc.LatestBlockNumber)
}

func blockID(method string, ref gethrpc.BlockNumberOrHash) (native.BlockID, error) {
	id, err := bridge.BlockIDFromNumberOrHash(ref)
	if err != nil {
		return native.BlockID{}, bridgeerrors.New(method, bridgeerrors.ErrDecode, nil, err)
	}
	return id, nil
}

// ===== Network Metadata =====

func (h *Handler) ClientVersion(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	return h.version, nil
}

func (h *Handler) NetVersion(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	return strconv.FormatUint(h.bridge.ChainID(), 10), nil
}

// ChainID returns the configured chain id.
//
// Example curl call:
// curl -X POST http://localhost:8545 -H "Content-Type: application/json" -d '{"jsonrpc":"2.0","method":"eth_chainId","params":[],"id":1}'
func (h *Handler) ChainID(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	return hexutil.Uint64(h.bridge.ChainID()), nil
}

func (h *Handler) BlockNumber(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	n, err := h.bridge.BlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	return hexutil.Uint64(n), nil
}

// Syncing returns false when the ledger node is caught up.
func (h *Handler) Syncing(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	st, err := h.bridge.Syncing(ctx)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return false, nil
	}
	return st, nil
}

// ===== Contract State =====

// GetCode returns the EVM bytecode deployed at an address.
//
// Parameters:
// - address (string): 20-byte address
// - block (string, optional): block number, tag or hash; defaults to "latest"
//
// Example curl call:
// curl -X POST http://localhost:8545 -H "Content-Type: application/json" -d '{"jsonrpc":"2.0","method":"eth_getCode","params":["0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266","latest"],"id":1}'
func (h *Handler) GetCode(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	var addr common.Address
	ref := latest()
	if err := parseParams("eth_getCode", params, 1, &addr, &ref); err != nil {
		return nil, err
	}
	at, err := blockID("eth_getCode", ref)
	if err != nil {
		return nil, err
	}
	code, err := h.bridge.GetCode(ctx, addr, at)
	if err != nil {
		return nil, err
	}
	return hexutil.Bytes(code), nil
}

// Call executes a read-only call against the interpreter.
//
// Parameters:
// - call (object): {"to": address, "data"|"input": bytes}
// - block (string, optional): block number, tag or hash; defaults to "latest"
//
// Example curl call:
// curl -X POST http://localhost:8545 -H "Content-Type: application/json" -d '{"jsonrpc":"2.0","method":"eth_call","params":[{"to":"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266","data":"0x70a08231"},"latest"],"id":1}'
func (h *Handler) Call(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	var args bridge.CallArgs
	ref := latest()
	if err := parseParams("eth_call", params, 1, &args, &ref); err != nil {
		return nil, err
	}
	at, err := blockID("eth_call", ref)
	if err != nil {
		return nil, err
	}
	ret, err := h.bridge.Call(ctx, args, at)
	if err != nil {
		return nil, err
	}
	return hexutil.Bytes(ret), nil
}

func (h *Handler) EstimateGas(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	var args bridge.CallArgs
	ref := latest()
	if err := parseParams("eth_estimateGas", params, 1, &args, &ref); err != nil {
		return nil, err
	}
	at, err := blockID("eth_estimateGas", ref)
	if err != nil {
		return nil, err
	}
	gas, err := h.bridge.EstimateGas(ctx, args, at)
	if err != nil {
		return nil, err
	}
	return hexutil.Uint64(gas), nil
}

func (h *Handler) GetBalance(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	var addr common.Address
	ref := latest()
	if err := parseParams("eth_getBalance", params, 1, &addr, &ref); err != nil {
		return nil, err
	}
	at, err := blockID("eth_getBalance", ref)
	if err != nil {
		return nil, err
	}
	bal, err := h.bridge.Balance(ctx, addr, at)
	if err != nil {
		return nil, err
	}
	return (*hexutil.Big)(bal), nil
}

// GetTransactionCount returns the nonce of the account contract.
func (h *Handler) GetTransactionCount(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	var addr common.Address
	ref := latest()
	if err := parseParams("eth_getTransactionCount", params, 1, &addr, &ref); err != nil {
		return nil, err
	}
	at, err := blockID("eth_getTransactionCount", ref)
	if err != nil {
		return nil, err
	}
	n, err := h.bridge.TransactionCount(ctx, addr, at)
	if err != nil {
		return nil, err
	}
	return hexutil.Uint64(n), nil
}

// ===== Transactions =====

// SendRawTransaction relays a signed Ethereum transaction and returns the
// native transaction hash.
//
// Example curl call:
// curl -X POST http://localhost:8545 -H "Content-Type: application/json" -d '{"jsonrpc":"2.0","method":"eth_sendRawTransaction","params":["0x02f8..."],"id":1}'
func (h *Handler) SendRawTransaction(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	var raw hexutil.Bytes
	if err := parseParams("eth_sendRawTransaction", params, 1, &raw); err != nil {
		return nil, err
	}
	hash, err := h.bridge.SendRawTransaction(ctx, raw)
	if err != nil {
		return nil, err
	}
	log.Debug(log.RPCMonitoring, "eth_sendRawTransaction", "hash", hash)
	return hash, nil
}

func (h *Handler) GetTransactionByHash(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	var hash common.Hash
	if err := parseParams("eth_getTransactionByHash", params, 1, &hash); err != nil {
		return nil, err
	}
	return h.bridge.TransactionByHash(ctx, hash)
}

func (h *Handler) GetTransactionByBlockNumberAndIndex(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	var (
		number gethrpc.BlockNumber
		index  hexutil.Uint64
	)
	if err := parseParams("eth_getTransactionByBlockNumberAndIndex", params, 2, &number, &index); err != nil {
		return nil, err
	}
	return h.bridge.TransactionByBlockIDAndIndex(ctx, bridge.BlockIDFromNumber(number), uint64(index))
}

func (h *Handler) GetTransactionByBlockHashAndIndex(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	var (
		hash  common.Hash
		index hexutil.Uint64
	)
	if err := parseParams("eth_getTransactionByBlockHashAndIndex", params, 2, &hash, &index); err != nil {
		return nil, err
	}
	at, err := blockID("eth_getTransactionByBlockHashAndIndex", gethrpc.BlockNumberOrHashWithHash(hash, false))
	if err != nil {
		return nil, err
	}
	return h.bridge.TransactionByBlockIDAndIndex(ctx, at, uint64(index))
}

// GetTransactionReceipt returns null while the transaction is pending.
func (h *Handler) GetTransactionReceipt(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	var hash common.Hash
	if err := parseParams("eth_getTransactionReceipt", params, 1, &hash); err != nil {
		return nil, err
	}
	return h.bridge.TransactionReceipt(ctx, hash)
}

// ===== Blocks =====

// GetBlockByNumber returns a block with transaction hashes, or full
// transactions when the second parameter is true.
//
// Example curl call:
// curl -X POST http://localhost:8545 -H "Content-Type: application/json" -d '{"jsonrpc":"2.0","method":"eth_getBlockByNumber","params":["latest",false],"id":1}'
func (h *Handler) GetBlockByNumber(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	var (
		number gethrpc.BlockNumber
		full   bool
	)
	if err := parseParams("eth_getBlockByNumber", params, 1, &number, &full); err != nil {
		return nil, err
	}
	return h.bridge.BlockByID(ctx, bridge.BlockIDFromNumber(number), full)
}

func (h *Handler) GetBlockByHash(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	var (
		hash common.Hash
		full bool
	)
	if err := parseParams("eth_getBlockByHash", params, 1, &hash, &full); err != nil {
		return nil, err
	}
	at, err := blockID("eth_getBlockByHash", gethrpc.BlockNumberOrHashWithHash(hash, false))
	if err != nil {
		return nil, err
	}
	return h.bridge.BlockByID(ctx, at, full)
}

func (h *Handler) GetBlockTransactionCountByNumber(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	var number gethrpc.BlockNumber
	if err := parseParams("eth_getBlockTransactionCountByNumber", params, 1, &number); err != nil {
		return nil, err
	}
	n, err := h.bridge.BlockTransactionCount(ctx, bridge.BlockIDFromNumber(number))
	if err != nil {
		return nil, err
	}
	return hexutil.Uint64(n), nil
}

func (h *Handler) GetBlockTransactionCountByHash(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	var hash common.Hash
	if err := parseParams("eth_getBlockTransactionCountByHash", params, 1, &hash); err != nil {
		return nil, err
	}
	at, err := blockID("eth_getBlockTransactionCountByHash", gethrpc.BlockNumberOrHashWithHash(hash, false))
	if err != nil {
		return nil, err
	}
	n, err := h.bridge.BlockTransactionCount(ctx, at)
	if err != nil {
		return nil, err
	}
	return hexutil.Uint64(n), nil
}

// ===== Fees =====

func (h *Handler) GasPrice(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	return (*hexutil.Big)(bridge.GasPrice()), nil
}

func (h *Handler) MaxPriorityFeePerGas(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	return (*hexutil.Big)(bridge.MaxPriorityFeePerGas()), nil
}

// FeeHistory reports a constant base fee over the requested range.
//
// Parameters:
// - blockCount (number or hex string)
// - newestBlock (string): block number or tag
// - rewardPercentiles (array, optional): ignored
func (h *Handler) FeeHistory(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	var (
		count       math.HexOrDecimal64
		newest      gethrpc.BlockNumber
		percentiles []float64
	)
	if err := parseParams("eth_feeHistory", params, 2, &count, &newest, &percentiles); err != nil {
		return nil, err
	}
	return h.bridge.FeeHistory(ctx, uint64(count), newest, percentiles)
}

// GetTokenBalances returns balanceOf(owner) for every listed token contract.
// A failed lookup is reported in its entry and does not fail the request.
//
// Example curl call:
// curl -X POST http://localhost:8545 -H "Content-Type: application/json" -d '{"jsonrpc":"2.0","method":"bridge_getTokenBalances","params":["0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",["0x5FbDB2315678afecb367f032d93F642f64180aa3"]],"id":1}'
func (h *Handler) GetTokenBalances(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	var (
		owner     common.Address
		contracts []common.Address
	)
	ref := latest()
	if err := parseParams("bridge_getTokenBalances", params, 2, &owner, &contracts, &ref); err != nil {
		return nil, err
	}
	at, err := blockID("bridge_getTokenBalances", ref)
	if err != nil {
		return nil, err
	}
	return h.bridge.TokenBalances(ctx, owner, contracts, at)
}
