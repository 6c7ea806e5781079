// Package bridge translates between the Ethereum JSON-RPC data model and the
// field-element ledger behind it. Reads become contract calls against the
// interpreter contract or per-account contracts; writes become invoke
// transactions relaying the raw Ethereum payload to the interpreter.
package bridge

import (
	"context"
	"errors"

	"github.com/colorfulnotion/evmbridge/bridgeerrors"
	"github.com/colorfulnotion/evmbridge/felt"
	"github.com/colorfulnotion/evmbridge/log"
	"github.com/colorfulnotion/evmbridge/native"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// Interpreter and account contract entrypoints.
const (
	entryComputeAddress     = "compute_starknet_address"
	entryGetEVMAddress      = "get_evm_address"
	entryBytecode           = "bytecode"
	entryEthCall            = "eth_call"
	entryBalanceOf          = "balance_of"
	entryEthSendTransaction = "eth_send_transaction"
)

var (
	selComputeAddress     = felt.Selector(entryComputeAddress)
	selGetEVMAddress      = felt.Selector(entryGetEVMAddress)
	selBytecode           = felt.Selector(entryBytecode)
	selEthCall            = felt.Selector(entryEthCall)
	selBalanceOf          = felt.Selector(entryBalanceOf)
	selEthSendTransaction = felt.Selector(entryEthSendTransaction)
)

const DefaultFanOutLimit = 16

var (
	// DefaultNativeToken is the fee token contract of the ledger.
	DefaultNativeToken = felt.MustHex("0x49d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7")
	// DefaultMaxFee is the fee ceiling attached to relayed invokes (0.1 token).
	DefaultMaxFee = felt.FromUint64(100_000_000_000_000_000)
)

// Config is fixed at startup.
type Config struct {
	InterpreterAddress felt.Felt
	// AccountClassHash is the class the interpreter deploys EVM accounts
	// with. Address resolution goes through the interpreter, so the bridge
	// only carries it for operators; nothing here computes addresses from it.
	AccountClassHash   felt.Felt
	NativeTokenAddress felt.Felt
	MaxFee             felt.Felt
	ChainID            uint64
	// LossyByteDecoding drops felts above 255 when decoding byte arrays
	// instead of failing.
	LossyByteDecoding bool
	FanOutLimit       int
	// Accounts, when set, remembers ToNative results across requests.
	Accounts AccountCache
}

// AccountCache stores the native account of each EVM address per
// interpreter. compute_starknet_address is a pure function of its input, so
// entries never go stale.
type AccountCache interface {
	Account(interpreter felt.Felt, addr common.Address) (felt.Felt, bool, error)
	PutAccount(interpreter felt.Felt, addr common.Address, account felt.Felt) error
}

// Client is the translation layer. Apart from the optional account cache it
// holds no mutable state and is safe for concurrent use.
type Client struct {
	provider native.Provider
	cfg      Config
}

func NewClient(provider native.Provider, cfg Config) (*Client, error) {
	if provider == nil {
		return nil, errors.New("bridge: nil provider")
	}
	if cfg.InterpreterAddress.IsZero() {
		return nil, errors.New("bridge: interpreter address is required")
	}
	if cfg.NativeTokenAddress.IsZero() {
		cfg.NativeTokenAddress = DefaultNativeToken
	}
	if cfg.MaxFee.IsZero() {
		cfg.MaxFee = DefaultMaxFee
	}
	if cfg.FanOutLimit <= 0 {
		cfg.FanOutLimit = DefaultFanOutLimit
	}
	if cfg.LossyByteDecoding {
		log.Warn(log.BridgeMonitoring, "lossy byte decoding enabled: felts above 0xff are dropped")
	}
	return &Client{provider: provider, cfg: cfg}, nil
}

func (c *Client) Config() Config { return c.cfg }

func (c *Client) ChainID() uint64 { return c.cfg.ChainID }

func (c *Client) Provider() native.Provider { return c.provider }

// call runs a contract call and classifies provider failures.
func (c *Client) call(ctx context.Context, op string, contract, selector felt.Felt, calldata []felt.Felt, at native.BlockID) ([]felt.Felt, error) {
	if calldata == nil {
		calldata = []felt.Felt{}
	}
	out, err := c.provider.Call(ctx, native.FunctionCall{
		ContractAddress:    contract,
		EntryPointSelector: selector,
		Calldata:           calldata,
	}, at)
	if err != nil {
		return nil, providerError(op, contract, err)
	}
	return out, nil
}

// providerError wraps err as a ProviderError unless it is already classified.
func providerError(op string, value interface{}, err error) error {
	if bridgeerrors.Kind(err) != nil {
		return err
	}
	return bridgeerrors.New(op, bridgeerrors.ErrProvider, value, err)
}

// fanOut runs fn for every index with at most limit in flight. fn reports
// failures inside its result so one item never cancels the others. The only
// error returned is the caller's context error.
func fanOut[T any](ctx context.Context, limit, n int, fn func(ctx context.Context, i int) T) ([]T, error) {
	out := make([]T, n)
	var g errgroup.Group
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			out[i] = fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
