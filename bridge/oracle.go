package bridge

import (
	"context"
	"errors"
	"math/big"

	"github.com/colorfulnotion/evmbridge/bridgeerrors"
	"github.com/colorfulnotion/evmbridge/felt"
	"github.com/colorfulnotion/evmbridge/log"
	"github.com/colorfulnotion/evmbridge/native"
	"github.com/colorfulnotion/evmbridge/telemetry"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
)

const (
	opFeeHistory    = "fee_history"
	opEstimateGas   = "estimate_gas"
	opBalance       = "balance"
	opTokenBalances = "token_balances"
	opCall          = "call"
)

// The ledger orders transactions first come first served, so there is no
// fee market to sample and no tip to pay.
const (
	BaseFeeWei          = 1
	MaxPriorityFeeWei   = 0
	GasUsedRatio        = 0.9
	MaxFeeHistoryBlocks = 1024
)

// balanceOfSelector is the ERC-20 balanceOf(address) selector.
var balanceOfSelector = crypto.Keccak256([]byte("balanceOf(address)"))[:4]

func BaseFeePerGas() *big.Int { return big.NewInt(BaseFeeWei) }

// GasPrice equals the base fee.
func GasPrice() *big.Int { return BaseFeePerGas() }

func MaxPriorityFeePerGas() *big.Int { return big.NewInt(MaxPriorityFeeWei) }

// FeeHistory synthesizes count+1 constant base fees ending at newest. Tags
// other than earliest or an explicit number resolve to the current head.
func (c *Client) FeeHistory(ctx context.Context, count uint64, newest rpc.BlockNumber, percentiles []float64) (*FeeHistory, error) {
	if count > MaxFeeHistoryBlocks {
		count = MaxFeeHistoryBlocks
	}
	var head uint64
	switch {
	case newest >= 0:
		head = uint64(newest)
	case newest == rpc.EarliestBlockNumber:
		head = 0
	default:
		n, err := c.provider.BlockNumber(ctx)
		if err != nil {
			return nil, providerError(opFeeHistory, newest.String(), err)
		}
		head = n
	}
	oldest := uint64(0)
	if head > count {
		oldest = head - count
	}

	fees := make([]*hexutil.Big, count+1)
	for i := range fees {
		fees[i] = (*hexutil.Big)(BaseFeePerGas())
	}
	ratios := make([]float64, count)
	for i := range ratios {
		ratios[i] = GasUsedRatio
	}
	if len(percentiles) > 0 {
		log.Trace(log.BridgeMonitoring, "fee history percentiles ignored", "percentiles", percentiles)
	}
	return &FeeHistory{
		OldestBlock:   (*hexutil.Big)(new(big.Int).SetUint64(oldest)),
		BaseFeePerGas: fees,
		GasUsedRatio:  ratios,
	}, nil
}

// EstimateGas is not supported: the ledger does not meter EVM gas.
func (c *Client) EstimateGas(ctx context.Context, args CallArgs, at native.BlockID) (uint64, error) {
	return 0, bridgeerrors.New(opEstimateGas, bridgeerrors.ErrNotSupported, nil, errors.New("gas estimation is not available"))
}

// Call runs eth_call semantics for args. Contract creation calls are not
// supported.
func (c *Client) Call(ctx context.Context, args CallArgs, at native.BlockID) ([]byte, error) {
	if args.To == nil {
		return nil, bridgeerrors.New(opCall, bridgeerrors.ErrNotSupported, nil, errors.New("call without a target"))
	}
	return c.CallView(ctx, *args.To, args.data(), at)
}

// Balance reads the native token balance of the account contract of addr.
func (c *Client) Balance(ctx context.Context, addr common.Address, at native.BlockID) (bal *big.Int, err error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.Span_Balance, telemetry.AttrAddress.String(addr.Hex()))
	defer func() { telemetry.EndSpan(span, err) }()

	account, err := c.ToNative(ctx, addr, at)
	if err != nil {
		return nil, err
	}
	out, err := c.call(ctx, opBalance, c.cfg.NativeTokenAddress, selBalanceOf, []felt.Felt{account}, at)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, bridgeerrors.New(opBalance, bridgeerrors.ErrDecode, addr.Hex(), errors.New("balance_of returned no result"))
	}
	return out[0].BigInt(), nil
}

// BalanceOfCalldata is the ABI encoding of balanceOf(owner).
func BalanceOfCalldata(owner common.Address) []byte {
	data := make([]byte, 0, 4+common.HashLength)
	data = append(data, balanceOfSelector...)
	return append(data, common.LeftPadBytes(owner.Bytes(), common.HashLength)...)
}

// TokenBalances queries balanceOf(owner) on every contract concurrently. A
// failed lookup is reported in its own entry.
func (c *Client) TokenBalances(ctx context.Context, owner common.Address, contracts []common.Address, at native.BlockID) (out *TokenBalances, err error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.Span_TokenBalances, telemetry.AttrAddress.String(owner.Hex()), telemetry.AttrItems.Int(len(contracts)))
	defer func() { telemetry.EndSpan(span, err) }()

	data := BalanceOfCalldata(owner)
	entries, err := fanOut(ctx, c.cfg.FanOutLimit, len(contracts), func(ctx context.Context, i int) TokenBalance {
		entry := TokenBalance{ContractAddress: contracts[i]}
		ret, err := c.CallView(ctx, contracts[i], data, at)
		if err != nil {
			entry.err = err
			entry.Error = err.Error()
			return entry
		}
		entry.TokenBalance = (*hexutil.Big)(new(big.Int).SetBytes(ret))
		return entry
	})
	if err != nil {
		return nil, providerError(opTokenBalances, owner.Hex(), err)
	}
	return &TokenBalances{Address: owner, TokenBalances: entries}, nil
}
