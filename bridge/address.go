package bridge

import (
	"context"
	"errors"

	"github.com/colorfulnotion/evmbridge/bridgeerrors"
	"github.com/colorfulnotion/evmbridge/felt"
	"github.com/colorfulnotion/evmbridge/log"
	"github.com/colorfulnotion/evmbridge/native"
	"github.com/colorfulnotion/evmbridge/telemetry"
	"github.com/ethereum/go-ethereum/common"
)

const (
	opToNative  = "to_native"
	opToForeign = "to_foreign"
)

// AddressToFelt returns addr as a field element. 160 bits always fit.
func AddressToFelt(addr common.Address) felt.Felt {
	return felt.FromBytes(addr.Bytes())
}

// Truncate keeps bytes [12,32) of the big-endian form of f.
func Truncate(f felt.Felt) common.Address {
	b := f.Bytes()
	return common.BytesToAddress(b[12:])
}

// ToNative resolves the account contract of addr through the interpreter.
// Callers must use the returned account at the same block id.
func (c *Client) ToNative(ctx context.Context, addr common.Address, at native.BlockID) (account felt.Felt, err error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.Span_ToNative, telemetry.AttrAddress.String(addr.Hex()), telemetry.AttrBlock.String(at.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	if cache := c.cfg.Accounts; cache != nil {
		cached, ok, err := cache.Account(c.cfg.InterpreterAddress, addr)
		if err != nil {
			log.Warn(log.AddrMonitoring, "account cache read failed", "evm", addr, "err", err)
		} else if ok {
			return cached, nil
		}
	}

	out, err := c.call(ctx, opToNative, c.cfg.InterpreterAddress, selComputeAddress, []felt.Felt{AddressToFelt(addr)}, at)
	if err != nil {
		return felt.Zero, err
	}
	if len(out) == 0 {
		return felt.Zero, bridgeerrors.New(opToNative, bridgeerrors.ErrTranslation, addr.Hex(), errors.New("compute_starknet_address returned no result"))
	}
	log.Trace(log.AddrMonitoring, "resolved native account", "evm", addr, "native", out[0], "block", at)
	if cache := c.cfg.Accounts; cache != nil {
		if err := cache.PutAccount(c.cfg.InterpreterAddress, addr, out[0]); err != nil {
			log.Warn(log.AddrMonitoring, "account cache write failed", "evm", addr, "err", err)
		}
	}
	return out[0], nil
}

// ToForeign asks the account contract for the EVM address it proxies.
func (c *Client) ToForeign(ctx context.Context, account felt.Felt, at native.BlockID) (addr common.Address, err error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.Span_ToForeign, telemetry.AttrAddress.String(account.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	out, err := c.call(ctx, opToForeign, account, selGetEVMAddress, nil, at)
	if err != nil {
		return common.Address{}, err
	}
	if len(out) == 0 {
		return common.Address{}, bridgeerrors.New(opToForeign, bridgeerrors.ErrDecode, account, errors.New("get_evm_address returned no result"))
	}
	return Truncate(out[0]), nil
}

// SafeToForeign is ToForeign falling back to Truncate on any failure.
func (c *Client) SafeToForeign(ctx context.Context, account felt.Felt, at native.BlockID) common.Address {
	addr, err := c.ToForeign(ctx, account, at)
	if err != nil {
		log.Debug(log.AddrMonitoring, "evm address lookup failed, truncating", "native", account, "err", err)
		return Truncate(account)
	}
	return addr
}
