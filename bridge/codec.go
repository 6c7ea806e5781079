package bridge

import (
	"context"

	"github.com/colorfulnotion/evmbridge/bridgeerrors"
	"github.com/colorfulnotion/evmbridge/felt"
	"github.com/colorfulnotion/evmbridge/log"
	"github.com/colorfulnotion/evmbridge/native"
	"github.com/colorfulnotion/evmbridge/telemetry"
	"github.com/ethereum/go-ethereum/common"
)

const (
	opGetCode  = "get_code"
	opCallView = "call_view"
)

// GetCode returns the EVM bytecode stored in the account contract of addr,
// each returned element contributing its big-endian bytes.
func (c *Client) GetCode(ctx context.Context, addr common.Address, at native.BlockID) (code []byte, err error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.Span_GetCode, telemetry.AttrAddress.String(addr.Hex()))
	defer func() { telemetry.EndSpan(span, err) }()

	account, err := c.ToNative(ctx, addr, at)
	if err != nil {
		return nil, err
	}
	out, err := c.call(ctx, opGetCode, account, selBytecode, nil, at)
	if err != nil {
		return nil, err
	}
	return FeltsToBigEndianBytes(out), nil
}

// EthCallCalldata lays out the interpreter's eth_call arguments. The MAX, 0, 0
// positions are fixed by the interpreter ABI.
func EthCallCalldata(account felt.Felt, data []byte) []felt.Felt {
	out := make([]felt.Felt, 0, 5+len(data))
	out = append(out, account, felt.Max(), felt.Zero, felt.Zero, felt.FromUint64(uint64(len(data))))
	return append(out, BytesToFelts(data)...)
}

// CallView executes data against addr read-only and returns the EVM return
// data.
func (c *Client) CallView(ctx context.Context, addr common.Address, data []byte, at native.BlockID) (ret []byte, err error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.Span_CallView, telemetry.AttrAddress.String(addr.Hex()), telemetry.AttrBlock.String(at.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	account, err := c.ToNative(ctx, addr, at)
	if err != nil {
		return nil, err
	}
	out, err := c.call(ctx, opCallView, c.cfg.InterpreterAddress, selEthCall, EthCallCalldata(account, data), at)
	if err != nil {
		return nil, err
	}
	segments, err := DecodeSegmented(EthCallSchemaV1, out)
	if err != nil {
		log.Debug(log.CodecMonitoring, "eth_call result rejected", "to", addr, "felts", len(out), "err", err)
		return nil, err
	}
	if len(segments) == 0 || segments[0].Kind != SegmentFeltArray {
		return nil, bridgeerrors.Newf(opCallView, bridgeerrors.ErrDecode, addr.Hex(), "first segment is not a byte array")
	}
	ret, err = segments[0].Bytes(c.cfg.LossyByteDecoding)
	if err != nil {
		return nil, bridgeerrors.New(opCallView, bridgeerrors.ErrDecode, addr.Hex(), err)
	}
	return ret, nil
}
