package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/colorfulnotion/evmbridge/bridgeerrors"
	"github.com/colorfulnotion/evmbridge/felt"
	"github.com/colorfulnotion/evmbridge/log"
	"github.com/colorfulnotion/evmbridge/native"
	"github.com/colorfulnotion/evmbridge/telemetry"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

const (
	opSendRawTransaction   = "send_raw_transaction"
	opTranslateTransaction = "translate_transaction"
	opTransactionByHash    = "transaction_by_hash"
	opTransactionByIndex   = "transaction_by_block_and_index"
	opTransactionCount     = "transaction_count"
	opHashToFelt           = "hash_to_felt"
)

// relayHeaderLen is the fixed prefix of RawCalldata before the payload bytes.
const relayHeaderLen = 6

// FeltToHash widens a native hash to 32 bytes.
func FeltToHash(f felt.Felt) common.Hash {
	return common.Hash(f.Bytes())
}

// HashToFelt narrows an Ethereum hash to a native hash. Values at or above
// the field modulus cannot name a native object.
func HashToFelt(h common.Hash) (felt.Felt, error) {
	f, err := felt.FromBigInt(h.Big())
	if err != nil {
		return felt.Zero, bridgeerrors.New(opHashToFelt, bridgeerrors.ErrDecode, h.Hex(), err)
	}
	return f, nil
}

// nativeHash is HashToFelt for lookups: a hash outside the field names no
// native object, so the caller reports it as absent.
func nativeHash(hash common.Hash) (felt.Felt, bool) {
	h, err := HashToFelt(hash)
	if err != nil {
		log.Debug(log.BridgeMonitoring, "hash outside the native field", "hash", hash)
		return felt.Zero, false
	}
	return h, true
}

// RawCalldata is the account __execute__ calldata relaying raw to the
// interpreter's eth_send_transaction: a single call with offset 0 whose
// arguments are the payload bytes, one per element.
func RawCalldata(interpreter felt.Felt, raw []byte) []felt.Felt {
	n := felt.FromUint64(uint64(len(raw)))
	out := make([]felt.Felt, 0, relayHeaderLen+len(raw))
	out = append(out, felt.One(), interpreter, selEthSendTransaction, felt.Zero, n, n)
	return append(out, BytesToFelts(raw)...)
}

// DecodeRawCalldata extracts the Ethereum payload from relay calldata built by
// RawCalldata.
func DecodeRawCalldata(interpreter felt.Felt, calldata []felt.Felt) ([]byte, error) {
	if len(calldata) < relayHeaderLen {
		return nil, fmt.Errorf("relay calldata has %d elements, want at least %d", len(calldata), relayHeaderLen)
	}
	if !calldata[0].Equal(felt.One()) {
		return nil, fmt.Errorf("relay calldata holds %s calls, want 1", calldata[0])
	}
	if !calldata[1].Equal(interpreter) || !calldata[2].Equal(selEthSendTransaction) {
		return nil, fmt.Errorf("call %s.%s is not eth_send_transaction on the interpreter", calldata[1], calldata[2])
	}
	n := calldata[5]
	if !calldata[3].IsZero() || !calldata[4].Equal(n) || !n.IsUint64() || n.Uint64() != uint64(len(calldata)-relayHeaderLen) {
		return nil, fmt.Errorf("relay payload length %s does not match %d elements", n, len(calldata)-relayHeaderLen)
	}
	return FeltsToBytes(calldata[relayHeaderLen:], false)
}

func senderOf(tx *types.Transaction) (common.Address, error) {
	if !tx.Protected() {
		return types.Sender(types.HomesteadSigner{}, tx)
	}
	return types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
}

// SendRawTransaction relays a signed Ethereum transaction as an invoke from
// the signer's account contract. The account contract checks the embedded
// signature, so the invoke itself carries none. Submission is not retried.
func (c *Client) SendRawTransaction(ctx context.Context, raw []byte) (hash common.Hash, err error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.Span_SendRawTransaction)
	defer func() { telemetry.EndSpan(span, err) }()

	if len(raw) == 0 {
		return common.Hash{}, bridgeerrors.New(opSendRawTransaction, bridgeerrors.ErrEmptyPayload, nil, nil)
	}
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, bridgeerrors.New(opSendRawTransaction, bridgeerrors.ErrDecode, hexutil.Encode(raw[:min(len(raw), 32)]), err)
	}
	from, err := senderOf(tx)
	if err != nil {
		return common.Hash{}, bridgeerrors.New(opSendRawTransaction, bridgeerrors.ErrSignature, tx.Hash().Hex(), err)
	}
	account, err := c.ToNative(ctx, from, native.LatestBlock())
	if err != nil {
		return common.Hash{}, err
	}

	invoke := native.InvokeTransaction{
		SenderAddress: account,
		Calldata:      RawCalldata(c.cfg.InterpreterAddress, raw),
		MaxFee:        c.cfg.MaxFee,
		Signature:     []felt.Felt{},
		Nonce:         felt.FromUint64(tx.Nonce()),
	}
	nativeHash, err := c.provider.AddInvokeTransaction(ctx, invoke)
	if err != nil {
		return common.Hash{}, providerError(opSendRawTransaction, tx.Hash().Hex(), err)
	}
	log.Info(log.BridgeMonitoring, "relayed transaction", "from", from, "nonce", tx.Nonce(), "eth_hash", tx.Hash(), "native_hash", nativeHash)
	return FeltToHash(nativeHash), nil
}

// TxPosition locates a transaction. All fields are nil while pending.
type TxPosition struct {
	BlockHash   *common.Hash
	BlockNumber *uint64
	Index       *uint64
}

// TranslateTransaction rebuilds the Ethereum view of a relayed invoke. The
// hash reported is the native one, matching SendRawTransaction.
func (c *Client) TranslateTransaction(ctx context.Context, tx *native.Transaction, pos TxPosition) (*Transaction, error) {
	if !tx.IsInvoke() {
		return nil, bridgeerrors.Newf(opTranslateTransaction, bridgeerrors.ErrNotSupported, tx.TransactionHash, "%s transactions have no EVM form", tx.Type)
	}
	sender, ok := tx.Sender()
	if !ok {
		return nil, bridgeerrors.Newf(opTranslateTransaction, bridgeerrors.ErrTranslation, tx.TransactionHash, "invoke has no sender")
	}
	raw, err := DecodeRawCalldata(c.cfg.InterpreterAddress, tx.Calldata)
	if err != nil {
		return nil, bridgeerrors.New(opTranslateTransaction, bridgeerrors.ErrDecode, tx.TransactionHash, err)
	}
	eth := new(types.Transaction)
	if err := eth.UnmarshalBinary(raw); err != nil {
		return nil, bridgeerrors.New(opTranslateTransaction, bridgeerrors.ErrDecode, tx.TransactionHash, err)
	}

	from := c.SafeToForeign(ctx, sender, native.LatestBlock())
	if err := ctx.Err(); err != nil {
		return nil, providerError(opTranslateTransaction, tx.TransactionHash, err)
	}

	v, r, s := eth.RawSignatureValues()
	out := &Transaction{
		BlockHash: pos.BlockHash,
		From:      from,
		Gas:       hexutil.Uint64(eth.Gas()),
		GasPrice:  (*hexutil.Big)(eth.GasPrice()),
		Hash:      FeltToHash(tx.TransactionHash),
		Input:     eth.Data(),
		Nonce:     hexutil.Uint64(eth.Nonce()),
		To:        eth.To(),
		Value:     (*hexutil.Big)(eth.Value()),
		Type:      hexutil.Uint64(eth.Type()),
		V:         (*hexutil.Big)(v),
		R:         (*hexutil.Big)(r),
		S:         (*hexutil.Big)(s),
	}
	if pos.BlockNumber != nil {
		n := hexutil.Uint64(*pos.BlockNumber)
		out.BlockNumber = &n
	}
	if pos.Index != nil {
		i := hexutil.Uint64(*pos.Index)
		out.TransactionIndex = &i
	}
	if eth.Type() != types.LegacyTxType {
		al := eth.AccessList()
		out.Accesses = &al
		out.ChainID = (*hexutil.Big)(eth.ChainId())
	} else if eth.Protected() {
		out.ChainID = (*hexutil.Big)(eth.ChainId())
	}
	if eth.Type() >= types.DynamicFeeTxType {
		out.GasFeeCap = (*hexutil.Big)(eth.GasFeeCap())
		out.GasTipCap = (*hexutil.Big)(eth.GasTipCap())
	}
	return out, nil
}

// position looks up where a transaction landed. A missing or pending receipt
// leaves the position empty; only cancellation is reported.
func (c *Client) position(ctx context.Context, hash felt.Felt) (TxPosition, error) {
	r, err := c.provider.TransactionReceipt(ctx, hash)
	if err != nil {
		if bridgeerrors.IsCancellation(err) {
			return TxPosition{}, err
		}
		log.Debug(log.BridgeMonitoring, "receipt unavailable, reporting as pending", "hash", hash, "err", err)
		return TxPosition{}, nil
	}
	if r.IsPending() {
		return TxPosition{}, nil
	}
	bh := FeltToHash(*r.BlockHash)
	return TxPosition{BlockHash: &bh, BlockNumber: r.BlockNumber}, nil
}

// TransactionByHash looks up a relayed transaction by its native hash.
func (c *Client) TransactionByHash(ctx context.Context, hash common.Hash) (out *Transaction, err error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.Span_TransactionByHash, telemetry.AttrTxHash.String(hash.Hex()))
	defer func() { telemetry.EndSpan(span, err) }()

	h, ok := nativeHash(hash)
	if !ok {
		return nil, nil
	}
	tx, err := c.provider.TransactionByHash(ctx, h)
	if err != nil {
		return nil, providerError(opTransactionByHash, hash.Hex(), err)
	}
	pos, err := c.position(ctx, h)
	if err != nil {
		return nil, providerError(opTransactionByHash, hash.Hex(), err)
	}
	return c.TranslateTransaction(ctx, tx, pos)
}

func (c *Client) TransactionByBlockIDAndIndex(ctx context.Context, id native.BlockID, index uint64) (*Transaction, error) {
	tx, err := c.provider.TransactionByBlockIDAndIndex(ctx, id, index)
	if err != nil {
		return nil, providerError(opTransactionByIndex, fmt.Sprintf("%s[%d]", id, index), err)
	}
	pos, err := c.position(ctx, tx.TransactionHash)
	if err != nil {
		return nil, providerError(opTransactionByIndex, fmt.Sprintf("%s[%d]", id, index), err)
	}
	if pos.BlockHash != nil {
		pos.Index = &index
	}
	return c.TranslateTransaction(ctx, tx, pos)
}

// TransactionCount is the nonce of the account contract of addr.
func (c *Client) TransactionCount(ctx context.Context, addr common.Address, at native.BlockID) (uint64, error) {
	account, err := c.ToNative(ctx, addr, at)
	if err != nil {
		return 0, err
	}
	nonce, err := c.provider.Nonce(ctx, at, account)
	if err != nil {
		return 0, providerError(opTransactionCount, addr.Hex(), err)
	}
	if !nonce.IsUint64() {
		return 0, bridgeerrors.New(opTransactionCount, bridgeerrors.ErrDecode, addr.Hex(), errors.New("nonce exceeds 64 bits"))
	}
	return nonce.Uint64(), nil
}
