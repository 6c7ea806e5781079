package bridge

import (
	"context"

	"github.com/colorfulnotion/evmbridge/bridgeerrors"
	"github.com/colorfulnotion/evmbridge/felt"
	"github.com/colorfulnotion/evmbridge/log"
	"github.com/colorfulnotion/evmbridge/native"
	"github.com/colorfulnotion/evmbridge/telemetry"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

const opReceipt = "transaction_receipt"

// Receipt fields the ledger does not track. They are constants, not
// measurements.
const (
	PlaceholderCumulativeGasUsed = 1_000_000
	PlaceholderGasUsed           = 500_000
	PlaceholderEffectiveGasPrice = 1_000_000
	PlaceholderTxType            = 0
)

// StatusCode maps a native status onto the receipt status field.
func StatusCode(s native.TransactionStatus) uint64 {
	switch s {
	case native.StatusAcceptedOnL1, native.StatusAcceptedOnL2:
		return 1
	default:
		return 0
	}
}

// LogsBloom is the bloom filter over the addresses and topics of logs.
func LogsBloom(logs []*Log) types.Bloom {
	var bloom types.Bloom
	for _, l := range logs {
		bloom.Add(l.Address.Bytes())
		for _, t := range l.Topics {
			bloom.Add(t.Bytes())
		}
	}
	return bloom
}

// TransactionReceipt returns nil, nil for pending and non-invoke transactions
// and for hashes no native transaction can have.
func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (out *Receipt, err error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.Span_Receipt, telemetry.AttrTxHash.String(hash.Hex()))
	defer func() { telemetry.EndSpan(span, err) }()

	h, ok := nativeHash(hash)
	if !ok {
		return nil, nil
	}
	r, err := c.provider.TransactionReceipt(ctx, h)
	if err != nil {
		return nil, providerError(opReceipt, hash.Hex(), err)
	}
	return c.AssembleReceipt(ctx, r)
}

// AssembleReceipt builds the Ethereum receipt of a confirmed invoke. Events
// that are not interpreter logs, or that do not decode, are skipped.
func (c *Client) AssembleReceipt(ctx context.Context, r *native.Receipt) (*Receipt, error) {
	if r == nil || r.Type != native.TxInvoke || r.IsPending() {
		return nil, nil
	}
	tx, err := c.provider.TransactionByHash(ctx, r.TransactionHash)
	if err != nil {
		return nil, providerError(opReceipt, r.TransactionHash, err)
	}
	sender, ok := tx.Sender()
	if !ok {
		return nil, bridgeerrors.Newf(opReceipt, bridgeerrors.ErrTranslation, r.TransactionHash, "invoke has no sender")
	}

	blockHash := FeltToHash(*r.BlockHash)
	blockNumber := *r.BlockNumber
	index := c.indexInBlock(ctx, *r.BlockHash, r.TransactionHash)
	pos := TxPosition{BlockHash: &blockHash, BlockNumber: &blockNumber, Index: &index}

	eth, err := c.TranslateTransaction(ctx, tx, pos)
	if err != nil {
		return nil, err
	}
	contract := c.SafeToForeign(ctx, sender, native.LatestBlock())

	logs := make([]*Log, 0, len(r.Events))
	for i, ev := range r.Events {
		l, err := c.ReconstructLog(ev, LogContext{
			BlockHash:   &blockHash,
			BlockNumber: &blockNumber,
			TxHash:      eth.Hash,
			TxIndex:     &index,
			LogIndex:    uint64(len(logs)),
		})
		if err != nil {
			log.Debug(log.BridgeMonitoring, "skipping event", "tx", r.TransactionHash, "event", i, "err", err)
			continue
		}
		logs = append(logs, l)
	}
	if err := ctx.Err(); err != nil {
		return nil, providerError(opReceipt, r.TransactionHash, err)
	}

	return &Receipt{
		TransactionHash:   eth.Hash,
		TransactionIndex:  hexutil.Uint64(index),
		BlockHash:         blockHash,
		BlockNumber:       hexutil.Uint64(blockNumber),
		From:              eth.From,
		To:                eth.To,
		CumulativeGasUsed: PlaceholderCumulativeGasUsed,
		GasUsed:           PlaceholderGasUsed,
		EffectiveGasPrice: PlaceholderEffectiveGasPrice,
		ContractAddress:   &contract,
		Logs:              logs,
		LogsBloom:         LogsBloom(logs),
		Type:              PlaceholderTxType,
		Status:            hexutil.Uint64(StatusCode(r.Status)),
	}, nil
}

// indexInBlock finds the position of tx in its block, or 0 if the block
// cannot be read.
func (c *Client) indexInBlock(ctx context.Context, block, tx felt.Felt) uint64 {
	b, err := c.provider.BlockWithTxHashes(ctx, native.BlockHash(block))
	if err != nil {
		log.Debug(log.BridgeMonitoring, "block unavailable for receipt index", "block", block, "err", err)
		return 0
	}
	for i, h := range b.Hashes() {
		if h.Equal(tx) {
			return uint64(i)
		}
	}
	return 0
}
