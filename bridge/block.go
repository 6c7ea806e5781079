package bridge

import (
	"context"

	"github.com/colorfulnotion/evmbridge/log"
	"github.com/colorfulnotion/evmbridge/native"
	"github.com/colorfulnotion/evmbridge/telemetry"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

const (
	opBlock            = "block"
	opBlockTxCount     = "block_transaction_count"
	opBlockNumber      = "block_number"
	opSyncing          = "syncing"
	opTranslateBlockTx = "translate_block_transactions"
)

// BlockGasLimit is reported for every block; the ledger has no EVM gas limit.
const BlockGasLimit = 30_000_000

// BlockByID fetches and translates a block. With hydrate set the
// transactions are translated concurrently and failures are left out.
func (c *Client) BlockByID(ctx context.Context, id native.BlockID, hydrate bool) (out *Block, err error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.Span_Block, telemetry.AttrBlock.String(id.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	var b *native.Block
	if hydrate {
		b, err = c.provider.BlockWithTxs(ctx, id)
	} else {
		b, err = c.provider.BlockWithTxHashes(ctx, id)
	}
	if err != nil {
		return nil, providerError(opBlock, id.String(), err)
	}
	return c.TranslateBlock(ctx, b, hydrate)
}

// TranslateBlock maps b onto an Ethereum block. It fails only on
// cancellation once the header is available.
func (c *Client) TranslateBlock(ctx context.Context, b *native.Block, hydrate bool) (*Block, error) {
	out := translateHeader(&b.BlockHeader)
	if !hydrate {
		hashes := b.Hashes()
		out.Transactions.Hashes = make([]common.Hash, len(hashes))
		for i, h := range hashes {
			out.Transactions.Hashes[i] = FeltToHash(h)
		}
		return out, nil
	}
	txs, err := c.translateTransactions(ctx, b)
	if err != nil {
		return nil, err
	}
	out.Transactions.Full = txs
	return out, nil
}

func translateHeader(h *native.BlockHeader) *Block {
	out := &Block{
		ParentHash:    FeltToHash(h.ParentHash),
		Sha3Uncles:    types.EmptyUncleHash,
		Miner:         Truncate(h.SequencerAddress),
		Difficulty:    new(hexutil.Big),
		GasLimit:      BlockGasLimit,
		Timestamp:     hexutil.Uint64(h.Timestamp),
		ExtraData:     hexutil.Bytes{},
		BaseFeePerGas: (*hexutil.Big)(BaseFeePerGas()),
		Uncles:        []common.Hash{},
	}
	if h.BlockHash != nil {
		hash := FeltToHash(*h.BlockHash)
		out.Hash = &hash
	}
	if h.BlockNumber != nil {
		n := hexutil.Uint64(*h.BlockNumber)
		out.Number = &n
	}
	if h.NewRoot != nil {
		out.StateRoot = FeltToHash(*h.NewRoot)
	}
	return out
}

type txResult struct {
	tx  *Transaction
	err error
}

// translateTransactions fans out one translation per transaction. A block
// fetched with hashes only is hydrated through TransactionByHash.
func (c *Client) translateTransactions(ctx context.Context, b *native.Block) ([]*Transaction, error) {
	var base TxPosition
	if b.BlockHash != nil {
		h := FeltToHash(*b.BlockHash)
		base.BlockHash, base.BlockNumber = &h, b.BlockNumber
	}
	hashes := b.Hashes()

	results, err := fanOut(ctx, c.cfg.FanOutLimit, len(hashes), func(ctx context.Context, i int) txResult {
		var tx *native.Transaction
		if b.Transactions != nil {
			tx = &b.Transactions[i]
		} else {
			fetched, err := c.provider.TransactionByHash(ctx, hashes[i])
			if err != nil {
				return txResult{err: providerError(opTranslateBlockTx, hashes[i], err)}
			}
			tx = fetched
		}
		pos := base
		if pos.BlockHash != nil {
			idx := uint64(i)
			pos.Index = &idx
		}
		out, err := c.TranslateTransaction(ctx, tx, pos)
		return txResult{tx: out, err: err}
	})
	if err != nil {
		return nil, providerError(opTranslateBlockTx, len(hashes), err)
	}

	txs := make([]*Transaction, 0, len(results))
	for i, r := range results {
		if r.err != nil {
			log.Debug(log.BridgeMonitoring, "excluding transaction from block", "index", i, "hash", hashes[i], "err", r.err)
			continue
		}
		txs = append(txs, r.tx)
	}
	return txs, nil
}

// BlockTransactionCount counts the transactions of a block that have an EVM
// form.
func (c *Client) BlockTransactionCount(ctx context.Context, id native.BlockID) (uint64, error) {
	b, err := c.provider.BlockWithTxs(ctx, id)
	if err != nil {
		return 0, providerError(opBlockTxCount, id.String(), err)
	}
	txs, err := c.translateTransactions(ctx, b)
	if err != nil {
		return 0, err
	}
	return uint64(len(txs)), nil
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := c.provider.BlockNumber(ctx)
	if err != nil {
		return 0, providerError(opBlockNumber, nil, err)
	}
	return n, nil
}

// Syncing returns nil when the ledger node is caught up.
func (c *Client) Syncing(ctx context.Context) (*SyncStatus, error) {
	st, err := c.provider.Syncing(ctx)
	if err != nil {
		return nil, providerError(opSyncing, nil, err)
	}
	if st == nil {
		return nil, nil
	}
	return &SyncStatus{
		StartingBlock: hexutil.Uint64(st.StartingBlockNum),
		CurrentBlock:  hexutil.Uint64(st.CurrentBlockNum),
		HighestBlock:  hexutil.Uint64(st.HighestBlockNum),
	}, nil
}
