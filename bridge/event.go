package bridge

import (
	"fmt"

	"github.com/colorfulnotion/evmbridge/bridgeerrors"
	"github.com/colorfulnotion/evmbridge/felt"
	"github.com/colorfulnotion/evmbridge/native"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

const opReconstructLog = "reconstruct_log"

// LogContext is the position of a log, supplied by the caller. Block fields
// are nil for pending transactions.
type LogContext struct {
	BlockHash   *common.Hash
	BlockNumber *uint64
	TxHash      common.Hash
	TxIndex     *uint64
	LogIndex    uint64
}

// Topic rebuilds a 256-bit topic from its low and high 128-bit halves.
// Arithmetic is on 256-bit integers, never in the field.
func Topic(low, high felt.Felt) common.Hash {
	l, h := low.Uint256(), high.Uint256()
	h.Lsh(h, 128)
	var sum uint256.Int
	sum.Add(l, h)
	return common.Hash(sum.Bytes32())
}

// ReconstructLog converts an interpreter event into an Ethereum log. The
// last key is the emitting EVM contract, the remaining keys are (low, high)
// topic pairs and every data element is one byte.
func (c *Client) ReconstructLog(ev native.Event, lc LogContext) (*Log, error) {
	if !ev.FromAddress.Equal(c.cfg.InterpreterAddress) {
		return nil, bridgeerrors.New(opReconstructLog, bridgeerrors.ErrNotBridgeEvent, ev.FromAddress, nil)
	}
	if len(ev.Keys) == 0 {
		return nil, bridgeerrors.Newf(opReconstructLog, bridgeerrors.ErrMalformedEvent, ev.FromAddress, "event has no keys")
	}
	emitter := ev.Keys[len(ev.Keys)-1]
	topicKeys := ev.Keys[:len(ev.Keys)-1]

	topics := make([]common.Hash, 0, (len(topicKeys)+1)/2)
	for i := 0; i < len(topicKeys); i += 2 {
		high := felt.Zero
		if i+1 < len(topicKeys) {
			high = topicKeys[i+1]
		}
		topics = append(topics, Topic(topicKeys[i], high))
	}

	data, err := FeltsToBytes(ev.Data, c.cfg.LossyByteDecoding)
	if err != nil {
		return nil, bridgeerrors.New(opReconstructLog, bridgeerrors.ErrMalformedEvent, fmt.Sprintf("tx %s log %d", lc.TxHash.Hex(), lc.LogIndex), err)
	}

	l := &Log{
		Address:         Truncate(emitter),
		Topics:          topics,
		Data:            data,
		BlockHash:       lc.BlockHash,
		TransactionHash: lc.TxHash,
		LogIndex:        hexutil.Uint64(lc.LogIndex),
	}
	if lc.BlockNumber != nil {
		n := hexutil.Uint64(*lc.BlockNumber)
		l.BlockNumber = &n
	}
	if lc.TxIndex != nil {
		i := hexutil.Uint64(*lc.TxIndex)
		l.TransactionIndex = &i
	}
	return l, nil
}
