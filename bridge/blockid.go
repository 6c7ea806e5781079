package bridge

import (
	"errors"

	"github.com/colorfulnotion/evmbridge/native"
	"github.com/ethereum/go-ethereum/rpc"
)

// BlockIDFromNumber maps an Ethereum block tag or number onto a native block
// id. safe and finalized have no native counterpart and read latest.
func BlockIDFromNumber(n rpc.BlockNumber) native.BlockID {
	switch {
	case n >= 0:
		return native.BlockNumber(uint64(n))
	case n == rpc.EarliestBlockNumber:
		return native.BlockNumber(0)
	case n == rpc.PendingBlockNumber:
		return native.PendingBlock()
	default:
		return native.LatestBlock()
	}
}

// BlockIDFromNumberOrHash converts an Ethereum block reference.
func BlockIDFromNumberOrHash(ref rpc.BlockNumberOrHash) (native.BlockID, error) {
	if h, ok := ref.Hash(); ok {
		f, err := HashToFelt(h)
		if err != nil {
			return native.BlockID{}, err
		}
		return native.BlockHash(f), nil
	}
	if n, ok := ref.Number(); ok {
		return BlockIDFromNumber(n), nil
	}
	return native.BlockID{}, errors.New("block reference has neither number nor hash")
}
