package bridge

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// Log is an Ethereum log. Block and transaction position fields are nil
// while the enclosing transaction is pending.
type Log struct {
	Address          common.Address  `json:"address"`
	Topics           []common.Hash   `json:"topics"`
	Data             hexutil.Bytes   `json:"data"`
	BlockHash        *common.Hash    `json:"blockHash"`
	BlockNumber      *hexutil.Uint64 `json:"blockNumber"`
	TransactionHash  common.Hash     `json:"transactionHash"`
	TransactionIndex *hexutil.Uint64 `json:"transactionIndex"`
	LogIndex         hexutil.Uint64  `json:"logIndex"`
	Removed          bool            `json:"removed"`
}

// Transaction mirrors the eth_getTransactionByHash result.
type Transaction struct {
	BlockHash        *common.Hash      `json:"blockHash"`
	BlockNumber      *hexutil.Uint64   `json:"blockNumber"`
	From             common.Address    `json:"from"`
	Gas              hexutil.Uint64    `json:"gas"`
	GasPrice         *hexutil.Big      `json:"gasPrice"`
	GasFeeCap        *hexutil.Big      `json:"maxFeePerGas,omitempty"`
	GasTipCap        *hexutil.Big      `json:"maxPriorityFeePerGas,omitempty"`
	Hash             common.Hash       `json:"hash"`
	Input            hexutil.Bytes     `json:"input"`
	Nonce            hexutil.Uint64    `json:"nonce"`
	To               *common.Address   `json:"to"`
	TransactionIndex *hexutil.Uint64   `json:"transactionIndex"`
	Value            *hexutil.Big      `json:"value"`
	Type             hexutil.Uint64    `json:"type"`
	Accesses         *types.AccessList `json:"accessList,omitempty"`
	ChainID          *hexutil.Big      `json:"chainId,omitempty"`
	V                *hexutil.Big      `json:"v"`
	R                *hexutil.Big      `json:"r"`
	S                *hexutil.Big      `json:"s"`
}

// Receipt mirrors the eth_getTransactionReceipt result. Gas figures and the
// transaction type are fixed placeholders; the ledger does not meter EVM gas.
type Receipt struct {
	TransactionHash   common.Hash     `json:"transactionHash"`
	TransactionIndex  hexutil.Uint64  `json:"transactionIndex"`
	BlockHash         common.Hash     `json:"blockHash"`
	BlockNumber       hexutil.Uint64  `json:"blockNumber"`
	From              common.Address  `json:"from"`
	To                *common.Address `json:"to"`
	CumulativeGasUsed hexutil.Uint64  `json:"cumulativeGasUsed"`
	GasUsed           hexutil.Uint64  `json:"gasUsed"`
	EffectiveGasPrice hexutil.Uint64  `json:"effectiveGasPrice"`
	ContractAddress   *common.Address `json:"contractAddress"`
	Logs              []*Log          `json:"logs"`
	LogsBloom         types.Bloom     `json:"logsBloom"`
	Type              hexutil.Uint64  `json:"type"`
	Status            hexutil.Uint64  `json:"status"`
}

// BlockTransactions holds either hashes or full transactions.
type BlockTransactions struct {
	Hashes []common.Hash
	Full   []*Transaction
}

// IsFull reports whether the block was hydrated.
func (t BlockTransactions) IsFull() bool { return t.Full != nil }

func (t BlockTransactions) Len() int {
	if t.IsFull() {
		return len(t.Full)
	}
	return len(t.Hashes)
}

func (t BlockTransactions) MarshalJSON() ([]byte, error) {
	if t.IsFull() {
		return json.Marshal(t.Full)
	}
	if t.Hashes == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.Hashes)
}

// Block mirrors the eth_getBlockByNumber result. Hash and Number are nil for
// the pending block.
type Block struct {
	Hash             *common.Hash      `json:"hash"`
	ParentHash       common.Hash       `json:"parentHash"`
	Sha3Uncles       common.Hash       `json:"sha3Uncles"`
	Miner            common.Address    `json:"miner"`
	StateRoot        common.Hash       `json:"stateRoot"`
	TransactionsRoot common.Hash       `json:"transactionsRoot"`
	ReceiptsRoot     common.Hash       `json:"receiptsRoot"`
	LogsBloom        types.Bloom       `json:"logsBloom"`
	Difficulty       *hexutil.Big      `json:"difficulty"`
	Number           *hexutil.Uint64   `json:"number"`
	GasLimit         hexutil.Uint64    `json:"gasLimit"`
	GasUsed          hexutil.Uint64    `json:"gasUsed"`
	Timestamp        hexutil.Uint64    `json:"timestamp"`
	ExtraData        hexutil.Bytes     `json:"extraData"`
	MixHash          common.Hash       `json:"mixHash"`
	Nonce            types.BlockNonce  `json:"nonce"`
	BaseFeePerGas    *hexutil.Big      `json:"baseFeePerGas"`
	Size             hexutil.Uint64    `json:"size"`
	Uncles           []common.Hash     `json:"uncles"`
	Transactions     BlockTransactions `json:"transactions"`
}

// FeeHistory mirrors the eth_feeHistory result. Reward is always omitted.
type FeeHistory struct {
	OldestBlock   *hexutil.Big     `json:"oldestBlock"`
	Reward        [][]*hexutil.Big `json:"reward,omitempty"`
	BaseFeePerGas []*hexutil.Big   `json:"baseFeePerGas"`
	GasUsedRatio  []float64        `json:"gasUsedRatio"`
}

// TokenBalance is one entry of a batched balance lookup. Exactly one of
// TokenBalance and Error is set.
type TokenBalance struct {
	ContractAddress common.Address `json:"contractAddress"`
	TokenBalance    *hexutil.Big   `json:"tokenBalance"`
	Error           string         `json:"error,omitempty"`

	err error
}

// Err returns the lookup failure, if any.
func (b TokenBalance) Err() error { return b.err }

type TokenBalances struct {
	Address       common.Address `json:"address"`
	TokenBalances []TokenBalance `json:"tokenBalances"`
}

// SyncStatus is the eth_syncing object; nil means not syncing.
type SyncStatus struct {
	StartingBlock hexutil.Uint64 `json:"startingBlock"`
	CurrentBlock  hexutil.Uint64 `json:"currentBlock"`
	HighestBlock  hexutil.Uint64 `json:"highestBlock"`
}

// CallArgs is the eth_call / eth_estimateGas call object. Only To and the
// call data are used.
type CallArgs struct {
	From  *common.Address `json:"from"`
	To    *common.Address `json:"to"`
	Gas   *hexutil.Uint64 `json:"gas"`
	Value *hexutil.Big    `json:"value"`
	Data  *hexutil.Bytes  `json:"data"`
	Input *hexutil.Bytes  `json:"input"`
}

// data prefers input over data, as geth does.
func (a CallArgs) data() []byte {
	if a.Input != nil {
		return *a.Input
	}
	if a.Data != nil {
		return *a.Data
	}
	return nil
}
