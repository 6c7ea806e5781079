// Package native holds the data model of the field-element ledger the bridge
// reads from, and the Provider capability used to reach it.
package native

import (
	"encoding/json"
	"fmt"

	"github.com/colorfulnotion/evmbridge/felt"
)

// FunctionCall is a read-only contract invocation.
type FunctionCall struct {
	ContractAddress    felt.Felt   `json:"contract_address"`
	EntryPointSelector felt.Felt   `json:"entry_point_selector"`
	Calldata           []felt.Felt `json:"calldata"`
}

type TransactionType string

const (
	TxInvoke        TransactionType = "INVOKE"
	TxDeclare       TransactionType = "DECLARE"
	TxDeploy        TransactionType = "DEPLOY"
	TxDeployAccount TransactionType = "DEPLOY_ACCOUNT"
	TxL1Handler     TransactionType = "L1_HANDLER"
)

type TransactionStatus string

const (
	StatusAcceptedOnL2 TransactionStatus = "ACCEPTED_ON_L2"
	StatusAcceptedOnL1 TransactionStatus = "ACCEPTED_ON_L1"
	StatusRejected     TransactionStatus = "REJECTED"
	StatusPending      TransactionStatus = "PENDING"
)

// Transaction is a native transaction of any kind. Fields not carried by a
// kind are nil.
type Transaction struct {
	TransactionHash    felt.Felt       `json:"transaction_hash"`
	Type               TransactionType `json:"type"`
	Version            felt.Felt       `json:"version"`
	MaxFee             *felt.Felt      `json:"max_fee,omitempty"`
	Signature          []felt.Felt     `json:"signature,omitempty"`
	Nonce              *felt.Felt      `json:"nonce,omitempty"`
	SenderAddress      *felt.Felt      `json:"sender_address,omitempty"`
	Calldata           []felt.Felt     `json:"calldata,omitempty"`
	ContractAddress    *felt.Felt      `json:"contract_address,omitempty"`
	EntryPointSelector *felt.Felt      `json:"entry_point_selector,omitempty"`
	ClassHash          *felt.Felt      `json:"class_hash,omitempty"`
}

func (t *Transaction) IsInvoke() bool { return t != nil && t.Type == TxInvoke }

// Sender returns the account that submitted an invoke, falling back to the
// contract address used by version 0 invokes.
func (t *Transaction) Sender() (felt.Felt, bool) {
	switch {
	case t.SenderAddress != nil:
		return *t.SenderAddress, true
	case t.ContractAddress != nil:
		return *t.ContractAddress, true
	}
	return felt.Zero, false
}

// InvokeTransaction is the version 1 invoke broadcast payload.
type InvokeTransaction struct {
	SenderAddress felt.Felt   `json:"sender_address"`
	Calldata      []felt.Felt `json:"calldata"`
	MaxFee        felt.Felt   `json:"max_fee"`
	Signature     []felt.Felt `json:"signature"`
	Nonce         felt.Felt   `json:"nonce"`
}

// MarshalJSON adds the type and version tags expected by the ledger.
func (t InvokeTransaction) MarshalJSON() ([]byte, error) {
	type plain InvokeTransaction
	sig := t.Signature
	if sig == nil {
		sig = []felt.Felt{}
	}
	p := plain(t)
	p.Signature = sig
	return json.Marshal(struct {
		Type    TransactionType `json:"type"`
		Version felt.Felt       `json:"version"`
		plain
	}{TxInvoke, felt.One(), p})
}

// Event is a contract event as the ledger records it.
type Event struct {
	FromAddress felt.Felt   `json:"from_address"`
	Keys        []felt.Felt `json:"keys"`
	Data        []felt.Felt `json:"data"`
}

// Receipt is a native transaction receipt. BlockHash and BlockNumber are nil
// while the transaction is pending.
type Receipt struct {
	TransactionHash felt.Felt         `json:"transaction_hash"`
	ActualFee       felt.Felt         `json:"actual_fee"`
	Status          TransactionStatus `json:"status"`
	BlockHash       *felt.Felt        `json:"block_hash,omitempty"`
	BlockNumber     *uint64           `json:"block_number,omitempty"`
	Type            TransactionType   `json:"type"`
	Events          []Event           `json:"events"`
}

// IsPending reports whether the receipt is not yet in a block. Status plays
// no part: a receipt inside a block with status PENDING is a failed one.
func (r *Receipt) IsPending() bool {
	return r.BlockHash == nil || r.BlockNumber == nil
}

// BlockHeader carries the fields common to both block shapes. Hash, number
// and root are nil for the pending block.
type BlockHeader struct {
	Status           TransactionStatus `json:"status,omitempty"`
	BlockHash        *felt.Felt        `json:"block_hash,omitempty"`
	ParentHash       felt.Felt         `json:"parent_hash"`
	BlockNumber      *uint64           `json:"block_number,omitempty"`
	NewRoot          *felt.Felt        `json:"new_root,omitempty"`
	Timestamp        uint64            `json:"timestamp"`
	SequencerAddress felt.Felt         `json:"sequencer_address"`
}

// Block is returned by both block queries. Only one of Transactions and
// TransactionHashes is populated, matching the query used.
type Block struct {
	BlockHeader
	Transactions      []Transaction
	TransactionHashes []felt.Felt
}

// Hashes returns the transaction hashes of either block shape.
func (b *Block) Hashes() []felt.Felt {
	if b.Transactions == nil {
		return b.TransactionHashes
	}
	out := make([]felt.Felt, len(b.Transactions))
	for i := range b.Transactions {
		out[i] = b.Transactions[i].TransactionHash
	}
	return out
}

func (b Block) MarshalJSON() ([]byte, error) {
	var txs interface{} = b.TransactionHashes
	if b.Transactions != nil {
		txs = b.Transactions
	} else if b.TransactionHashes == nil {
		txs = []felt.Felt{}
	}
	return json.Marshal(struct {
		BlockHeader
		Transactions interface{} `json:"transactions"`
	}{b.BlockHeader, txs})
}

func (b *Block) UnmarshalJSON(data []byte) error {
	var wire struct {
		BlockHeader
		Transactions []json.RawMessage `json:"transactions"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*b = Block{BlockHeader: wire.BlockHeader}
	for i, raw := range wire.Transactions {
		if len(raw) > 0 && raw[0] == '"' {
			var h felt.Felt
			if err := json.Unmarshal(raw, &h); err != nil {
				return fmt.Errorf("transaction hash %d: %w", i, err)
			}
			b.TransactionHashes = append(b.TransactionHashes, h)
			continue
		}
		var tx Transaction
		if err := json.Unmarshal(raw, &tx); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
		b.Transactions = append(b.Transactions, tx)
	}
	return nil
}

// SyncStatus is nil-equivalent when the node is not syncing.
type SyncStatus struct {
	StartingBlockHash felt.Felt `json:"starting_block_hash"`
	StartingBlockNum  uint64    `json:"starting_block_num"`
	CurrentBlockHash  felt.Felt `json:"current_block_hash"`
	CurrentBlockNum   uint64    `json:"current_block_num"`
	HighestBlockHash  felt.Felt `json:"highest_block_hash"`
	HighestBlockNum   uint64    `json:"highest_block_num"`
}
