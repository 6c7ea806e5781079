package native

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/colorfulnotion/evmbridge/felt"
)

// BlockTag names a moving block reference.
type BlockTag string

const (
	TagLatest  BlockTag = "latest"
	TagPending BlockTag = "pending"
)

// BlockID selects a block by tag, number or hash. Exactly one field is set.
type BlockID struct {
	Tag    BlockTag
	Number *uint64
	Hash   *felt.Felt
}

func LatestBlock() BlockID  { return BlockID{Tag: TagLatest} }
func PendingBlock() BlockID { return BlockID{Tag: TagPending} }

func BlockNumber(n uint64) BlockID { return BlockID{Number: &n} }

func BlockHash(h felt.Felt) BlockID { return BlockID{Hash: &h} }

func (b BlockID) IsPending() bool { return b.Tag == TagPending }

func (b BlockID) String() string {
	switch {
	case b.Number != nil:
		return fmt.Sprintf("#%d", *b.Number)
	case b.Hash != nil:
		return b.Hash.String()
	case b.Tag != "":
		return string(b.Tag)
	default:
		return string(TagLatest)
	}
}

type blockNumberRef struct {
	BlockNumber uint64 `json:"block_number"`
}

type blockHashRef struct {
	BlockHash felt.Felt `json:"block_hash"`
}

func (b BlockID) MarshalJSON() ([]byte, error) {
	switch {
	case b.Number != nil:
		return json.Marshal(blockNumberRef{BlockNumber: *b.Number})
	case b.Hash != nil:
		return json.Marshal(blockHashRef{BlockHash: *b.Hash})
	case b.Tag == TagLatest || b.Tag == TagPending:
		return json.Marshal(string(b.Tag))
	case b.Tag == "":
		return json.Marshal(string(TagLatest))
	default:
		return nil, fmt.Errorf("unknown block tag %q", b.Tag)
	}
}

func (b *BlockID) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		switch BlockTag(tag) {
		case TagLatest, TagPending:
			*b = BlockID{Tag: BlockTag(tag)}
			return nil
		}
		return fmt.Errorf("unknown block tag %q", tag)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid block id: %w", err)
	}
	if raw, ok := obj["block_number"]; ok {
		var n uint64
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("invalid block_number: %w", err)
		}
		*b = BlockNumber(n)
		return nil
	}
	if raw, ok := obj["block_hash"]; ok {
		var h felt.Felt
		if err := json.Unmarshal(raw, &h); err != nil {
			return fmt.Errorf("invalid block_hash: %w", err)
		}
		*b = BlockHash(h)
		return nil
	}
	return errors.New("block id needs block_number or block_hash")
}
