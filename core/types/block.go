package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"lukechampine.com/blake3"
)

// Coin is a live spendable output tracked by the coin view.
type Coin struct {
	OutPoint OutPoint
	Amount   uint64
	Height   uint32
}

// NameUndo captures a touched name's full registry row before a block was
// connected. A nil Prev means the name did not exist. Disconnecting the
// block restores Prev wholesale, so the registry never re-runs its
// acceptance policy while rewinding.
type NameUndo struct {
	Name string
	Prev *NameRanking `rlp:"nil"`
}

// ClaimDelta records one claim insertion or removal together with the name
// it belongs to, mirroring the shape of the identifier index.
type ClaimDelta struct {
	Name  string
	Claim Claim
}

// SupportDelta records one support insertion or removal.
type SupportDelta struct {
	Name    string
	Support Support
}

// ChangeSet is the undo record written when a block is connected. It holds
// everything needed to reverse the block's effect on the coin view and the
// registry, plus the per-entry deltas surfaced by change queries.
type ChangeSet struct {
	Names []NameUndo

	ClaimsAdded     []ClaimDelta
	ClaimsRemoved   []ClaimDelta
	SupportsAdded   []SupportDelta
	SupportsRemoved []SupportDelta

	CoinsCreated []OutPoint
	CoinsSpent   []Coin
}

// BlockHeader carries the chain-index fields of a block.
type BlockHeader struct {
	PrevHash  common.Hash
	Height    uint32
	Timestamp uint64
}

// Block is a connected block together with its undo change set. The query
// layer only ever walks the chain backward, so transaction bodies are not
// retained here.
type Block struct {
	Header  BlockHeader
	Changes ChangeSet
}

// Hash computes the block's identity hash over its RLP-encoded header.
func (b *Block) Hash() common.Hash {
	enc, err := rlp.EncodeToBytes(&b.Header)
	if err != nil {
		// Header fields are all fixed RLP-encodable kinds.
		panic(err)
	}
	return common.Hash(blake3.Sum256(enc))
}

// MarshalBinary encodes the block for the block store.
func (b *Block) MarshalBinary() ([]byte, error) {
	return rlp.EncodeToBytes(b)
}

// UnmarshalBinary decodes a block previously written by MarshalBinary.
func (b *Block) UnmarshalBinary(data []byte) error {
	return rlp.DecodeBytes(data, b)
}
