package query

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/nondejus/lbrycrd/core/claimtrie"
	"github.com/nondejus/lbrycrd/core/types"
)

// Result types are explicit per query kind; optional fields are pointers
// omitted from JSON when absent.

// SupportInfo is one support record in presentation form.
type SupportInfo struct {
	TxID          string `json:"txid"`
	N             uint32 `json:"n"`
	Height        uint32 `json:"height"`
	ValidAtHeight uint32 `json:"validAtHeight"`
	Amount        uint64 `json:"amount"`
}

// ClaimInfo is one ranked claim together with its supports and amounts.
// PendingAmount appears only when stake beyond the effective amount is
// attached.
type ClaimInfo struct {
	Name            string        `json:"name"`
	ClaimID         string        `json:"claimId"`
	TxID            string        `json:"txid"`
	N               uint32        `json:"n"`
	Height          uint32        `json:"height"`
	ValidAtHeight   uint32        `json:"validAtHeight"`
	Amount          uint64        `json:"amount"`
	EffectiveAmount uint64        `json:"effectiveAmount"`
	PendingAmount   *uint64       `json:"pendingAmount,omitempty"`
	Supports        []SupportInfo `json:"supports"`
}

// ValueResult answers the single-claim queries: value-for-name, by
// identifier, by bid, by sequence.
type ValueResult struct {
	Name string `json:"name"`
	ClaimInfo
	LastTakeoverHeight uint32 `json:"lastTakeoverHeight"`
	Bid                int    `json:"bid"`
	Sequence           int    `json:"sequence"`
}

// RankedClaim is a ClaimInfo annotated with both orderings.
type RankedClaim struct {
	ClaimInfo
	Bid      int `json:"bid"`
	Sequence int `json:"sequence"`
}

// ClaimListResult answers claims-for-name.
type ClaimListResult struct {
	Name                string        `json:"name"`
	Claims              []RankedClaim `json:"claims"`
	LastTakeoverHeight  uint32        `json:"lastTakeoverHeight"`
	SupportsWithoutClaim []SupportInfo `json:"supportsWithoutClaim"`
}

// ProofResult carries the registry's opaque membership proof.
type ProofResult struct {
	Root               string   `json:"root"`
	Nodes              []string `json:"nodes"`
	TxID               *string  `json:"txid,omitempty"`
	N                  *uint32  `json:"n,omitempty"`
	LastTakeoverHeight *uint32  `json:"lastTakeoverHeight,omitempty"`
}

// OutputStatusResult answers the membership query for one output.
type OutputStatusResult struct {
	Name          string `json:"name"`
	TxID          string `json:"txid"`
	N             uint32 `json:"n"`
	InRegistry    bool   `json:"inRegistry"`
	IsControlling bool   `json:"isControlling,omitempty"`
	IsSupport     bool   `json:"isSupport,omitempty"`
	InQueue       bool   `json:"inQueue"`
	BlocksToValid *int64 `json:"blocksToValid,omitempty"`
}

// BlockChangesResult lists the identifiers a block touched.
type BlockChangesResult struct {
	ClaimsAddedOrUpdated   []string `json:"claimsAddedOrUpdated"`
	ClaimsRemoved          []string `json:"claimsRemoved"`
	SupportsAddedOrUpdated []string `json:"supportsAddedOrUpdated"`
	SupportsRemoved        []string `json:"supportsRemoved"`
}

func supportInfo(sup types.Support) SupportInfo {
	return SupportInfo{
		TxID:          sup.OutPoint.TxID.Hex(),
		N:             sup.OutPoint.N,
		Height:        sup.Height,
		ValidAtHeight: sup.ValidAtHeight,
		Amount:        sup.Amount,
	}
}

func claimInfo(name string, cs *types.ClaimNSupports) ClaimInfo {
	info := ClaimInfo{
		Name:            name,
		ClaimID:         cs.Claim.ID.Hex(),
		TxID:            cs.Claim.OutPoint.TxID.Hex(),
		N:               cs.Claim.OutPoint.N,
		Height:          cs.Claim.Height,
		ValidAtHeight:   cs.Claim.ValidAtHeight,
		Amount:          cs.Claim.Amount,
		EffectiveAmount: cs.EffectiveAmount,
		Supports:        make([]SupportInfo, 0, len(cs.Supports)),
	}
	if pending, ok := pendingAmount(cs); ok {
		info.PendingAmount = &pending
	}
	for _, sup := range cs.Supports {
		info.Supports = append(info.Supports, supportInfo(sup))
	}
	return info
}

func proofResult(proof *claimtrie.MembershipProof) *ProofResult {
	out := &ProofResult{Root: proof.Root.Hex(), Nodes: make([]string, 0, len(proof.Nodes))}
	for _, node := range proof.Nodes {
		out.Nodes = append(out.Nodes, common.Bytes2Hex(node))
	}
	if proof.HasValue {
		txid := proof.OutPoint.TxID.Hex()
		n := proof.OutPoint.N
		takeover := proof.LastTakeoverHeight
		out.TxID = &txid
		out.N = &n
		out.LastTakeoverHeight = &takeover
	}
	return out
}
