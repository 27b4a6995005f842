package claimtrie

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/nondejus/lbrycrd/core/types"
)

// ClaimPredicate selects a claim among a name's competitors for proof
// generation. A nil predicate selects the controlling claim.
type ClaimPredicate func(claim *types.Claim) bool

// MembershipProof is the opaque trie proof for one name, optionally bound
// to a specific claim output.
type MembershipProof struct {
	Root  common.Hash
	Nodes [][]byte

	HasValue           bool
	ClaimID            types.ClaimID
	OutPoint           types.OutPoint
	LastTakeoverHeight uint32
}

// ProofForName builds a membership proof for the name against the cache's
// current commitment. When the predicate (or the controlling-claim default)
// matches a claim, the proof binds that claim's output; otherwise the proof
// witnesses the name's trie path alone.
func (c *Cache) ProofForName(name string, predicate ClaimPredicate) (*MembershipProof, error) {
	row, err := c.ClaimsForName(name)
	if err != nil {
		return nil, err
	}

	proof := &MembershipProof{Root: c.RootHash()}

	nodes, err := c.commit.Prove(trieKey(name))
	if err != nil {
		return nil, err
	}
	proof.Nodes = nodes

	var selected *types.Claim
	if predicate == nil {
		if !row.Empty() {
			selected = &row.Claims[0].Claim
		}
	} else {
		for i := range row.Claims {
			claim := &row.Claims[i].Claim
			if predicate(claim) {
				selected = claim
				break
			}
		}
	}
	if selected != nil {
		proof.HasValue = true
		proof.ClaimID = selected.ID
		proof.OutPoint = selected.OutPoint
		proof.LastTakeoverHeight = row.LastTakeoverHeight
	}
	return proof, nil
}
