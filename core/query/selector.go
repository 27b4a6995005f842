package query

import (
	"github.com/nondejus/lbrycrd/core/claimtrie"
	"github.com/nondejus/lbrycrd/core/types"
)

// The proof selector turns a user request into the claim predicate handed
// to the registry's proof builder. It never constructs proofs itself. A nil
// predicate keeps the registry's default: prove the controlling claim.

// predicateForClaimID builds an identifier predicate from a validated exact
// or partial identifier. An empty identifier means no selector.
func predicateForClaimID(claimID string) claimtrie.ClaimPredicate {
	if claimID == "" {
		return nil
	}
	if len(claimID) == types.ClaimIDHexLength {
		id, err := types.ClaimIDFromHex(claimID)
		if err != nil {
			// Validation upstream guarantees hex of the right length.
			panic(err)
		}
		return func(claim *types.Claim) bool {
			return claim.ID == id
		}
	}
	return func(claim *types.Claim) bool {
		return claim.ID.HasPrefix(claimID)
	}
}

// predicateForBid resolves a bid position against the name's claim list.
// Bid zero maps to the engine default (nil predicate). An out-of-range bid
// is not an error: ok is false and the caller returns an empty result.
func predicateForBid(row *types.NameRanking, bid int) (claimtrie.ClaimPredicate, bool) {
	if bid == 0 {
		return nil, true
	}
	if bid >= len(row.Claims) {
		return nil, false
	}
	id := row.Claims[bid].Claim.ID
	return func(claim *types.Claim) bool {
		return claim.ID == id
	}, true
}

// predicateForSeq resolves a sequence position through the locally derived
// sequence order, with the same out-of-range contract as predicateForBid.
func predicateForSeq(row *types.NameRanking, seq int) (claimtrie.ClaimPredicate, bool) {
	if seq >= len(row.Claims) {
		return nil, false
	}
	var id types.ClaimID
	if len(row.Claims) == 1 {
		id = row.Claims[0].Claim.ID
	} else {
		id = seqSort(row.Claims)[seq].Claim.ID
	}
	return func(claim *types.Claim) bool {
		return claim.ID == id
	}, true
}
