package query

import (
	"fmt"
	"sort"

	"github.com/nondejus/lbrycrd/core/types"
)

// seqSort returns a copy of the claim set in sequence order: effective
// height ascending, ties broken by output index ascending. The bid order of
// the input is registry policy and is never touched. Output indexes are
// unique per claim, so a full tie cannot occur, but the comparator
// tolerates one.
func seqSort(source []types.ClaimNSupports) []types.ClaimNSupports {
	out := append([]types.ClaimNSupports(nil), source...)
	sort.SliceStable(out, func(i, j int) bool {
		lc, rc := out[i].Claim, out[j].Claim
		if lc.ValidAtHeight != rc.ValidAtHeight {
			return lc.ValidAtHeight < rc.ValidAtHeight
		}
		return lc.OutPoint.N < rc.OutPoint.N
	})
	return out
}

// indexOf returns the position of the identifier within the ordering. The
// identifier originates from the same claim set, so absence is a violated
// contract, not a user-facing condition.
func indexOf(source []types.ClaimNSupports, id types.ClaimID) int {
	for i := range source {
		if source[i].Claim.ID == id {
			return i
		}
	}
	panic(fmt.Sprintf("claim %s not present in its own ordering", id))
}

// pendingAmount reports the stake attached to the claim but not yet counted
// toward its ranking: the excess of the total (claim plus all linked
// supports) over the registry-maintained effective amount. The second
// return is false when nothing is pending.
func pendingAmount(cs *types.ClaimNSupports) (uint64, bool) {
	total := cs.TotalAmount()
	if total > cs.EffectiveAmount {
		return total - cs.EffectiveAmount, true
	}
	return 0, false
}
