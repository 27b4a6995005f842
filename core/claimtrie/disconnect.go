package claimtrie

import (
	"fmt"

	"github.com/nondejus/lbrycrd/core/coinview"
	"github.com/nondejus/lbrycrd/core/types"
)

// Disconnect undoes one block's effect on the cache and the coin view by
// applying the block's recorded change set in reverse: touched name rows
// are restored wholesale from their pre-block snapshots, identifier-index
// entries are rolled back, spent coins come back and created coins go away.
//
// The registry never re-runs its acceptance policy here; bid order at the
// target height is whatever the snapshots recorded.
func (c *Cache) Disconnect(block *types.Block, coins *coinview.Cache) error {
	changes := &block.Changes

	for _, delta := range changes.ClaimsAdded {
		entry, err := c.LookupClaimID(delta.Claim.ID)
		if err != nil {
			return err
		}
		if entry == nil {
			return fmt.Errorf("claimtrie: disconnect height %d: added claim %s missing from index",
				block.Header.Height, delta.Claim.ID)
		}
		c.indexDelete(delta.Claim.ID)
	}
	for _, delta := range changes.ClaimsRemoved {
		c.indexPut(IndexEntry{Name: delta.Name, Claim: delta.Claim})
	}

	for _, undo := range changes.Names {
		var prev *types.NameRanking
		if undo.Prev != nil {
			prev = undo.Prev.Clone()
			prev.Name = undo.Name
		}
		if err := c.setRow(undo.Name, prev); err != nil {
			return fmt.Errorf("claimtrie: disconnect height %d: restore %q: %w",
				block.Header.Height, undo.Name, err)
		}
	}

	for _, op := range changes.CoinsCreated {
		coins.SpendCoin(op)
	}
	for _, coin := range changes.CoinsSpent {
		coins.AddCoin(coin)
	}
	return nil
}
