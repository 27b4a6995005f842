package claimtrie

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/nondejus/lbrycrd/core/types"
)

// The writer methods install registry state in the backing store. Block
// connection lives in the sync engine, outside this repository; these
// entry points serve genesis import and test fixtures, and they write the
// same shapes the query layer reads.

// PutRanking stores a name row and indexes each of its claims.
func (ct *ClaimTrie) PutRanking(row *types.NameRanking) error {
	if row == nil || row.Name == "" {
		return fmt.Errorf("claimtrie: ranking requires a name")
	}
	raw, err := rlp.EncodeToBytes(row)
	if err != nil {
		return fmt.Errorf("claimtrie: encode row %q: %w", row.Name, err)
	}
	if err := ct.store.Put(rowKey(row.Name), raw); err != nil {
		return fmt.Errorf("claimtrie: store row %q: %w", row.Name, err)
	}
	for _, cs := range row.Claims {
		entry := IndexEntry{Name: row.Name, Claim: cs.Claim}
		rawEntry, err := rlp.EncodeToBytes(&entry)
		if err != nil {
			return fmt.Errorf("claimtrie: encode index %s: %w", cs.Claim.ID, err)
		}
		if err := ct.store.Put(indexKey(cs.Claim.ID), rawEntry); err != nil {
			return fmt.Errorf("claimtrie: store index %s: %w", cs.Claim.ID, err)
		}
	}
	if err := ct.commit.Update(trieKey(row.Name), rowHash(row)); err != nil {
		return fmt.Errorf("claimtrie: commit row %q: %w", row.Name, err)
	}
	ct.commit.Hash()
	return nil
}

// PutPending stores the tip's pending claims and supports for a name.
func (ct *ClaimTrie) PutPending(name string, list *PendingList) error {
	raw, err := rlp.EncodeToBytes(list)
	if err != nil {
		return fmt.Errorf("claimtrie: encode pending %q: %w", name, err)
	}
	if err := ct.store.Put(pendingKey(name), raw); err != nil {
		return fmt.Errorf("claimtrie: store pending %q: %w", name, err)
	}
	return nil
}
