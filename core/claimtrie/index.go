package claimtrie

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/nondejus/lbrycrd/core/types"
	"github.com/nondejus/lbrycrd/storage"
)

// LookupClaimID resolves a fully specified identifier through the index. A
// single point read, never a scan.
func (c *Cache) LookupClaimID(id types.ClaimID) (*IndexEntry, error) {
	if entry, ok := c.index[id]; ok {
		if entry == nil {
			return nil, nil
		}
		cp := *entry
		return &cp, nil
	}
	raw, err := c.base.Get(indexKey(id))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claimtrie: index lookup %s: %w", id, err)
	}
	entry := new(IndexEntry)
	if err := rlp.DecodeBytes(raw, entry); err != nil {
		return nil, fmt.Errorf("claimtrie: index decode %s: %w", id, err)
	}
	return entry, nil
}

// ScanClaimIDs walks the identifier index in ascending identifier byte
// order, merging overlay entries with the stored index so a rewound view
// scans the state it describes. The callback returns false to stop.
func (c *Cache) ScanClaimIDs(visit func(entry *IndexEntry) (bool, error)) error {
	overlayIDs := make([]types.ClaimID, 0, len(c.index))
	for id := range c.index {
		overlayIDs = append(overlayIDs, id)
	}
	sort.Slice(overlayIDs, func(i, j int) bool {
		return bytes.Compare(overlayIDs[i][:], overlayIDs[j][:]) < 0
	})

	emitOverlayThrough := func(limit []byte) (bool, error) {
		for len(overlayIDs) > 0 {
			id := overlayIDs[0]
			if limit != nil && bytes.Compare(id[:], limit) >= 0 {
				return true, nil
			}
			overlayIDs = overlayIDs[1:]
			entry := c.index[id]
			if entry == nil {
				continue
			}
			keepGoing, err := visit(entry)
			if err != nil || !keepGoing {
				return false, err
			}
		}
		return true, nil
	}

	it := c.base.NewIterator([]byte{indexKeyPrefix})
	defer it.Release()
	for it.Next() {
		idBytes := it.Key()[1:]
		keepGoing, err := emitOverlayThrough(idBytes)
		if err != nil || !keepGoing {
			return err
		}
		var id types.ClaimID
		copy(id[:], idBytes)
		if entry, ok := c.index[id]; ok {
			// Overlay replaces (or deletes) the stored entry.
			if len(overlayIDs) > 0 && overlayIDs[0] == id {
				overlayIDs = overlayIDs[1:]
			}
			if entry == nil {
				continue
			}
			keepGoing, err = visit(entry)
			if err != nil || !keepGoing {
				return err
			}
			continue
		}
		entry := new(IndexEntry)
		if err := rlp.DecodeBytes(it.Value(), entry); err != nil {
			return fmt.Errorf("claimtrie: index decode %x: %w", idBytes, err)
		}
		keepGoing, err = visit(entry)
		if err != nil || !keepGoing {
			return err
		}
	}
	if err := it.Error(); err != nil {
		return fmt.Errorf("claimtrie: index scan: %w", err)
	}
	_, err := emitOverlayThrough(nil)
	return err
}

func (c *Cache) indexPut(entry IndexEntry) {
	cp := entry
	c.index[entry.Claim.ID] = &cp
}

func (c *Cache) indexDelete(id types.ClaimID) {
	c.index[id] = nil
}
