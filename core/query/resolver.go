package query

import (
	"github.com/nondejus/lbrycrd/core/claimtrie"
	"github.com/nondejus/lbrycrd/core/types"
)

// identifierIndex is the slice of the registry the resolver consumes: a
// point lookup and an ordered full scan of the identifier index.
type identifierIndex interface {
	LookupClaimID(id types.ClaimID) (*claimtrie.IndexEntry, error)
	ScanClaimIDs(visit func(entry *claimtrie.IndexEntry) (bool, error)) error
}

func isHexString(s string) bool {
	if s == "" {
		return false
	}
	for _, ch := range s {
		switch {
		case ch >= '0' && ch <= '9', ch >= 'a' && ch <= 'f', ch >= 'A' && ch <= 'F':
		default:
			return false
		}
	}
	return true
}

// validateClaimIDParam checks a user-supplied identifier before any index
// access: hexadecimal, at most 40 characters.
func validateClaimIDParam(claimID string) error {
	if !isHexString(claimID) {
		return ErrClaimIDNotHex
	}
	if len(claimID) > types.ClaimIDHexLength {
		return ErrClaimIDTooLong
	}
	return nil
}

// resolveClaimID maps a validated exact or partial identifier to its index
// entry. A fully specified identifier is a single point lookup; anything
// shorter falls back to the prefix scan. A nil entry means not found.
func resolveClaimID(index identifierIndex, claimID string) (*claimtrie.IndexEntry, error) {
	if len(claimID) == types.ClaimIDHexLength {
		id, err := types.ClaimIDFromHex(claimID)
		if err != nil {
			return nil, err
		}
		entry, err := index.LookupClaimID(id)
		if err != nil || entry != nil {
			return entry, err
		}
	}
	return resolvePartialClaimID(index, claimID, "")
}

// resolvePartialClaimID scans the identifier index in index order and
// accepts the first entry whose identifier starts with the prefix. The name
// is pinned to that first match; entries matching the prefix under a
// different pinned name are skipped rather than reported as ambiguous, and
// the scan stops at the first accepted match.
func resolvePartialClaimID(index identifierIndex, prefix, pinnedName string) (*claimtrie.IndexEntry, error) {
	if prefix == "" {
		return nil, nil
	}
	var found *claimtrie.IndexEntry
	err := index.ScanClaimIDs(func(entry *claimtrie.IndexEntry) (bool, error) {
		if !entry.Claim.ID.HasPrefix(prefix) {
			return true, nil
		}
		if pinnedName != "" && entry.Name != pinnedName {
			return true, nil
		}
		found = entry
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}
