package types

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"lukechampine.com/blake3"
)

// ClaimIDLength is the byte length of a claim identifier.
const ClaimIDLength = 20

// ClaimIDHexLength is the length of a fully specified claim identifier in hex.
const ClaimIDHexLength = 2 * ClaimIDLength

// ClaimID is the 160-bit identifier of a claim. Identifiers are unique
// across the whole registry.
type ClaimID [ClaimIDLength]byte

// NewClaimID derives a claim identifier from the output that registered the
// claim. The derivation is deterministic so reconnecting a block always
// reproduces the same identifier.
func NewClaimID(op OutPoint) ClaimID {
	buf := make([]byte, common.HashLength+4)
	copy(buf, op.TxID[:])
	binary.LittleEndian.PutUint32(buf[common.HashLength:], op.N)
	sum := blake3.Sum256(buf)

	var id ClaimID
	copy(id[:], sum[:ClaimIDLength])
	return id
}

// ClaimIDFromHex parses a fully specified 40-character hex identifier.
func ClaimIDFromHex(s string) (ClaimID, error) {
	var id ClaimID
	if len(s) != ClaimIDHexLength {
		return id, fmt.Errorf("claim id must be %d hex characters, got %d", ClaimIDHexLength, len(s))
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("invalid claim id: %w", err)
	}
	copy(id[:], raw)
	return id, nil
}

func (id ClaimID) Bytes() []byte { return id[:] }

func (id ClaimID) Hex() string { return hex.EncodeToString(id[:]) }

func (id ClaimID) String() string { return id.Hex() }

func (id ClaimID) IsZero() bool { return id == ClaimID{} }

// OutPoint references a spendable output by transaction id and output index.
type OutPoint struct {
	TxID common.Hash
	N    uint32
}

func (op OutPoint) String() string {
	return fmt.Sprintf("%s:%d", op.TxID.Hex(), op.N)
}

// Claim is a registered ownership assertion for a name, backed by a
// spendable output.
type Claim struct {
	ID            ClaimID
	OutPoint      OutPoint
	Height        uint32 // height the claim was registered at
	ValidAtHeight uint32 // height the claim became (or becomes) effective
	Amount        uint64
}

// Support is a weighted vote backing a specific claim by identifier. A
// support whose identifier matches no live claim for the name is unmatched.
type Support struct {
	ClaimID       ClaimID
	OutPoint      OutPoint
	Height        uint32
	ValidAtHeight uint32
	Amount        uint64
}

// ClaimNSupports pairs a claim with its linked supports and the effective
// amount the registry counted toward its ranking. The effective amount is
// registry state, never derived here.
type ClaimNSupports struct {
	Claim           Claim
	Supports        []Support
	EffectiveAmount uint64
}

// TotalAmount is the claim amount plus every linked support amount. Supports
// not yet effective are included, which is how the total can exceed the
// effective amount.
func (cs *ClaimNSupports) TotalAmount() uint64 {
	total := cs.Claim.Amount
	for _, sup := range cs.Supports {
		total += sup.Amount
	}
	return total
}

// NameRanking is the registry's full ranking state for one name. Claims is
// the bid order decided by the registry's acceptance policy; it is opaque to
// consumers and must never be resorted.
type NameRanking struct {
	Name               string
	Claims             []ClaimNSupports
	LastTakeoverHeight uint32
	UnmatchedSupports  []Support
}

// Find returns the entry for the given identifier, if present.
func (r *NameRanking) Find(id ClaimID) (ClaimNSupports, bool) {
	if r == nil {
		return ClaimNSupports{}, false
	}
	for _, cs := range r.Claims {
		if cs.Claim.ID == id {
			return cs, true
		}
	}
	return ClaimNSupports{}, false
}

// Empty reports whether the name carries no active claims.
func (r *NameRanking) Empty() bool {
	return r == nil || len(r.Claims) == 0
}

// Clone deep-copies the ranking so undo snapshots cannot alias live state.
func (r *NameRanking) Clone() *NameRanking {
	if r == nil {
		return nil
	}
	out := &NameRanking{
		Name:               r.Name,
		LastTakeoverHeight: r.LastTakeoverHeight,
	}
	if r.Claims != nil {
		out.Claims = make([]ClaimNSupports, len(r.Claims))
		for i, cs := range r.Claims {
			out.Claims[i] = ClaimNSupports{
				Claim:           cs.Claim,
				EffectiveAmount: cs.EffectiveAmount,
			}
			if cs.Supports != nil {
				out.Claims[i].Supports = append([]Support(nil), cs.Supports...)
			}
		}
	}
	if r.UnmatchedSupports != nil {
		out.UnmatchedSupports = append([]Support(nil), r.UnmatchedSupports...)
	}
	return out
}

// Equal reports whether two rankings describe identical registry state.
func (r *NameRanking) Equal(other *NameRanking) bool {
	if r.Empty() && other.Empty() {
		return r.nameOrEmpty() == other.nameOrEmpty()
	}
	if r == nil || other == nil {
		return false
	}
	if r.Name != other.Name || r.LastTakeoverHeight != other.LastTakeoverHeight {
		return false
	}
	if len(r.Claims) != len(other.Claims) || len(r.UnmatchedSupports) != len(other.UnmatchedSupports) {
		return false
	}
	for i := range r.Claims {
		a, b := r.Claims[i], other.Claims[i]
		if a.Claim != b.Claim || a.EffectiveAmount != b.EffectiveAmount || len(a.Supports) != len(b.Supports) {
			return false
		}
		for j := range a.Supports {
			if a.Supports[j] != b.Supports[j] {
				return false
			}
		}
	}
	for i := range r.UnmatchedSupports {
		if r.UnmatchedSupports[i] != other.UnmatchedSupports[i] {
			return false
		}
	}
	return true
}

func (r *NameRanking) nameOrEmpty() string {
	if r == nil {
		return ""
	}
	return r.Name
}

// HasPrefix reports whether the identifier's hex form starts with the given
// hex prefix. Partial identifiers compare textually so odd-length prefixes
// resolve against the nibble boundary.
func (id ClaimID) HasPrefix(hexPrefix string) bool {
	return bytes.HasPrefix([]byte(id.Hex()), []byte(hexPrefix))
}
