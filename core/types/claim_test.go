package types

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestNewClaimIDDeterministic(t *testing.T) {
	op := OutPoint{TxID: common.BytesToHash([]byte{0x01}), N: 3}
	require.Equal(t, NewClaimID(op), NewClaimID(op))

	// The output index is part of the derivation.
	other := op
	other.N = 4
	require.NotEqual(t, NewClaimID(op), NewClaimID(other))
}

func TestClaimIDHexRoundTrip(t *testing.T) {
	id := NewClaimID(OutPoint{TxID: common.BytesToHash([]byte{0x01}), N: 0})
	require.Len(t, id.Hex(), ClaimIDHexLength)

	parsed, err := ClaimIDFromHex(id.Hex())
	require.NoError(t, err)
	require.Equal(t, id, parsed)
}

func TestClaimIDFromHexRejectsBadInput(t *testing.T) {
	_, err := ClaimIDFromHex("abc")
	require.Error(t, err)

	_, err = ClaimIDFromHex("zz" + NewClaimID(OutPoint{}).Hex()[2:])
	require.Error(t, err)
}

func TestHasPrefixComparesTextually(t *testing.T) {
	var id ClaimID
	id[0] = 0xab
	id[1] = 0xcd

	require.True(t, id.HasPrefix("ab"))
	require.True(t, id.HasPrefix("abc"), "odd-length prefixes resolve at the nibble boundary")
	require.True(t, id.HasPrefix("abcd"))
	require.False(t, id.HasPrefix("abd"))
	require.True(t, id.HasPrefix(""))
}

func TestNameRankingFind(t *testing.T) {
	var a, b ClaimID
	a[0], b[0] = 1, 2
	row := &NameRanking{
		Name: "tone",
		Claims: []ClaimNSupports{
			{Claim: Claim{ID: a, Amount: 10}},
			{Claim: Claim{ID: b, Amount: 20}},
		},
	}

	cs, ok := row.Find(b)
	require.True(t, ok)
	require.Equal(t, uint64(20), cs.Claim.Amount)

	var missing ClaimID
	missing[0] = 9
	_, ok = row.Find(missing)
	require.False(t, ok)
}

func TestNameRankingCloneIsDeep(t *testing.T) {
	var id ClaimID
	id[0] = 1
	row := &NameRanking{
		Name: "tone",
		Claims: []ClaimNSupports{{
			Claim:           Claim{ID: id, Amount: 10},
			Supports:        []Support{{ClaimID: id, Amount: 5}},
			EffectiveAmount: 15,
		}},
		UnmatchedSupports: []Support{{Amount: 7}},
	}

	clone := row.Clone()
	require.True(t, row.Equal(clone))

	clone.Claims[0].Supports[0].Amount = 999
	clone.UnmatchedSupports[0].Amount = 999
	require.Equal(t, uint64(5), row.Claims[0].Supports[0].Amount)
	require.Equal(t, uint64(7), row.UnmatchedSupports[0].Amount)
}

func TestTotalAmountIncludesAllSupports(t *testing.T) {
	var id ClaimID
	id[0] = 1
	cs := &ClaimNSupports{
		Claim:           Claim{ID: id, Amount: 100},
		Supports:        []Support{{Amount: 30}, {Amount: 20}},
		EffectiveAmount: 130,
	}
	require.Equal(t, uint64(150), cs.TotalAmount())
}

func TestBlockHashCoversHeader(t *testing.T) {
	block := &Block{Header: BlockHeader{Height: 5, Timestamp: 1600000000}}
	same := &Block{Header: BlockHeader{Height: 5, Timestamp: 1600000000}}
	require.Equal(t, block.Hash(), same.Hash())

	same.Header.Height = 6
	require.NotEqual(t, block.Hash(), same.Hash())
}

func TestBlockBinaryRoundTrip(t *testing.T) {
	var id ClaimID
	id[0] = 0xaa
	block := &Block{
		Header: BlockHeader{PrevHash: common.BytesToHash([]byte{0x01}), Height: 9, Timestamp: 1600000009},
		Changes: ChangeSet{
			Names:       []NameUndo{{Name: "tone"}},
			ClaimsAdded: []ClaimDelta{{Name: "tone", Claim: Claim{ID: id, Amount: 50}}},
			CoinsSpent:  []Coin{{OutPoint: OutPoint{N: 1}, Amount: 11, Height: 8}},
		},
	}

	raw, err := block.MarshalBinary()
	require.NoError(t, err)

	decoded := new(Block)
	require.NoError(t, decoded.UnmarshalBinary(raw))
	require.Equal(t, block.Header, decoded.Header)
	require.Equal(t, block.Changes.ClaimsAdded, decoded.Changes.ClaimsAdded)
	require.Equal(t, block.Changes.CoinsSpent, decoded.Changes.CoinsSpent)
	require.Nil(t, decoded.Changes.Names[0].Prev)
}
