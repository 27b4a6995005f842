package query

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/nondejus/lbrycrd/core/types"
)

func claimEntry(idByte byte, validAt uint32, outIndex uint32, amount, effective uint64) types.ClaimNSupports {
	var id types.ClaimID
	id[0] = idByte
	return types.ClaimNSupports{
		Claim: types.Claim{
			ID:            id,
			OutPoint:      types.OutPoint{TxID: common.BytesToHash([]byte{idByte}), N: outIndex},
			Height:        validAt,
			ValidAtHeight: validAt,
			Amount:        amount,
		},
		EffectiveAmount: effective,
	}
}

func TestSeqSortOrdersByEffectiveHeightThenOutputIndex(t *testing.T) {
	a := claimEntry(0xaa, 99, 7, 10, 10)
	b := claimEntry(0xbb, 100, 0, 10, 10)
	c := claimEntry(0xcc, 100, 2, 10, 10)

	bidOrder := []types.ClaimNSupports{b, c, a}
	seqOrder := seqSort(bidOrder)

	require.Equal(t, a.Claim.ID, seqOrder[0].Claim.ID)
	require.Equal(t, b.Claim.ID, seqOrder[1].Claim.ID)
	require.Equal(t, c.Claim.ID, seqOrder[2].Claim.ID)

	// The input bid order is registry policy and must be untouched.
	require.Equal(t, b.Claim.ID, bidOrder[0].Claim.ID)
	require.Equal(t, c.Claim.ID, bidOrder[1].Claim.ID)
	require.Equal(t, a.Claim.ID, bidOrder[2].Claim.ID)
}

func TestOrderingsArePermutations(t *testing.T) {
	claims := []types.ClaimNSupports{
		claimEntry(0x01, 50, 3, 10, 10),
		claimEntry(0x02, 40, 1, 10, 10),
		claimEntry(0x03, 60, 0, 10, 10),
		claimEntry(0x04, 40, 9, 10, 10),
	}
	seqOrder := seqSort(claims)
	require.Len(t, seqOrder, len(claims))

	for _, cs := range claims {
		bid := indexOf(claims, cs.Claim.ID)
		seq := indexOf(seqOrder, cs.Claim.ID)
		require.Equal(t, cs.Claim.ID, claims[bid].Claim.ID)
		require.Equal(t, cs.Claim.ID, seqOrder[seq].Claim.ID)
	}
}

func TestIndexOfPanicsWhenAbsent(t *testing.T) {
	claims := []types.ClaimNSupports{claimEntry(0x01, 10, 0, 10, 10)}
	var missing types.ClaimID
	missing[0] = 0xff
	require.Panics(t, func() { indexOf(claims, missing) })
}

func TestPendingAmount(t *testing.T) {
	cs := claimEntry(0x01, 10, 0, 100, 100)
	cs.Supports = []types.Support{
		{ClaimID: cs.Claim.ID, Amount: 30},
		{ClaimID: cs.Claim.ID, Amount: 20},
	}

	require.Equal(t, uint64(150), cs.TotalAmount())
	pending, ok := pendingAmount(&cs)
	require.True(t, ok)
	require.Equal(t, uint64(50), pending)

	// Fully counted stake reports nothing pending.
	cs.EffectiveAmount = 150
	_, ok = pendingAmount(&cs)
	require.False(t, ok)
}
