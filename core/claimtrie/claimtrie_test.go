package claimtrie

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/nondejus/lbrycrd/core/coinview"
	"github.com/nondejus/lbrycrd/core/types"
	"github.com/nondejus/lbrycrd/storage"
)

func makeClaim(idByte byte, amount uint64) types.Claim {
	var id types.ClaimID
	id[0] = idByte
	return types.Claim{
		ID:            id,
		OutPoint:      types.OutPoint{TxID: common.BytesToHash([]byte{idByte}), N: uint32(idByte)},
		Height:        10,
		ValidAtHeight: 10,
		Amount:        amount,
	}
}

func singleClaimRow(name string, claim types.Claim) *types.NameRanking {
	return &types.NameRanking{
		Name:               name,
		Claims:             []types.ClaimNSupports{{Claim: claim, EffectiveAmount: claim.Amount}},
		LastTakeoverHeight: claim.ValidAtHeight,
	}
}

func newRegistry(t *testing.T) *ClaimTrie {
	t.Helper()
	ct, err := New(storage.NewMemDB())
	require.NoError(t, err)
	return ct
}

func TestClaimsForNameUnknownIsEmptyNotNil(t *testing.T) {
	cache := newRegistry(t).NewCache()

	row, err := cache.ClaimsForName("ghost")
	require.NoError(t, err)
	require.NotNil(t, row)
	require.True(t, row.Empty())
	require.Equal(t, "ghost", row.Name)
}

func TestPutRankingRoundTrip(t *testing.T) {
	ct := newRegistry(t)
	claim := makeClaim(0x11, 250)
	require.NoError(t, ct.PutRanking(singleClaimRow("tone", claim)))

	cache := ct.NewCache()
	row, err := cache.ClaimsForName("tone")
	require.NoError(t, err)
	require.Len(t, row.Claims, 1)
	require.Equal(t, claim, row.Claims[0].Claim)

	entry, err := cache.LookupClaimID(claim.ID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Equal(t, "tone", entry.Name)
	require.Equal(t, claim, entry.Claim)
}

func TestRootHashReflectsRows(t *testing.T) {
	ct := newRegistry(t)
	empty := ct.NewCache().RootHash()

	require.NoError(t, ct.PutRanking(singleClaimRow("tone", makeClaim(0x11, 250))))
	withRow := ct.NewCache().RootHash()
	require.NotEqual(t, empty, withRow)

	// Reopening over the same store rebuilds the same commitment.
	reopened, err := New(ct.Store())
	require.NoError(t, err)
	require.Equal(t, withRow, reopened.NewCache().RootHash())
}

func TestCacheMutationsDoNotTouchTip(t *testing.T) {
	ct := newRegistry(t)
	claim := makeClaim(0x11, 250)
	require.NoError(t, ct.PutRanking(singleClaimRow("tone", claim)))

	mutated := ct.NewCache()
	require.NoError(t, mutated.setRow("tone", nil))
	row, err := mutated.ClaimsForName("tone")
	require.NoError(t, err)
	require.True(t, row.Empty())

	fresh := ct.NewCache()
	row, err = fresh.ClaimsForName("tone")
	require.NoError(t, err)
	require.Len(t, row.Claims, 1)
	require.NotEqual(t, mutated.RootHash(), fresh.RootHash())
}

func TestScanClaimIDsOrderAndOverlayMerge(t *testing.T) {
	ct := newRegistry(t)
	stored1 := makeClaim(0x20, 10)
	stored2 := makeClaim(0x40, 10)
	stored3 := makeClaim(0x60, 10)
	require.NoError(t, ct.PutRanking(singleClaimRow("a", stored1)))
	require.NoError(t, ct.PutRanking(singleClaimRow("b", stored2)))
	require.NoError(t, ct.PutRanking(singleClaimRow("c", stored3)))

	cache := ct.NewCache()
	// Overlay: delete stored2, replace stored3's name, add one before and
	// one after the stored range.
	before := makeClaim(0x10, 10)
	after := makeClaim(0x70, 10)
	cache.indexPut(IndexEntry{Name: "x", Claim: before})
	cache.indexDelete(stored2.ID)
	cache.indexPut(IndexEntry{Name: "renamed", Claim: stored3})
	cache.indexPut(IndexEntry{Name: "y", Claim: after})

	var ids []byte
	var names []string
	err := cache.ScanClaimIDs(func(entry *IndexEntry) (bool, error) {
		ids = append(ids, entry.Claim.ID[0])
		names = append(names, entry.Name)
		return true, nil
	})
	require.NoError(t, err)
	require.Equal(t, []byte{0x10, 0x20, 0x60, 0x70}, ids)
	require.Equal(t, []string{"x", "a", "renamed", "y"}, names)
}

func TestScanClaimIDsStopsEarly(t *testing.T) {
	ct := newRegistry(t)
	require.NoError(t, ct.PutRanking(singleClaimRow("a", makeClaim(0x20, 10))))
	require.NoError(t, ct.PutRanking(singleClaimRow("b", makeClaim(0x40, 10))))

	var visited int
	err := ct.NewCache().ScanClaimIDs(func(*IndexEntry) (bool, error) {
		visited++
		return false, nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, visited)
}

func TestDisconnectRestoresPriorRow(t *testing.T) {
	ct := newRegistry(t)
	claimA := makeClaim(0x01, 500)
	claimB := makeClaim(0x02, 400)
	prior := singleClaimRow("tone", claimA)
	tip := &types.NameRanking{
		Name: "tone",
		Claims: []types.ClaimNSupports{
			{Claim: claimA, EffectiveAmount: 500},
			{Claim: claimB, EffectiveAmount: 400},
		},
		LastTakeoverHeight: 10,
	}
	require.NoError(t, ct.PutRanking(tip))

	spent := types.Coin{OutPoint: types.OutPoint{TxID: common.BytesToHash([]byte{0x0a}), N: 1}, Amount: 77, Height: 11}
	created := claimB.OutPoint
	block := &types.Block{
		Header: types.BlockHeader{Height: 11},
		Changes: types.ChangeSet{
			Names:        []types.NameUndo{{Name: "tone", Prev: prior.Clone()}},
			ClaimsAdded:  []types.ClaimDelta{{Name: "tone", Claim: claimB}},
			CoinsCreated: []types.OutPoint{created},
			CoinsSpent:   []types.Coin{spent},
		},
	}

	cache := ct.NewCache()
	coins := coinview.NewCache(ct.Store())
	require.NoError(t, cache.Disconnect(block, coins))

	row, err := cache.ClaimsForName("tone")
	require.NoError(t, err)
	require.True(t, row.Equal(prior))

	entry, err := cache.LookupClaimID(claimB.ID)
	require.NoError(t, err)
	require.Nil(t, entry, "disconnected claim leaves the identifier index")

	coin, err := coins.GetCoin(created)
	require.NoError(t, err)
	require.Nil(t, coin)
	coin, err = coins.GetCoin(spent.OutPoint)
	require.NoError(t, err)
	require.NotNil(t, coin)
	require.Equal(t, spent.Amount, coin.Amount)
}

func TestDisconnectRemovedClaimReturnsToIndex(t *testing.T) {
	ct := newRegistry(t)
	removed := makeClaim(0x05, 300)
	block := &types.Block{
		Header: types.BlockHeader{Height: 11},
		Changes: types.ChangeSet{
			Names:         []types.NameUndo{{Name: "tone", Prev: singleClaimRow("tone", removed)}},
			ClaimsRemoved: []types.ClaimDelta{{Name: "tone", Claim: removed}},
		},
	}

	cache := ct.NewCache()
	require.NoError(t, cache.Disconnect(block, coinview.NewCache(ct.Store())))

	entry, err := cache.LookupClaimID(removed.ID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Equal(t, "tone", entry.Name)
}

func TestDisconnectMissingIndexEntryFails(t *testing.T) {
	ct := newRegistry(t)
	block := &types.Block{
		Header: types.BlockHeader{Height: 11},
		Changes: types.ChangeSet{
			ClaimsAdded: []types.ClaimDelta{{Name: "tone", Claim: makeClaim(0x09, 1)}},
		},
	}

	err := ct.NewCache().Disconnect(block, coinview.NewCache(ct.Store()))
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing from index")
}

func TestProofForNameDefaultAndPredicate(t *testing.T) {
	ct := newRegistry(t)
	claimA := makeClaim(0x01, 500)
	claimB := makeClaim(0x02, 400)
	require.NoError(t, ct.PutRanking(&types.NameRanking{
		Name: "tone",
		Claims: []types.ClaimNSupports{
			{Claim: claimA, EffectiveAmount: 500},
			{Claim: claimB, EffectiveAmount: 400},
		},
		LastTakeoverHeight: 10,
	}))
	cache := ct.NewCache()

	proof, err := cache.ProofForName("tone", nil)
	require.NoError(t, err)
	require.True(t, proof.HasValue)
	require.Equal(t, claimA.ID, proof.ClaimID)
	require.Equal(t, claimA.OutPoint, proof.OutPoint)
	require.Equal(t, uint32(10), proof.LastTakeoverHeight)
	require.Equal(t, cache.RootHash(), proof.Root)
	require.NotEmpty(t, proof.Nodes)

	proof, err = cache.ProofForName("tone", func(claim *types.Claim) bool {
		return claim.ID == claimB.ID
	})
	require.NoError(t, err)
	require.True(t, proof.HasValue)
	require.Equal(t, claimB.ID, proof.ClaimID)
}

func TestProofForAbsentNameCarriesNoValue(t *testing.T) {
	ct := newRegistry(t)
	require.NoError(t, ct.PutRanking(singleClaimRow("tone", makeClaim(0x01, 500))))

	proof, err := ct.NewCache().ProofForName("other", nil)
	require.NoError(t, err)
	require.False(t, proof.HasValue)
	require.NotEmpty(t, proof.Nodes)
}

func TestStatusOfOutputQueue(t *testing.T) {
	ct := newRegistry(t)
	live := makeClaim(0x01, 500)
	require.NoError(t, ct.PutRanking(singleClaimRow("tone", live)))

	queued := makeClaim(0x02, 50)
	queued.ValidAtHeight = 99
	require.NoError(t, ct.PutPending("tone", &PendingList{Claims: []types.Claim{queued}}))
	cache := ct.NewCache()

	status, err := cache.StatusOfOutput("tone", live.OutPoint)
	require.NoError(t, err)
	require.True(t, status.Present)
	require.True(t, status.IsControlling)

	status, err = cache.StatusOfOutput("tone", queued.OutPoint)
	require.NoError(t, err)
	require.False(t, status.Present)
	require.True(t, status.InQueue)
	require.Equal(t, uint32(99), status.ValidAtHeight)

	status, err = cache.StatusOfOutput("tone", types.OutPoint{N: 42})
	require.NoError(t, err)
	require.False(t, status.Present)
	require.False(t, status.InQueue)
}

func TestTotalsCountActiveState(t *testing.T) {
	ct := newRegistry(t)
	require.NoError(t, ct.PutRanking(&types.NameRanking{
		Name: "a",
		Claims: []types.ClaimNSupports{
			{Claim: makeClaim(0x01, 100), EffectiveAmount: 100},
			{Claim: makeClaim(0x02, 50), EffectiveAmount: 50},
		},
	}))
	require.NoError(t, ct.PutRanking(singleClaimRow("b", makeClaim(0x03, 30))))
	cache := ct.NewCache()

	names, err := cache.TotalNames()
	require.NoError(t, err)
	require.Equal(t, uint64(2), names)

	claims, err := cache.TotalClaims()
	require.NoError(t, err)
	require.Equal(t, uint64(3), claims)

	all, err := cache.TotalValue(false)
	require.NoError(t, err)
	require.Equal(t, uint64(180), all)

	controlling, err := cache.TotalValue(true)
	require.NoError(t, err)
	require.Equal(t, uint64(130), controlling)
}
