package chain

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/nondejus/lbrycrd/core/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "blocks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testBlock(height uint32, prev common.Hash) *types.Block {
	return &types.Block{
		Header: types.BlockHeader{PrevHash: prev, Height: height, Timestamp: uint64(1600000000 + height)},
		Changes: types.ChangeSet{
			Names: []types.NameUndo{{Name: "tone"}},
		},
	}
}

func TestWriteReadBlockRoundTrip(t *testing.T) {
	store := openTestStore(t)
	block := testBlock(0, common.Hash{})
	block.Changes.CoinsSpent = []types.Coin{{
		OutPoint: types.OutPoint{TxID: common.BytesToHash([]byte{0x01}), N: 2},
		Amount:   42,
		Height:   7,
	}}
	require.NoError(t, store.WriteBlock(block))

	got, err := store.ReadBlock(block.Hash())
	require.NoError(t, err)
	require.Equal(t, block.Header, got.Header)
	require.Equal(t, block.Changes.CoinsSpent, got.Changes.CoinsSpent)
	require.Len(t, got.Changes.Names, 1)
	require.Equal(t, "tone", got.Changes.Names[0].Name)
	require.Nil(t, got.Changes.Names[0].Prev)
}

func TestReadBlockMissing(t *testing.T) {
	store := openTestStore(t)

	_, err := store.ReadBlock(common.BytesToHash([]byte("absent")))
	require.ErrorIs(t, err, ErrBlockNotFound)
}

func TestBlockWithUndoSnapshotRoundTrip(t *testing.T) {
	store := openTestStore(t)
	var id types.ClaimID
	id[0] = 0xaa
	prev := &types.NameRanking{
		Name: "tone",
		Claims: []types.ClaimNSupports{{
			Claim:           types.Claim{ID: id, Height: 5, ValidAtHeight: 5, Amount: 100},
			EffectiveAmount: 100,
		}},
		LastTakeoverHeight: 5,
	}
	block := testBlock(3, common.BytesToHash([]byte{0x02}))
	block.Changes.Names = []types.NameUndo{{Name: "tone", Prev: prev}}
	require.NoError(t, store.WriteBlock(block))

	got, err := store.ReadBlock(block.Hash())
	require.NoError(t, err)
	require.Len(t, got.Changes.Names, 1)
	require.True(t, got.Changes.Names[0].Prev.Equal(prev))
}

func TestLoadIndexRebuildsMainChain(t *testing.T) {
	store := openTestStore(t)
	var prev common.Hash
	var hashes []common.Hash
	for height := uint32(0); height < 5; height++ {
		block := testBlock(height, prev)
		require.NoError(t, store.WriteBlock(block))
		prev = block.Hash()
		hashes = append(hashes, prev)
	}

	index, err := store.LoadIndex()
	require.NoError(t, err)
	require.Equal(t, int64(4), index.Height())
	require.Equal(t, hashes[4], index.Tip().Hash)

	node, err := index.LookupMainChain(hashes[2])
	require.NoError(t, err)
	require.Equal(t, uint32(2), node.Height)
	require.Equal(t, hashes[1], node.Prev.Hash)
}

func TestIndexExtendRequiresContiguousHeights(t *testing.T) {
	index := NewIndex()
	_, err := index.Extend(common.BytesToHash([]byte{0x01}), 0)
	require.NoError(t, err)
	_, err = index.Extend(common.BytesToHash([]byte{0x02}), 2)
	require.Error(t, err)
}

func TestLookupMainChainUnknownHash(t *testing.T) {
	index := NewIndex()
	_, err := index.LookupMainChain(common.BytesToHash([]byte{0x01}))
	require.ErrorIs(t, err, ErrBlockNotFound)
}
