package claimtrie

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/nondejus/lbrycrd/core/types"
	"github.com/nondejus/lbrycrd/storage"
	"github.com/nondejus/lbrycrd/storage/trie"
)

// Key prefixes inside the shared key-value store.
const (
	rowKeyPrefix     = 'n' // name -> NameRanking
	indexKeyPrefix   = 'i' // claim id -> IndexEntry
	pendingKeyPrefix = 'q' // name -> PendingList
)

var errNoStore = errors.New("claimtrie: store not configured")

func rowKey(name string) []byte {
	return append([]byte{rowKeyPrefix}, name...)
}

func indexKey(id types.ClaimID) []byte {
	return append([]byte{indexKeyPrefix}, id[:]...)
}

func pendingKey(name string) []byte {
	return append([]byte{pendingKeyPrefix}, name...)
}

func trieKey(name string) []byte {
	return ethcrypto.Keccak256([]byte(name))
}

// IndexEntry is one record of the identifier index: the owning name and the
// full claim keyed by its globally unique identifier.
type IndexEntry struct {
	Name  string
	Claim types.Claim
}

// PendingList holds claims and supports accepted by the chain but not yet
// effective for a name. The lists describe the tip only; historical views do
// not rewind them.
type PendingList struct {
	Claims   []types.Claim
	Supports []types.Support
}

// ClaimTrie is the persistent registry at the chain tip: name rows and the
// identifier index in the key-value store, plus the commitment trie mapping
// each name to the hash of its row.
type ClaimTrie struct {
	store  storage.Database
	commit *trie.Trie
}

// New opens the registry over the provided store and rebuilds the
// commitment trie from the stored rows.
func New(store storage.Database) (*ClaimTrie, error) {
	if store == nil {
		return nil, errNoStore
	}
	commit, err := trie.NewTrie(store, nil)
	if err != nil {
		return nil, fmt.Errorf("claimtrie: open commitment trie: %w", err)
	}
	ct := &ClaimTrie{store: store, commit: commit}

	it := store.NewIterator([]byte{rowKeyPrefix})
	defer it.Release()
	for it.Next() {
		name := string(it.Key()[1:])
		var row types.NameRanking
		if err := rlp.DecodeBytes(it.Value(), &row); err != nil {
			return nil, fmt.Errorf("claimtrie: decode row %q: %w", name, err)
		}
		if err := commit.Update(trieKey(name), rowHash(&row)); err != nil {
			return nil, fmt.Errorf("claimtrie: commit row %q: %w", name, err)
		}
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("claimtrie: scan rows: %w", err)
	}
	commit.Hash()
	return ct, nil
}

// Store exposes the backing key-value store.
func (ct *ClaimTrie) Store() storage.Database { return ct.store }

// NewCache opens a query-scoped cache over the registry. The cache sees the
// tip until mutated; mutations stay in the overlay and die with the query.
func (ct *ClaimTrie) NewCache() *Cache {
	return &Cache{
		base:   ct.store,
		rows:   make(map[string]*types.NameRanking),
		index:  make(map[types.ClaimID]*IndexEntry),
		commit: ct.commit.Copy(),
	}
}

func rowHash(row *types.NameRanking) []byte {
	enc, err := rlp.EncodeToBytes(row)
	if err != nil {
		// NameRanking contains only fixed RLP-encodable kinds.
		panic(err)
	}
	return ethcrypto.Keccak256(enc)
}

// Cache is a layered registry view. Reads fall through to the store; writes
// stay in the overlay maps (nil entry = deleted). The commitment trie copy
// tracks row mutations so the cache can materialize its own root.
//
// Cache is not safe for concurrent use; the chain lock serializes access.
type Cache struct {
	base   storage.Database
	rows   map[string]*types.NameRanking
	index  map[types.ClaimID]*IndexEntry
	commit *trie.Trie
}

// ClaimsForName returns the registry's ranking state for the name. The
// result is never nil; a name without claims yields an empty ranking
// carrying just the name. Claims appear in the registry's bid order.
func (c *Cache) ClaimsForName(name string) (*types.NameRanking, error) {
	if row, ok := c.rows[name]; ok {
		if row == nil {
			return &types.NameRanking{Name: name}, nil
		}
		return row.Clone(), nil
	}
	raw, err := c.base.Get(rowKey(name))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return &types.NameRanking{Name: name}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claimtrie: load row %q: %w", name, err)
	}
	row := new(types.NameRanking)
	if err := rlp.DecodeBytes(raw, row); err != nil {
		return nil, fmt.Errorf("claimtrie: decode row %q: %w", name, err)
	}
	return row, nil
}

// setRow replaces the row in the overlay and keeps the commitment trie in
// step. A nil row deletes the name.
func (c *Cache) setRow(name string, row *types.NameRanking) error {
	c.rows[name] = row
	if row == nil || row.Empty() {
		return c.commit.Delete(trieKey(name))
	}
	return c.commit.Update(trieKey(name), rowHash(row))
}

// RootHash materializes and returns the registry commitment for the state
// the cache currently describes.
func (c *Cache) RootHash() common.Hash {
	return c.commit.Hash()
}

// OutputStatus describes where a claim or support output stands relative to
// the registry: live in a row, queued until its effective height, or absent.
type OutputStatus struct {
	Present       bool
	IsControlling bool
	IsSupport     bool
	InQueue       bool
	ValidAtHeight uint32
}

// StatusOfOutput reports registry membership for one output under a name.
// Queue status comes from the tip's pending lists; those are not rewound.
func (c *Cache) StatusOfOutput(name string, op types.OutPoint) (OutputStatus, error) {
	row, err := c.ClaimsForName(name)
	if err != nil {
		return OutputStatus{}, err
	}
	for i, cs := range row.Claims {
		if cs.Claim.OutPoint == op {
			return OutputStatus{Present: true, IsControlling: i == 0, ValidAtHeight: cs.Claim.ValidAtHeight}, nil
		}
		for _, sup := range cs.Supports {
			if sup.OutPoint == op {
				return OutputStatus{Present: true, IsSupport: true, ValidAtHeight: sup.ValidAtHeight}, nil
			}
		}
	}
	for _, sup := range row.UnmatchedSupports {
		if sup.OutPoint == op {
			return OutputStatus{Present: true, IsSupport: true, ValidAtHeight: sup.ValidAtHeight}, nil
		}
	}
	pending, err := c.pendingFor(name)
	if err != nil {
		return OutputStatus{}, err
	}
	for _, claim := range pending.Claims {
		if claim.OutPoint == op {
			return OutputStatus{InQueue: true, ValidAtHeight: claim.ValidAtHeight}, nil
		}
	}
	for _, sup := range pending.Supports {
		if sup.OutPoint == op {
			return OutputStatus{InQueue: true, IsSupport: true, ValidAtHeight: sup.ValidAtHeight}, nil
		}
	}
	return OutputStatus{}, nil
}

func (c *Cache) pendingFor(name string) (*PendingList, error) {
	raw, err := c.base.Get(pendingKey(name))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return &PendingList{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claimtrie: load pending %q: %w", name, err)
	}
	list := new(PendingList)
	if err := rlp.DecodeBytes(raw, list); err != nil {
		return nil, fmt.Errorf("claimtrie: decode pending %q: %w", name, err)
	}
	return list, nil
}

// IterateNames visits every name with at least one active claim. The
// callback returns false to stop early; the error return propagates scan
// failures.
func (c *Cache) IterateNames(visit func(row *types.NameRanking) (bool, error)) error {
	return c.iterateRows(func(name string, row *types.NameRanking) (bool, error) {
		if row == nil || row.Empty() {
			return true, nil
		}
		return visit(row)
	})
}

// TotalNames counts names carrying at least one active claim.
func (c *Cache) TotalNames() (uint64, error) {
	var total uint64
	err := c.IterateNames(func(*types.NameRanking) (bool, error) {
		total++
		return true, nil
	})
	return total, err
}

// TotalClaims counts active claims across all names.
func (c *Cache) TotalClaims() (uint64, error) {
	var total uint64
	err := c.IterateNames(func(row *types.NameRanking) (bool, error) {
		total += uint64(len(row.Claims))
		return true, nil
	})
	return total, err
}

// TotalValue sums active claim amounts, optionally only the controlling
// claim of each name.
func (c *Cache) TotalValue(controllingOnly bool) (uint64, error) {
	var total uint64
	err := c.IterateNames(func(row *types.NameRanking) (bool, error) {
		if controllingOnly {
			total += row.Claims[0].Claim.Amount
			return true, nil
		}
		for _, cs := range row.Claims {
			total += cs.Claim.Amount
		}
		return true, nil
	})
	return total, err
}

// iterateRows walks the base rows in key order, substituting overlay
// versions and appending overlay-only rows, so a rewound view iterates the
// state it describes rather than the tip.
func (c *Cache) iterateRows(visit func(name string, row *types.NameRanking) (bool, error)) error {
	seen := make(map[string]bool, len(c.rows))
	it := c.base.NewIterator([]byte{rowKeyPrefix})
	defer it.Release()
	for it.Next() {
		name := string(it.Key()[1:])
		var row *types.NameRanking
		if overlay, ok := c.rows[name]; ok {
			seen[name] = true
			row = overlay
		} else {
			row = new(types.NameRanking)
			if err := rlp.DecodeBytes(it.Value(), row); err != nil {
				return fmt.Errorf("claimtrie: decode row %q: %w", name, err)
			}
		}
		keepGoing, err := visit(name, row)
		if err != nil {
			return err
		}
		if !keepGoing {
			return nil
		}
	}
	if err := it.Error(); err != nil {
		return fmt.Errorf("claimtrie: scan rows: %w", err)
	}
	for name, row := range c.rows {
		if seen[name] {
			continue
		}
		keepGoing, err := visit(name, row)
		if err != nil {
			return err
		}
		if !keepGoing {
			return nil
		}
	}
	return nil
}
