package chain

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrBlockNotFound marks a block hash the index has never seen.
	ErrBlockNotFound = errors.New("chain: block not found")
	// ErrNotInMainChain marks a known block that is not on the active chain.
	ErrNotInMainChain = errors.New("chain: block not in main chain")
)

// StateMu is the process-wide consensus-state lock. Every query entry point
// acquires it for its full duration, serializing queries against block
// connection and disconnection. It is the sole concurrency-control
// mechanism at this scope.
type StateMu struct {
	sync.Mutex
}

// BlockNode is an in-memory chain-index entry.
type BlockNode struct {
	Hash   common.Hash
	Height uint32
	Prev   *BlockNode
}

// Index holds the active chain in memory: hash lookup plus the main-chain
// sequence by height. Mutation happens under the consensus lock.
type Index struct {
	byHash map[common.Hash]*BlockNode
	main   []*BlockNode
}

func NewIndex() *Index {
	return &Index{byHash: make(map[common.Hash]*BlockNode)}
}

// Tip returns the current best block, or nil for an empty chain.
func (ix *Index) Tip() *BlockNode {
	if len(ix.main) == 0 {
		return nil
	}
	return ix.main[len(ix.main)-1]
}

// Height returns the tip height, or -1 for an empty chain.
func (ix *Index) Height() int64 {
	if len(ix.main) == 0 {
		return -1
	}
	return int64(ix.main[len(ix.main)-1].Height)
}

// Extend appends a block to the main chain. Heights must be contiguous.
func (ix *Index) Extend(hash common.Hash, height uint32) (*BlockNode, error) {
	if int64(height) != int64(len(ix.main)) {
		return nil, errors.New("chain: non-contiguous height")
	}
	node := &BlockNode{Hash: hash, Height: height, Prev: ix.Tip()}
	ix.byHash[hash] = node
	ix.main = append(ix.main, node)
	return node, nil
}

// Lookup returns the node for a hash regardless of chain membership.
func (ix *Index) Lookup(hash common.Hash) (*BlockNode, bool) {
	node, ok := ix.byHash[hash]
	return node, ok
}

// LookupMainChain resolves a block hash to its node and verifies the node
// sits on the active chain. Historical queries use this to pin their rewind
// target.
func (ix *Index) LookupMainChain(hash common.Hash) (*BlockNode, error) {
	node, ok := ix.byHash[hash]
	if !ok {
		return nil, ErrBlockNotFound
	}
	if !ix.Contains(node) {
		return nil, ErrNotInMainChain
	}
	return node, nil
}

// Contains reports whether the node is on the active chain.
func (ix *Index) Contains(node *BlockNode) bool {
	if node == nil || int(node.Height) >= len(ix.main) {
		return false
	}
	return ix.main[node.Height] == node
}
