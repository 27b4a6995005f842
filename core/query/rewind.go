package query

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/nondejus/lbrycrd/core/chain"
	"github.com/nondejus/lbrycrd/core/coinview"
	"github.com/nondejus/lbrycrd/core/types"
)

// MaxBlockDecrements bounds how far below the tip a historical query may
// reach. Deeper targets are rejected before any disconnect step.
const MaxBlockDecrements = 500

// blockSource loads stored block bodies for the rewind walk.
type blockSource interface {
	ReadBlock(hash common.Hash) (*types.Block, error)
}

// registryCache is the slice of the registry cache the rewind engine
// touches: the per-block undo step and the final root materialization.
type registryCache interface {
	Disconnect(block *types.Block, coins *coinview.Cache) error
	RootHash() common.Hash
}

// rollBackTo walks the chain backward from tip to target, undoing one block
// at a time against the view's caches. Before every disconnect step it
// polls ctx and compares the accumulated cache memory against budget; the
// walk is interruptible only between steps, never mid-step. On success the
// registry cache's root commitment is materialized so the snapshot is
// final. Any failure aborts the whole query; the caller discards the view.
func rollBackTo(ctx context.Context, target, tip *chain.BlockNode, blocks blockSource,
	coins *coinview.Cache, registry registryCache, memoryBudget uint64) error {

	if tip.Height > target.Height+MaxBlockDecrements {
		return ErrRewindTooDeep
	}

	for node := tip; node != nil && node != target; node = node.Prev {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRewindCancelled, err)
		}
		if coins.DynamicMemoryUsage() > memoryBudget {
			return ErrResourceExhausted
		}
		block, err := blocks.ReadBlock(node.Hash)
		if err != nil {
			return fmt.Errorf("%w: height %d (%s): %v", ErrBlockUnavailable, node.Height, node.Hash.Hex(), err)
		}
		if err := registry.Disconnect(block, coins); err != nil {
			return fmt.Errorf("%w: height %d: %v", ErrDisconnectFailed, node.Height, err)
		}
	}

	// Finalize the snapshot's commitment before handing the view out.
	registry.RootHash()
	return nil
}
