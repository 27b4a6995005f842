package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/nondejus/lbrycrd/core/chain"
	"github.com/nondejus/lbrycrd/core/claimtrie"
	"github.com/nondejus/lbrycrd/core/coinview"
	"github.com/nondejus/lbrycrd/core/types"
	"github.com/nondejus/lbrycrd/observability"
)

// Engine answers claimtrie queries at the tip or, through a per-query
// rewind, as of any main-chain block within MaxBlockDecrements of the tip.
//
// Every entry point holds the consensus-state lock for its full duration;
// execution is single-threaded and synchronous per query, so no further
// locking exists below this point.
type Engine struct {
	mu       *chain.StateMu
	index    *chain.Index
	blocks   blockSource
	registry *claimtrie.ClaimTrie
	budget   uint64
	log      *slog.Logger
	metrics  *observability.QueryMetrics
}

// NewEngine wires the query engine to the chain index, the block store and
// the registry. memoryBudget bounds the cache growth of a single rewind.
func NewEngine(mu *chain.StateMu, index *chain.Index, blocks blockSource,
	registry *claimtrie.ClaimTrie, memoryBudget uint64, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		mu:       mu,
		index:    index,
		blocks:   blocks,
		registry: registry,
		budget:   memoryBudget,
		log:      logger.With(slog.String("component", "claimtrie_query")),
		metrics:  observability.Queries(),
	}
}

func (e *Engine) finish(method string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	e.metrics.ObserveQuery(method, outcome)
}

func rewindFailureCause(err error) string {
	switch {
	case errors.Is(err, ErrRewindTooDeep):
		return "too_deep"
	case errors.Is(err, ErrResourceExhausted):
		return "resource_exhausted"
	case errors.Is(err, ErrRewindCancelled):
		return "cancelled"
	case errors.Is(err, ErrBlockUnavailable):
		return "block_unavailable"
	case errors.Is(err, ErrDisconnectFailed):
		return "disconnect_failed"
	default:
		return "other"
	}
}

// openView builds the query-scoped view: fresh caches over the tip,
// rewound to blockHash when one is given. A failed rewind surfaces the
// cause and leaves nothing behind.
func (e *Engine) openView(ctx context.Context, blockHash *common.Hash) (*HistoricalView, error) {
	view := &HistoricalView{
		Coins:    coinview.NewCache(e.registry.Store()),
		Registry: e.registry.NewCache(),
	}
	if blockHash == nil {
		return view, nil
	}
	tip := e.index.Tip()
	if tip == nil {
		return nil, chain.ErrBlockNotFound
	}
	target, err := e.index.LookupMainChain(*blockHash)
	if err != nil {
		return nil, err
	}
	if err := rollBackTo(ctx, target, tip, e.blocks, view.Coins, view.Registry, e.budget); err != nil {
		e.metrics.ObserveRewindFailure(rewindFailureCause(err))
		e.log.Warn("historical rewind aborted",
			slog.Uint64("target_height", uint64(target.Height)),
			slog.Uint64("tip_height", uint64(tip.Height)),
			slog.Any("error", err))
		return nil, err
	}
	e.metrics.ObserveRewindDepth(tip.Height - target.Height)
	return view, nil
}

// findInRanking selects one claim entry by an optional exact or partial
// identifier, defaulting to the controlling claim.
func findInRanking(row *types.NameRanking, claimID string) (types.ClaimNSupports, bool) {
	switch {
	case len(claimID) == types.ClaimIDHexLength:
		id, err := types.ClaimIDFromHex(claimID)
		if err != nil {
			return types.ClaimNSupports{}, false
		}
		return row.Find(id)
	case claimID != "":
		for _, cs := range row.Claims {
			if cs.Claim.ID.HasPrefix(claimID) {
				return cs, true
			}
		}
		return types.ClaimNSupports{}, false
	default:
		return row.Claims[0], true
	}
}

func (e *Engine) valueResult(row *types.NameRanking, cs *types.ClaimNSupports) *ValueResult {
	var bid, seq int
	if len(row.Claims) > 1 {
		seqOrder := seqSort(row.Claims)
		bid = indexOf(row.Claims, cs.Claim.ID)
		seq = indexOf(seqOrder, cs.Claim.ID)
	}
	return &ValueResult{
		Name:               row.Name,
		ClaimInfo:          claimInfo(row.Name, cs),
		LastTakeoverHeight: row.LastTakeoverHeight,
		Bid:                bid,
		Sequence:           seq,
	}
}

// ValueForName resolves a name to one ranked claim: the controlling claim
// by default, or the claim selected by an exact or partial identifier. A
// nil result means the name (or selected claim) has no live entry.
func (e *Engine) ValueForName(ctx context.Context, name string, blockHash *common.Hash, claimID string) (result *ValueResult, err error) {
	defer func() { e.finish("getvalueforname", err) }()
	if claimID != "" {
		if err = validateClaimIDParam(claimID); err != nil {
			return nil, err
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	view, err := e.openView(ctx, blockHash)
	if err != nil {
		return nil, err
	}
	row, err := view.Registry.ClaimsForName(name)
	if err != nil {
		return nil, err
	}
	if row.Empty() {
		return nil, nil
	}
	cs, ok := findInRanking(row, claimID)
	if !ok {
		return nil, nil
	}
	return e.valueResult(row, &cs), nil
}

// ClaimsForName returns the full bid-ordered claim list for a name, each
// claim annotated with both orderings, plus the supports that back no live
// claim.
func (e *Engine) ClaimsForName(ctx context.Context, name string, blockHash *common.Hash) (result *ClaimListResult, err error) {
	defer func() { e.finish("getclaimsforname", err) }()
	e.mu.Lock()
	defer e.mu.Unlock()

	view, err := e.openView(ctx, blockHash)
	if err != nil {
		return nil, err
	}
	row, err := view.Registry.ClaimsForName(name)
	if err != nil {
		return nil, err
	}
	out := &ClaimListResult{
		Name:                 row.Name,
		Claims:               make([]RankedClaim, 0, len(row.Claims)),
		LastTakeoverHeight:   row.LastTakeoverHeight,
		SupportsWithoutClaim: make([]SupportInfo, 0, len(row.UnmatchedSupports)),
	}
	seqOrder := seqSort(row.Claims)
	for bid := range row.Claims {
		cs := &row.Claims[bid]
		out.Claims = append(out.Claims, RankedClaim{
			ClaimInfo: claimInfo(row.Name, cs),
			Bid:       bid,
			Sequence:  indexOf(seqOrder, cs.Claim.ID),
		})
	}
	for _, sup := range row.UnmatchedSupports {
		out.SupportsWithoutClaim = append(out.SupportsWithoutClaim, supportInfo(sup))
	}
	return out, nil
}

// ClaimByID locates a claim by exact or partial identifier. Partial
// identifiers must be at least 3 characters; resolution follows the index
// scan's first-match-wins behavior.
func (e *Engine) ClaimByID(ctx context.Context, claimID string) (result *ValueResult, err error) {
	defer func() { e.finish("getclaimbyid", err) }()
	if err = validateClaimIDParam(claimID); err != nil {
		return nil, err
	}
	if len(claimID) < 3 {
		return nil, ErrClaimIDTooShort
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	view, err := e.openView(ctx, nil)
	if err != nil {
		return nil, err
	}
	entry, err := resolveClaimID(view.Registry, claimID)
	if err != nil || entry == nil {
		return nil, err
	}
	row, err := view.Registry.ClaimsForName(entry.Name)
	if err != nil {
		return nil, err
	}
	cs, ok := row.Find(entry.Claim.ID)
	if !ok {
		return nil, nil
	}
	return e.valueResult(row, &cs), nil
}

// ClaimByBid returns the claim at a bid position. A negative bid is an
// input error; a bid beyond the claim list is an empty result.
func (e *Engine) ClaimByBid(ctx context.Context, name string, bid int, blockHash *common.Hash) (result *ValueResult, err error) {
	defer func() { e.finish("getclaimbybid", err) }()
	if bid < 0 {
		return nil, ErrNegativeIndex
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	view, err := e.openView(ctx, blockHash)
	if err != nil {
		return nil, err
	}
	row, err := view.Registry.ClaimsForName(name)
	if err != nil {
		return nil, err
	}
	if bid >= len(row.Claims) {
		return nil, nil
	}
	return e.valueResult(row, &row.Claims[bid]), nil
}

// ClaimBySeq returns the claim at a sequence position, with the same
// bounds contract as ClaimByBid.
func (e *Engine) ClaimBySeq(ctx context.Context, name string, seq int, blockHash *common.Hash) (result *ValueResult, err error) {
	defer func() { e.finish("getclaimbyseq", err) }()
	if seq < 0 {
		return nil, ErrNegativeIndex
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	view, err := e.openView(ctx, blockHash)
	if err != nil {
		return nil, err
	}
	row, err := view.Registry.ClaimsForName(name)
	if err != nil {
		return nil, err
	}
	if seq >= len(row.Claims) {
		return nil, nil
	}
	cs := row.Claims[0]
	if len(row.Claims) > 1 {
		cs = seqSort(row.Claims)[seq]
	}
	return e.valueResult(row, &cs), nil
}

// NameProof builds a membership proof for a name, optionally bound to the
// claim selected by an exact or partial identifier.
func (e *Engine) NameProof(ctx context.Context, name string, blockHash *common.Hash, claimID string) (result *ProofResult, err error) {
	defer func() { e.finish("getnameproof", err) }()
	if claimID != "" {
		if err = validateClaimIDParam(claimID); err != nil {
			return nil, err
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	view, err := e.openView(ctx, blockHash)
	if err != nil {
		return nil, err
	}
	proof, err := view.Registry.ProofForName(name, predicateForClaimID(claimID))
	if err != nil {
		return nil, err
	}
	return proofResult(proof), nil
}

// ProofByBid builds a proof for the claim at a bid position. Out-of-range
// positions yield an empty result rather than an error.
func (e *Engine) ProofByBid(ctx context.Context, name string, bid int, blockHash *common.Hash) (result *ProofResult, err error) {
	defer func() { e.finish("getclaimproofbybid", err) }()
	if bid < 0 {
		return nil, ErrNegativeIndex
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	view, err := e.openView(ctx, blockHash)
	if err != nil {
		return nil, err
	}
	var predicate claimtrie.ClaimPredicate
	if bid != 0 {
		row, err := view.Registry.ClaimsForName(name)
		if err != nil {
			return nil, err
		}
		pred, ok := predicateForBid(row, bid)
		if !ok {
			return nil, nil
		}
		predicate = pred
	}
	proof, err := view.Registry.ProofForName(name, predicate)
	if err != nil {
		return nil, err
	}
	return proofResult(proof), nil
}

// ProofBySeq builds a proof for the claim at a sequence position.
func (e *Engine) ProofBySeq(ctx context.Context, name string, seq int, blockHash *common.Hash) (result *ProofResult, err error) {
	defer func() { e.finish("getclaimproofbyseq", err) }()
	if seq < 0 {
		return nil, ErrNegativeIndex
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	view, err := e.openView(ctx, blockHash)
	if err != nil {
		return nil, err
	}
	row, err := view.Registry.ClaimsForName(name)
	if err != nil {
		return nil, err
	}
	predicate, ok := predicateForSeq(row, seq)
	if !ok {
		return nil, nil
	}
	proof, err := view.Registry.ProofForName(name, predicate)
	if err != nil {
		return nil, err
	}
	return proofResult(proof), nil
}

// NamesInRegistry lists every name carrying at least one live claim,
// polling for cancellation as it walks.
func (e *Engine) NamesInRegistry(ctx context.Context, blockHash *common.Hash) (names []string, err error) {
	defer func() { e.finish("getnamesintrie", err) }()
	e.mu.Lock()
	defer e.mu.Unlock()

	view, err := e.openView(ctx, blockHash)
	if err != nil {
		return nil, err
	}
	names = make([]string, 0, 64)
	err = view.Registry.IterateNames(func(row *types.NameRanking) (bool, error) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, fmt.Errorf("query: name walk cancelled: %w", ctxErr)
		}
		names = append(names, row.Name)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// TotalClaimedNames counts names with at least one live claim at the tip.
func (e *Engine) TotalClaimedNames() (total uint64, err error) {
	defer func() { e.finish("gettotalclaimednames", err) }()
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.NewCache().TotalNames()
}

// TotalClaims counts live claims across all names at the tip.
func (e *Engine) TotalClaims() (total uint64, err error) {
	defer func() { e.finish("gettotalclaims", err) }()
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.NewCache().TotalClaims()
}

// TotalValueOfClaims sums claim amounts at the tip, optionally only the
// controlling claims.
func (e *Engine) TotalValueOfClaims(controllingOnly bool) (total uint64, err error) {
	defer func() { e.finish("gettotalvalueofclaims", err) }()
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.NewCache().TotalValue(controllingOnly)
}

// StatusOfOutput reports registry membership for one output under a name:
// live (controlling or not), queued until its effective height, or absent.
func (e *Engine) StatusOfOutput(ctx context.Context, name string, op types.OutPoint) (result *OutputStatusResult, err error) {
	defer func() { e.finish("getclaimstatus", err) }()
	e.mu.Lock()
	defer e.mu.Unlock()

	view, err := e.openView(ctx, nil)
	if err != nil {
		return nil, err
	}
	status, err := view.Registry.StatusOfOutput(name, op)
	if err != nil {
		return nil, err
	}
	out := &OutputStatusResult{
		Name:          name,
		TxID:          op.TxID.Hex(),
		N:             op.N,
		InRegistry:    status.Present,
		IsControlling: status.IsControlling,
		IsSupport:     status.IsSupport,
		InQueue:       status.InQueue,
	}
	if status.InQueue {
		blocks := int64(status.ValidAtHeight) - e.index.Height()
		out.BlocksToValid = &blocks
	}
	return out, nil
}

// ChangesInBlock lists the claim identifiers a block touched, from its
// stored undo change set. Without a hash the tip block is used.
func (e *Engine) ChangesInBlock(blockHash *common.Hash) (result *BlockChangesResult, err error) {
	defer func() { e.finish("getchangesinblock", err) }()
	e.mu.Lock()
	defer e.mu.Unlock()

	node := e.index.Tip()
	if blockHash != nil {
		node, err = e.index.LookupMainChain(*blockHash)
		if err != nil {
			return nil, err
		}
	}
	if node == nil {
		return nil, chain.ErrBlockNotFound
	}
	block, err := e.blocks.ReadBlock(node.Hash)
	if err != nil {
		return nil, fmt.Errorf("%w: height %d: %v", ErrBlockUnavailable, node.Height, err)
	}
	changes := &block.Changes
	out := &BlockChangesResult{
		ClaimsAddedOrUpdated:   make([]string, 0, len(changes.ClaimsAdded)),
		ClaimsRemoved:          make([]string, 0, len(changes.ClaimsRemoved)),
		SupportsAddedOrUpdated: make([]string, 0, len(changes.SupportsAdded)),
		SupportsRemoved:        make([]string, 0, len(changes.SupportsRemoved)),
	}
	for _, delta := range changes.ClaimsAdded {
		out.ClaimsAddedOrUpdated = append(out.ClaimsAddedOrUpdated, delta.Claim.ID.Hex())
	}
	for _, delta := range changes.ClaimsRemoved {
		out.ClaimsRemoved = append(out.ClaimsRemoved, delta.Claim.ID.Hex())
	}
	for _, delta := range changes.SupportsAdded {
		out.SupportsAddedOrUpdated = append(out.SupportsAddedOrUpdated, delta.Support.ClaimID.Hex())
	}
	for _, delta := range changes.SupportsRemoved {
		out.SupportsRemoved = append(out.SupportsRemoved, delta.Support.ClaimID.Hex())
	}
	return out, nil
}
