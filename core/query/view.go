package query

import (
	"github.com/nondejus/lbrycrd/core/coinview"
	"github.com/nondejus/lbrycrd/core/claimtrie"
)

// HistoricalView pairs the output-set cache with the registry cache,
// consistent as of one target block. Views are query-scoped: built fresh
// for every query, mutated only by that query's rewind, and discarded when
// the query returns. Repeated historical queries redo the full rewind.
type HistoricalView struct {
	Coins    *coinview.Cache
	Registry *claimtrie.Cache
}
