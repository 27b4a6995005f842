package query

import "errors"

// Rewind failures abort the whole query; no partial view is ever returned.
var (
	// ErrRewindTooDeep rejects targets more than MaxBlockDecrements below
	// the tip before any disconnect step runs.
	ErrRewindTooDeep = errors.New("query: block is too deep")
	// ErrResourceExhausted aborts a rewind whose caches outgrew the
	// configured memory budget.
	ErrResourceExhausted = errors.New("query: rewind exceeds memory budget, increase the cache budget")
	// ErrRewindCancelled surfaces a cooperative cancellation observed
	// between disconnect steps.
	ErrRewindCancelled = errors.New("query: rewind cancelled")
	// ErrBlockUnavailable marks a block whose stored data could not be
	// loaded. Fatal, never retried.
	ErrBlockUnavailable = errors.New("query: block data unavailable")
	// ErrDisconnectFailed marks an undo step that reported inconsistency.
	ErrDisconnectFailed = errors.New("query: block disconnect failed")
)

// Input errors, rejected before any state access.
var (
	ErrClaimIDNotHex   = errors.New("query: claim id must be a hexadecimal string")
	ErrClaimIDTooLong  = errors.New("query: claim id must be at most 40 hexadecimal characters")
	ErrClaimIDTooShort = errors.New("query: claim id must be at least 3 characters")
	ErrNegativeIndex   = errors.New("query: index must not be negative")
)
