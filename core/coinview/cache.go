package coinview

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/nondejus/lbrycrd/core/types"
	"github.com/nondejus/lbrycrd/storage"
)

// coinKeyPrefix namespaces the output set inside the shared key-value store.
const coinKeyPrefix = 'c'

// approximate heap cost of one overlay entry: map bucket, key and coin.
const entryOverheadBytes = 112

// Key returns the storage key for an output.
func Key(op types.OutPoint) []byte {
	key := make([]byte, 1+common.HashLength+4)
	key[0] = coinKeyPrefix
	copy(key[1:], op.TxID[:])
	binary.BigEndian.PutUint32(key[1+common.HashLength:], op.N)
	return key
}

// Cache is a layered view of the spendable output set. Reads fall through to
// the backing store; writes stay in the overlay. A historical view mutates
// only the overlay, so the tip state on disk is never touched by a rewind.
//
// Cache is not safe for concurrent use; the chain lock serializes access.
type Cache struct {
	base    storage.Database
	overlay map[types.OutPoint]*types.Coin // nil value marks a spent coin
}

// NewCache creates an empty overlay over the provided store.
func NewCache(base storage.Database) *Cache {
	return &Cache{
		base:    base,
		overlay: make(map[types.OutPoint]*types.Coin),
	}
}

// GetCoin returns the live coin for the output, or nil if it is spent or
// unknown.
func (c *Cache) GetCoin(op types.OutPoint) (*types.Coin, error) {
	if coin, ok := c.overlay[op]; ok {
		if coin == nil {
			return nil, nil
		}
		cp := *coin
		return &cp, nil
	}
	raw, err := c.base.Get(Key(op))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("coinview: load %s: %w", op, err)
	}
	var coin types.Coin
	if err := rlp.DecodeBytes(raw, &coin); err != nil {
		return nil, fmt.Errorf("coinview: decode %s: %w", op, err)
	}
	return &coin, nil
}

// AddCoin restores (or introduces) a live coin in the overlay.
func (c *Cache) AddCoin(coin types.Coin) {
	cp := coin
	c.overlay[coin.OutPoint] = &cp
}

// SpendCoin marks the output spent in the overlay.
func (c *Cache) SpendCoin(op types.OutPoint) {
	c.overlay[op] = nil
}

// DynamicMemoryUsage approximates the heap held by the overlay. The rewind
// engine compares it against the configured budget before every disconnect
// step.
func (c *Cache) DynamicMemoryUsage() uint64 {
	return uint64(len(c.overlay)) * entryOverheadBytes
}

// Flush writes the overlay through to the backing store and clears it. Only
// block connection and test fixtures use this; query-scoped views are
// discarded instead.
func (c *Cache) Flush() error {
	for op, coin := range c.overlay {
		if coin == nil {
			if err := c.base.Delete(Key(op)); err != nil {
				return fmt.Errorf("coinview: flush delete %s: %w", op, err)
			}
			continue
		}
		raw, err := rlp.EncodeToBytes(coin)
		if err != nil {
			return fmt.Errorf("coinview: flush encode %s: %w", op, err)
		}
		if err := c.base.Put(Key(op), raw); err != nil {
			return fmt.Errorf("coinview: flush put %s: %w", op, err)
		}
	}
	c.overlay = make(map[types.OutPoint]*types.Coin)
	return nil
}
