package chain

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	bolt "go.etcd.io/bbolt"

	"github.com/nondejus/lbrycrd/core/types"
)

var (
	blocksBucket  = []byte("blocks")
	heightsBucket = []byte("heights")
)

// Store persists block bodies and their undo change sets in bbolt. Blocks
// are keyed by hash; a second bucket maps big-endian heights to hashes so
// the index can be rebuilt at startup.
type Store struct {
	db *bolt.DB
}

// OpenStore opens (or creates) the block store at path.
func OpenStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: open block store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(blocksBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(heightsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("chain: init block store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func heightKey(height uint32) []byte {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, height)
	return key
}

// WriteBlock stores a block body under its hash and records its height.
func (s *Store) WriteBlock(block *types.Block) error {
	raw, err := block.MarshalBinary()
	if err != nil {
		return fmt.Errorf("chain: encode block: %w", err)
	}
	hash := block.Hash()
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(blocksBucket).Put(hash[:], raw); err != nil {
			return err
		}
		return tx.Bucket(heightsBucket).Put(heightKey(block.Header.Height), hash[:])
	})
}

// ReadBlock loads the block stored under hash. A missing block returns
// ErrBlockNotFound; the rewind engine treats that as fatal.
func (s *Store) ReadBlock(hash common.Hash) (*types.Block, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(blocksBucket).Get(hash[:])
		if value != nil {
			raw = append([]byte(nil), value...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("chain: read block %s: %w", hash.Hex(), err)
	}
	if raw == nil {
		return nil, fmt.Errorf("chain: read block %s: %w", hash.Hex(), ErrBlockNotFound)
	}
	block := new(types.Block)
	if err := block.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("chain: decode block %s: %w", hash.Hex(), err)
	}
	return block, nil
}

// LoadIndex rebuilds the main-chain index by walking the height bucket in
// order.
func (s *Store) LoadIndex() (*Index, error) {
	index := NewIndex()
	err := s.db.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(heightsBucket).Cursor()
		for key, value := cursor.First(); key != nil; key, value = cursor.Next() {
			height := binary.BigEndian.Uint32(key)
			if _, err := index.Extend(common.BytesToHash(value), height); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("chain: load index: %w", err)
	}
	return index, nil
}
