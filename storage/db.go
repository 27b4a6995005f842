package storage

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/triedb"
	"github.com/syndtr/goleveldb/leveldb"
	ldbiterator "github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// ErrKeyNotFound is returned by Get when no value exists for the key.
var ErrKeyNotFound = errors.New("storage: key not found")

// Iterator walks key/value pairs in ascending byte order of the keys.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Release()
}

// Database is a generic interface for a key-value store. The registry keeps
// its name rows and the identifier index here; the commitment trie hangs off
// TrieDB. Iteration order is the byte order of the keys, which is what the
// identifier-index scan relies on.
type Database interface {
	Get(key []byte) ([]byte, error)
	Put(key []byte, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	NewIterator(prefix []byte) Iterator
	TrieDB() *triedb.Database
	Close()
}

// --- In-Memory DB (for testing) ---

type MemDB struct {
	mu     sync.RWMutex
	data   map[string][]byte
	trieDB *triedb.Database
	once   sync.Once
}

func NewMemDB() *MemDB {
	return &MemDB{
		data: make(map[string][]byte),
	}
}

func (db *MemDB) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	value, ok := db.data[string(key)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), value...), nil
}

func (db *MemDB) Put(key []byte, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (db *MemDB) Delete(key []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.data, string(key))
	return nil
}

func (db *MemDB) Has(key []byte) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.data[string(key)]
	return ok, nil
}

// NewIterator snapshots the matching keys at call time and walks them in
// sorted order.
func (db *MemDB) NewIterator(prefix []byte) Iterator {
	db.mu.RLock()
	keys := make([]string, 0, len(db.data))
	for k := range db.data {
		if strings.HasPrefix(k, string(prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	snapshot := make(map[string][]byte, len(keys))
	for _, k := range keys {
		snapshot[k] = append([]byte(nil), db.data[k]...)
	}
	db.mu.RUnlock()
	return &memIterator{keys: keys, values: snapshot, pos: -1}
}

func (db *MemDB) TrieDB() *triedb.Database {
	db.once.Do(func() {
		db.trieDB = triedb.NewDatabase(rawdb.NewMemoryDatabase(), triedb.HashDefaults)
	})
	return db.trieDB
}

// Close satisfies the Database interface for MemDB.
func (db *MemDB) Close() {}

type memIterator struct {
	keys   []string
	values map[string][]byte
	pos    int
}

func (it *memIterator) Next() bool {
	if it.pos+1 >= len(it.keys) {
		return false
	}
	it.pos++
	return true
}

func (it *memIterator) Key() []byte {
	if it.pos < 0 || it.pos >= len(it.keys) {
		return nil
	}
	return []byte(it.keys[it.pos])
}

func (it *memIterator) Value() []byte {
	if it.pos < 0 || it.pos >= len(it.keys) {
		return nil
	}
	return it.values[it.keys[it.pos]]
}

func (it *memIterator) Error() error { return nil }

func (it *memIterator) Release() {}

// --- Persistent DB ---

// LevelDB is a persistent key-value store using LevelDB.
type LevelDB struct {
	db     *leveldb.DB
	trieDB *triedb.Database
	once   sync.Once
}

// NewLevelDB creates or opens a LevelDB database at the specified path.
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

func (ldb *LevelDB) Get(key []byte) ([]byte, error) {
	value, err := ldb.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrKeyNotFound
	}
	return value, err
}

func (ldb *LevelDB) Put(key []byte, value []byte) error {
	return ldb.db.Put(key, value, nil)
}

func (ldb *LevelDB) Delete(key []byte) error {
	return ldb.db.Delete(key, nil)
}

func (ldb *LevelDB) Has(key []byte) (bool, error) {
	return ldb.db.Has(key, nil)
}

func (ldb *LevelDB) NewIterator(prefix []byte) Iterator {
	return &levelIterator{it: ldb.db.NewIterator(util.BytesPrefix(prefix), nil)}
}

// TrieDB returns the trie database used for the registry commitment. The
// commitment trie is derived state: it is rebuilt from the registry rows at
// startup, so it lives in memory rather than on disk.
func (ldb *LevelDB) TrieDB() *triedb.Database {
	ldb.once.Do(func() {
		ldb.trieDB = triedb.NewDatabase(rawdb.NewMemoryDatabase(), triedb.HashDefaults)
	})
	return ldb.trieDB
}

func (ldb *LevelDB) Close() {
	ldb.db.Close()
}

type levelIterator struct {
	it ldbiterator.Iterator
}

func (l *levelIterator) Next() bool    { return l.it.Next() }
func (l *levelIterator) Key() []byte   { return append([]byte(nil), l.it.Key()...) }
func (l *levelIterator) Value() []byte { return append([]byte(nil), l.it.Value()...) }
func (l *levelIterator) Error() error  { return l.it.Error() }
func (l *levelIterator) Release()      { l.it.Release() }
