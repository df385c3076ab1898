package kv

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// LevelStore is a goleveldb-backed persistent store, used to cache witness
// blobs across runs. It assumes a single writer. Backend I/O failures are
// not recoverable mid-verification, so the accessors panic instead of
// widening the Store interface with error returns.
type LevelStore struct {
	db *leveldb.DB
}

// OpenLevelStore opens (or creates) the database at path.
func OpenLevelStore(path string) (*LevelStore, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, fmt.Errorf("kv: open leveldb at %s: %w", path, err)
	}
	return &LevelStore{db: db}, nil
}

// Close releases the underlying database.
func (s *LevelStore) Close() error {
	return s.db.Close()
}

func (s *LevelStore) Get(key []byte) ([]byte, bool) {
	v, err := s.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, false
	}
	if err != nil {
		panic(fmt.Sprintf("kv: leveldb get: %v", err))
	}
	return v, true
}

func (s *LevelStore) Put(key, value []byte) {
	if err := s.db.Put(key, value, nil); err != nil {
		panic(fmt.Sprintf("kv: leveldb put: %v", err))
	}
}

func (s *LevelStore) PutIfAbsent(key []byte, mk func() []byte) {
	has, err := s.db.Has(key, nil)
	if err != nil {
		panic(fmt.Sprintf("kv: leveldb has: %v", err))
	}
	if !has {
		s.Put(key, mk())
	}
}

func (s *LevelStore) Range(fn func(key, value []byte) bool) {
	it := s.db.NewIterator(nil, nil)
	defer it.Release()
	for it.Next() {
		if !fn(it.Key(), it.Value()) {
			break
		}
	}
	if err := it.Error(); err != nil {
		panic(fmt.Sprintf("kv: leveldb iterate: %v", err))
	}
}
