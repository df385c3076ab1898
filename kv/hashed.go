package kv

import "encoding/binary"

// HashedStore is an in-memory backend for keys that are already uniformly
// distributed hashes (keccak outputs). Placement uses the first eight key
// bytes directly instead of rehashing; colliding prefixes chain within a
// bucket. Witness node and code stores are keyed by recomputed keccak
// hashes, which is exactly this shape.
type HashedStore struct {
	buckets map[uint64][]hashedEntry
	n       int
}

type hashedEntry struct {
	key   []byte
	value []byte
}

// NewHashedStore returns an empty HashedStore.
func NewHashedStore() *HashedStore {
	return &HashedStore{buckets: make(map[uint64][]hashedEntry)}
}

func placement(key []byte) uint64 {
	var prefix [8]byte
	copy(prefix[:], key)
	return binary.BigEndian.Uint64(prefix[:])
}

func (s *HashedStore) Get(key []byte) ([]byte, bool) {
	for _, e := range s.buckets[placement(key)] {
		if string(e.key) == string(key) {
			return e.value, true
		}
	}
	return nil, false
}

func (s *HashedStore) Put(key, value []byte) {
	p := placement(key)
	bucket := s.buckets[p]
	for i, e := range bucket {
		if string(e.key) == string(key) {
			bucket[i].value = value
			return
		}
	}
	s.buckets[p] = append(bucket, hashedEntry{key: append([]byte(nil), key...), value: value})
	s.n++
}

func (s *HashedStore) PutIfAbsent(key []byte, mk func() []byte) {
	p := placement(key)
	bucket := s.buckets[p]
	for _, e := range bucket {
		if string(e.key) == string(key) {
			return
		}
	}
	s.buckets[p] = append(bucket, hashedEntry{key: append([]byte(nil), key...), value: mk()})
	s.n++
}

// Len returns the number of stored entries.
func (s *HashedStore) Len() int { return s.n }

func (s *HashedStore) Range(fn func(key, value []byte) bool) {
	for _, bucket := range s.buckets {
		for _, e := range bucket {
			if !fn(e.key, e.value) {
				return
			}
		}
	}
}
