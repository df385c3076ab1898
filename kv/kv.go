// Package kv provides the key-value store abstraction backing witness
// ingestion: raw trie nodes, contract code and ancestor hashes all land in
// Store implementations before verification starts. Backends trade lookup
// strategy for footprint; all of them treat keys and values as opaque bytes
// owned by the store after Put.
package kv

import (
	"encoding/binary"

	"github.com/sbv-go/sbv/core/types"
)

// Getter is the read side of a store.
type Getter interface {
	// Get returns the value stored under key and whether it exists.
	Get(key []byte) ([]byte, bool)
}

// Putter is the write side of a store.
type Putter interface {
	Put(key, value []byte)

	// PutIfAbsent stores mk() under key unless the key already exists.
	// The thunk is evaluated at most once and only on insertion.
	PutIfAbsent(key []byte, mk func() []byte)
}

// Store combines reads and writes.
type Store interface {
	Getter
	Putter
}

// Ranger is implemented by stores that can enumerate their contents. The
// callback returning false stops the iteration. Order is unspecified.
type Ranger interface {
	Range(fn func(key, value []byte) bool)
}

// HashKeyed is a typed view over a Store whose keys are 32-byte hashes.
type HashKeyed struct {
	Store
}

// GetHash returns the value stored under h.
func (s HashKeyed) GetHash(h types.Hash) ([]byte, bool) {
	return s.Get(h[:])
}

// PutHash stores value under h.
func (s HashKeyed) PutHash(h types.Hash, value []byte) {
	s.Put(h[:], value)
}

// PutHashIfAbsent stores mk() under h unless h already exists.
func (s HashKeyed) PutHashIfAbsent(h types.Hash, mk func() []byte) {
	s.PutIfAbsent(h[:], mk)
}

// NumberKeyed is a typed view over a Store whose keys are uint64s
// (big-endian on the wire).
type NumberKeyed struct {
	Store
}

func numberKey(n uint64) []byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], n)
	return key[:]
}

// GetNumber returns the value stored under n.
func (s NumberKeyed) GetNumber(n uint64) ([]byte, bool) {
	return s.Get(numberKey(n))
}

// PutNumber stores value under n.
func (s NumberKeyed) PutNumber(n uint64, value []byte) {
	s.Put(numberKey(n), value)
}
