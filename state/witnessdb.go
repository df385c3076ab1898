// Package state adapts witness-derived stores and partial tries into the
// four-read view an execution engine needs, and applies the engine's state
// diff back onto the tries to produce the post-state root.
package state

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/sbv-go/sbv/core/types"
	"github.com/sbv-go/sbv/crypto"
	"github.com/sbv-go/sbv/kv"
	"github.com/sbv-go/sbv/rlp"
	"github.com/sbv-go/sbv/trie"
	"github.com/sbv-go/sbv/witness"
)

// ErrIncompleteWitness reports a read or write that needs state the witness
// did not reveal. It is distinguishable from a value genuinely absent in
// state: absence proven by revealed nodes is not an error.
var ErrIncompleteWitness = errors.New("state: incomplete witness")

type blobStore interface {
	kv.Store
	kv.Ranger
}

// WitnessDB presents one witness's partial state to an execution engine.
// It caches decoded account records and lazily opened storage tries for
// the duration of one block; discard it after the run.
type WitnessDB struct {
	preRoot types.Hash
	nodes   blobStore
	codes   blobStore
	hashes  kv.Store

	accounts *trie.PartialTrie
	storage  map[types.Address]*trie.PartialTrie
	cache    map[types.Address]*types.StateAccount
}

// New opens the partial account trie at preRoot over the given stores.
func New(preRoot types.Hash, nodes, codes blobStore, hashes kv.Store) (*WitnessDB, error) {
	accounts, err := trie.FromNodes(preRoot, nodes)
	if err != nil {
		return nil, fmt.Errorf("state: open account trie: %w", err)
	}
	return &WitnessDB{
		preRoot:  preRoot,
		nodes:    nodes,
		codes:    codes,
		hashes:   hashes,
		accounts: accounts,
		storage:  make(map[types.Address]*trie.PartialTrie),
		cache:    make(map[types.Address]*types.StateAccount),
	}, nil
}

// FromWitness ingests w into fresh stores and opens the adapter at the
// witness's pre-state root. Node and code keys are recomputed hashes;
// ancestor hashes are keyed by block number.
func FromWitness(w *witness.BlockWitness) (*WitnessDB, error) {
	nodes := kv.NewHashedStore()
	if err := w.ImportNodes(nodes); err != nil {
		return nil, err
	}
	codes := kv.NewHashedStore()
	w.ImportCodes(codes)
	hashes := kv.NewSmallStore()
	if err := w.ImportBlockHashes(hashes); err != nil {
		return nil, err
	}
	return New(w.PreStateRoot, nodes, codes, hashes)
}

// PreStateRoot returns the root the adapter was opened at.
func (db *WitnessDB) PreStateRoot() types.Hash { return db.preRoot }

// Account returns the account record for addr, or (nil, nil) when the
// account provably does not exist.
func (db *WitnessDB) Account(addr types.Address) (*types.StateAccount, error) {
	if acct, ok := db.cache[addr]; ok {
		return acct, nil
	}
	blob, err := db.accounts.Get(crypto.Keccak256(addr[:]))
	if err != nil {
		return nil, wrapMissing(err, "account %s", addr.Hex())
	}
	if blob == nil {
		db.cache[addr] = nil
		return nil, nil
	}
	acct, err := types.DecodeStateAccount(blob)
	if err != nil {
		return nil, fmt.Errorf("state: account %s: %w", addr.Hex(), err)
	}
	db.cache[addr] = acct
	return acct, nil
}

// Storage returns the value of slot in addr's storage. Slots of accounts
// that do not exist, and slots proven absent, read as zero.
func (db *WitnessDB) Storage(addr types.Address, slot types.Hash) (*uint256.Int, error) {
	st, err := db.storageTrie(addr)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return new(uint256.Int), nil
	}
	blob, err := st.Get(crypto.Keccak256(slot[:]))
	if err != nil {
		return nil, wrapMissing(err, "storage %s[%s]", addr.Hex(), slot.Hex())
	}
	if blob == nil {
		return new(uint256.Int), nil
	}
	payload, err := rlp.SplitString(blob)
	if err != nil {
		return nil, fmt.Errorf("state: storage %s[%s]: %w", addr.Hex(), slot.Hex(), err)
	}
	return new(uint256.Int).SetBytes(payload), nil
}

// storageTrie lazily opens addr's storage trie; nil for accounts that do
// not exist.
func (db *WitnessDB) storageTrie(addr types.Address) (*trie.PartialTrie, error) {
	if st, ok := db.storage[addr]; ok {
		return st, nil
	}
	acct, err := db.Account(addr)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, nil
	}
	st, err := trie.FromNodes(acct.Root, db.nodes)
	if err != nil {
		return nil, fmt.Errorf("state: open storage trie of %s: %w", addr.Hex(), err)
	}
	db.storage[addr] = st
	return st, nil
}

// Code returns the bytecode with the given hash. The empty code hash reads
// as empty code without touching the store.
func (db *WitnessDB) Code(hash types.Hash) ([]byte, error) {
	if hash == types.EmptyCodeHash || hash.IsZero() {
		return nil, nil
	}
	code, ok := db.codes.Get(hash[:])
	if !ok {
		return nil, fmt.Errorf("%w: code %s", ErrIncompleteWitness, hash.Hex())
	}
	return code, nil
}

// BlockHash returns the hash of an ancestor block. A number outside the
// supplied window is an incomplete witness, not "no such block".
func (db *WitnessDB) BlockHash(number uint64) (types.Hash, error) {
	v, ok := kv.NumberKeyed{Store: db.hashes}.GetNumber(number)
	if !ok {
		return types.Hash{}, fmt.Errorf("%w: hash of block %d", ErrIncompleteWitness, number)
	}
	return types.BytesToHash(v), nil
}

// AncestorHash is the lookup half of BlockHash without the error wrapping,
// for engines that maintain their own miss accounting.
func (db *WitnessDB) AncestorHash(number uint64) (types.Hash, bool) {
	v, ok := kv.NumberKeyed{Store: db.hashes}.GetNumber(number)
	if !ok {
		return types.Hash{}, false
	}
	return types.BytesToHash(v), true
}

// RangeNodes enumerates the raw trie node blobs keyed by keccak hash.
func (db *WitnessDB) RangeNodes(fn func(hash types.Hash, blob []byte) bool) {
	db.nodes.Range(func(k, v []byte) bool {
		return fn(types.BytesToHash(k), v)
	})
}

// RangeCodes enumerates contract bytecodes keyed by keccak hash.
func (db *WitnessDB) RangeCodes(fn func(hash types.Hash, code []byte) bool) {
	db.codes.Range(func(k, v []byte) bool {
		return fn(types.BytesToHash(k), v)
	})
}

func wrapMissing(err error, format string, args ...interface{}) error {
	var missing *trie.MissingNodeError
	if errors.As(err, &missing) {
		return fmt.Errorf("%w: %s: %v", ErrIncompleteWitness, fmt.Sprintf(format, args...), err)
	}
	return fmt.Errorf("state: %s: %w", fmt.Sprintf(format, args...), err)
}
