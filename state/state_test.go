package state

import (
	"bytes"
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"github.com/sbv-go/sbv/core/types"
	"github.com/sbv-go/sbv/crypto"
	"github.com/sbv-go/sbv/engine"
	"github.com/sbv-go/sbv/kv"
	"github.com/sbv-go/sbv/rlp"
	"github.com/sbv-go/sbv/trie"
)

var (
	addrA = types.BytesToAddress([]byte{0xaa})
	addrB = types.BytesToAddress([]byte{0xbb})
	addrC = types.BytesToAddress([]byte{0xcc})
)

func storeBlobs(store kv.Store, blobs [][]byte) {
	for _, blob := range blobs {
		store.Put(crypto.Keccak256(blob), blob)
	}
}

// buildState constructs a fully revealed pre-state over the given accounts
// and storage, returning the root and the node store a witness would carry.
func buildState(t *testing.T, accounts map[types.Address]*types.StateAccount, storage map[types.Address]map[types.Hash]*uint256.Int) (types.Hash, *kv.HashedStore) {
	t.Helper()
	nodes := kv.NewHashedStore()

	for addr, slots := range storage {
		st, err := trie.FromNodes(types.EmptyRootHash, nodes)
		if err != nil {
			t.Fatalf("open storage trie: %v", err)
		}
		for slot, value := range slots {
			if err := st.Update(crypto.Keccak256(slot[:]), rlp.AppendString(nil, value.Bytes())); err != nil {
				t.Fatalf("storage update: %v", err)
			}
		}
		accounts[addr].Root = st.Hash()
		storeBlobs(nodes, st.Nodes())
	}

	tr, err := trie.FromNodes(types.EmptyRootHash, nodes)
	if err != nil {
		t.Fatalf("open account trie: %v", err)
	}
	for addr, acct := range accounts {
		leaf, err := acct.EncodeRLP()
		if err != nil {
			t.Fatalf("encode account: %v", err)
		}
		if err := tr.Update(crypto.Keccak256(addr[:]), leaf); err != nil {
			t.Fatalf("account update: %v", err)
		}
	}
	storeBlobs(nodes, tr.Nodes())
	return tr.Hash(), nodes
}

func newAccount(nonce uint64, balance uint64) *types.StateAccount {
	acct := types.NewEmptyStateAccount()
	acct.Nonce = nonce
	acct.Balance = uint256.NewInt(balance)
	return acct
}

func TestAccountReads(t *testing.T) {
	root, nodes := buildState(t, map[types.Address]*types.StateAccount{
		addrA: newAccount(3, 1000),
		addrB: newAccount(0, 50),
	}, nil)

	db, err := New(root, nodes, kv.NewHashedStore(), kv.NewSmallStore())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	acct, err := db.Account(addrA)
	if err != nil {
		t.Fatalf("Account(A): %v", err)
	}
	if acct.Nonce != 3 || acct.Balance.Uint64() != 1000 {
		t.Fatalf("Account(A) = %+v", acct)
	}

	absent, err := db.Account(addrC)
	if err != nil {
		t.Fatalf("Account(C): %v", err)
	}
	if absent != nil {
		t.Fatalf("absent account read as %+v", absent)
	}
}

func TestStorageReads(t *testing.T) {
	slot := types.BytesToHash([]byte{0x01})
	other := types.BytesToHash([]byte{0x02})
	root, nodes := buildState(t,
		map[types.Address]*types.StateAccount{addrA: newAccount(1, 10)},
		map[types.Address]map[types.Hash]*uint256.Int{
			addrA: {slot: uint256.NewInt(42)},
		})

	db, err := New(root, nodes, kv.NewHashedStore(), kv.NewSmallStore())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	v, err := db.Storage(addrA, slot)
	if err != nil {
		t.Fatalf("Storage: %v", err)
	}
	if v.Uint64() != 42 {
		t.Fatalf("Storage = %s, want 42", v)
	}

	// A slot proven absent reads as zero, not an error.
	v, err = db.Storage(addrA, other)
	if err != nil {
		t.Fatalf("absent slot: %v", err)
	}
	if !v.IsZero() {
		t.Fatalf("absent slot = %s, want 0", v)
	}

	// Storage of a nonexistent account reads as zero.
	v, err = db.Storage(addrC, slot)
	if err != nil {
		t.Fatalf("storage of absent account: %v", err)
	}
	if !v.IsZero() {
		t.Fatalf("storage of absent account = %s", v)
	}
}

func TestIncompleteWitnessOnWithheldNode(t *testing.T) {
	slot := types.BytesToHash([]byte{0x01})
	otherSlot := types.BytesToHash([]byte{0x09})
	root, full := buildState(t,
		map[types.Address]*types.StateAccount{addrA: newAccount(1, 10)},
		map[types.Address]map[types.Hash]*uint256.Int{
			addrA: {slot: uint256.NewInt(42), otherSlot: uint256.NewInt(7)},
		})

	// Recompute the fixture's storage root to locate its node, then
	// withhold that node while keeping the account trie revealed.
	st, err := trie.FromNodes(types.EmptyRootHash, kv.NewHashedStore())
	if err != nil {
		t.Fatalf("open trie: %v", err)
	}
	if err := st.Update(crypto.Keccak256(slot[:]), rlp.AppendString(nil, uint256.NewInt(42).Bytes())); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := st.Update(crypto.Keccak256(otherSlot[:]), rlp.AppendString(nil, uint256.NewInt(7).Bytes())); err != nil {
		t.Fatalf("update: %v", err)
	}
	storageRoot := st.Hash()
	partial := kv.NewHashedStore()
	full.Range(func(k, v []byte) bool {
		if !bytes.Equal(k, storageRoot[:]) {
			partial.Put(k, v)
		}
		return true
	})

	db, err := New(root, partial, kv.NewHashedStore(), kv.NewSmallStore())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := db.Storage(addrA, slot); !errors.Is(err, ErrIncompleteWitness) {
		t.Fatalf("withheld storage read error = %v, want ErrIncompleteWitness", err)
	}

	// Writing through the same path fails identically.
	err = db.ApplyDiff(engine.StateDiff{
		addrA: {
			Nonce:   2,
			Balance: uint256.NewInt(10),
			Storage: map[types.Hash]*uint256.Int{slot: uint256.NewInt(43)},
		},
	})
	if !errors.Is(err, ErrIncompleteWitness) {
		t.Fatalf("withheld storage write error = %v, want ErrIncompleteWitness", err)
	}
}

func TestCodeReads(t *testing.T) {
	code := []byte{0x60, 0x00, 0xf3}
	codes := kv.NewHashedStore()
	codeHash := crypto.Keccak256Hash(code)
	codes.Put(codeHash[:], code)

	db, err := New(types.EmptyRootHash, kv.NewHashedStore(), codes, kv.NewSmallStore())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := db.Code(codeHash)
	if err != nil || !bytes.Equal(got, code) {
		t.Fatalf("Code = %x, %v", got, err)
	}
	if got, err := db.Code(types.EmptyCodeHash); err != nil || got != nil {
		t.Fatalf("empty code hash = %x, %v", got, err)
	}
	missing := crypto.Keccak256Hash([]byte("never supplied"))
	if _, err := db.Code(missing); !errors.Is(err, ErrIncompleteWitness) {
		t.Fatalf("missing code error = %v, want ErrIncompleteWitness", err)
	}
}

func TestBlockHashWindow(t *testing.T) {
	hashes := kv.NewSmallStore()
	parent := crypto.Keccak256Hash([]byte("parent"))
	kv.NumberKeyed{Store: hashes}.PutNumber(99, parent[:])

	db, err := New(types.EmptyRootHash, kv.NewHashedStore(), kv.NewHashedStore(), hashes)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := db.BlockHash(99)
	if err != nil || got != parent {
		t.Fatalf("BlockHash(99) = %s, %v", got.Hex(), err)
	}
	if _, err := db.BlockHash(42); !errors.Is(err, ErrIncompleteWitness) {
		t.Fatalf("out-of-window error = %v, want ErrIncompleteWitness", err)
	}
}

func TestApplyDiffAndCommitRoot(t *testing.T) {
	slot := types.BytesToHash([]byte{0x01})
	root, nodes := buildState(t, map[types.Address]*types.StateAccount{
		addrA: newAccount(3, 1000),
		addrB: newAccount(0, 50),
	}, nil)

	db, err := New(root, nodes, kv.NewHashedStore(), kv.NewSmallStore())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	diff := engine.StateDiff{
		addrA: {Nonce: 4, Balance: uint256.NewInt(900)},
		addrB: {Nonce: 0, Balance: uint256.NewInt(150)},
		addrC: {
			Nonce:   1,
			Balance: uint256.NewInt(0),
			Storage: map[types.Hash]*uint256.Int{slot: uint256.NewInt(7)},
		},
	}
	if err := db.ApplyDiff(diff); err != nil {
		t.Fatalf("ApplyDiff: %v", err)
	}
	got := db.CommitRoot()

	// The same post-state built directly must hash identically.
	acctC := newAccount(1, 0)
	want, _ := buildState(t, map[types.Address]*types.StateAccount{
		addrA: newAccount(4, 900),
		addrB: newAccount(0, 150),
		addrC: acctC,
	}, map[types.Address]map[types.Hash]*uint256.Int{
		addrC: {slot: uint256.NewInt(7)},
	})

	if got != want {
		t.Fatalf("post root = %s, want %s", got.Hex(), want.Hex())
	}

	// Reads after apply observe the new values.
	acct, err := db.Account(addrA)
	if err != nil || acct.Nonce != 4 || acct.Balance.Uint64() != 900 {
		t.Fatalf("Account(A) after apply = %+v, %v", acct, err)
	}
	v, err := db.Storage(addrC, slot)
	if err != nil || v.Uint64() != 7 {
		t.Fatalf("Storage(C) after apply = %s, %v", v, err)
	}
}

func TestApplyDiffDeletesAccount(t *testing.T) {
	root, nodes := buildState(t, map[types.Address]*types.StateAccount{
		addrA: newAccount(3, 1000),
		addrB: newAccount(1, 50),
	}, nil)

	db, err := New(root, nodes, kv.NewHashedStore(), kv.NewSmallStore())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := db.ApplyDiff(engine.StateDiff{addrB: {Deleted: true}}); err != nil {
		t.Fatalf("ApplyDiff: %v", err)
	}

	want, _ := buildState(t, map[types.Address]*types.StateAccount{
		addrA: newAccount(3, 1000),
	}, nil)
	if got := db.CommitRoot(); got != want {
		t.Fatalf("root after delete = %s, want %s", got.Hex(), want.Hex())
	}

	acct, err := db.Account(addrB)
	if err != nil || acct != nil {
		t.Fatalf("deleted account reads as %+v, %v", acct, err)
	}
}

func TestApplyDiffStoresNewCode(t *testing.T) {
	root, nodes := buildState(t, map[types.Address]*types.StateAccount{
		addrA: newAccount(0, 10),
	}, nil)
	codes := kv.NewHashedStore()
	db, err := New(root, nodes, codes, kv.NewSmallStore())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	code := []byte{0x60, 0x01, 0x60, 0x02, 0xf3}
	codeHash := crypto.Keccak256Hash(code)
	err = db.ApplyDiff(engine.StateDiff{
		addrC: {Nonce: 1, Balance: uint256.NewInt(0), CodeHash: codeHash, Code: code},
	})
	if err != nil {
		t.Fatalf("ApplyDiff: %v", err)
	}
	got, err := db.Code(codeHash)
	if err != nil || !bytes.Equal(got, code) {
		t.Fatalf("deployed code = %x, %v", got, err)
	}
}
