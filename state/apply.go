package state

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/holiman/uint256"

	"github.com/sbv-go/sbv/core/types"
	"github.com/sbv-go/sbv/crypto"
	"github.com/sbv-go/sbv/engine"
	"github.com/sbv-go/sbv/rlp"
	"github.com/sbv-go/sbv/trie"
)

// ApplyDiff writes an engine's per-account outcomes into the tries.
// Accounts apply in address order so repeated runs touch the tries
// identically. A diff touching an unrevealed path fails with
// ErrIncompleteWitness and leaves no guarantee about partial application;
// the adapter is discarded on any error.
func (db *WitnessDB) ApplyDiff(diff engine.StateDiff) error {
	addrs := make([]types.Address, 0, len(diff))
	for addr := range diff {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
	})
	for _, addr := range addrs {
		if err := db.applyAccount(addr, diff[addr]); err != nil {
			return err
		}
	}
	return nil
}

func (db *WitnessDB) applyAccount(addr types.Address, d *engine.AccountDiff) error {
	path := crypto.Keccak256(addr[:])

	if d.Deleted {
		if err := db.accounts.Delete(path); err != nil {
			return wrapMissing(err, "delete account %s", addr.Hex())
		}
		db.cache[addr] = nil
		delete(db.storage, addr)
		return nil
	}

	acct, err := db.Account(addr)
	if err != nil {
		return err
	}
	if acct == nil {
		acct = types.NewEmptyStateAccount()
	} else {
		acct = acct.Copy()
	}

	if len(d.Storage) > 0 {
		root, err := db.applyStorage(addr, acct, d.Storage)
		if err != nil {
			return err
		}
		acct.Root = root
	}

	acct.Nonce = d.Nonce
	if d.Balance != nil {
		acct.Balance = d.Balance.Clone()
	}
	if !d.CodeHash.IsZero() {
		acct.CodeHash = d.CodeHash
		if len(d.Code) > 0 {
			// New bytecode stays readable through this store after apply.
			code := d.Code
			db.codes.PutIfAbsent(d.CodeHash[:], func() []byte { return code })
		}
	}

	leaf, err := acct.EncodeRLP()
	if err != nil {
		return fmt.Errorf("state: encode account %s: %w", addr.Hex(), err)
	}
	if err := db.accounts.Update(path, leaf); err != nil {
		return wrapMissing(err, "update account %s", addr.Hex())
	}
	db.cache[addr] = acct
	return nil
}

// applyStorage writes the touched slots of one account in slot order and
// returns the new storage root.
func (db *WitnessDB) applyStorage(addr types.Address, acct *types.StateAccount, writes map[types.Hash]*uint256.Int) (types.Hash, error) {
	st, err := db.storageTrie(addr)
	if err != nil {
		return types.Hash{}, err
	}
	if st == nil {
		// Account created this block: its storage starts empty.
		st, err = trie.FromNodes(types.EmptyRootHash, db.nodes)
		if err != nil {
			return types.Hash{}, err
		}
		db.storage[addr] = st
	}

	slots := make([]types.Hash, 0, len(writes))
	for slot := range writes {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool {
		return bytes.Compare(slots[i][:], slots[j][:]) < 0
	})
	for _, slot := range slots {
		path := crypto.Keccak256(slot[:])
		value := writes[slot]
		if value == nil || value.IsZero() {
			if err := st.Delete(path); err != nil {
				return types.Hash{}, wrapMissing(err, "clear storage %s[%s]", addr.Hex(), slot.Hex())
			}
			continue
		}
		if err := st.Update(path, rlp.AppendString(nil, value.Bytes())); err != nil {
			return types.Hash{}, wrapMissing(err, "write storage %s[%s]", addr.Hex(), slot.Hex())
		}
	}
	return st.Hash(), nil
}

// CommitRoot recomputes and returns the state root after applied diffs.
func (db *WitnessDB) CommitRoot() types.Hash {
	return db.accounts.Hash()
}
