// Package witness defines the block witness wire model and its ingestion
// into key-value stores. A witness is self-contained: everything a
// verification run reads (trie nodes, contract code, ancestor hashes) comes
// in with it. Ingestion never trusts caller-supplied keys; node and code
// store keys are recomputed keccak hashes of the raw blobs.
package witness

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sbv-go/sbv/core/types"
	"github.com/sbv-go/sbv/crypto"
	"github.com/sbv-go/sbv/kv"
	"github.com/sbv-go/sbv/trie"
)

// BlockWitness carries one block plus the partial state needed to
// re-execute it.
type BlockWitness struct {
	// ChainID identifies the network the block belongs to.
	ChainID uint64 `json:"chain_id"`
	// Header is the full header of the block under verification; its
	// StateRoot is the claimed post-state root.
	Header *types.Header `json:"header"`
	// PreStateRoot is the state root before this block executes.
	PreStateRoot types.Hash `json:"pre_state_root"`
	// Transactions in execution order.
	Transactions []*types.Transaction `json:"transactions"`
	// Withdrawals applied after transaction execution, if any.
	Withdrawals []*types.Withdrawal `json:"withdrawals,omitempty"`
	// BlockHashes are ancestor hashes, most recent first: entry i is the
	// hash of block Header.Number-1-i.
	BlockHashes []types.Hash `json:"block_hashes,omitempty"`
	// States are raw trie node blobs revealing the accessed paths.
	States []types.Bytes `json:"states"`
	// Codes are raw contract bytecodes referenced during execution.
	Codes []types.Bytes `json:"codes,omitempty"`
}

// ReadFile loads a JSON-encoded witness from path.
func ReadFile(path string) (*BlockWitness, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("witness: read %s: %w", path, err)
	}
	w := new(BlockWitness)
	if err := json.Unmarshal(data, w); err != nil {
		return nil, fmt.Errorf("witness: decode %s: %w", path, err)
	}
	if w.Header == nil {
		return nil, fmt.Errorf("witness: %s carries no header", path)
	}
	return w, nil
}

// Number returns the block number of the witnessed block.
func (w *BlockWitness) Number() uint64 {
	return w.Header.Number
}

// ImportNodes validates every state blob as a well-formed trie node and
// stores it keyed by its recomputed keccak hash. A blob that fails to
// decode, or decodes with trailing bytes, aborts the import.
func (w *BlockWitness) ImportNodes(store kv.Store) error {
	for i, blob := range w.States {
		if err := trie.DecodeNode(blob); err != nil {
			return fmt.Errorf("witness: state blob %d: %w", i, err)
		}
		hash := crypto.Keccak256(blob)
		node := blob
		store.PutIfAbsent(hash, func() []byte { return node })
	}
	return nil
}

// ImportCodes stores every code blob keyed by its recomputed keccak hash.
// The hash is computed unconditionally; the copy happens only on first
// insertion.
func (w *BlockWitness) ImportCodes(store kv.Store) {
	for _, blob := range w.Codes {
		hash := crypto.Keccak256(blob)
		code := blob
		store.PutIfAbsent(hash, func() []byte { return code })
	}
}

// ImportBlockHashes stores ancestor hashes keyed by block number: entry i
// belongs to block Header.Number-1-i. A witness listing more ancestors
// than exist below the block is malformed.
func (w *BlockWitness) ImportBlockHashes(store kv.Store) error {
	numbers := kv.NumberKeyed{Store: store}
	for i, hash := range w.BlockHashes {
		depth := uint64(i) + 1
		if w.Header.Number < depth {
			return fmt.Errorf("witness: block %d lists ancestor %d below genesis", w.Header.Number, i)
		}
		numbers.PutNumber(w.Header.Number-depth, hash[:])
	}
	return nil
}
