// Package engine defines the contract between the verifier and an external
// execution engine. The engine re-executes a block's transactions against
// the witness-backed state view and reports receipts plus the resulting
// state diff; it never mutates the state view itself.
package engine

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/sbv-go/sbv/chainspec"
	"github.com/sbv-go/sbv/core/types"
)

// StateReader is the read-only view of partial state an engine executes
// against. All four reads distinguish an incomplete witness (error) from a
// value genuinely absent in state.
type StateReader interface {
	// Account returns the account record for addr, or (nil, nil) when the
	// account provably does not exist.
	Account(addr types.Address) (*types.StateAccount, error)

	// Storage returns the value of slot in addr's storage; a provably
	// empty slot reads as zero.
	Storage(addr types.Address, slot types.Hash) (*uint256.Int, error)

	// Code returns the bytecode with the given hash.
	Code(hash types.Hash) ([]byte, error)

	// BlockHash returns the hash of an ancestor block inside the witness
	// window.
	BlockHash(number uint64) (types.Hash, error)
}

// StateSource is an optional upgrade of StateReader granting access to the
// raw witness material. Engines that rebuild their own state representation
// (rather than reading through the adapter) type-assert for it.
type StateSource interface {
	// PreStateRoot returns the root the partial state was opened at.
	PreStateRoot() types.Hash

	// RangeNodes enumerates the raw trie node blobs keyed by keccak hash.
	RangeNodes(fn func(hash types.Hash, blob []byte) bool)

	// RangeCodes enumerates contract bytecodes keyed by keccak hash.
	RangeCodes(fn func(hash types.Hash, code []byte) bool)

	// AncestorHash returns the hash of block number if the witness
	// supplied it.
	AncestorHash(number uint64) (types.Hash, bool)
}

// ExecutionContext carries everything one block execution needs.
type ExecutionContext struct {
	Config       *chainspec.Config
	Header       *types.Header
	Transactions []*types.Transaction
	Withdrawals  []*types.Withdrawal
	State        StateReader

	// PostTx, when set, is invoked synchronously after each transaction.
	PostTx func(index int, receipt *Receipt)
}

// Receipt is the per-transaction execution summary.
type Receipt struct {
	TxHash            types.Hash
	Status            uint64
	GasUsed           uint64
	CumulativeGasUsed uint64
}

// Receipt statuses.
const (
	ReceiptStatusFailed     = uint64(0)
	ReceiptStatusSuccessful = uint64(1)
)

// AccountDiff describes the post-execution shape of one touched account.
type AccountDiff struct {
	Nonce    uint64
	Balance  *uint256.Int
	CodeHash types.Hash
	// Code is set when the account's bytecode changed (contract creation).
	Code []byte
	// Storage maps touched slots to their post-values; a zero value means
	// the slot was cleared.
	Storage map[types.Hash]*uint256.Int
	// Deleted marks the whole account for removal.
	Deleted bool
}

// StateDiff collects the per-account outcomes of one block.
type StateDiff map[types.Address]*AccountDiff

// BlockResult is what an engine returns for a fully executed block.
type BlockResult struct {
	GasUsed  uint64
	Receipts []*Receipt
	Diff     StateDiff
}

// TxError attributes an execution failure to one transaction.
type TxError struct {
	Index int
	Hash  types.Hash
	Err   error
}

func (e *TxError) Error() string {
	return fmt.Sprintf("engine: transaction %d (%s): %v", e.Index, e.Hash.Hex(), e.Err)
}

func (e *TxError) Unwrap() error { return e.Err }

// Engine executes one block against a state view.
type Engine interface {
	ExecuteBlock(ec *ExecutionContext) (*BlockResult, error)
}
