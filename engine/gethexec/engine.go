// Package gethexec executes blocks with go-ethereum's EVM and state
// transition engine over the witness-backed state view. It is the only
// package that imports go-ethereum directly; everything it learns about
// the run comes back as a state diff, never as mutations of the view.
package gethexec

import (
	"errors"
	"fmt"
	"math/big"

	gethcommon "github.com/ethereum/go-ethereum/common"
	gethcore "github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/rawdb"
	gethstate "github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/tracing"
	gethvm "github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/params"
	gethtrie "github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/triedb"
	"github.com/holiman/uint256"

	"github.com/sbv-go/sbv/core/types"
	"github.com/sbv-go/sbv/engine"
	"github.com/sbv-go/sbv/log"
	"github.com/sbv-go/sbv/state"
)

// ancestorWindow is how far back BLOCKHASH may reach.
const ancestorWindow = 256

// Engine re-executes blocks with go-ethereum. It is stateless between
// calls; every execution rebuilds its database from the witness material
// of the state view it is handed.
type Engine struct {
	logger *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for execution traces.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New returns a go-ethereum backed execution engine.
func New(opts ...Option) *Engine {
	e := &Engine{logger: log.Default().Module("gethexec")}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecuteBlock runs every transaction of the block, applies withdrawals,
// and reports receipts plus the resulting state diff. The state view must
// expose its raw witness material; the view's own tries are never written.
func (e *Engine) ExecuteBlock(ec *engine.ExecutionContext) (*engine.BlockResult, error) {
	src, ok := ec.State.(engine.StateSource)
	if !ok {
		return nil, errors.New("gethexec: state view does not expose raw witness material")
	}
	header := ec.Header
	chainCfg := toGethConfig(ec.Config)
	number := new(big.Int).SetUint64(header.Number)
	isEIP158 := chainCfg.IsEIP158(number)

	statedb, err := openState(src)
	if err != nil {
		return nil, err
	}

	tr := newDiffTracker()
	hooked := gethstate.NewHookedState(statedb, tr.hooks())

	window := &hashWindow{src: src, number: header.Number}
	blockCtx := blockContext(header, window.get)

	// EIP-4788: expose the parent beacon root before the first transaction.
	if chainCfg.IsCancun(number, header.Timestamp) && header.ParentBeaconRoot != nil {
		evm := gethvm.NewEVM(blockCtx, hooked, chainCfg, gethvm.Config{})
		gethcore.ProcessBeaconBlockRoot(toGethHash(*header.ParentBeaconRoot), evm)
		statedb.Finalise(isEIP158)
	}

	e.logger.Debug("executing block",
		"number", header.Number, "txs", len(ec.Transactions), "gas_limit", header.GasLimit)

	gasPool := new(gethcore.GasPool).AddGas(header.GasLimit)

	var (
		receipts   []*engine.Receipt
		cumulative uint64
	)
	for i, tx := range ec.Transactions {
		msg, err := messageFromTx(ec.Config.ChainID, tx, header.BaseFee)
		if err != nil {
			return nil, &engine.TxError{Index: i, Hash: tx.Hash(), Err: err}
		}
		statedb.SetTxContext(toGethHash(tx.Hash()), i)

		evm := gethvm.NewEVM(blockCtx, hooked, chainCfg, gethvm.Config{})
		result, err := gethcore.ApplyMessage(evm, msg, gasPool)
		if err != nil {
			if mapped := stateReadErr(statedb.Error()); mapped != nil {
				return nil, mapped
			}
			return nil, &engine.TxError{Index: i, Hash: tx.Hash(), Err: err}
		}
		if err := window.err(); err != nil {
			return nil, err
		}
		if err := stateReadErr(statedb.Error()); err != nil {
			return nil, err
		}
		statedb.Finalise(isEIP158)

		status := engine.ReceiptStatusSuccessful
		if result.Failed() {
			status = engine.ReceiptStatusFailed
		}
		cumulative += result.UsedGas
		receipt := &engine.Receipt{
			TxHash:            tx.Hash(),
			Status:            status,
			GasUsed:           result.UsedGas,
			CumulativeGasUsed: cumulative,
		}
		receipts = append(receipts, receipt)
		if ec.PostTx != nil {
			ec.PostTx(i, receipt)
		}
	}

	// EIP-4895: withdrawals apply after all transactions.
	if len(ec.Withdrawals) > 0 {
		if !chainCfg.IsShanghai(number, header.Timestamp) {
			return nil, fmt.Errorf("gethexec: block %d carries withdrawals before shanghai", header.Number)
		}
		for _, w := range ec.Withdrawals {
			amount := new(uint256.Int).Mul(uint256.NewInt(w.Amount), uint256.NewInt(params.GWei))
			addr := toGethAddress(w.Address)
			tr.touch(addr)
			hooked.AddBalance(addr, amount, tracing.BalanceChangeUnspecified)
		}
	}

	statedb.Finalise(isEIP158)
	if err := stateReadErr(statedb.Error()); err != nil {
		return nil, err
	}

	diff, err := tr.diff(ec.State, statedb)
	if err != nil {
		return nil, err
	}
	if err := stateReadErr(statedb.Error()); err != nil {
		return nil, err
	}

	e.logger.Debug("executed block",
		"number", header.Number, "gas_used", cumulative, "touched", len(diff))

	return &engine.BlockResult{
		GasUsed:  cumulative,
		Receipts: receipts,
		Diff:     diff,
	}, nil
}

// openState loads the witness material into a fresh in-memory hash
// database and opens a StateDB at the pre-state root.
func openState(src engine.StateSource) (*gethstate.StateDB, error) {
	memdb := rawdb.NewMemoryDatabase()
	src.RangeNodes(func(hash types.Hash, blob []byte) bool {
		rawdb.WriteLegacyTrieNode(memdb, toGethHash(hash), blob)
		return true
	})
	src.RangeCodes(func(hash types.Hash, code []byte) bool {
		rawdb.WriteCode(memdb, toGethHash(hash), code)
		return true
	})
	db := gethstate.NewDatabase(triedb.NewDatabase(memdb, triedb.HashDefaults), nil)
	statedb, err := gethstate.New(toGethHash(src.PreStateRoot()), db)
	if err != nil {
		return nil, stateReadErr(err)
	}
	return statedb, nil
}

// blockContext builds the EVM block context from a header.
func blockContext(header *types.Header, getHash func(uint64) gethcommon.Hash) gethvm.BlockContext {
	var (
		baseFee     *big.Int
		blobBaseFee *big.Int
		random      *gethcommon.Hash
	)
	if header.BaseFee != nil {
		baseFee = new(big.Int).Set(header.BaseFee)
	}
	if header.ExcessBlobGas != nil {
		blobBaseFee = calcBlobFee(*header.ExcessBlobGas)
	}
	difficulty := new(big.Int)
	if header.Difficulty != nil {
		difficulty.Set(header.Difficulty)
	}
	if difficulty.Sign() == 0 {
		mix := toGethHash(header.MixDigest)
		random = &mix
	}
	return gethvm.BlockContext{
		CanTransfer: gethcore.CanTransfer,
		Transfer:    gethcore.Transfer,
		GetHash:     getHash,
		Coinbase:    toGethAddress(header.Coinbase),
		BlockNumber: new(big.Int).SetUint64(header.Number),
		Time:        header.Timestamp,
		Difficulty:  difficulty,
		BaseFee:     baseFee,
		BlobBaseFee: blobBaseFee,
		GasLimit:    header.GasLimit,
		Random:      random,
	}
}

// hashWindow answers BLOCKHASH from the witness's ancestor hashes and
// records lookups the witness should have covered but did not. A lookup
// past the window legitimately reads as zero.
type hashWindow struct {
	src     engine.StateSource
	number  uint64
	missing []uint64
}

func (w *hashWindow) get(n uint64) gethcommon.Hash {
	if h, ok := w.src.AncestorHash(n); ok {
		return toGethHash(h)
	}
	if n < w.number && w.number-n <= ancestorWindow {
		w.missing = append(w.missing, n)
	}
	return gethcommon.Hash{}
}

func (w *hashWindow) err() error {
	if len(w.missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: hash of block %d", state.ErrIncompleteWitness, w.missing[0])
}

// diffTracker records which accounts and slots execution wrote to, via
// the tracing hooks of a hooked StateDB.
type diffTracker struct {
	accounts map[gethcommon.Address]struct{}
	slots    map[gethcommon.Address]map[gethcommon.Hash]struct{}
}

func newDiffTracker() *diffTracker {
	return &diffTracker{
		accounts: make(map[gethcommon.Address]struct{}),
		slots:    make(map[gethcommon.Address]map[gethcommon.Hash]struct{}),
	}
}

func (t *diffTracker) touch(addr gethcommon.Address) {
	t.accounts[addr] = struct{}{}
}

func (t *diffTracker) touchSlot(addr gethcommon.Address, slot gethcommon.Hash) {
	t.touch(addr)
	if t.slots[addr] == nil {
		t.slots[addr] = make(map[gethcommon.Hash]struct{})
	}
	t.slots[addr][slot] = struct{}{}
}

func (t *diffTracker) hooks() *tracing.Hooks {
	return &tracing.Hooks{
		OnBalanceChange: func(addr gethcommon.Address, prev, new *big.Int, reason tracing.BalanceChangeReason) {
			t.touch(addr)
		},
		OnNonceChange: func(addr gethcommon.Address, prev, new uint64) {
			t.touch(addr)
		},
		OnCodeChange: func(addr gethcommon.Address, prevCodeHash gethcommon.Hash, prevCode []byte, codeHash gethcommon.Hash, code []byte) {
			t.touch(addr)
		},
		OnStorageChange: func(addr gethcommon.Address, slot gethcommon.Hash, prev, new gethcommon.Hash) {
			t.touchSlot(addr, slot)
		},
	}
}

// diff compares every touched account's final shape against the pre-state
// view and emits the per-account outcome. Accounts that ended where they
// started (touched but reverted, or created empty and swept) drop out.
func (t *diffTracker) diff(pre engine.StateReader, statedb *gethstate.StateDB) (engine.StateDiff, error) {
	diff := make(engine.StateDiff)
	for gaddr := range t.accounts {
		addr := fromGethAddress(gaddr)
		preAcct, err := pre.Account(addr)
		if err != nil {
			return nil, err
		}
		if !statedb.Exist(gaddr) {
			if preAcct != nil {
				diff[addr] = &engine.AccountDiff{Deleted: true}
			}
			continue
		}
		d := &engine.AccountDiff{
			Nonce:   statedb.GetNonce(gaddr),
			Balance: statedb.GetBalance(gaddr).Clone(),
		}
		preCodeHash := types.EmptyCodeHash
		if preAcct != nil {
			preCodeHash = preAcct.CodeHash
		}
		codeHash := fromGethHash(statedb.GetCodeHash(gaddr))
		if !codeHash.IsZero() && codeHash != preCodeHash {
			d.CodeHash = codeHash
			d.Code = statedb.GetCode(gaddr)
		}
		for slot := range t.slots[gaddr] {
			if d.Storage == nil {
				d.Storage = make(map[types.Hash]*uint256.Int)
			}
			value := statedb.GetState(gaddr, slot)
			d.Storage[fromGethHash(slot)] = new(uint256.Int).SetBytes(value[:])
		}
		diff[addr] = d
	}
	return diff, nil
}

// stateReadErr maps a StateDB database error onto the verifier's witness
// error chain. The backing database holds exactly the witness nodes, so
// a missing trie node means the witness did not reveal it.
func stateReadErr(err error) error {
	if err == nil {
		return nil
	}
	var missing *gethtrie.MissingNodeError
	if errors.As(err, &missing) {
		return fmt.Errorf("%w: %v", state.ErrIncompleteWitness, err)
	}
	return fmt.Errorf("gethexec: state access: %w", err)
}

// calcBlobFee computes the blob base fee from excess blob gas (EIP-4844).
func calcBlobFee(excessBlobGas uint64) *big.Int {
	if excessBlobGas == 0 {
		return big.NewInt(1)
	}
	return fakeExponential(big.NewInt(1), new(big.Int).SetUint64(excessBlobGas), big.NewInt(3338477))
}

// fakeExponential approximates factor * e^(numerator/denominator) by
// Taylor expansion.
func fakeExponential(factor, numerator, denominator *big.Int) *big.Int {
	i := big.NewInt(1)
	output := new(big.Int)
	accum := new(big.Int).Mul(factor, denominator)
	for accum.Sign() > 0 {
		output.Add(output, accum)
		accum.Mul(accum, numerator)
		accum.Div(accum, new(big.Int).Mul(denominator, i))
		i.Add(i, big.NewInt(1))
	}
	return output.Div(output, denominator)
}
