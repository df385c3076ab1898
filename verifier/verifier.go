// Package verifier orchestrates stateless block verification: ingest a
// witness, reconstruct partial state, re-execute through an execution
// engine, apply the resulting diff and compare the recomputed root against
// the header's claim.
package verifier

import (
	"fmt"
	"runtime/debug"

	"github.com/sbv-go/sbv/chainspec"
	"github.com/sbv-go/sbv/core/types"
	"github.com/sbv-go/sbv/engine"
	"github.com/sbv-go/sbv/log"
	"github.com/sbv-go/sbv/metrics"
	"github.com/sbv-go/sbv/state"
	"github.com/sbv-go/sbv/witness"
)

// Result is the outcome of a successfully verified block or chunk. For a
// chunk, BlockNumber and BlockHash identify the last member.
type Result struct {
	BlockNumber   uint64
	BlockHash     types.Hash
	GasUsed       uint64
	PostStateRoot types.Hash
	Receipts      []*engine.Receipt
}

// Verifier runs witnesses through an execution engine against a shared,
// immutable chain configuration provider. A Verifier is safe for concurrent
// use: per-run state lives in the run, not the Verifier.
type Verifier struct {
	provider *chainspec.Provider
	engine   engine.Engine
	hooks    []Hooks
	logger   *log.Logger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithHooks registers run observers, invoked in registration order.
func WithHooks(h Hooks) Option {
	return func(v *Verifier) { v.hooks = append(v.hooks, h) }
}

// WithLogger overrides the default logger.
func WithLogger(l *log.Logger) Option {
	return func(v *Verifier) { v.logger = l }
}

// New creates a Verifier over the given provider and engine.
func New(provider *chainspec.Provider, eng engine.Engine, opts ...Option) *Verifier {
	v := &Verifier{
		provider: provider,
		engine:   eng,
		logger:   log.Default().Module("verifier"),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// VerifyBlock verifies one witness end to end and returns the computed
// post-root and gas used, or the typed error that stopped it.
func (v *Verifier) VerifyBlock(w *witness.BlockWitness) (*Result, error) {
	timer := metrics.NewTimer(metrics.BlockTime)
	res, err := v.verifyBlock(w)
	timer.Stop()
	if err != nil {
		metrics.BlocksFailed.Inc()
		return nil, err
	}
	metrics.BlocksVerified.Inc()
	metrics.GasUsed.Add(int64(res.GasUsed))
	metrics.TransactionsExecuted.Add(int64(len(w.Transactions)))
	return res, nil
}

func (v *Verifier) verifyBlock(w *witness.BlockWitness) (*Result, error) {
	hooks := merge(v.hooks)
	hooks.PreBlock(w)

	logger := v.logger.With("block", w.Number(), "chain", w.ChainID)
	logger.Debug("opening witness state",
		"nodes", len(w.States), "codes", len(w.Codes), "txs", len(w.Transactions))

	db, err := state.FromWitness(w)
	if err != nil {
		return nil, err
	}
	cfg, err := v.provider.ConfigFor(w.ChainID, w.Header.Number, w.Header.Timestamp)
	if err != nil {
		return nil, err
	}

	// The engine receives its own header copy; the witness header stays
	// pristine for the final root comparison.
	ec := &engine.ExecutionContext{
		Config:       cfg,
		Header:       w.Header.Copy(),
		Transactions: w.Transactions,
		Withdrawals:  w.Withdrawals,
		State:        db,
		PostTx:       hooks.PostTx,
	}
	blockResult, err := v.execute(w.Number(), ec)
	if err != nil {
		return nil, err
	}

	if err := db.ApplyDiff(blockResult.Diff); err != nil {
		return nil, err
	}
	computed := db.CommitRoot()
	if computed != w.Header.StateRoot {
		return nil, &RootMismatchError{
			BlockNumber: w.Number(),
			Expected:    w.Header.StateRoot,
			Computed:    computed,
		}
	}

	res := &Result{
		BlockNumber:   w.Number(),
		BlockHash:     w.Header.Hash(),
		GasUsed:       blockResult.GasUsed,
		PostStateRoot: computed,
		Receipts:      blockResult.Receipts,
	}
	logger.Info("block verified", "hash", res.BlockHash.Hex(), "gas", res.GasUsed, "root", computed.Hex())
	hooks.PostBlock(w, res)
	return res, nil
}

// execute invokes the engine under a failure boundary: a panic inside the
// engine becomes EnginePanicError instead of taking down the batch.
func (v *Verifier) execute(number uint64, ec *engine.ExecutionContext) (result *engine.BlockResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &EnginePanicError{
				BlockNumber: number,
				Recovered:   r,
				Stack:       debug.Stack(),
			}
		}
	}()
	result, err = v.engine.ExecuteBlock(ec)
	if err != nil {
		return nil, fmt.Errorf("verifier: block %d: %w", number, err)
	}
	if result == nil {
		return nil, fmt.Errorf("verifier: block %d: engine returned no result", number)
	}
	return result, nil
}

// VerifyChunk verifies an ordered run of witnesses. Structural invariants
// (non-empty, one chain id, consecutive numbers, chaining roots) are
// checked before any execution; members then verify in order,
// short-circuiting on the first failure. The result aggregates gas and
// carries the final root.
func (v *Verifier) VerifyChunk(ws []*witness.BlockWitness) (*Result, error) {
	info, err := witness.CheckChunk(ws)
	if err != nil {
		return nil, err
	}

	var (
		gas      uint64
		receipts []*engine.Receipt
		root     types.Hash
		last     types.Hash
	)
	for _, w := range ws {
		res, err := v.VerifyBlock(w)
		if err != nil {
			return nil, err
		}
		gas += res.GasUsed
		receipts = append(receipts, res.Receipts...)
		root = res.PostStateRoot
		last = res.BlockHash
	}

	metrics.ChunksVerified.Inc()
	v.logger.Info("chunk verified",
		"chain", info.ChainID, "from", info.StartBlock, "to", info.EndBlock, "gas", gas)
	return &Result{
		BlockNumber:   info.EndBlock,
		BlockHash:     last,
		GasUsed:       gas,
		PostStateRoot: root,
		Receipts:      receipts,
	}, nil
}
