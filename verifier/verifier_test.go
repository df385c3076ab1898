package verifier

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"github.com/sbv-go/sbv/chainspec"
	"github.com/sbv-go/sbv/core/types"
	"github.com/sbv-go/sbv/crypto"
	"github.com/sbv-go/sbv/engine"
	"github.com/sbv-go/sbv/kv"
	"github.com/sbv-go/sbv/state"
	"github.com/sbv-go/sbv/trie"
	"github.com/sbv-go/sbv/witness"
)

var (
	addrA = types.BytesToAddress([]byte{0xaa})
	addrB = types.BytesToAddress([]byte{0xbb})
)

// fakeEngine runs a caller-supplied function, or returns a fixed diff with
// one 21000-gas receipt per transaction.
type fakeEngine struct {
	run   func(ec *engine.ExecutionContext) (*engine.BlockResult, error)
	diff  engine.StateDiff
	calls int
}

func (e *fakeEngine) ExecuteBlock(ec *engine.ExecutionContext) (*engine.BlockResult, error) {
	e.calls++
	if e.run != nil {
		return e.run(ec)
	}
	res := &engine.BlockResult{Diff: e.diff}
	if res.Diff == nil {
		res.Diff = engine.StateDiff{}
	}
	for i, tx := range ec.Transactions {
		res.GasUsed += 21000
		rcpt := &engine.Receipt{
			TxHash:            tx.Hash(),
			Status:            engine.ReceiptStatusSuccessful,
			GasUsed:           21000,
			CumulativeGasUsed: res.GasUsed,
		}
		res.Receipts = append(res.Receipts, rcpt)
		if ec.PostTx != nil {
			ec.PostTx(i, rcpt)
		}
	}
	return res, nil
}

func account(nonce, balance uint64) *types.StateAccount {
	acct := types.NewEmptyStateAccount()
	acct.Nonce = nonce
	acct.Balance = uint256.NewInt(balance)
	return acct
}

// buildAccounts returns the root and witness node blobs of a state holding
// the given accounts.
func buildAccounts(t *testing.T, accounts map[types.Address]*types.StateAccount) (types.Hash, []types.Bytes) {
	t.Helper()
	tr, err := trie.FromNodes(types.EmptyRootHash, kv.NewHashedStore())
	if err != nil {
		t.Fatalf("open trie: %v", err)
	}
	for addr, acct := range accounts {
		leaf, err := acct.EncodeRLP()
		if err != nil {
			t.Fatalf("encode account: %v", err)
		}
		if err := tr.Update(crypto.Keccak256(addr[:]), leaf); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	var blobs []types.Bytes
	for _, blob := range tr.Nodes() {
		blobs = append(blobs, blob)
	}
	return tr.Hash(), blobs
}

func transferTx(nonce uint64, to types.Address, value uint64) *types.Transaction {
	return &types.Transaction{
		Type:     types.LegacyTxType,
		Nonce:    nonce,
		GasPrice: nil,
		Gas:      21000,
		To:       &to,
		Value:    uint256.NewInt(value).ToBig(),
	}
}

func transferWitness(t *testing.T) (*witness.BlockWitness, engine.StateDiff) {
	t.Helper()
	preRoot, blobs := buildAccounts(t, map[types.Address]*types.StateAccount{
		addrA: account(0, 1000),
		addrB: account(0, 500),
	})
	postRoot, _ := buildAccounts(t, map[types.Address]*types.StateAccount{
		addrA: account(1, 900),
		addrB: account(0, 600),
	})
	diff := engine.StateDiff{
		addrA: {Nonce: 1, Balance: uint256.NewInt(900)},
		addrB: {Nonce: 0, Balance: uint256.NewInt(600)},
	}
	w := &witness.BlockWitness{
		ChainID: chainspec.DevChainID,
		Header: &types.Header{
			Number:    100,
			StateRoot: postRoot,
		},
		PreStateRoot: preRoot,
		Transactions: []*types.Transaction{transferTx(0, addrB, 100)},
		States:       blobs,
	}
	return w, diff
}

func TestVerifyBlockTransfer(t *testing.T) {
	w, diff := transferWitness(t)
	eng := &fakeEngine{diff: diff}
	v := New(chainspec.NewProvider(), eng)

	res, err := v.VerifyBlock(w)
	if err != nil {
		t.Fatalf("VerifyBlock: %v", err)
	}
	if res.GasUsed != 21000 {
		t.Fatalf("gas = %d, want 21000", res.GasUsed)
	}
	if res.PostStateRoot != w.Header.StateRoot {
		t.Fatalf("root = %s, want %s", res.PostStateRoot.Hex(), w.Header.StateRoot.Hex())
	}
	if len(res.Receipts) != 1 || res.Receipts[0].Status != engine.ReceiptStatusSuccessful {
		t.Fatalf("receipts = %+v", res.Receipts)
	}
	if res.BlockHash != w.Header.Hash() {
		t.Fatalf("block hash = %s, want %s", res.BlockHash.Hex(), w.Header.Hash().Hex())
	}
}

func TestVerifyBlockEngineCannotMutateHeader(t *testing.T) {
	w, diff := transferWitness(t)
	want := w.Header.StateRoot
	eng := &fakeEngine{run: func(ec *engine.ExecutionContext) (*engine.BlockResult, error) {
		ec.Header.StateRoot = crypto.Keccak256Hash([]byte("scribbled by the engine"))
		ec.Header.GasUsed = 1
		res := &engine.BlockResult{Diff: diff}
		return res, nil
	}}
	v := New(chainspec.NewProvider(), eng)

	res, err := v.VerifyBlock(w)
	if err != nil {
		t.Fatalf("VerifyBlock: %v", err)
	}
	if w.Header.StateRoot != want || w.Header.GasUsed != 0 {
		t.Fatalf("witness header mutated: %+v", w.Header)
	}
	if res.PostStateRoot != want {
		t.Fatalf("root = %s, want %s", res.PostStateRoot.Hex(), want.Hex())
	}
}

func TestVerifyBlockRootMismatch(t *testing.T) {
	w, diff := transferWitness(t)
	w.Header.StateRoot = crypto.Keccak256Hash([]byte("a root the execution disagrees with"))
	v := New(chainspec.NewProvider(), &fakeEngine{diff: diff})

	_, err := v.VerifyBlock(w)
	var mismatch *RootMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("err = %v, want RootMismatchError", err)
	}
	if mismatch.Expected != w.Header.StateRoot {
		t.Fatalf("Expected = %s", mismatch.Expected.Hex())
	}
	if mismatch.Computed.IsZero() || mismatch.Computed == mismatch.Expected {
		t.Fatalf("Computed = %s", mismatch.Computed.Hex())
	}
}

func TestVerifyBlockIncompleteWitness(t *testing.T) {
	w, _ := transferWitness(t)
	// Withhold every state blob: the account trie root is unrevealed and
	// the engine's first read must surface an incomplete witness.
	w.States = nil

	eng := &fakeEngine{run: func(ec *engine.ExecutionContext) (*engine.BlockResult, error) {
		if _, err := ec.State.Account(addrA); err != nil {
			return nil, err
		}
		return &engine.BlockResult{Diff: engine.StateDiff{}}, nil
	}}
	v := New(chainspec.NewProvider(), eng)

	_, err := v.VerifyBlock(w)
	if !errors.Is(err, state.ErrIncompleteWitness) {
		t.Fatalf("err = %v, want ErrIncompleteWitness", err)
	}
}

func TestVerifyBlockEnginePanic(t *testing.T) {
	w, _ := transferWitness(t)
	eng := &fakeEngine{run: func(*engine.ExecutionContext) (*engine.BlockResult, error) {
		panic("malformed input deep inside the engine")
	}}
	v := New(chainspec.NewProvider(), eng)

	_, err := v.VerifyBlock(w)
	var panicked *EnginePanicError
	if !errors.As(err, &panicked) {
		t.Fatalf("err = %v, want EnginePanicError", err)
	}
	if panicked.BlockNumber != w.Number() || len(panicked.Stack) == 0 {
		t.Fatalf("panic error incomplete: %+v", panicked)
	}
}

func TestVerifyBlockWrapsEngineError(t *testing.T) {
	w, _ := transferWitness(t)
	txErr := &engine.TxError{Index: 0, Hash: w.Transactions[0].Hash(), Err: errors.New("nonce too low")}
	eng := &fakeEngine{run: func(*engine.ExecutionContext) (*engine.BlockResult, error) {
		return nil, txErr
	}}
	v := New(chainspec.NewProvider(), eng)

	_, err := v.VerifyBlock(w)
	var gotTx *engine.TxError
	if !errors.As(err, &gotTx) {
		t.Fatalf("err = %v, want wrapped TxError", err)
	}
	if gotTx.Hash != w.Transactions[0].Hash() {
		t.Fatalf("error attributes wrong transaction: %s", gotTx.Hash.Hex())
	}
}

func TestVerifyBlockDeterministic(t *testing.T) {
	w, diff := transferWitness(t)
	v := New(chainspec.NewProvider(), &fakeEngine{diff: diff})

	first, err := v.VerifyBlock(w)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := v.VerifyBlock(w)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if first.PostStateRoot != second.PostStateRoot || first.GasUsed != second.GasUsed {
		t.Fatalf("runs differ: %+v vs %+v", first, second)
	}
}

func TestHooksFire(t *testing.T) {
	w, diff := transferWitness(t)
	var pre, post, txs int
	v := New(chainspec.NewProvider(), &fakeEngine{diff: diff}, WithHooks(Hooks{
		PreBlock:  func(*witness.BlockWitness) { pre++ },
		PostTx:    func(int, *engine.Receipt) { txs++ },
		PostBlock: func(*witness.BlockWitness, *Result) { post++ },
	}))
	if _, err := v.VerifyBlock(w); err != nil {
		t.Fatalf("VerifyBlock: %v", err)
	}
	if pre != 1 || txs != 1 || post != 1 {
		t.Fatalf("hook counts pre=%d txs=%d post=%d", pre, txs, post)
	}
}

func chunkOf(t *testing.T, n int) []*witness.BlockWitness {
	t.Helper()
	root, blobs := buildAccounts(t, map[types.Address]*types.StateAccount{
		addrA: account(0, 1000),
	})
	ws := make([]*witness.BlockWitness, n)
	for i := range ws {
		// Empty blocks: the post root equals the pre root.
		ws[i] = &witness.BlockWitness{
			ChainID: chainspec.DevChainID,
			Header: &types.Header{
				Number:    uint64(200 + i),
				StateRoot: root,
			},
			PreStateRoot: root,
			States:       blobs,
		}
	}
	return ws
}

func TestVerifyChunk(t *testing.T) {
	ws := chunkOf(t, 3)
	eng := &fakeEngine{}
	v := New(chainspec.NewProvider(), eng)

	res, err := v.VerifyChunk(ws)
	if err != nil {
		t.Fatalf("VerifyChunk: %v", err)
	}
	if eng.calls != 3 {
		t.Fatalf("engine ran %d times, want 3", eng.calls)
	}
	if res.BlockNumber != 202 || res.PostStateRoot != ws[2].Header.StateRoot {
		t.Fatalf("result = %+v", res)
	}
}

func TestVerifyChunkRootChainBreakStopsBeforeExecution(t *testing.T) {
	ws := chunkOf(t, 2)
	ws[1].PreStateRoot = crypto.Keccak256Hash([]byte("broken chain"))
	eng := &fakeEngine{}
	v := New(chainspec.NewProvider(), eng)

	_, err := v.VerifyChunk(ws)
	if !errors.Is(err, witness.ErrNonSequentialRoots) {
		t.Fatalf("err = %v, want ErrNonSequentialRoots", err)
	}
	if eng.calls != 0 {
		t.Fatalf("engine ran %d times before the structural check failed", eng.calls)
	}
}

func TestVerifyChunkNonSequentialNumbers(t *testing.T) {
	ws := chunkOf(t, 2)
	ws[1].Header.Number = 999
	eng := &fakeEngine{}
	v := New(chainspec.NewProvider(), eng)

	if _, err := v.VerifyChunk(ws); !errors.Is(err, witness.ErrNonSequentialBlocks) {
		t.Fatalf("err = %v, want ErrNonSequentialBlocks", err)
	}
	if eng.calls != 0 {
		t.Fatalf("engine ran before the structural check failed")
	}
}

func TestVerifyChunkEmpty(t *testing.T) {
	v := New(chainspec.NewProvider(), &fakeEngine{})
	if _, err := v.VerifyChunk(nil); !errors.Is(err, witness.ErrEmptyChunk) {
		t.Fatalf("err = %v, want ErrEmptyChunk", err)
	}
}
