package verifier

import (
	"fmt"

	"github.com/sbv-go/sbv/core/types"
)

// RootMismatchError is the terminal outcome of a block whose re-executed
// state root disagrees with the header's claim. It is a verification
// verdict, not a crash: re-running the same witness deterministically
// reproduces it, so it is never retried.
type RootMismatchError struct {
	BlockNumber uint64
	Expected    types.Hash // root claimed by the header
	Computed    types.Hash // root obtained by re-execution
}

func (e *RootMismatchError) Error() string {
	return fmt.Sprintf("verifier: block %d root mismatch: header claims %s, computed %s",
		e.BlockNumber, e.Expected.Hex(), e.Computed.Hex())
}

// EnginePanicError wraps an abnormal termination inside the execution
// engine, caught at the invocation boundary so one malformed witness cannot
// bring down a batch run.
type EnginePanicError struct {
	BlockNumber uint64
	Recovered   interface{}
	Stack       []byte
}

func (e *EnginePanicError) Error() string {
	return fmt.Sprintf("verifier: engine panicked on block %d: %v", e.BlockNumber, e.Recovered)
}
