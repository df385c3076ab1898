package verifier

import (
	"github.com/sbv-go/sbv/engine"
	"github.com/sbv-go/sbv/witness"
)

// Hooks observe a verification run. All callbacks are optional, invoked
// synchronously on the verifying goroutine, and must not mutate their
// arguments. Hooks are registered on the Verifier before a run; there is no
// global registry.
type Hooks struct {
	// PreBlock runs before a witness's transactions execute.
	PreBlock func(w *witness.BlockWitness)

	// PostTx runs after each transaction, with its receipt.
	PostTx func(index int, receipt *engine.Receipt)

	// PostBlock runs after a block verified successfully.
	PostBlock func(w *witness.BlockWitness, result *Result)
}

// merge returns a Hooks invoking every registered hook in registration
// order.
func merge(hooks []Hooks) Hooks {
	var out Hooks
	out.PreBlock = func(w *witness.BlockWitness) {
		for _, h := range hooks {
			if h.PreBlock != nil {
				h.PreBlock(w)
			}
		}
	}
	out.PostTx = func(index int, receipt *engine.Receipt) {
		for _, h := range hooks {
			if h.PostTx != nil {
				h.PostTx(index, receipt)
			}
		}
	}
	out.PostBlock = func(w *witness.BlockWitness, result *Result) {
		for _, h := range hooks {
			if h.PostBlock != nil {
				h.PostBlock(w, result)
			}
		}
	}
	return out
}
