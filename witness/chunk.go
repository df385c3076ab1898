package witness

import (
	"errors"
	"fmt"

	"github.com/sbv-go/sbv/core/types"
)

// Chunk invariant errors. All of them are detected before any execution.
var (
	ErrEmptyChunk          = errors.New("witness: empty chunk")
	ErrChainIDMismatch     = errors.New("witness: chunk members disagree on chain id")
	ErrNonSequentialBlocks = errors.New("witness: chunk block numbers are not consecutive")
	ErrNonSequentialRoots  = errors.New("witness: chunk state roots do not chain")
)

// ChunkInfo summarizes an ordered run of witnesses.
type ChunkInfo struct {
	ChainID       uint64
	StartBlock    uint64
	EndBlock      uint64
	PrevStateRoot types.Hash
	PostStateRoot types.Hash
}

// CheckChunk validates the structural invariants of an ordered run of
// witnesses: at least one member, one chain id, consecutive block numbers,
// and every member's claimed post-root matching its successor's pre-root.
func CheckChunk(ws []*BlockWitness) (*ChunkInfo, error) {
	if len(ws) == 0 {
		return nil, ErrEmptyChunk
	}
	if err := SameChainID(ws); err != nil {
		return nil, err
	}
	if err := SequentialNumbers(ws); err != nil {
		return nil, err
	}
	if err := SequentialStateRoots(ws); err != nil {
		return nil, err
	}
	return &ChunkInfo{
		ChainID:       ws[0].ChainID,
		StartBlock:    ws[0].Number(),
		EndBlock:      ws[len(ws)-1].Number(),
		PrevStateRoot: ws[0].PreStateRoot,
		PostStateRoot: ws[len(ws)-1].Header.StateRoot,
	}, nil
}

// SameChainID verifies that every member targets the same chain.
func SameChainID(ws []*BlockWitness) error {
	for i := 1; i < len(ws); i++ {
		if ws[i].ChainID != ws[0].ChainID {
			return fmt.Errorf("%w: member 0 has %d, member %d has %d",
				ErrChainIDMismatch, ws[0].ChainID, i, ws[i].ChainID)
		}
	}
	return nil
}

// SequentialNumbers verifies that block numbers increase by exactly one.
func SequentialNumbers(ws []*BlockWitness) error {
	for i := 1; i < len(ws); i++ {
		if ws[i].Number() != ws[i-1].Number()+1 {
			return fmt.Errorf("%w: block %d follows block %d",
				ErrNonSequentialBlocks, ws[i].Number(), ws[i-1].Number())
		}
	}
	return nil
}

// SequentialStateRoots verifies that each member's claimed post-root is the
// next member's pre-root.
func SequentialStateRoots(ws []*BlockWitness) error {
	for i := 1; i < len(ws); i++ {
		if ws[i].PreStateRoot != ws[i-1].Header.StateRoot {
			return fmt.Errorf("%w: block %d claims post-root %s, block %d starts from %s",
				ErrNonSequentialRoots,
				ws[i-1].Number(), ws[i-1].Header.StateRoot.Hex(),
				ws[i].Number(), ws[i].PreStateRoot.Hex())
		}
	}
	return nil
}
