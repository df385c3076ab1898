// Package trie reconstructs partial Merkle Patricia tries from witness node
// blobs. A trie built here covers exactly the paths the witness reveals:
// every other subtree stays behind an unresolved hash reference, and any
// operation that would need such a subtree fails with MissingNodeError
// instead of inventing a default.
package trie

import (
	"fmt"

	"github.com/sbv-go/sbv/core/types"
)

type node interface {
	fstring(indent string) string
}

type (
	// fullNode is a branch: sixteen child slots plus a value slot.
	fullNode struct {
		Children [17]node
	}

	// shortNode is an extension or leaf, depending on whether Key (hex
	// nibbles) carries the terminator.
	shortNode struct {
		Key []byte
		Val node
	}

	// hashNode is a reference to a subtree the witness did not reveal.
	hashNode []byte

	// valueNode is a stored leaf value.
	valueNode []byte
)

func (n *fullNode) fstring(ind string) string {
	s := "["
	for i, c := range n.Children {
		if c == nil {
			continue
		}
		s += fmt.Sprintf("\n%s  %x: %s", ind, i, c.fstring(ind+"  "))
	}
	return s + "\n" + ind + "]"
}

func (n *shortNode) fstring(ind string) string {
	return fmt.Sprintf("{%x: %s}", n.Key, n.Val.fstring(ind+"  "))
}

func (n hashNode) fstring(string) string  { return fmt.Sprintf("<%x>", []byte(n)) }
func (n valueNode) fstring(string) string { return fmt.Sprintf("%x", []byte(n)) }

func (n *fullNode) copy() *fullNode {
	cpy := *n
	return &cpy
}

func (n *shortNode) copy() *shortNode {
	cpy := *n
	return &cpy
}

// MissingNodeError reports an access through a part of the trie the witness
// left unrevealed.
type MissingNodeError struct {
	Hash types.Hash // reference that could not be resolved
	Path []byte     // hex-nibble path from the root to the reference
}

func (e *MissingNodeError) Error() string {
	return fmt.Sprintf("trie: node %s unrevealed at path %x", e.Hash.Hex(), e.Path)
}
