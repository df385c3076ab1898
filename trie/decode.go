package trie

import (
	"errors"
	"fmt"

	"github.com/sbv-go/sbv/rlp"
)

var errInvalidNode = errors.New("trie: invalid encoded node")

// DecodeNode checks that blob is one well-formed trie node encoding with no
// trailing bytes. Witness ingestion runs every raw node blob through this
// before storing it.
func DecodeNode(blob []byte) error {
	_, err := decodeNode(blob)
	return err
}

// decodeNode decodes an RLP-encoded trie node: a 2-element list (leaf or
// extension) or a 17-element list (branch).
func decodeNode(blob []byte) (node, error) {
	if len(blob) == 0 {
		return nil, errInvalidNode
	}
	elems, err := rlp.SplitList(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidNode, err)
	}
	switch len(elems) {
	case 2:
		return decodeShort(elems)
	case 17:
		return decodeFull(elems)
	default:
		return nil, fmt.Errorf("%w: %d elements, want 2 or 17", errInvalidNode, len(elems))
	}
}

func decodeShort(elems [][]byte) (node, error) {
	compact, err := rlp.SplitString(elems[0])
	if err != nil {
		return nil, fmt.Errorf("%w: key: %v", errInvalidNode, err)
	}
	key := compactToHex(compact)
	if hasTerm(key) {
		// Leaf: the second element is the stored value.
		val, err := rlp.SplitString(elems[1])
		if err != nil {
			return nil, fmt.Errorf("%w: leaf value: %v", errInvalidNode, err)
		}
		return &shortNode{Key: key, Val: valueNode(val)}, nil
	}
	// Extension: the second element references the child.
	child, err := decodeRef(elems[1])
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, fmt.Errorf("%w: extension with empty child", errInvalidNode)
	}
	return &shortNode{Key: key, Val: child}, nil
}

func decodeFull(elems [][]byte) (node, error) {
	n := &fullNode{}
	for i := 0; i < 16; i++ {
		child, err := decodeRef(elems[i])
		if err != nil {
			return nil, err
		}
		n.Children[i] = child
	}
	val, err := rlp.SplitString(elems[16])
	if err != nil {
		return nil, fmt.Errorf("%w: branch value: %v", errInvalidNode, err)
	}
	if len(val) > 0 {
		n.Children[16] = valueNode(val)
	}
	return n, nil
}

// decodeRef decodes a child reference: an empty string is no child, a
// 32-byte string is a hash reference, and a nested list under 32 bytes is
// an inline node.
func decodeRef(raw []byte) (node, error) {
	kind, payload, full, rest, err := rlp.Split(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: child: %v", errInvalidNode, err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: child: %v", errInvalidNode, rlp.ErrTrailingBytes)
	}
	switch {
	case kind == rlp.KindList:
		if len(full) >= 32 {
			return nil, fmt.Errorf("%w: oversized inline child (%d bytes)", errInvalidNode, len(full))
		}
		return decodeNode(full)
	case len(payload) == 0:
		return nil, nil
	case len(payload) == 32:
		return hashNode(payload), nil
	default:
		return nil, fmt.Errorf("%w: child reference of %d bytes", errInvalidNode, len(payload))
	}
}
