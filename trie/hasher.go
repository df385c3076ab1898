package trie

import (
	"github.com/sbv-go/sbv/core/types"
	"github.com/sbv-go/sbv/crypto"
	"github.com/sbv-go/sbv/rlp"
)

// encodeNode returns the RLP encoding of a node with all resolved children
// collapsed to their references.
func encodeNode(n node) []byte {
	switch n := n.(type) {
	case *shortNode:
		payload := rlp.AppendString(nil, hexToCompact(n.Key))
		if v, ok := n.Val.(valueNode); ok {
			payload = rlp.AppendString(payload, v)
		} else {
			payload = append(payload, childRef(n.Val)...)
		}
		return rlp.WrapList(payload)
	case *fullNode:
		var payload []byte
		for i := 0; i < 16; i++ {
			if n.Children[i] == nil {
				payload = rlp.AppendString(payload, nil)
				continue
			}
			payload = append(payload, childRef(n.Children[i])...)
		}
		if v, ok := n.Children[16].(valueNode); ok {
			payload = rlp.AppendString(payload, v)
		} else {
			payload = rlp.AppendString(payload, nil)
		}
		return rlp.WrapList(payload)
	case valueNode:
		return rlp.AppendString(nil, n)
	case hashNode:
		return rlp.AppendString(nil, n)
	default:
		panic("trie: unknown node type")
	}
}

// childRef returns the encoding a parent embeds for a child: the child's
// RLP inline when it is under 32 bytes, its keccak hash as a string
// otherwise. Unresolved references pass through unchanged.
func childRef(n node) []byte {
	if hn, ok := n.(hashNode); ok {
		return rlp.AppendString(nil, hn)
	}
	enc := encodeNode(n)
	if len(enc) < 32 {
		return enc
	}
	return rlp.AppendString(nil, crypto.Keccak256(enc))
}

// hashRoot returns the root hash of n; the root is always hashed, even
// when its encoding is under 32 bytes.
func hashRoot(n node) types.Hash {
	if n == nil {
		return types.EmptyRootHash
	}
	if hn, ok := n.(hashNode); ok {
		return types.BytesToHash(hn)
	}
	return crypto.Keccak256Hash(encodeNode(n))
}
