package trie

import (
	"bytes"
	"fmt"

	"github.com/sbv-go/sbv/core/types"
	"github.com/sbv-go/sbv/kv"
)

// PartialTrie is a Merkle Patricia trie reconstructed from the node blobs a
// witness reveals. Subtrees the witness omits stay as hash references;
// reading or writing through one fails with MissingNodeError. A reference
// that was genuinely proven absent by a revealed branch is not an error:
// those reads return no value.
type PartialTrie struct {
	root node
}

// FromNodes opens the trie rooted at root, resolving every reference whose
// blob is present in nodes. Blobs are looked up by their keccak hash.
// A reference with no blob keeps the subtree unrevealed; it is not an
// error until an operation needs it.
func FromNodes(root types.Hash, nodes kv.Getter) (*PartialTrie, error) {
	if root == types.EmptyRootHash {
		return &PartialTrie{}, nil
	}
	n, err := resolve(hashNode(root[:]), nil, nodes)
	if err != nil {
		return nil, err
	}
	return &PartialTrie{root: n}, nil
}

// resolve replaces hash references with decoded nodes wherever the store
// has the blob, descending branch children in ascending slot order.
func resolve(n node, prefix []byte, nodes kv.Getter) (node, error) {
	switch n := n.(type) {
	case *shortNode:
		val, err := resolve(n.Val, append(prefix, n.Key...), nodes)
		if err != nil {
			return nil, err
		}
		n.Val = val
		return n, nil
	case *fullNode:
		for i := 0; i < 16; i++ {
			if n.Children[i] == nil {
				continue
			}
			child, err := resolve(n.Children[i], append(prefix, byte(i)), nodes)
			if err != nil {
				return nil, err
			}
			n.Children[i] = child
		}
		return n, nil
	case hashNode:
		blob, ok := nodes.Get(n)
		if !ok {
			return n, nil
		}
		dec, err := decodeNode(blob)
		if err != nil {
			return nil, fmt.Errorf("trie: node %x at path %x: %w", []byte(n), prefix, err)
		}
		return resolve(dec, prefix, nodes)
	default:
		return n, nil
	}
}

// Get returns the value stored under key. A key whose absence the revealed
// nodes prove returns (nil, nil); a lookup that would descend into an
// unrevealed subtree returns MissingNodeError.
func (t *PartialTrie) Get(key []byte) ([]byte, error) {
	return t.get(t.root, keybytesToHex(key), 0)
}

func (t *PartialTrie) get(n node, key []byte, pos int) ([]byte, error) {
	switch n := n.(type) {
	case nil:
		return nil, nil
	case valueNode:
		return n, nil
	case *shortNode:
		if len(key)-pos < len(n.Key) || !bytes.Equal(n.Key, key[pos:pos+len(n.Key)]) {
			return nil, nil
		}
		return t.get(n.Val, key, pos+len(n.Key))
	case *fullNode:
		return t.get(n.Children[key[pos]], key, pos+1)
	case hashNode:
		return nil, &MissingNodeError{Hash: types.BytesToHash(n), Path: key[:pos]}
	default:
		panic("trie: unknown node type")
	}
}

// Update stores value under key, creating or replacing the leaf. It fails
// with MissingNodeError if the affected path is unrevealed.
func (t *PartialTrie) Update(key, value []byte) error {
	if len(value) == 0 {
		return t.Delete(key)
	}
	n, err := t.insert(t.root, nil, keybytesToHex(key), valueNode(value))
	if err != nil {
		return err
	}
	t.root = n
	return nil
}

func (t *PartialTrie) insert(n node, prefix, key []byte, value node) (node, error) {
	if len(key) == 0 {
		return value, nil
	}
	switch n := n.(type) {
	case nil:
		return &shortNode{Key: key, Val: value}, nil
	case *shortNode:
		matchlen := prefixLen(key, n.Key)
		if matchlen == len(n.Key) {
			nn, err := t.insert(n.Val, append(prefix, key[:matchlen]...), key[matchlen:], value)
			if err != nil {
				return nil, err
			}
			return &shortNode{Key: n.Key, Val: nn}, nil
		}
		// Paths diverge: split into a branch at the divergence point.
		branch := &fullNode{}
		branch.Children[n.Key[matchlen]] = shorten(n.Key[matchlen+1:], n.Val)
		branch.Children[key[matchlen]] = shorten(key[matchlen+1:], value)
		if matchlen == 0 {
			return branch, nil
		}
		return &shortNode{Key: key[:matchlen], Val: branch}, nil
	case *fullNode:
		nn, err := t.insert(n.Children[key[0]], append(prefix, key[0]), key[1:], value)
		if err != nil {
			return nil, err
		}
		n = n.copy()
		n.Children[key[0]] = nn
		return n, nil
	case hashNode:
		return nil, &MissingNodeError{Hash: types.BytesToHash(n), Path: prefix}
	default:
		panic("trie: unknown node type")
	}
}

// shorten wraps child under the remaining key nibbles, collapsing the
// wrapper when no nibbles remain.
func shorten(key []byte, child node) node {
	if len(key) == 0 {
		return child
	}
	if sn, ok := child.(*shortNode); ok {
		return &shortNode{Key: append(append([]byte(nil), key...), sn.Key...), Val: sn.Val}
	}
	return &shortNode{Key: key, Val: child}
}

// Delete removes the leaf under key. Deleting an absent key is a no-op;
// deletion through an unrevealed path fails with MissingNodeError.
func (t *PartialTrie) Delete(key []byte) error {
	n, err := t.delete(t.root, nil, keybytesToHex(key))
	if err != nil {
		return err
	}
	t.root = n
	return nil
}

func (t *PartialTrie) delete(n node, prefix, key []byte) (node, error) {
	switch n := n.(type) {
	case nil:
		return nil, nil
	case valueNode:
		return nil, nil
	case *shortNode:
		matchlen := prefixLen(key, n.Key)
		if matchlen < len(n.Key) {
			return n, nil
		}
		if matchlen == len(key) {
			return nil, nil
		}
		nn, err := t.delete(n.Val, append(prefix, key[:len(n.Key)]...), key[len(n.Key):])
		if err != nil {
			return nil, err
		}
		if nn == nil {
			return nil, nil
		}
		return shorten(n.Key, nn), nil
	case *fullNode:
		nn, err := t.delete(n.Children[key[0]], append(prefix, key[0]), key[1:])
		if err != nil {
			return nil, err
		}
		n = n.copy()
		n.Children[key[0]] = nn

		// If a single child remains, the branch collapses into a short
		// node. Merging requires knowing the child's shape, so an
		// unrevealed survivor is a hard stop.
		pos := -1
		for i, c := range n.Children {
			if c == nil {
				continue
			}
			if pos != -1 {
				return n, nil
			}
			pos = i
		}
		switch {
		case pos == -1:
			return nil, nil
		case pos == 16:
			return &shortNode{Key: []byte{terminator}, Val: n.Children[16]}, nil
		default:
			child := n.Children[pos]
			if hn, ok := child.(hashNode); ok {
				return nil, &MissingNodeError{
					Hash: types.BytesToHash(hn),
					Path: append(append([]byte(nil), prefix...), byte(pos)),
				}
			}
			return shorten([]byte{byte(pos)}, child), nil
		}
	case hashNode:
		return nil, &MissingNodeError{Hash: types.BytesToHash(n), Path: prefix}
	default:
		panic("trie: unknown node type")
	}
}

// Hash recomputes and returns the current root hash.
func (t *PartialTrie) Hash() types.Hash {
	return hashRoot(t.root)
}

// Nodes returns the encodings of every resolved node a parent references
// by hash, root first. This is the node set a witness must carry to reveal
// the trie's current content.
func (t *PartialTrie) Nodes() [][]byte {
	if t.root == nil {
		return nil
	}
	var blobs [][]byte
	var walk func(n node, isRoot bool)
	walk = func(n node, isRoot bool) {
		switch n := n.(type) {
		case *shortNode:
			if enc := encodeNode(n); isRoot || len(enc) >= 32 {
				blobs = append(blobs, enc)
			}
			walk(n.Val, false)
		case *fullNode:
			if enc := encodeNode(n); isRoot || len(enc) >= 32 {
				blobs = append(blobs, enc)
			}
			for i := 0; i < 16; i++ {
				if n.Children[i] != nil {
					walk(n.Children[i], false)
				}
			}
		}
	}
	walk(t.root, true)
	return blobs
}
