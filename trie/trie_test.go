package trie

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/sbv-go/sbv/core/types"
	"github.com/sbv-go/sbv/crypto"
	"github.com/sbv-go/sbv/kv"
)

func TestEmptyTrieHash(t *testing.T) {
	tr := &PartialTrie{}
	if got := tr.Hash(); got != types.EmptyRootHash {
		t.Fatalf("empty trie root = %s, want %s", got.Hex(), types.EmptyRootHash.Hex())
	}
}

func TestHexCompactRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{terminator},
		{1, 2, 3, 4, 5},
		{1, 2, 3, 4, 5, terminator},
		{0, 1, 2, 3, 4, 5},
		{0, 1, 2, 3, 4, 5, terminator},
		{15},
		{15, terminator},
	}
	for _, hex := range cases {
		got := compactToHex(hexToCompact(hex))
		if len(got) == 0 && len(hex) == 0 {
			continue
		}
		if !bytes.Equal(got, hex) {
			t.Fatalf("round trip of %x = %x", hex, got)
		}
	}
}

func TestUpdateGetDelete(t *testing.T) {
	tr := &PartialTrie{}
	entries := map[string]string{
		"do":    "verb",
		"dog":   "puppy",
		"doge":  "coin",
		"horse": "stallion",
	}
	for k, v := range entries {
		if err := tr.Update([]byte(k), []byte(v)); err != nil {
			t.Fatalf("Update(%q): %v", k, err)
		}
	}
	for k, v := range entries {
		got, err := tr.Get([]byte(k))
		if err != nil {
			t.Fatalf("Get(%q): %v", k, err)
		}
		if string(got) != v {
			t.Fatalf("Get(%q) = %q, want %q", k, got, v)
		}
	}
	if got, err := tr.Get([]byte("cat")); err != nil || got != nil {
		t.Fatalf("Get(cat) = %q, %v, want absent", got, err)
	}

	if err := tr.Delete([]byte("dog")); err != nil {
		t.Fatalf("Delete(dog): %v", err)
	}
	if got, _ := tr.Get([]byte("dog")); got != nil {
		t.Fatalf("deleted key still present: %q", got)
	}
	if got, _ := tr.Get([]byte("doge")); string(got) != "coin" {
		t.Fatalf("sibling lost after delete: %q", got)
	}
	if got, _ := tr.Get([]byte("do")); string(got) != "verb" {
		t.Fatalf("prefix key lost after delete: %q", got)
	}
}

func TestHashDeterministic(t *testing.T) {
	build := func(order []string) types.Hash {
		tr := &PartialTrie{}
		for _, k := range order {
			if err := tr.Update([]byte(k), []byte("v-"+k)); err != nil {
				t.Fatalf("Update(%q): %v", k, err)
			}
		}
		return tr.Hash()
	}
	keys := []string{"alpha", "beta", "gamma", "delta"}
	reversed := []string{"delta", "gamma", "beta", "alpha"}
	if a, b := build(keys), build(reversed); a != b {
		t.Fatalf("insertion order changed root: %s vs %s", a.Hex(), b.Hex())
	}
}

func TestDeleteRestoresHash(t *testing.T) {
	tr := &PartialTrie{}
	for i := 0; i < 8; i++ {
		if err := tr.Update([]byte(fmt.Sprintf("key-%d", i)), []byte{byte(i + 1)}); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	before := tr.Hash()
	if err := tr.Update([]byte("transient"), []byte("x")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if tr.Hash() == before {
		t.Fatalf("insert did not change root")
	}
	if err := tr.Delete([]byte("transient")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if after := tr.Hash(); after != before {
		t.Fatalf("delete did not restore root: %s vs %s", after.Hex(), before.Hex())
	}
}

func buildFixture(t *testing.T, entries map[string]string) (types.Hash, *kv.HashedStore) {
	t.Helper()
	tr := &PartialTrie{}
	for k, v := range entries {
		if err := tr.Update([]byte(k), []byte(v)); err != nil {
			t.Fatalf("Update(%q): %v", k, err)
		}
	}
	store := kv.NewHashedStore()
	for _, blob := range tr.Nodes() {
		store.Put(crypto.Keccak256(blob), blob)
	}
	return tr.Hash(), store
}

func TestFromNodesRoundTrip(t *testing.T) {
	entries := map[string]string{
		"abcdefgh-1": "value one with enough bytes to avoid inlining",
		"abcdefgh-2": "value two with enough bytes to avoid inlining",
		"zzzzzzzz-3": "value three with enough bytes to avoid inlining",
	}
	root, store := buildFixture(t, entries)

	tr, err := FromNodes(root, store)
	if err != nil {
		t.Fatalf("FromNodes: %v", err)
	}
	for k, v := range entries {
		got, err := tr.Get([]byte(k))
		if err != nil {
			t.Fatalf("Get(%q): %v", k, err)
		}
		if string(got) != v {
			t.Fatalf("Get(%q) = %q, want %q", k, got, v)
		}
	}
	if tr.Hash() != root {
		t.Fatalf("reopened root = %s, want %s", tr.Hash().Hex(), root.Hex())
	}
}

func TestUnrevealedSubtree(t *testing.T) {
	entries := map[string]string{
		"abcdefgh-1": "value one with enough bytes to avoid inlining",
		"abcdefgh-2": "value two with enough bytes to avoid inlining",
		"zzzzzzzz-3": "value three with enough bytes to avoid inlining",
	}
	root, full := buildFixture(t, entries)

	// Re-reveal everything except the node holding the "zzzzzzzz-3" leaf.
	var leafKey []byte
	full.Range(func(k, v []byte) bool {
		dec, err := decodeNode(v)
		if err != nil {
			t.Fatalf("decode stored node: %v", err)
		}
		if sn, ok := dec.(*shortNode); ok {
			if val, ok := sn.Val.(valueNode); ok && bytes.Contains(val, []byte("three")) {
				leafKey = append([]byte(nil), k...)
				return false
			}
		}
		return true
	})
	if leafKey == nil {
		t.Fatalf("fixture leaf not found in store")
	}
	partial := kv.NewHashedStore()
	full.Range(func(k, v []byte) bool {
		if !bytes.Equal(k, leafKey) {
			partial.Put(k, v)
		}
		return true
	})

	tr, err := FromNodes(root, partial)
	if err != nil {
		t.Fatalf("FromNodes: %v", err)
	}

	// Revealed keys still resolve.
	if got, err := tr.Get([]byte("abcdefgh-1")); err != nil || !bytes.Contains(got, []byte("one")) {
		t.Fatalf("revealed key: %q, %v", got, err)
	}

	// The withheld leaf is unrevealed, not absent.
	var missing *MissingNodeError
	if _, err := tr.Get([]byte("zzzzzzzz-3")); !errors.As(err, &missing) {
		t.Fatalf("unrevealed read error = %v, want MissingNodeError", err)
	}

	// Writing through the unrevealed path fails the same way.
	if err := tr.Update([]byte("zzzzzzzz-3"), []byte("new")); !errors.As(err, &missing) {
		t.Fatalf("unrevealed write error = %v, want MissingNodeError", err)
	}

	// The untouched trie still reports the original root.
	if tr.Hash() != root {
		t.Fatalf("partial root = %s, want %s", tr.Hash().Hex(), root.Hex())
	}
}

func TestProvenAbsentIsNotAnError(t *testing.T) {
	entries := map[string]string{
		"abcdefgh-1": "value one with enough bytes to avoid inlining",
		"abcdefgh-2": "value two with enough bytes to avoid inlining",
	}
	root, store := buildFixture(t, entries)
	tr, err := FromNodes(root, store)
	if err != nil {
		t.Fatalf("FromNodes: %v", err)
	}
	// Divergence at the first nibble is proven by the revealed root node.
	got, err := tr.Get([]byte("qqqqqqqq-9"))
	if err != nil {
		t.Fatalf("proven-absent read errored: %v", err)
	}
	if got != nil {
		t.Fatalf("proven-absent read returned %q", got)
	}
}

func TestMissingRootIsDeferred(t *testing.T) {
	root := crypto.Keccak256Hash([]byte("nobody revealed this"))
	tr, err := FromNodes(root, kv.NewHashedStore())
	if err != nil {
		t.Fatalf("FromNodes: %v", err)
	}
	if tr.Hash() != root {
		t.Fatalf("untouched root = %s, want %s", tr.Hash().Hex(), root.Hex())
	}
	var missing *MissingNodeError
	if _, err := tr.Get([]byte("anything")); !errors.As(err, &missing) {
		t.Fatalf("read error = %v, want MissingNodeError", err)
	}
}

func TestDecodeNodeRejectsGarbage(t *testing.T) {
	cases := [][]byte{
		nil,
		{0x00},
		{0xc0},                   // empty list
		{0xc2, 0x01, 0x02, 0xff}, // trailing byte
	}
	for _, blob := range cases {
		if err := DecodeNode(blob); err == nil {
			t.Fatalf("DecodeNode(%x) accepted invalid input", blob)
		}
	}
}

func TestDecodeEncodedNodes(t *testing.T) {
	tr := &PartialTrie{}
	for i := 0; i < 20; i++ {
		key := crypto.Keccak256([]byte{byte(i)})
		if err := tr.Update(key, []byte(fmt.Sprintf("value-%02d-padding-padding-padding", i))); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	store := kv.NewHashedStore()
	for _, blob := range tr.Nodes() {
		store.Put(crypto.Keccak256(blob), blob)
	}
	store.Range(func(k, v []byte) bool {
		if err := DecodeNode(v); err != nil {
			t.Fatalf("stored node %x does not decode: %v", k, err)
		}
		if got := crypto.Keccak256(v); !bytes.Equal(got, k) {
			t.Fatalf("stored node keyed by %x but hashes to %x", k, got)
		}
		return true
	})
}
