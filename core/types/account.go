package types

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/sbv-go/sbv/rlp"
)

var (
	// EmptyRootHash is the root of an empty Merkle Patricia trie,
	// keccak256(rlp("")).
	EmptyRootHash = HexToHash("0x56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

	// EmptyCodeHash is keccak256 of empty bytecode.
	EmptyCodeHash = HexToHash("0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")
)

// StateAccount is the account record stored in the state trie: the RLP list
// [nonce, balance, storageRoot, codeHash].
type StateAccount struct {
	Nonce    uint64
	Balance  *uint256.Int
	Root     Hash
	CodeHash Hash
}

// NewEmptyStateAccount returns an account with zero balance, the empty
// storage root and the empty code hash.
func NewEmptyStateAccount() *StateAccount {
	return &StateAccount{
		Balance:  new(uint256.Int),
		Root:     EmptyRootHash,
		CodeHash: EmptyCodeHash,
	}
}

// Copy returns a deep copy of the account record.
func (a *StateAccount) Copy() *StateAccount {
	cpy := *a
	if a.Balance != nil {
		cpy.Balance = new(uint256.Int).Set(a.Balance)
	}
	return &cpy
}

// IsEmpty reports whether the account is empty per EIP-161
// (zero nonce, zero balance, no code).
func (a *StateAccount) IsEmpty() bool {
	return a.Nonce == 0 && (a.Balance == nil || a.Balance.IsZero()) && a.CodeHash == EmptyCodeHash
}

// EncodeRLP returns the canonical trie-leaf encoding of the account.
func (a *StateAccount) EncodeRLP() ([]byte, error) {
	balance := a.Balance
	if balance == nil {
		balance = new(uint256.Int)
	}
	return rlp.EncodeToBytes(&StateAccount{
		Nonce:    a.Nonce,
		Balance:  balance,
		Root:     a.Root,
		CodeHash: a.CodeHash,
	})
}

// DecodeStateAccount decodes a trie-leaf account record. The input must be
// exactly one 4-element RLP list.
func DecodeStateAccount(data []byte) (*StateAccount, error) {
	items, err := rlp.SplitList(data)
	if err != nil {
		return nil, err
	}
	if len(items) != 4 {
		return nil, fmt.Errorf("types: account record has %d fields, want 4", len(items))
	}
	nonce, err := rlp.DecodeUint64(items[0])
	if err != nil {
		return nil, fmt.Errorf("types: account nonce: %w", err)
	}
	balanceBytes, err := rlp.SplitString(items[1])
	if err != nil {
		return nil, fmt.Errorf("types: account balance: %w", err)
	}
	if len(balanceBytes) > 32 {
		return nil, fmt.Errorf("types: account balance overflows 256 bits")
	}
	rootBytes, err := rlp.SplitString(items[2])
	if err != nil {
		return nil, fmt.Errorf("types: account storage root: %w", err)
	}
	if len(rootBytes) != HashLength {
		return nil, fmt.Errorf("types: account storage root length %d", len(rootBytes))
	}
	codeHashBytes, err := rlp.SplitString(items[3])
	if err != nil {
		return nil, fmt.Errorf("types: account code hash: %w", err)
	}
	if len(codeHashBytes) != HashLength {
		return nil, fmt.Errorf("types: account code hash length %d", len(codeHashBytes))
	}
	return &StateAccount{
		Nonce:    nonce,
		Balance:  new(uint256.Int).SetBytes(balanceBytes),
		Root:     BytesToHash(rootBytes),
		CodeHash: BytesToHash(codeHashBytes),
	}, nil
}
