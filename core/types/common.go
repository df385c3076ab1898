// Package types defines the primitive data structures shared by the
// stateless verification pipeline: hashes, addresses, block headers,
// transactions, withdrawals and trie account records.
package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	HashLength    = 32
	AddressLength = 20
)

// Hash represents the 32-byte Keccak256 hash of data.
type Hash [HashLength]byte

// Address represents the 20-byte address of an Ethereum account.
type Address [AddressLength]byte

// BytesToHash converts bytes to Hash, left-padding if shorter than 32 bytes.
func BytesToHash(b []byte) Hash {
	var h Hash
	h.SetBytes(b)
	return h
}

// HexToHash converts a hex string (with or without 0x prefix) to Hash.
func HexToHash(s string) Hash {
	return BytesToHash(fromHex(s))
}

// Bytes returns the byte representation of the hash.
func (h Hash) Bytes() []byte { return h[:] }

// Hex returns the hex string representation of the hash.
func (h Hash) Hex() string { return fmt.Sprintf("0x%x", h[:]) }

// SetBytes sets the hash from a byte slice, left-padding if necessary.
func (h *Hash) SetBytes(b []byte) {
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
}

// IsZero returns whether the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// String implements fmt.Stringer.
func (h Hash) String() string { return h.Hex() }

// MarshalText encodes the hash as 0x-prefixed hex for JSON interchange.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

// UnmarshalText decodes a 0x-prefixed hex string into the hash.
func (h *Hash) UnmarshalText(input []byte) error {
	b, err := decodeHex(string(input))
	if err != nil {
		return err
	}
	if len(b) != HashLength {
		return fmt.Errorf("types: invalid hash length %d", len(b))
	}
	copy(h[:], b)
	return nil
}

// BytesToAddress converts bytes to Address, left-padding if shorter than 20 bytes.
func BytesToAddress(b []byte) Address {
	var a Address
	a.SetBytes(b)
	return a
}

// HexToAddress converts a hex string to Address.
func HexToAddress(s string) Address {
	return BytesToAddress(fromHex(s))
}

// Bytes returns the byte representation of the address.
func (a Address) Bytes() []byte { return a[:] }

// Hex returns the hex string representation of the address.
func (a Address) Hex() string { return fmt.Sprintf("0x%x", a[:]) }

// SetBytes sets the address from a byte slice, left-padding if necessary.
func (a *Address) SetBytes(b []byte) {
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
}

// String implements fmt.Stringer.
func (a Address) String() string { return a.Hex() }

// MarshalText encodes the address as 0x-prefixed hex.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

// UnmarshalText decodes a 0x-prefixed hex string into the address.
func (a *Address) UnmarshalText(input []byte) error {
	b, err := decodeHex(string(input))
	if err != nil {
		return err
	}
	if len(b) != AddressLength {
		return fmt.Errorf("types: invalid address length %d", len(b))
	}
	copy(a[:], b)
	return nil
}

// Bytes is a byte slice that marshals as 0x-prefixed hex in JSON,
// used for witness interchange fields (raw trie nodes, bytecodes, calldata).
type Bytes []byte

// MarshalText encodes the bytes as 0x-prefixed hex.
func (b Bytes) MarshalText() ([]byte, error) {
	result := make([]byte, 2+len(b)*2)
	copy(result, "0x")
	hex.Encode(result[2:], b)
	return result, nil
}

// UnmarshalText decodes a 0x-prefixed hex string.
func (b *Bytes) UnmarshalText(input []byte) error {
	raw, err := decodeHex(string(input))
	if err != nil {
		return err
	}
	*b = raw
	return nil
}

// String returns the 0x-prefixed hex representation.
func (b Bytes) String() string { return fmt.Sprintf("0x%x", []byte(b)) }

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	return hex.DecodeString(s)
}

// fromHex decodes hex, ignoring malformed input (returns nil).
func fromHex(s string) []byte {
	b, err := decodeHex(s)
	if err != nil {
		return nil
	}
	return b
}
