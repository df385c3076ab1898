package rlp

import "errors"

var (
	// ErrExpectedString is returned when a list is encountered where a string was expected.
	ErrExpectedString = errors.New("rlp: expected string")

	// ErrExpectedList is returned when a string is encountered where a list was expected.
	ErrExpectedList = errors.New("rlp: expected list")

	// ErrCanonSize is returned when an item uses a non-canonical size encoding.
	ErrCanonSize = errors.New("rlp: non-canonical size information")

	// ErrCanonInt is returned when an integer is encoded with leading zeros.
	ErrCanonInt = errors.New("rlp: non-canonical integer encoding")

	// ErrShortInput is returned when the input ends inside an item.
	ErrShortInput = errors.New("rlp: input too short")

	// ErrTrailingBytes is returned when input continues past the decoded item.
	ErrTrailingBytes = errors.New("rlp: trailing bytes after item")

	// ErrUint64Range is returned when a decoded integer exceeds uint64 range.
	ErrUint64Range = errors.New("rlp: uint64 overflow")

	// ErrUnsupportedType is returned by the encoder for types it cannot encode.
	ErrUnsupportedType = errors.New("rlp: unsupported type")

	// ErrValueTooLarge is returned when an item's declared size does not fit in memory.
	ErrValueTooLarge = errors.New("rlp: value size exceeds available input length")
)
