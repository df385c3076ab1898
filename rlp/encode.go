// Package rlp implements the Recursive Length Prefix serialization used by
// the trie and the block primitives. The encoder covers the value shapes
// the verifier needs (byte strings, unsigned integers, big/uint256 integers,
// slices, arrays and flat structs); the decode side is item-oriented,
// matching how trie nodes and account leaves are consumed.
package rlp

import (
	"io"
	"math/big"
	"reflect"

	"github.com/holiman/uint256"
)

// Encode writes the RLP encoding of val to w.
func Encode(w io.Writer, val interface{}) error {
	b, err := EncodeToBytes(val)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// EncodeToBytes returns the RLP encoding of val. Supported types: bool,
// unsigned integers, *big.Int, *uint256.Int, []byte, [N]byte, string,
// slices/arrays of supported types, and structs (exported fields only).
func EncodeToBytes(val interface{}) ([]byte, error) {
	return encodeValue(reflect.ValueOf(val))
}

var (
	bigIntType  = reflect.TypeOf(big.Int{})
	uint256Type = reflect.TypeOf(uint256.Int{})
)

func encodeValue(v reflect.Value) ([]byte, error) {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr {
		if v.IsNil() {
			// nil pointer/interface encodes as the empty string.
			return []byte{0x80}, nil
		}
		v = v.Elem()
	}

	switch v.Type() {
	case bigIntType:
		return encodeBigInt(v.Addr().Interface().(*big.Int)), nil
	case uint256Type:
		u := v.Addr().Interface().(*uint256.Int)
		if u.IsZero() {
			return []byte{0x80}, nil
		}
		return encodeString(u.Bytes()), nil
	}

	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return []byte{0x01}, nil
		}
		return []byte{0x80}, nil

	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return encodeUint(v.Uint()), nil

	case reflect.String:
		return encodeString([]byte(v.String())), nil

	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return encodeString(v.Bytes()), nil
		}
		return encodeSlice(v)

	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, v.Len())
			reflect.Copy(reflect.ValueOf(b), v)
			return encodeString(b), nil
		}
		return encodeSlice(v)

	case reflect.Struct:
		return encodeStruct(v)

	case reflect.Invalid:
		return []byte{0x80}, nil

	default:
		return nil, ErrUnsupportedType
	}
}

func encodeUint(u uint64) []byte {
	if u == 0 {
		return []byte{0x80}
	}
	if u < 128 {
		return []byte{byte(u)}
	}
	return encodeString(putUintBigEndian(u))
}

func encodeBigInt(i *big.Int) []byte {
	if i.Sign() == 0 {
		return []byte{0x80}
	}
	return encodeString(i.Bytes())
}

func encodeString(data []byte) []byte {
	n := len(data)
	if n == 1 && data[0] <= 0x7f {
		return data
	}
	if n <= 55 {
		buf := make([]byte, 1+n)
		buf[0] = 0x80 + byte(n)
		copy(buf[1:], data)
		return buf
	}
	lenBytes := putUintBigEndian(uint64(n))
	buf := make([]byte, 1+len(lenBytes)+n)
	buf[0] = 0xb7 + byte(len(lenBytes))
	copy(buf[1:], lenBytes)
	copy(buf[1+len(lenBytes):], data)
	return buf
}

func encodeSlice(v reflect.Value) ([]byte, error) {
	var payload []byte
	for i := 0; i < v.Len(); i++ {
		enc, err := encodeValue(v.Index(i))
		if err != nil {
			return nil, err
		}
		payload = append(payload, enc...)
	}
	return WrapList(payload), nil
}

func encodeStruct(v reflect.Value) ([]byte, error) {
	var payload []byte
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if !t.Field(i).IsExported() {
			continue
		}
		enc, err := encodeValue(v.Field(i))
		if err != nil {
			return nil, err
		}
		payload = append(payload, enc...)
	}
	return WrapList(payload), nil
}

// AppendString appends the RLP string encoding of data to buf.
func AppendString(buf, data []byte) []byte {
	return append(buf, encodeString(data)...)
}

// AppendUint appends the RLP encoding of u to buf.
func AppendUint(buf []byte, u uint64) []byte {
	return append(buf, encodeUint(u)...)
}

// WrapList wraps an already-encoded RLP payload in a list header.
func WrapList(payload []byte) []byte {
	n := len(payload)
	if n <= 55 {
		buf := make([]byte, 1+n)
		buf[0] = 0xc0 + byte(n)
		copy(buf[1:], payload)
		return buf
	}
	lenBytes := putUintBigEndian(uint64(n))
	buf := make([]byte, 1+len(lenBytes)+n)
	buf[0] = 0xf7 + byte(len(lenBytes))
	copy(buf[1:], lenBytes)
	copy(buf[1+len(lenBytes):], payload)
	return buf
}

// putUintBigEndian encodes u as big-endian with no leading zeros.
func putUintBigEndian(u uint64) []byte {
	var b []byte
	for i := 7; i >= 0; i-- {
		if byte(u>>(8*i)) != 0 || len(b) > 0 {
			b = append(b, byte(u>>(8*i)))
		}
	}
	if b == nil {
		b = []byte{0}
	}
	return b
}
