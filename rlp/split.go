package rlp

// Item-oriented decoding. SplitList breaks a serialized list into the raw
// encodings of its elements, preserving nested structure so callers can
// recurse (a nested list element keeps its own header). SplitString unwraps
// one string item into its payload.

// Kind describes the shape of one RLP item.
type Kind int

const (
	// KindString is a byte string item.
	KindString Kind = iota
	// KindList is a list item.
	KindList
)

// Split reads one RLP item from the front of data. It returns the item's
// kind, its payload (string content or list payload), the raw encoding of
// the whole item, and the remaining bytes after it.
func Split(data []byte) (kind Kind, payload, raw, rest []byte, err error) {
	if len(data) == 0 {
		return 0, nil, nil, nil, ErrShortInput
	}
	prefix := data[0]
	switch {
	case prefix <= 0x7f:
		return KindString, data[:1], data[:1], data[1:], nil

	case prefix <= 0xb7:
		n := int(prefix - 0x80)
		if 1+n > len(data) {
			return 0, nil, nil, nil, ErrShortInput
		}
		if n == 1 && data[1] <= 0x7f {
			return 0, nil, nil, nil, ErrCanonSize
		}
		return KindString, data[1 : 1+n], data[:1+n], data[1+n:], nil

	case prefix <= 0xbf:
		lenLen := int(prefix - 0xb7)
		n, err := readSize(data[1:], lenLen)
		if err != nil {
			return 0, nil, nil, nil, err
		}
		end := 1 + lenLen + n
		if end > len(data) {
			return 0, nil, nil, nil, ErrShortInput
		}
		return KindString, data[1+lenLen : end], data[:end], data[end:], nil

	case prefix <= 0xf7:
		n := int(prefix - 0xc0)
		end := 1 + n
		if end > len(data) {
			return 0, nil, nil, nil, ErrShortInput
		}
		return KindList, data[1:end], data[:end], data[end:], nil

	default:
		lenLen := int(prefix - 0xf7)
		n, err := readSize(data[1:], lenLen)
		if err != nil {
			return 0, nil, nil, nil, err
		}
		end := 1 + lenLen + n
		if end > len(data) {
			return 0, nil, nil, nil, ErrShortInput
		}
		return KindList, data[1+lenLen : end], data[:end], data[end:], nil
	}
}

// SplitList interprets data as a single RLP list and returns the raw
// encoding of each element. Trailing bytes after the list are an error.
func SplitList(data []byte) ([][]byte, error) {
	kind, payload, _, rest, err := Split(data)
	if err != nil {
		return nil, err
	}
	if kind != KindList {
		return nil, ErrExpectedList
	}
	if len(rest) != 0 {
		return nil, ErrTrailingBytes
	}
	var items [][]byte
	for len(payload) > 0 {
		_, _, raw, remaining, err := Split(payload)
		if err != nil {
			return nil, err
		}
		items = append(items, raw)
		payload = remaining
	}
	return items, nil
}

// SplitString unwraps one string item and returns its payload. Trailing
// bytes after the item are an error.
func SplitString(data []byte) ([]byte, error) {
	kind, payload, _, rest, err := Split(data)
	if err != nil {
		return nil, err
	}
	if kind != KindString {
		return nil, ErrExpectedString
	}
	if len(rest) != 0 {
		return nil, ErrTrailingBytes
	}
	return payload, nil
}

// DecodeUint64 decodes a canonically encoded unsigned integer item.
func DecodeUint64(data []byte) (uint64, error) {
	payload, err := SplitString(data)
	if err != nil {
		return 0, err
	}
	if len(payload) > 8 {
		return 0, ErrUint64Range
	}
	if len(payload) > 1 && payload[0] == 0 {
		return 0, ErrCanonInt
	}
	var u uint64
	for _, b := range payload {
		u = u<<8 | uint64(b)
	}
	return u, nil
}

func readSize(data []byte, lenLen int) (int, error) {
	if lenLen > len(data) {
		return 0, ErrShortInput
	}
	if data[0] == 0 {
		return 0, ErrCanonSize
	}
	var n uint64
	for i := 0; i < lenLen; i++ {
		n = n<<8 | uint64(data[i])
	}
	if n < 56 {
		return 0, ErrCanonSize
	}
	if n > uint64(int(^uint(0)>>1)) {
		return 0, ErrValueTooLarge
	}
	return int(n), nil
}
