package trie

// Hex-prefix encoding, Yellow Paper appendix C. Keys travel through the
// trie as hex nibble sequences; leaf keys end in the terminator nibble 16.

const terminator = 16

// hexToCompact packs a nibble sequence into hex-prefix form. The first
// byte's high nibble holds the leaf flag (0x20) and odd-length flag (0x10).
func hexToCompact(hex []byte) []byte {
	var flag byte
	if hasTerm(hex) {
		flag = 0x20
		hex = hex[:len(hex)-1]
	}
	buf := make([]byte, len(hex)/2+1)
	buf[0] = flag
	if len(hex)&1 == 1 {
		buf[0] |= 0x10 | hex[0]
		hex = hex[1:]
	}
	for i := 0; i < len(hex); i += 2 {
		buf[i/2+1] = hex[i]<<4 | hex[i+1]
	}
	return buf
}

// compactToHex unpacks hex-prefix bytes back into nibbles, restoring the
// terminator for leaf keys.
func compactToHex(compact []byte) []byte {
	if len(compact) == 0 {
		return compact
	}
	nibbles := keybytesToHex(compact)
	nibbles = nibbles[:len(nibbles)-1]
	skip := 2 - nibbles[0]&1
	leaf := nibbles[0]&2 != 0
	nibbles = nibbles[skip:]
	if leaf {
		out := make([]byte, len(nibbles)+1)
		copy(out, nibbles)
		out[len(out)-1] = terminator
		return out
	}
	return nibbles
}

// keybytesToHex expands raw key bytes into nibbles plus the terminator.
func keybytesToHex(key []byte) []byte {
	nibbles := make([]byte, len(key)*2+1)
	for i, b := range key {
		nibbles[i*2] = b >> 4
		nibbles[i*2+1] = b & 0x0f
	}
	nibbles[len(nibbles)-1] = terminator
	return nibbles
}

// prefixLen returns the length of the common prefix of a and b.
func prefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

func hasTerm(hex []byte) bool {
	return len(hex) > 0 && hex[len(hex)-1] == terminator
}
