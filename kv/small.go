package kv

// SmallStore holds entries in a flat slice with linear-scan lookup. For the
// handful of ancestor block hashes a witness carries (at most 256), the
// scan beats map overhead and keeps insertion order for Range.
type SmallStore struct {
	entries []smallEntry
}

type smallEntry struct {
	key   []byte
	value []byte
}

// NewSmallStore returns an empty SmallStore.
func NewSmallStore() *SmallStore {
	return &SmallStore{}
}

func (s *SmallStore) Get(key []byte) ([]byte, bool) {
	for _, e := range s.entries {
		if string(e.key) == string(key) {
			return e.value, true
		}
	}
	return nil, false
}

func (s *SmallStore) Put(key, value []byte) {
	for i, e := range s.entries {
		if string(e.key) == string(key) {
			s.entries[i].value = value
			return
		}
	}
	s.entries = append(s.entries, smallEntry{key: append([]byte(nil), key...), value: value})
}

func (s *SmallStore) PutIfAbsent(key []byte, mk func() []byte) {
	if _, ok := s.Get(key); ok {
		return
	}
	s.entries = append(s.entries, smallEntry{key: append([]byte(nil), key...), value: mk()})
}

// Len returns the number of stored entries.
func (s *SmallStore) Len() int { return len(s.entries) }

func (s *SmallStore) Range(fn func(key, value []byte) bool) {
	for _, e := range s.entries {
		if !fn(e.key, e.value) {
			return
		}
	}
}
