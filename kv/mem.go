package kv

// MemStore is the default in-memory backend: a plain map keyed by the raw
// key bytes.
type MemStore struct {
	m map[string][]byte
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{m: make(map[string][]byte)}
}

func (s *MemStore) Get(key []byte) ([]byte, bool) {
	v, ok := s.m[string(key)]
	return v, ok
}

func (s *MemStore) Put(key, value []byte) {
	s.m[string(key)] = value
}

func (s *MemStore) PutIfAbsent(key []byte, mk func() []byte) {
	k := string(key)
	if _, ok := s.m[k]; !ok {
		s.m[k] = mk()
	}
}

// Len returns the number of stored entries.
func (s *MemStore) Len() int { return len(s.m) }

func (s *MemStore) Range(fn func(key, value []byte) bool) {
	for k, v := range s.m {
		if !fn([]byte(k), v) {
			return
		}
	}
}
