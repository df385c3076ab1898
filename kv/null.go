package kv

// NullStore discards every write and answers every read with a miss. Useful
// when a pipeline stage requires a store but its output is not needed.
type NullStore struct{}

func (NullStore) Get(key []byte) ([]byte, bool)            { return nil, false }
func (NullStore) Put(key, value []byte)                    {}
func (NullStore) PutIfAbsent(key []byte, mk func() []byte) {}
func (NullStore) Range(fn func(key, value []byte) bool)    {}
