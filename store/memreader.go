package store

import "sort"

// memReader is a thread-unsafe, in-memory Reader used as the base of a Fork
// in tests that exercise checkpoint/rollback semantics without opening a
// bbolt file on disk.
type memReader struct {
	data map[string]map[string][]byte
}

// NewMemReader creates an empty in-memory Reader.
func NewMemReader() Reader {
	return &memReader{data: make(map[string]map[string][]byte)}
}

func (m *memReader) Get(bucket string, key []byte) ([]byte, error) {
	rows, ok := m.data[bucket]
	if !ok {
		return nil, ErrNotFound
	}
	v, ok := rows[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (m *memReader) Iterate(bucket string, fn func(key, value []byte) error) error {
	rows := m.data[bucket]
	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := fn([]byte(k), rows[k]); err != nil {
			return err
		}
	}
	return nil
}
