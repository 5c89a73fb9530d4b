package usage

import (
	"context"
	"strconv"

	"github.com/scholarmesh/paperdex/internal/db"
)

// mockCounterStore implements CounterStore over an in-process map.
type mockCounterStore struct {
	incrErr  error
	counters map[string]int64
}

func newMockCounterStore() *mockCounterStore {
	return &mockCounterStore{counters: make(map[string]int64)}
}

func (m *mockCounterStore) IncrBy(_ context.Context, key string, val int64) error {
	if m.incrErr != nil {
		return m.incrErr
	}
	m.counters[key] += val
	return nil
}

func (m *mockCounterStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.counters[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return []byte(strconv.FormatInt(v, 10)), nil
}

// rawStore serves arbitrary bytes, for corrupt-counter cases.
type rawStore struct {
	data map[string][]byte
}

func (r *rawStore) IncrBy(_ context.Context, _ string, _ int64) error { return nil }

func (r *rawStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := r.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}
