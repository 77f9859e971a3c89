package store

import (
	"context"
	"sync"
)

// memoryKV is the in-memory KeyValue backend. It backs tests and the
// degraded mode where the engine runs without durable storage.
type memoryKV struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemoryKV returns an empty in-memory KeyValue store.
func NewMemoryKV() KeyValue {
	return &memoryKV{items: make(map[string][]byte)}
}

func (m *memoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.items[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), value...), nil
}

func (m *memoryKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = append([]byte(nil), value...)
	return nil
}

func (m *memoryKV) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
	return nil
}

func (m *memoryKV) MultiRemove(_ context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.items, key)
	}
	return nil
}
