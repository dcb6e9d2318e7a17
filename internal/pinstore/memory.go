package pinstore

import (
	"context"
	"sync"
)

// MemoryStore keeps objects in process memory. Used for tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]Object
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]Object)}
}

// EnsureSchema satisfies the Store interface. No-op for memory store.
func (m *MemoryStore) EnsureSchema(context.Context) error {
	return nil
}

// Put stores obj unless its identifier is already present.
func (m *MemoryStore) Put(ctx context.Context, obj Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[obj.CID]; ok {
		return nil
	}
	obj.Data = append([]byte(nil), obj.Data...)
	m.objects[obj.CID] = obj
	return nil
}

// Get returns the object or ErrNotFound.
func (m *MemoryStore) Get(ctx context.Context, id string) (Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[id]
	if !ok {
		return Object{}, ErrNotFound
	}
	obj.Data = append([]byte(nil), obj.Data...)
	return obj, nil
}

// Len reports the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// Close satisfies the Store interface.
func (m *MemoryStore) Close() error {
	return nil
}
