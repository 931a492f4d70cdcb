package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory is a process-local Cache guarded by a RWMutex.
type Memory[V any] struct {
	mu      sync.RWMutex
	entries map[string]V
}

// NewMemory creates an empty in-memory cache.
func NewMemory[V any]() *Memory[V] {
	return &Memory[V]{entries: make(map[string]V)}
}

// Get implements Cache.
func (m *Memory[V]) Get(_ context.Context, key string) (V, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	return v, ok, nil
}

// Add implements Cache. The first writer for a key wins.
func (m *Memory[V]) Add(_ context.Context, key string, value V) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[key]; !exists {
		m.entries[key] = value
	}
	return nil
}

// AddBatch adds every item under prefix+key, first writer wins per key.
func (m *Memory[V]) AddBatch(items map[string]V, prefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range items {
		key := prefix + k
		if _, exists := m.entries[key]; !exists {
			m.entries[key] = v
		}
	}
}

// Exists reports whether key holds an entry.
func (m *Memory[V]) Exists(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[key]
	return ok
}

// GetAllByPrefix returns the entries whose keys start with prefix.
func (m *Memory[V]) GetAllByPrefix(prefix string) map[string]V {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]V)
	for k, v := range m.entries {
		if strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	return out
}

// Keys returns every key in sorted order.
func (m *Memory[V]) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clear removes key.
func (m *Memory[V]) Clear(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// ClearAll removes every key starting with prefix; an empty prefix empties the cache.
func (m *Memory[V]) ClearAll(prefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
}
