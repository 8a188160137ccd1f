package usecase

import "sync"

// Memo caches derived values per key. The whole cache is dropped when the
// revision of the source data changes.
type Memo[K comparable, V any] struct {
	mu       sync.Mutex
	revision uint64
	entries  map[K]V
}

// Get returns the cached value for key at revision, computing it on a miss.
func (m *Memo[K, V]) Get(revision uint64, key K, compute func() V) V {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.entries == nil || m.revision != revision {
		m.entries = make(map[K]V)
		m.revision = revision
	}
	if v, ok := m.entries[key]; ok {
		return v
	}
	v := compute()
	m.entries[key] = v
	return v
}

// Len reports how many values are cached.
func (m *Memo[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
