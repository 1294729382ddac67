package aggregate

import "sync"

// MergeFunc decides the value stored for a key that already holds existing.
type MergeFunc[V any] func(existing, candidate V) V

// Mapping is an insertion-ordered map whose upserts are atomic per call, so
// a merge comparison never races with another writer of the same key.
type Mapping[K comparable, V any] struct {
	mu     sync.Mutex
	values map[K]V
	order  []K
}

// NewMapping returns an empty Mapping.
func NewMapping[K comparable, V any]() *Mapping[K, V] {
	return &Mapping[K, V]{values: make(map[K]V)}
}

// Upsert stores candidate under key, or merge(existing, candidate) when the
// key is already present. A nil merge replaces the existing value.
func (m *Mapping[K, V]) Upsert(key K, candidate V, merge MergeFunc[V]) V {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.values[key]
	if !ok {
		m.values[key] = candidate
		m.order = append(m.order, key)
		return candidate
	}
	value := candidate
	if merge != nil {
		value = merge(existing, candidate)
	}
	m.values[key] = value
	return value
}

// Get returns the value for key.
func (m *Mapping[K, V]) Get(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

// Len returns the number of keys.
func (m *Mapping[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}

// Keys returns keys in first-insertion order.
func (m *Mapping[K, V]) Keys() []K {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]K(nil), m.order...)
}

// Values returns values in first-insertion order of their keys.
func (m *Mapping[K, V]) Values() []V {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]V, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, m.values[k])
	}
	return out
}

// Map returns a plain map copy.
func (m *Mapping[K, V]) Map() map[K]V {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[K]V, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}
