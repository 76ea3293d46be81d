package noesis

import "sync"

// Store is the key-value contract shared by the embedding table and the
// viability cache. Sharing is explicit: components receive a Store rather
// than relying on an implicitly thread-safe collection, so scoring logic is
// unit-testable without real concurrency.
//
// Implementations must provide atomic per-key read-modify-write semantics
// for GetOrCompute and Update.
type Store[V any] interface {
	// Get returns the value for key, if present.
	Get(key string) (V, bool)

	// Put stores value under key, replacing any existing value.
	Put(key string, value V)

	// GetOrCompute returns the existing value for key, or atomically
	// computes, stores and returns it.
	GetOrCompute(key string, compute func() V) V

	// Update atomically applies fn to the current value (ok reports whether
	// one existed) and stores the result.
	Update(key string, fn func(current V, ok bool) V)

	// Delete removes key, if present.
	Delete(key string)

	// Clear removes all entries.
	Clear()

	// Len returns the number of stored entries.
	Len() int

	// Keys returns a snapshot of all stored keys, in no particular order.
	Keys() []string
}

// memoryStore is the in-process Store implementation.
type memoryStore[V any] struct {
	mu   sync.RWMutex
	data map[string]V
}

// NewMemoryStore creates an empty in-memory Store.
func NewMemoryStore[V any]() Store[V] {
	return &memoryStore[V]{data: make(map[string]V)}
}

func (s *memoryStore[V]) Get(key string) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *memoryStore[V]) Put(key string, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

func (s *memoryStore[V]) GetOrCompute(key string, compute func() V) V {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.data[key]; ok {
		return v
	}
	v := compute()
	s.data[key] = v
	return v
}

func (s *memoryStore[V]) Update(key string, fn func(current V, ok bool) V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	s.data[key] = fn(v, ok)
}

func (s *memoryStore[V]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

func (s *memoryStore[V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]V)
}

func (s *memoryStore[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *memoryStore[V]) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}
