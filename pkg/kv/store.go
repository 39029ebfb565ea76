// Package kv provides a generic thread-safe key-value store.
package kv

import "sync"

// Store is a thread-safe generic key-value store.
type Store[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]V
}

// New creates a new key-value store.
func New[K comparable, V any]() *Store[K, V] {
	return &Store[K, V]{
		data: make(map[K]V),
	}
}

// Get retrieves a value by key.
func (s *Store[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	return val, ok
}

// Set stores a value by key.
func (s *Store[K, V]) Set(key K, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// Delete removes a key from the store.
func (s *Store[K, V]) Delete(key K) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// Update runs fn with the current value under the write lock. fn returns the
// new value and whether to keep it; returning false deletes the key. Any
// error from fn leaves the store unchanged and is returned.
func (s *Store[K, V]) Update(key K, fn func(cur V, ok bool) (V, bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.data[key]
	next, keep, err := fn(cur, ok)
	if err != nil {
		return err
	}
	if keep {
		s.data[key] = next
	} else {
		delete(s.data, key)
	}
	return nil
}

// Len returns the number of items in the store.
func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Keys returns all keys in the store.
func (s *Store[K, V]) Keys() []K {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]K, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}

// Values returns a snapshot of every value whose key satisfies match.
func (s *Store[K, V]) Values(match func(K) bool) []V {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]V, 0)
	for k, v := range s.data {
		if match == nil || match(k) {
			out = append(out, v)
		}
	}
	return out
}
