// Package memory provides an in-memory implementation of storage.KV.
// It is the test double for the persistence port and the backend used when
// nothing should survive the process.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/mmynk/planner/internal/storage"
)

var _ storage.KV = (*Store)(nil)

// Store holds values in a map.
type Store struct {
	mu     sync.Mutex
	data   map[string][]byte
	quota  int
	closed bool

	// FailWrites makes every Set return this error when non-nil.
	FailWrites error
}

// New creates an empty Store. A quota > 0 limits the total number of bytes
// held across all keys.
func New(quota int) *Store {
	return &Store{data: make(map[string][]byte), quota: quota}
}

// Get returns a copy of the value under key.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, storage.ErrClosed
	}
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set stores a copy of value.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	if s.FailWrites != nil {
		return s.FailWrites
	}
	if s.quota > 0 {
		size := len(value)
		for k, v := range s.data {
			if k != key {
				size += len(v)
			}
		}
		if size > s.quota {
			return fmt.Errorf("failed to set %s (%d bytes over %d): %w", key, size, s.quota, storage.ErrQuotaExceeded)
		}
	}
	s.data[key] = append([]byte(nil), value...)
	return nil
}

// Remove deletes key.
func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	delete(s.data, key)
	return nil
}

// Keys returns the number of stored keys.
func (s *Store) Keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// Close marks the store closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
