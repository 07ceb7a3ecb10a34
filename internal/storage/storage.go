// Package storage provides the durable key/value scope that stands in for
// browser local storage. One scope holds one widget's persisted state.
package storage

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by operations on a closed scope.
var ErrClosed = errors.New("storage scope closed")

// Scope is a string-keyed byte store private to one widget instance.
type Scope interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// MemoryScope implements Scope in process memory, suitable for tests.
type MemoryScope struct {
	mu     sync.RWMutex
	items  map[string][]byte
	closed bool
}

// NewMemoryScope returns an empty in-memory scope.
func NewMemoryScope() *MemoryScope {
	return &MemoryScope{items: make(map[string][]byte)}
}

func (s *MemoryScope) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, ErrClosed
	}
	val, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), val...), true, nil
}

func (s *MemoryScope) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.items[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryScope) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.items, key)
	return nil
}

func (s *MemoryScope) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
