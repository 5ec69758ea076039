// Package memory is an in-process Store used by tests and the "memory"
// backend.
package memory

import (
	"context"
	"sync"

	"gofinances/internal/storage"
)

type Store struct {
	mu     sync.RWMutex
	data   map[string]string
	closed bool
}

func New() *Store {
	return &Store{data: make(map[string]string)}
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, storage.ErrClosed
	}
	blob, ok := s.data[key]
	return blob, ok, nil
}

func (s *Store) Set(ctx context.Context, key, blob string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	s.data[key] = blob
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
