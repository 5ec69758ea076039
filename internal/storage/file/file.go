// Package file keeps every key in a single JSON document on disk.
//
// The whole document is rewritten on each Set: it is written to a
// temporary file in the same directory and renamed over the original, so a
// crash mid-write leaves the previous version intact.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gofinances/internal/storage"
)

type document struct {
	UpdatedAt time.Time         `json:"updated_at"`
	Entries   map[string]string `json:"entries"`
}

type Store struct {
	path string

	mu     sync.RWMutex
	data   map[string]string
	closed bool
}

// Open loads path, creating the parent directory when needed. A missing
// file is an empty store.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	s := &Store{path: path, data: make(map[string]string)}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()

	var doc document
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode data file %s: %w", path, err)
	}
	if doc.Entries != nil {
		s.data = doc.Entries
	}
	return s, nil
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

	prev, had := s.data[key]
	s.data[key] = blob
	if err := s.flush(); err != nil {
		if had {
			s.data[key] = prev
		} else {
			delete(s.data, key)
		}
		return err
	}
	return nil
}

// flush must be called with mu held.
func (s *Store) flush() error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(document{UpdatedAt: time.Now().UTC(), Entries: s.data}); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write data file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync data file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close data file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace data file: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
