// Package store holds the key-value backends save records are persisted to.
package store

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// Store is a flat key-value store. Get reports ok=false for a missing key;
// a missing key is not an error.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
}

const (
	KindMemory = "memory"
	KindFiles  = "files"
	KindSQLite = "sqlite"
)

// Open returns a backend by kind. path is a directory for files and a
// database file for sqlite; memory ignores it.
func Open(kind, path string) (Store, error) {
	switch kind {
	case "", KindMemory:
		return NewMemory(), nil
	case KindFiles:
		return OpenFiles(path)
	case KindSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown store kind %q", kind)
	}
}

// Close closes s if the backend holds resources.
func Close(s Store) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

type Memory struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{m: map[string][]byte{}}
}

func (s *Memory) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *Memory) Put(key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("empty key")
	}
	s.mu.Lock()
	s.m[key] = append([]byte(nil), value...)
	s.mu.Unlock()
	return nil
}

func (s *Memory) Delete(key string) error {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	return nil
}

func (s *Memory) Keys(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for k := range s.m {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}
