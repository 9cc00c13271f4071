// Package cache persists the set of processed URLs across runs.
package cache

import (
	"fmt"
	"sync"

	"charm.land/log/v2"
)

// Store is a persistent URL set. Add atomically claims a URL: it returns
// true only for the first caller to insert it, so concurrent workers use the
// result to decide ownership of further processing. Entries are never
// removed or expired.
type Store interface {
	Contains(url string) bool
	Add(url string) bool
	Len() int
	Close() error
}

// Open returns the store for the given backend: "file" (default), "leveldb",
// or "memory".
func Open(backend, path string, logger *log.Logger) (Store, error) {
	switch backend {
	case "", "file":
		return NewFileStore(path, logger), nil
	case "leveldb":
		return NewLevelStore(path, logger)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}

// MemoryStore keeps the set in memory only. It backs tests and the "memory"
// backend.
type MemoryStore struct {
	mu   sync.Mutex
	urls map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{urls: make(map[string]struct{})}
}

func (m *MemoryStore) Contains(url string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.urls[url]
	return ok
}

func (m *MemoryStore) Add(url string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.urls[url]; ok {
		return false
	}
	m.urls[url] = struct{}{}
	return true
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.urls)
}

func (m *MemoryStore) Close() error { return nil }
