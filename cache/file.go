package cache

import (
	"bufio"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"charm.land/log/v2"
)

// FileStore persists the URL set to a flat text file, one URL per line. The
// whole file is rewritten on every insert so the on-disk set always matches
// memory. A failed write degrades the store to memory-only for the rest of
// the run.
type FileStore struct {
	mu       sync.Mutex
	path     string
	urls     map[string]struct{}
	degraded bool
	logger   *log.Logger
}

// NewFileStore loads any existing entries from path. A missing or unreadable
// file starts the cache empty; it is never a fatal error.
func NewFileStore(path string, logger *log.Logger) *FileStore {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &FileStore{
		path:   path,
		urls:   make(map[string]struct{}),
		logger: logger,
	}
	s.load()
	return s
}

func (s *FileStore) load() {
	f, err := os.Open(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("url cache unreadable, starting empty", "path", s.path, "err", err)
		}
		return
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			s.urls[line] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		s.logger.Warn("url cache partially read", "path", s.path, "err", err)
	}
}

func (s *FileStore) Contains(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.urls[url]
	return ok
}

// Add claims url and flushes the full set to disk under the same lock.
func (s *FileStore) Add(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.urls[url]; ok {
		return false
	}
	s.urls[url] = struct{}{}
	s.flushLocked()
	return true
}

// flushLocked rewrites the entire backing file with the current set, sorted
// for stable files.
func (s *FileStore) flushLocked() {
	if s.degraded {
		return
	}

	lines := make([]string, 0, len(s.urls))
	for u := range s.urls {
		lines = append(lines, u)
	}
	sort.Strings(lines)

	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	if err := os.WriteFile(s.path, []byte(b.String()), 0o644); err != nil {
		s.degraded = true
		s.logger.Warn("url cache write failed, continuing in memory only", "path", s.path, "err", err)
	}
}

func (s *FileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.urls)
}

func (s *FileStore) Close() error { return nil }
