package cache

import (
	"fmt"
	"io"
	"sync"

	"charm.land/log/v2"
	"github.com/syndtr/goleveldb/leveldb"
)

// LevelStore keeps the URL set in an embedded leveldb database, avoiding the
// whole-file rewrite cost of FileStore on large caches. Keys are the URLs;
// values are empty. The working set is mirrored in memory so claims stay
// atomic and cheap.
type LevelStore struct {
	mu       sync.Mutex
	db       *leveldb.DB
	mem      map[string]struct{}
	degraded bool
	logger   *log.Logger
}

func NewLevelStore(path string, logger *log.Logger) (*LevelStore, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open url cache db %s: %w", path, err)
	}

	s := &LevelStore{
		db:     db,
		mem:    make(map[string]struct{}),
		logger: logger,
	}

	iter := db.NewIterator(nil, nil)
	for iter.Next() {
		s.mem[string(iter.Key())] = struct{}{}
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		logger.Warn("url cache db partially read", "path", path, "err", err)
	}

	return s, nil
}

func (s *LevelStore) Contains(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.mem[url]
	return ok
}

func (s *LevelStore) Add(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mem[url]; ok {
		return false
	}
	s.mem[url] = struct{}{}

	if s.degraded {
		return true
	}
	if err := s.db.Put([]byte(url), nil, nil); err != nil {
		s.degraded = true
		s.logger.Warn("url cache db write failed, continuing in memory only", "err", err)
	}
	return true
}

func (s *LevelStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.mem)
}

func (s *LevelStore) Close() error {
	return s.db.Close()
}
