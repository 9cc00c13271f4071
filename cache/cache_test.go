package cache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func tempCachePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "urls.txt")
}

func TestFileStoreMissingFileStartsEmpty(t *testing.T) {
	s := NewFileStore(tempCachePath(t), nil)
	if s.Len() != 0 {
		t.Fatalf("len = %d, want 0", s.Len())
	}
}

func TestFileStoreAddAndContains(t *testing.T) {
	s := NewFileStore(tempCachePath(t), nil)

	if !s.Add("http://a.test/doc.pdf") {
		t.Fatal("first add returned false")
	}
	if s.Add("http://a.test/doc.pdf") {
		t.Fatal("second add of same url returned true")
	}
	if !s.Contains("http://a.test/doc.pdf") {
		t.Fatal("contains = false after add")
	}
	if s.Contains("http://a.test/other.pdf") {
		t.Fatal("contains = true for url never added")
	}
}

func TestFileStoreRewritesWholeFile(t *testing.T) {
	path := tempCachePath(t)
	s := NewFileStore(path, nil)

	s.Add("http://b.test/2.pdf")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read cache: %v", err)
	}
	if got, want := string(data), "http://b.test/2.pdf\n"; got != want {
		t.Fatalf("file = %q, want %q", got, want)
	}

	s.Add("http://a.test/1.pdf")
	data, err = os.ReadFile(path)
	if err != nil {
		t.Fatalf("read cache: %v", err)
	}
	if got, want := string(data), "http://a.test/1.pdf\nhttp://b.test/2.pdf\n"; got != want {
		t.Fatalf("file = %q, want %q", got, want)
	}
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	path := tempCachePath(t)

	s := NewFileStore(path, nil)
	s.Add("http://a.test/1.pdf")
	s.Add("http://a.test/2.pdf")

	reopened := NewFileStore(path, nil)
	if reopened.Len() != 2 {
		t.Fatalf("len after reopen = %d, want 2", reopened.Len())
	}
	if !reopened.Contains("http://a.test/1.pdf") || !reopened.Contains("http://a.test/2.pdf") {
		t.Fatal("reopened store missing persisted urls")
	}
	if reopened.Add("http://a.test/1.pdf") {
		t.Fatal("add of persisted url returned true after reopen")
	}
}

func TestFileStoreIgnoresBlankLines(t *testing.T) {
	path := tempCachePath(t)
	content := "http://a.test/1.pdf\n\n  \nhttp://a.test/2.pdf\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	s := NewFileStore(path, nil)
	if s.Len() != 2 {
		t.Fatalf("len = %d, want 2", s.Len())
	}
}

func TestFileStoreDegradesWhenUnwritable(t *testing.T) {
	// Parent directory does not exist, so every flush fails.
	path := filepath.Join(t.TempDir(), "missing", "urls.txt")
	s := NewFileStore(path, nil)

	if !s.Add("http://a.test/1.pdf") {
		t.Fatal("add returned false on unwritable store")
	}
	if !s.Contains("http://a.test/1.pdf") {
		t.Fatal("in-memory set lost after failed flush")
	}
	if !s.Add("http://a.test/2.pdf") {
		t.Fatal("second add returned false on degraded store")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("cache file unexpectedly exists: %v", err)
	}
}

func TestFileStoreConcurrentClaim(t *testing.T) {
	s := NewFileStore(tempCachePath(t), nil)

	const workers = 20
	var wg sync.WaitGroup
	claims := make(chan bool, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claims <- s.Add("http://a.test/shared.pdf")
		}()
	}
	wg.Wait()
	close(claims)

	won := 0
	for ok := range claims {
		if ok {
			won++
		}
	}
	if won != 1 {
		t.Fatalf("%d goroutines claimed the url, want exactly 1", won)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()

	if s.Contains("http://a.test/doc.pdf") {
		t.Fatal("empty store contains url")
	}
	if !s.Add("http://a.test/doc.pdf") {
		t.Fatal("first add returned false")
	}
	if s.Add("http://a.test/doc.pdf") {
		t.Fatal("second add returned true")
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestOpenBackends(t *testing.T) {
	tests := []struct {
		backend string
		wantErr bool
	}{
		{"file", false},
		{"", false},
		{"memory", false},
		{"leveldb", false},
		{"bogus", true},
	}

	for _, tt := range tests {
		t.Run("backend "+tt.backend, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cache")
			s, err := Open(tt.backend, path, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Open(%q) succeeded, want error", tt.backend)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open(%q): %v", tt.backend, err)
			}
			defer s.Close()
			if !s.Add("http://a.test/doc.pdf") {
				t.Fatal("add on fresh store returned false")
			}
		})
	}
}
