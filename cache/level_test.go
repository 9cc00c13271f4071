package cache

import (
	"path/filepath"
	"testing"
)

func TestLevelStoreAddAndContains(t *testing.T) {
	s, err := NewLevelStore(filepath.Join(t.TempDir(), "db"), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if !s.Add("http://a.test/doc.pdf") {
		t.Fatal("first add returned false")
	}
	if s.Add("http://a.test/doc.pdf") {
		t.Fatal("second add returned true")
	}
	if !s.Contains("http://a.test/doc.pdf") {
		t.Fatal("contains = false after add")
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}
}

func TestLevelStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")

	s, err := NewLevelStore(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s.Add("http://a.test/1.pdf")
	s.Add("http://a.test/2.pdf")
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewLevelStore(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	if reopened.Len() != 2 {
		t.Fatalf("len after reopen = %d, want 2", reopened.Len())
	}
	if reopened.Add("http://a.test/1.pdf") {
		t.Fatal("add of persisted url returned true after reopen")
	}
}
