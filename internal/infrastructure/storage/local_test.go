package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalStorage_SaveOpenRemove(t *testing.T) {
	s, err := NewLocalStorage(filepath.Join(t.TempDir(), "files"))
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}

	name, size, err := s.Save(".TXT", strings.NewReader("hello"), 10)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if size != 5 || !strings.HasSuffix(name, ".txt") {
		t.Errorf("unexpected save result: %s %d", name, size)
	}

	f, err := s.Open(name)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, _ := io.ReadAll(f)
	f.Close()
	if string(data) != "hello" {
		t.Errorf("Expected hello, got %q", data)
	}

	if err := s.Remove(name); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := s.Open(name); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected not exist after remove, got %v", err)
	}
	if err := s.Remove(name); err != nil {
		t.Errorf("Expected removing a missing file to succeed, got %v", err)
	}
}

func TestLocalStorage_TooLarge(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewLocalStorage(dir)

	_, _, err := s.Save(".txt", strings.NewReader("0123456789"), 4)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Expected ErrTooLarge, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("Expected partial file to be removed, found %d entries", len(entries))
	}
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	s, _ := NewLocalStorage(t.TempDir())
	for _, name := range []string{"", "../etc/passwd", "a/b", ".hidden"} {
		if _, err := s.Open(name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("%q: Expected ErrInvalidName, got %v", name, err)
		}
	}
}
