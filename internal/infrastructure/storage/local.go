// Package storage keeps uploaded task attachments on the local filesystem.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidName = errors.New("invalid stored file name")

// FileStorage stores attachment contents under generated names.
type FileStorage interface {
	Save(ext string, r io.Reader, limit int64) (name string, size int64, err error)
	Open(name string) (*os.File, error)
	Remove(name string) error
}

type LocalStorage struct {
	dir string
}

var _ FileStorage = (*LocalStorage)(nil)

func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
	}
	return &LocalStorage{dir: dir}, nil
}

// ErrTooLarge is returned by Save when the content exceeds the limit. Nothing is kept.
var ErrTooLarge = errors.New("file too large")

// Save copies at most limit bytes from r into a new file named <uuid><ext>.
func (s *LocalStorage) Save(ext string, r io.Reader, limit int64) (string, int64, error) {
	name := strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ToLower(ext)
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("create %s: %w", name, err)
	}

	n, err := io.Copy(f, io.LimitReader(r, limit+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > limit {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		return "", 0, err
	}
	return name, n, nil
}

func (s *LocalStorage) Open(name string) (*os.File, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Remove deletes the stored file. A missing file is not an error.
func (s *LocalStorage) Remove(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStorage) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", ErrInvalidName
	}
	return filepath.Join(s.dir, name), nil
}
