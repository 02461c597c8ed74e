package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStorage keeps one file per key inside a directory.
// Files are written with restricted permissions since they hold credentials.
type FileStorage struct {
	Dir string

	mu sync.Mutex
}

// NewFileStorage creates the directory if needed and returns a FileStorage rooted at it
func NewFileStorage(dir string) (*FileStorage, error) {
	const op = "storage.NewFileStorage"

	if dir == "" {
		return nil, fmt.Errorf("%s: directory is required", op)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &FileStorage{Dir: dir}, nil
}

// Path returns the file backing key
func (fs *FileStorage) Path(key string) string {
	return filepath.Join(fs.Dir, "."+key)
}

func (fs *FileStorage) GetItem(key string) (string, bool, error) {
	const op = "storage.FileStorage.GetItem"

	if err := validateKey(key); err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(fs.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	return string(data), true, nil
}

func (fs *FileStorage) SetItem(key, value string) error {
	const op = "storage.FileStorage.SetItem"

	if err := validateKey(key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	// Write to a temp file first so a crash never leaves a half-written token
	tmp, err := os.CreateTemp(fs.Dir, "."+key+".tmp-*")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := os.Rename(tmpName, fs.Path(key)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (fs *FileStorage) RemoveItem(key string) error {
	const op = "storage.FileStorage.RemoveItem"

	if err := validateKey(key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	err := os.Remove(fs.Path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (fs *FileStorage) Close() error {
	return nil
}
