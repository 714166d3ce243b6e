package asset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/erazemk/najdeno/internal/model"
)

// LocalBackend keeps assets as files in one directory.
type LocalBackend struct {
	root string
}

// NewLocalBackend returns a backend rooted at dir, creating it if needed.
func NewLocalBackend(dir string) (*LocalBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload folder: %w", err)
	}
	return &LocalBackend{root: dir}, nil
}

// Put writes data under key. The file appears atomically.
func (b *LocalBackend) Put(_ context.Context, key string, data []byte, _ string) error {
	tmp, err := os.CreateTemp(b.root, ".upload-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), b.path(key)); err != nil {
		return fmt.Errorf("moving asset into place: %w", err)
	}
	return nil
}

// Open opens the file stored under key.
func (b *LocalBackend) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(b.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("asset %s: %w", key, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("opening asset: %w", err)
	}
	return f, nil
}

// Delete removes the file stored under key.
func (b *LocalBackend) Delete(_ context.Context, key string) error {
	err := os.Remove(b.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Exists reports whether a file is stored under key.
func (b *LocalBackend) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(b.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (b *LocalBackend) path(key string) string {
	return filepath.Join(b.root, filepath.Base(key))
}
