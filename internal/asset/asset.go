// Package asset stores uploaded item images under generated keys.
package asset

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/erazemk/najdeno/internal/imaging"
	"github.com/erazemk/najdeno/internal/model"
)

// Backend persists blobs by key. Deleting or probing a missing key is not
// an error; opening one yields model.ErrNotFound.
type Backend interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Options configures a Store.
type Options struct {
	// AllowedExtensions are lowercase extensions without the dot.
	AllowedExtensions []string
	// MaxSize is the largest accepted upload in bytes.
	MaxSize int64
	// MaxImageDimension bounds stored JPEG/PNG images.
	MaxImageDimension int
}

// Store is the asset store: validation, key generation and storage of
// uploaded images.
type Store struct {
	backend   Backend
	processor *imaging.Processor
	allowed   map[string]bool
	maxSize   int64
}

// NewStore returns an asset store writing to backend.
func NewStore(backend Backend, opts Options) *Store {
	allowed := make(map[string]bool, len(opts.AllowedExtensions))
	for _, ext := range opts.AllowedExtensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}

	return &Store{
		backend:   backend,
		processor: imaging.NewProcessor(opts.MaxImageDimension),
		allowed:   allowed,
		maxSize:   opts.MaxSize,
	}
}

// Validate checks the extension of an uploaded file name against the
// allow-list and returns it lowercased without the dot.
func (s *Store) Validate(originalName string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(originalName), "."))
	if ext == "" || !s.allowed[ext] {
		return "", fmt.Errorf("%w: %q", model.ErrUnsupportedAssetType, originalName)
	}
	return ext, nil
}

// Save validates and stores an upload and returns its new key. The caller's
// file name only contributes its extension.
func (s *Store) Save(ctx context.Context, r io.Reader, originalName string) (string, error) {
	ext, err := s.Validate(originalName)
	if err != nil {
		return "", err
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return "", model.ErrPayloadTooLarge
	}

	data, err = s.processor.Process(data, ext)
	if err != nil {
		return "", err
	}

	key := NewKey(ext)
	if err := s.backend.Put(ctx, key, data, mimetype.Detect(data).String()); err != nil {
		return "", fmt.Errorf("storing asset: %w", err)
	}

	return key, nil
}

// Delete removes an asset. An empty key or a missing asset is a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if !ValidKey(key) {
		return fmt.Errorf("asset %q: %w", key, model.ErrNotFound)
	}
	if err := s.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("deleting asset %s: %w", key, err)
	}
	return nil
}

// Exists reports whether an asset is stored under key.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if !ValidKey(key) {
		return false, nil
	}
	return s.backend.Exists(ctx, key)
}

// Read returns an asset's content and its sniffed media type.
func (s *Store) Read(ctx context.Context, key string) ([]byte, string, error) {
	if !ValidKey(key) {
		return nil, "", fmt.Errorf("asset %q: %w", key, model.ErrNotFound)
	}

	rc, err := s.backend.Open(ctx, key)
	if err != nil {
		return nil, "", err
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, "", fmt.Errorf("reading asset %s: %w", key, err)
	}

	data := buf.Bytes()
	return data, mimetype.Detect(data).String(), nil
}

var keyPattern = regexp.MustCompile(`^[0-9a-f]{32}\.[a-z0-9]{1,10}$`)

// NewKey returns a fresh random key with the given extension.
func NewKey(ext string) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + "." + ext
}

// ValidKey reports whether key has the shape of a generated key. Anything
// else (including path separators) is rejected.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}
