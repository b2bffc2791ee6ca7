package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/djamrezki/storage-stream-api/internal/common"
	"github.com/djamrezki/storage-stream-api/internal/filex"
)

// LocalStore implements Store on the local filesystem, mainly for
// development and tests. Keys map to paths under the root directory.
type LocalStore struct {
	root string
}

// NewLocalStore ensures the root directory exists and returns the store.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := filex.EnsureDir(root); err != nil {
		return nil, err
	}
	return &LocalStore{root: root}, nil
}

// path maps a key to its on-disk location, refusing any key that would
// resolve outside the root. Keys come from NewKey, but the store guards
// itself rather than trusting every caller.
func (s *LocalStore) path(key string) (string, error) {
	rel := filepath.FromSlash(key)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("unsafe blob key %q", key)
	}
	return filepath.Join(s.root, rel), nil
}

// Save streams to a temp file in the target directory and renames it into
// place, so a partially-written blob never becomes visible under its key.
func (s *LocalStore) Save(ctx context.Context, r io.Reader, hints SaveHints) (SaveResult, error) {
	key := NewKey(hints.OwnerID)
	dst, err := s.path(key)
	if err != nil {
		return SaveResult{}, err
	}

	if err := filex.EnsureDir(filepath.Dir(dst)); err != nil {
		return SaveResult{}, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return SaveResult{}, fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return SaveResult{}, fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return SaveResult{}, fmt.Errorf("sync blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return SaveResult{}, fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return SaveResult{}, fmt.Errorf("finalize blob: %w", err)
	}

	return SaveResult{Key: key, Size: size}, nil
}

func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, common.ErrNotFound
		}
		return nil, 0, fmt.Errorf("open blob: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("stat blob: %w", err)
	}
	return f, info.Size(), nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}
