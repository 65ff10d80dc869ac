package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/mansoorceksport/floorplan/internal/domain"
)

// LocalDiskStorage implements domain.BlobStorage on a local directory.
// Writes go to a temp file which is fsynced and renamed into place, so a
// path either holds every byte or does not exist.
type LocalDiskStorage struct {
	root string
}

// NewLocalDiskStorage creates the root directory if needed
func NewLocalDiskStorage(root string) (*LocalDiskStorage, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage dir %s: %w", root, err)
	}
	return &LocalDiskStorage{root: root}, nil
}

// Put streams body to key, computing its SHA-256 on the fly
func (s *LocalDiskStorage) Put(ctx context.Context, key string, body io.Reader, contentType string) (*domain.BlobObject, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return nil, &domain.StorageIOError{Op: "put", Path: key, Err: err}
	}
	if _, err := os.Lstat(fullPath); err == nil {
		return nil, &domain.StorageIOError{Op: "put", Path: key, Err: fs.ErrExist}
	}

	tmpPath := filepath.Join(filepath.Dir(fullPath), "."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return nil, &domain.StorageIOError{Op: "put", Path: key, Err: err}
	}

	fail := func(err error) (*domain.BlobObject, error) {
		f.Close()
		os.Remove(tmpPath)
		return nil, &domain.StorageIOError{Op: "put", Path: key, Err: err}
	}

	hasher := sha256.New()
	size, err := io.Copy(f, io.TeeReader(&contextReader{ctx: ctx, r: body}, hasher))
	if err != nil {
		return fail(err)
	}
	if err := f.Sync(); err != nil {
		return fail(err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, &domain.StorageIOError{Op: "put", Path: key, Err: err}
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, &domain.StorageIOError{Op: "put", Path: key, Err: err}
	}

	return &domain.BlobObject{
		Path:     key,
		Size:     size,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Open returns a reader over the stored bytes. The caller must close it.
func (s *LocalDiskStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: blob %s", domain.ErrNotFound, key)
		}
		return nil, &domain.StorageIOError{Op: "open", Path: key, Err: err}
	}
	return f, nil
}

// Delete removes the blob. Missing blobs are not an error.
func (s *LocalDiskStorage) Delete(ctx context.Context, key string) error {
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &domain.StorageIOError{Op: "delete", Path: key, Err: err}
	}
	return nil
}

// resolve maps a slash separated key to a path below root
func (s *LocalDiskStorage) resolve(key string) (string, error) {
	cleaned := path.Clean("/" + key)[1:]
	if key == "" || cleaned == "" || cleaned != key || strings.HasPrefix(key, "/") {
		return "", &domain.StorageIOError{Op: "resolve", Path: key, Err: fmt.Errorf("invalid key")}
	}
	return filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}

// contextReader stops reading once ctx is done
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
