package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const (
	tmpDirName        = ".tmp"
	idAllocAttempts   = 20
	blobDirPermission = 0o755
)

// Option configures a LocalStore.
type Option func(*LocalStore)

// WithFs swaps the filesystem the store writes to.
func WithFs(fs afero.Fs) Option {
	return func(s *LocalStore) {
		if fs != nil {
			s.fs = fs
		}
	}
}

// WithIDGenerator swaps the id strategy.
func WithIDGenerator(ids IDGenerator) Option {
	return func(s *LocalStore) {
		if ids != nil {
			s.ids = ids
		}
	}
}

// LocalStore keeps one file per blob in a single directory. The file name is
// the blob id; the directory listing is the index.
type LocalStore struct {
	root string
	fs   afero.Fs
	ids  IDGenerator
}

// NewLocalStore creates a store rooted at root, creating the directory if needed.
func NewLocalStore(root string, opts ...Option) (*LocalStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("storage root is required")
	}

	s := &LocalStore{fs: afero.NewOsFs(), ids: NewTimestampIDs()}
	for _, apply := range opts {
		apply(s)
	}

	if _, isOS := s.fs.(*afero.OsFs); isOS {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		root = abs
	}
	s.root = filepath.Clean(root)

	tmp := filepath.Join(s.root, tmpDirName)
	if info, err := s.fs.Stat(tmp); err != nil || !info.IsDir() {
		if err := s.fs.MkdirAll(tmp, blobDirPermission); err != nil {
			return nil, &StorageError{Op: "init", Err: err}
		}
	}
	return s, nil
}

// Root returns the storage directory.
func (s *LocalStore) Root() string {
	return s.root
}

// Put streams r into a staging file and moves it under a freshly allocated id.
func (s *LocalStore) Put(ctx context.Context, originalName string, r io.Reader) (string, error) {
	if s == nil {
		return "", fmt.Errorf("blob store is not configured")
	}
	if r == nil {
		return "", fmt.Errorf("reader is required")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tmp, err := afero.TempFile(s.fs, filepath.Join(s.root, tmpDirName), "put-*")
	if err != nil {
		return "", &StorageError{Op: "put", Err: err}
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpPath)
	}

	if _, err := io.Copy(tmp, r); err != nil {
		cleanup()
		return "", &StorageError{Op: "put", Err: err}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", &StorageError{Op: "put", Err: err}
	}

	for attempt := 0; attempt < idAllocAttempts; attempt++ {
		id := s.ids.NextID(originalName)
		if !ValidID(id) {
			cleanup()
			return "", &StorageError{Op: "put", ID: id, Err: fmt.Errorf("generated id is not storable")}
		}
		dst := s.path(id)
		if _, err := s.fs.Stat(dst); err == nil {
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			cleanup()
			return "", &StorageError{Op: "put", ID: id, Err: err}
		}
		if err := s.fs.Rename(tmpPath, dst); err != nil {
			cleanup()
			return "", &StorageError{Op: "put", ID: id, Err: err}
		}
		return id, nil
	}

	cleanup()
	return "", &StorageError{Op: "put", Err: fmt.Errorf("unable to allocate unique id")}
}

// Exists reports whether a regular file is stored under id.
func (s *LocalStore) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := s.stat(id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Get returns the full content of the blob.
func (s *LocalStore) Get(ctx context.Context, id string) ([]byte, error) {
	obj, err := s.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, &StorageError{Op: "get", ID: id, Err: err}
	}
	return data, nil
}

// Open returns a seekable reader for the blob.
func (s *LocalStore) Open(ctx context.Context, id string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := s.stat(id)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.Open(s.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, &StorageError{Op: "open", ID: id, Err: err}
	}
	return &Object{ReadSeekCloser: f, ID: id, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Remove deletes the blob. Missing blobs report ErrNotFound.
func (s *LocalStore) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.stat(id); err != nil {
		return err
	}
	if err := s.fs.Remove(s.path(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return &StorageError{Op: "remove", ID: id, Err: err}
	}
	return nil
}

// List returns the ids of all stored blobs, sorted by name.
func (s *LocalStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Mode().IsRegular() || !ValidID(entry.Name()) {
			continue
		}
		ids = append(ids, entry.Name())
	}
	return ids, nil
}

func (s *LocalStore) stat(id string) (os.FileInfo, error) {
	if !ValidID(id) {
		return nil, ErrNotFound
	}
	info, err := s.fs.Stat(s.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, &StorageError{Op: "stat", ID: id, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, ErrNotFound
	}
	return info, nil
}

func (s *LocalStore) path(id string) string {
	return filepath.Join(s.root, id)
}
