package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrNotFound reports that no blob is stored under the requested id.
var ErrNotFound = errors.New("blob not found")

// StorageError wraps a failure of the underlying storage medium.
type StorageError struct {
	Op  string
	ID  string
	Err error
}

func (e *StorageError) Error() string {
	if e == nil {
		return ""
	}
	if e.ID == "" {
		return fmt.Sprintf("blobstore %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("blobstore %s %q: %v", e.Op, e.ID, e.Err)
}

func (e *StorageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Object is an open stored blob.
type Object struct {
	io.ReadSeekCloser
	ID      string
	Size    int64
	ModTime time.Time
}

// BlobStore is the byte-storage abstraction used by CatService.
type BlobStore interface {
	Put(ctx context.Context, originalName string, r io.Reader) (string, error)
	Exists(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id string) ([]byte, error)
	Open(ctx context.Context, id string) (*Object, error)
	Remove(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
}

// IDGenerator allocates ids for new blobs.
type IDGenerator interface {
	NextID(originalName string) string
}
