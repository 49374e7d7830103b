package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"meow/internal/blobstore"
)

const (
	msgCatUploaded = "Cat pic uploaded successfully"
	msgCatUpdated  = "Cat pic updated successfully"
	msgCatDeleted  = "Cat pic deleted successfully"
)

var (
	// ErrNoFileProvided reports a create or update without uploaded content.
	ErrNoFileProvided = errors.New("no file provided")
	// ErrNotFound reports an id with no stored cat pic.
	ErrNotFound = errors.New("cat pic not found")
	// ErrStorageFault reports a storage failure on an operation that should have succeeded.
	ErrStorageFault = errors.New("storage fault")
)

// Upload is one uploaded file.
type Upload struct {
	Filename string
	Content  io.Reader
}

// UploadOpener yields the uploaded file on demand. A nil upload means none was sent.
type UploadOpener func() (*Upload, error)

// CatResult is the outcome of a mutating operation.
type CatResult struct {
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

// CatService orchestrates cat pic operations over a blob store.
type CatService struct {
	blobs   blobstore.BlobStore
	logger  *slog.Logger
	metrics *Metrics
}

// NewCatService constructs a CatService.
func NewCatService(blobs blobstore.BlobStore, logger *slog.Logger, metrics *Metrics) *CatService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatService{blobs: blobs, logger: logger, metrics: metrics}
}

// Create stores a new cat pic and returns its id.
func (s *CatService) Create(ctx context.Context, upload *Upload) (CatResult, error) {
	var zero CatResult
	if err := s.ready(); err != nil {
		return zero, err
	}
	id, err := s.put(ctx, upload)
	if err != nil {
		s.observe("create", err)
		return zero, err
	}
	s.observe("create", nil)
	s.logger.Info("cat pic stored", "id", id)
	return CatResult{ID: id, Message: msgCatUploaded}, nil
}

// Read opens the stored content for id.
func (s *CatService) Read(ctx context.Context, id string) (*blobstore.Object, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	obj, err := s.blobs.Open(ctx, id)
	if err != nil {
		err = mapStoreError(err)
		s.observe("read", err)
		return nil, err
	}
	s.observe("read", nil)
	return obj, nil
}

// List returns the ids of all stored cat pics.
func (s *CatService) List(ctx context.Context) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	ids, err := s.blobs.List(ctx)
	if err != nil {
		err = mapStoreError(err)
		s.observe("list", err)
		return nil, err
	}
	s.observe("list", nil)
	return ids, nil
}

// Update replaces the cat pic stored under id with a new upload, issuing a
// new id. The old blob is removed before the upload is read, so a missing
// upload leaves the old id gone with no replacement.
func (s *CatService) Update(ctx context.Context, id string, open UploadOpener) (CatResult, error) {
	var zero CatResult
	if err := s.ready(); err != nil {
		return zero, err
	}

	exists, err := s.blobs.Exists(ctx, id)
	if err != nil {
		err = mapStoreError(err)
		s.observe("update", err)
		return zero, err
	}
	if !exists {
		s.observe("update", ErrNotFound)
		return zero, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	// Any removal failure here, including a concurrent delete, is a storage fault.
	if err := s.blobs.Remove(ctx, id); err != nil {
		err = fmt.Errorf("%w: remove %s: %w", ErrStorageFault, id, err)
		s.observe("update", err)
		return zero, err
	}
	s.logger.Info("cat pic removed for update", "id", id)

	var upload *Upload
	if open != nil {
		upload, err = open()
		if err != nil {
			s.observe("update", err)
			return zero, err
		}
	}

	newID, err := s.put(ctx, upload)
	if err != nil {
		s.observe("update", err)
		return zero, err
	}
	s.observe("update", nil)
	s.logger.Info("cat pic replaced", "id", id, "new_id", newID)
	return CatResult{ID: newID, Message: msgCatUpdated}, nil
}

// Delete removes the cat pic stored under id.
func (s *CatService) Delete(ctx context.Context, id string) (CatResult, error) {
	var zero CatResult
	if err := s.ready(); err != nil {
		return zero, err
	}
	if err := s.blobs.Remove(ctx, id); err != nil {
		err = mapStoreError(err)
		s.observe("delete", err)
		return zero, err
	}
	s.observe("delete", nil)
	s.logger.Info("cat pic deleted", "id", id)
	return CatResult{Message: msgCatDeleted}, nil
}

func (s *CatService) put(ctx context.Context, upload *Upload) (string, error) {
	if upload == nil || upload.Content == nil {
		return "", ErrNoFileProvided
	}

	buffered := bufio.NewReader(upload.Content)
	if _, err := buffered.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return "", ErrNoFileProvided
		}
		return "", err
	}

	counted := &countingReader{r: buffered}
	id, err := s.blobs.Put(ctx, upload.Filename, counted)
	if err != nil {
		return "", mapStoreError(err)
	}
	s.metrics.observeUpload(counted.n)
	return id, nil
}

func (s *CatService) ready() error {
	if s == nil || s.blobs == nil {
		return fmt.Errorf("%w: cat service is not configured", ErrStorageFault)
	}
	return nil
}

func (s *CatService) observe(op string, err error) {
	s.metrics.observeOperation(op, operationOutcome(err))
}

func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, blobstore.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorageFault, err)
}

func operationOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoFileProvided):
		return "no_file"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrStorageFault):
		return "storage_fault"
	default:
		return "error"
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
