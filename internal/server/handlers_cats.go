package server

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"meow/internal/api"
)

const (
	catPicField = "catPic"

	msgNoFileUploaded  = "No file uploaded"
	msgFileNotFound    = "File not found"
	msgUploadTooLarge  = "Upload too large"
	msgErrorSaving     = "Error saving file"
	msgErrorReading    = "Error reading file"
	msgErrorUpdating   = "Error updating file"
	msgErrorDeleting   = "Error deleting file"
	msgErrorReadingDir = "Error reading directory"

	fallbackContentType = "application/octet-stream"
)

func (s *Server) handleCreateCat(w http.ResponseWriter, r *http.Request) {
	upload, closer, err := s.readUpload(w, r)
	if closer != nil {
		defer closer.Close()
	}
	if err != nil {
		s.writeErrorReq(w, r, err)
		return
	}

	result, err := s.cats.Create(r.Context(), upload)
	if err != nil {
		s.writeErrorReq(w, r, catError(err, msgErrorSaving))
		return
	}

	s.writeJSON(w, http.StatusCreated, api.CatResponse{ID: result.ID, Message: result.Message})
}

func (s *Server) handleListCats(w http.ResponseWriter, r *http.Request) {
	ids, err := s.cats.List(r.Context())
	if err != nil {
		s.writeErrorReq(w, r, storeFailure(err, msgErrorReadingDir))
		return
	}

	cats := make([]api.CatRef, 0, len(ids))
	for _, id := range ids {
		cats = append(cats, api.CatRef{ID: id})
	}
	s.log().Debug("listed cat pics", "count", len(cats))
	s.writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleGetCat(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	obj, err := s.cats.Read(r.Context(), id)
	if err != nil {
		s.writeErrorReq(w, r, catError(err, msgErrorReading))
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", contentTypeForID(id))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": id}))
	http.ServeContent(w, r, id, obj.ModTime, obj)
}

func (s *Server) handleUpdateCat(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var closer io.Closer
	defer func() {
		if closer != nil {
			_ = closer.Close()
		}
	}()
	open := func() (*Upload, error) {
		upload, c, err := s.readUpload(w, r)
		closer = c
		return upload, err
	}

	result, err := s.cats.Update(r.Context(), id, open)
	if err != nil {
		s.writeErrorReq(w, r, catError(err, msgErrorUpdating))
		return
	}

	s.writeJSON(w, http.StatusOK, api.CatResponse{ID: result.ID, Message: result.Message})
}

func (s *Server) handleDeleteCat(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	result, err := s.cats.Delete(r.Context(), id)
	if err != nil {
		// Deleting an absent id is reported as a failed deletion, not a 404.
		s.writeErrorReq(w, r, storeFailure(err, msgErrorDeleting))
		return
	}

	s.writeJSON(w, http.StatusOK, api.MessageResponse{Message: result.Message})
}

// readUpload parses the multipart body and returns the catPic file part. A
// request without that part yields a nil upload and no error.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*Upload, io.Closer, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.uploads.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.uploads.MultipartMaxMemory); err != nil {
		if isBodyTooLarge(err) {
			return nil, nil, badRequestCode(err, msgUploadTooLarge, ErrCodeRequestTooLarge)
		}
		s.log().Debug("no multipart upload", "method", r.Method, "path", r.URL.Path, "error", err)
		return nil, nil, nil
	}

	file, header, err := r.FormFile(catPicField)
	if err != nil {
		return nil, nil, nil
	}
	return &Upload{Filename: header.Filename, Content: file}, file, nil
}

func catError(err error, faultMessage string) error {
	var apiErr apiError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, ErrNoFileProvided):
		return badRequestCode(err, msgNoFileUploaded, ErrCodeNoFileProvided)
	case errors.Is(err, ErrNotFound):
		return notFoundCode(err, msgFileNotFound, ErrCodeCatNotFound)
	default:
		return storeFailure(err, faultMessage)
	}
}

func isBodyTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "request body too large")
}

func contentTypeForID(id string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(id))); ct != "" {
		return ct
	}
	return fallbackContentType
}
