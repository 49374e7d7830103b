package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/afero"

	"meow/internal/api"
	"meow/internal/blobstore"
)

const testRoot = "/uploads"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMemStore(t *testing.T, fs afero.Fs) *blobstore.LocalStore {
	t.Helper()
	store, err := blobstore.NewLocalStore(testRoot, blobstore.WithFs(fs))
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}
	return store
}

// newTestServer returns a server over an in-memory store with metrics enabled.
func newTestServer(t *testing.T) (*Server, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	store := newMemStore(t, fs)
	return New("127.0.0.1:0", store, quietLogger(), NewMetrics()), fs
}

func catPicBytes(n int) []byte {
	data := make([]byte, n)
	data[0], data[1], data[2] = 0xff, 0xd8, 0xff
	for i := 3; i < n; i++ {
		data[i] = byte(i % 251)
	}
	return data
}

func multipartRequest(t *testing.T, method, target, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		part, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	} else if err := mw.WriteField("note", "no picture here"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, w.Code, w.Body.String())
	}
	var raw map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if len(raw) != 1 {
		t.Fatalf("expected error body with only the error key, got %v", raw)
	}
	resp := decodeBody[api.ErrorResponse](t, w)
	if resp.Error != message {
		t.Fatalf("expected error %q, got %q", message, resp.Error)
	}
}

func uploadCat(t *testing.T, h http.Handler, filename string, content []byte) string {
	t.Helper()
	w := serve(h, multipartRequest(t, http.MethodPost, "/api/cats", catPicField, filename, content))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload %s: expected 201, got %d: %s", filename, w.Code, w.Body.String())
	}
	resp := decodeBody[api.CatResponse](t, w)
	if resp.ID == "" {
		t.Fatal("expected upload to return an id")
	}
	return resp.ID
}

func mustExist(t *testing.T, store blobstore.BlobStore, id string, want bool) {
	t.Helper()
	got, err := store.Exists(context.Background(), id)
	if err != nil {
		t.Fatalf("exists %s: %v", id, err)
	}
	if got != want {
		t.Fatalf("expected exists(%s)=%v, got %v", id, want, got)
	}
}
