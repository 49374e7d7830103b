package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"

	"meow/internal/api"
)

func TestListenAddrRemoteGuard(t *testing.T) {
	t.Run("allows loopback", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "")
		addr, err := ListenAddr("http://127.0.0.1:3000")
		if err != nil {
			t.Fatalf("expected loopback to be allowed, got error: %v", err)
		}
		if addr != "127.0.0.1:3000" {
			t.Fatalf("unexpected addr: %s", addr)
		}
	})

	t.Run("blocks non-loopback by default", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "")
		_, err := ListenAddr("http://0.0.0.0:3000")
		if err == nil {
			t.Fatal("expected error for non-loopback listen host")
		}
	})

	t.Run("allows non-loopback when explicitly enabled", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "true")
		addr, err := ListenAddr("http://0.0.0.0:3000")
		if err != nil {
			t.Fatalf("expected allow-remote to permit host, got error: %v", err)
		}
		if addr != "0.0.0.0:3000" {
			t.Fatalf("unexpected addr: %s", addr)
		}
	})

	t.Run("requires url", func(t *testing.T) {
		if _, err := ListenAddr(""); err == nil {
			t.Fatal("expected error for empty api url")
		}
	})
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	w := serve(srv.Handler(), httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := decodeBody[api.HealthResponse](t, w).Status; got != "ok" {
		t.Fatalf("expected ok, got %q", got)
	}
}

func TestAPIDocs(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	w := serve(h, httptest.NewRequest(http.MethodGet, "/api-docs", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	doc := decodeBody[map[string]any](t, w)
	paths, ok := doc["paths"].(map[string]any)
	if !ok {
		t.Fatalf("expected paths object, got %T", doc["paths"])
	}
	for _, path := range []string{"/api/cats", "/api/cats/{id}"} {
		if _, ok := paths[path]; !ok {
			t.Fatalf("expected %s documented", path)
		}
	}

	w = serve(h, httptest.NewRequest(http.MethodGet, "/api-docs/openapi.yaml", nil))
	if ct := w.Header().Get("Content-Type"); ct != "application/yaml" {
		t.Fatalf("expected yaml content type, got %q", ct)
	}
	if !strings.HasPrefix(w.Body.String(), "openapi:") {
		t.Fatalf("expected raw openapi document, got %q", w.Body.String())
	}
}

func TestLoadAPIDocsRejectsInvalidDocument(t *testing.T) {
	if _, err := loadAPIDocs([]byte("openapi: [")); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := loadAPIDocs([]byte("info: {}")); err == nil {
		t.Fatal("expected missing version error")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	uploadCat(t, h, "tabby.jpg", catPicBytes(64))
	serve(h, httptest.NewRequest(http.MethodGet, "/api/cats/missing.jpg", nil))

	requests := srv.metrics.requestsTotal
	if got := testutil.ToFloat64(requests.WithLabelValues("POST /api/cats", http.MethodPost, "201")); got != 1 {
		t.Fatalf("expected 1 upload request recorded, got %v", got)
	}
	if got := testutil.ToFloat64(requests.WithLabelValues("GET /api/cats/{id}", http.MethodGet, "404")); got != 1 {
		t.Fatalf("expected 1 not found request recorded, got %v", got)
	}

	w := serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	for _, name := range []string{"meow_http_requests_total", "meow_cat_operations_total", "meow_upload_bytes"} {
		if !strings.Contains(w.Body.String(), name) {
			t.Fatalf("expected %s in metrics output", name)
		}
	}
}

func TestMetricsDisabled(t *testing.T) {
	srv := New("127.0.0.1:0", newMemStore(t, afero.NewMemMapFs()), quietLogger(), nil)
	w := serve(srv.Handler(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without metrics, got %d", w.Code)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	srv := New("127.0.0.1:0", newMemStore(t, afero.NewMemMapFs()), quietLogger(), nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}
