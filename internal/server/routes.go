package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check, docs and metrics.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api-docs", s.handleAPIDocs)
	mux.HandleFunc("GET /api-docs/openapi.yaml", s.handleAPIDocsYAML)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	// Cat pics collection.
	mux.HandleFunc("POST /api/cats", s.handleCreateCat)
	mux.HandleFunc("GET /api/cats", s.handleListCats)

	// Single cat pic.
	mux.HandleFunc("GET /api/cats/{id}", s.handleGetCat)
	mux.HandleFunc("PUT /api/cats/{id}", s.handleUpdateCat)
	mux.HandleFunc("DELETE /api/cats/{id}", s.handleDeleteCat)

	return mux
}
