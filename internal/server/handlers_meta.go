package server

import (
	"net/http"

	"meow/internal/api"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}

func (s *Server) handleAPIDocs(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.docs.document)
}

func (s *Server) handleAPIDocsYAML(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(s.docs.raw); err != nil {
		s.log().Error("write api docs", "error", err)
	}
}
