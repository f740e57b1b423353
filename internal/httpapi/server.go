// Package httpapi exposes the generation pipeline over HTTP: submission,
// SSE progress streaming, conversation retrieval, polling, and
// cancellation, per §6.
package httpapi

import (
	"encoding/json"
	"net/http"

	"adreel/internal/coordinator"
	"adreel/internal/persistence"
	"adreel/internal/progressbus"
	"adreel/internal/version"
)

// Server wires the Generation Coordinator, the Progress Bus registry, and
// the Generation store into the HTTP surface.
type Server struct {
	coord *coordinator.Coordinator
	buses *progressbus.Registry
	store persistence.GenerationStore
	mux   *http.ServeMux
}

// NewServer creates the HTTP API server wired to the generation pipeline.
func NewServer(coord *coordinator.Coordinator, buses *progressbus.Registry, store persistence.GenerationStore) *Server {
	s := &Server{coord: coord, buses: buses, store: store, mux: http.NewServeMux()}
	s.registerRoutes()
	return s
}

// ServeHTTP satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "version": version.Version})
	})

	s.mux.HandleFunc("GET /api/metrics/tokens", s.handleTokenMetrics)

	s.mux.HandleFunc("POST /api/generations", s.handleSubmit)
	s.mux.HandleFunc("GET /api/generations/{id}", s.handleGet)
	s.mux.HandleFunc("GET /api/generations/{id}/stream", s.handleStream)
	s.mux.HandleFunc("GET /api/generations/{id}/conversation", s.handleConversation)
	s.mux.HandleFunc("POST /api/generations/{id}/cancel", s.handleCancel)
}
