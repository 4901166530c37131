// Package api exposes the processing pipeline over HTTP: a multipart upload
// endpoint running the hybrid single-record path per file.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/doctriage/doctriage/internal/pipeline"
)

// DocProcessor is the slice of the pipeline the HTTP boundary needs.
type DocProcessor interface {
	ProcessDocument(ctx context.Context, data []byte, filename, model string) pipeline.DocumentResult
}

// Server is the HTTP API server.
type Server struct {
	router         chi.Router
	proc           DocProcessor
	log            *slog.Logger
	maxUploadBytes int64
}

// NewServer creates and configures the HTTP server.
func NewServer(proc DocProcessor, log *slog.Logger, maxUploadBytes int64) *Server {
	if log == nil {
		log = slog.Default()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 50 << 20
	}
	s := &Server{
		proc:           proc,
		log:            log,
		maxUploadBytes: maxUploadBytes,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Post("/api/process", s.handleProcess)
	// legacy alias
	r.Post("/api/process-batch", s.handleProcess)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
