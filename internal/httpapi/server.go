// Package httpapi exposes the separation service over HTTP: multipart
// upload, job status polling, cancellation, zip download, and a websocket
// progress stream. Routing follows the chi-based job-status server found
// in the retrieved corpus, adapted from a single-job-per-upload model to
// the opaque-id job registry this service needs.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"stemsmith/internal/service"
)

const defaultMaxUploadBytes = 1 << 30 // 1GiB; stem-separation inputs run long.

// Server wires the service facade into an HTTP router.
type Server struct {
	logger *slog.Logger
	router *chi.Mux
	svc    *service.Service

	uploadsDir     string
	maxUploadBytes int64

	registry *registry
	upgrader websocket.Upgrader
}

// Config configures a Server.
type Config struct {
	Logger         *slog.Logger
	Service        *service.Service
	UploadsDir     string
	MaxUploadBytes int64
}

// NewServer builds a Server and registers its routes.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxUploadBytes := cfg.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}

	s := &Server{
		logger:         logger,
		router:         chi.NewRouter(),
		svc:            cfg.Service,
		uploadsDir:     cfg.UploadsDir,
		maxUploadBytes: maxUploadBytes,
		registry:       newRegistry(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	s.registerRoutes()
	return s
}

// Router returns the HTTP handler to serve.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(2 * time.Hour))

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/models", s.handleListModels)
	s.router.Post("/jobs", s.handleCreateJob)
	s.router.Get("/jobs/{id}", s.handleGetJob)
	s.router.Delete("/jobs/{id}", s.handleCancelJob)
	s.router.Get("/jobs/{id}/download", s.handleDownloadJob)
	s.router.Get("/jobs/{id}/events", s.handleJobEvents)
}
