// Package api is the admin HTTP surface of the importer.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amishk599/jobimport/internal/importer"
	"github.com/amishk599/jobimport/internal/model"
)

// Imports is the queue side of the importer.
type Imports interface {
	Enqueue(ctx context.Context, urls []string, submittedBy string, preferAI bool) (importer.EnqueueResult, error)
	Status(ctx context.Context) (importer.StatusReport, error)
	RetryFailed(ctx context.Context) (int, error)
	Rescrape(ctx context.Context, id string) (*model.QueueItem, error)
}

// Batches runs import batches.
type Batches interface {
	RunNow(ctx context.Context) (importer.BatchReport, error)
	Submit()
}

type Server struct {
	imports Imports
	batches Batches
	auth    *Auth
	timeout time.Duration
	logger  *slog.Logger

	defaultPreferAI bool
}

func NewServer(imports Imports, batches Batches, auth *Auth, timeout time.Duration, logger *slog.Logger) *Server {
	return &Server{
		imports: imports,
		batches: batches,
		auth:    auth,
		timeout: timeout,
		logger:  logger,

		defaultPreferAI: true,
	}
}

// WithDefaultPreferAI sets the preferAI value used when an enqueue request
// omits it.
func (s *Server) WithDefaultPreferAI(v bool) *Server {
	s.defaultPreferAI = v
	return s
}

// Handler returns the router with all routes and middleware mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLog(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/imports", func(r chi.Router) {
		r.Use(s.auth.requireAdmin)
		if s.timeout > 0 {
			r.Use(middleware.Timeout(s.timeout))
		}
		r.Post("/", s.enqueue)
		r.Post("/run", s.runNow)
		r.Get("/status", s.status)
		r.Post("/retry", s.retryFailed)
		r.Post("/{id}/rescrape", s.rescrape)
	})
	return r
}
