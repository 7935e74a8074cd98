package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gidroatlas/atlas-service/internal/adapter/registry"
	"github.com/gidroatlas/atlas-service/internal/catalog"
	"github.com/gidroatlas/atlas-service/internal/domain"
	"github.com/gidroatlas/atlas-service/internal/session"
)

// Catalog is the part of the catalog controller the API exposes.
type Catalog interface {
	Select(criteria domain.Criteria, spec domain.SortSpec) catalog.View
	SortSpec() domain.SortSpec
	Open(ctx context.Context, id int64) (*catalog.Draft, error)
	Edit(ctx context.Context, id int64) (*catalog.Draft, error)
	Save(ctx context.Context, sess session.Session, draft *catalog.Draft) (domain.WaterObject, error)
	Delete(ctx context.Context, sess session.Session, id int64) error
	SavePriority(ctx context.Context, sess session.Session, id int64, in registry.PriorityInput) (domain.PriorityRecord, error)
	DeletePriority(ctx context.Context, sess session.Session, id int64) error
}

// Server exposes health, readiness and metrics endpoints plus the water
// object API.
type Server struct {
	httpServer *http.Server
	catalog    Catalog
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the health routes and the /api routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, cat Catalog, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		catalog: cat,
		logger:  logger,
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(ready))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.logRequests)

		r.Get("/objects", s.handleListObjects)
		r.Get("/stats", s.handleStats)
		r.Route("/objects/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetObject)
			r.Put("/", s.handleUpdateObject)
			r.Delete("/", s.handleDeleteObject)
			r.Put("/priority", s.handlePutPriority)
			r.Delete("/priority", s.handleDeletePriority)
		})
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("api request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
