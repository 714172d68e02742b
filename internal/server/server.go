// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes projects, recommendations and ratings over HTTP.
// Recommendation and load-more responses are Server-Sent Events streams;
// everything else is JSON.
package server

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-recommender/internal/feedback"
	"github.com/pdiddy/paper-recommender/internal/metrics"
	"github.com/pdiddy/paper-recommender/internal/pipeline"
	"github.com/pdiddy/paper-recommender/pkg/types"
)

const shutdownTimeout = 10 * time.Second

// Projects is the project store.
type Projects interface {
	CreateProject(ctx context.Context, title, description string, tags []string) (types.Project, error)
	GetProject(ctx context.Context, id string) (types.Project, error)
	ListProjects(ctx context.Context) ([]types.Project, error)
	UpdateProject(ctx context.Context, p types.Project) error
	ProjectPapers(ctx context.Context, projectID string) ([]types.ProjectPaper, error)
}

// Recommender produces event streams.
type Recommender interface {
	Run(ctx context.Context, req pipeline.Request) iter.Seq[pipeline.Event]
	LoadMore(ctx context.Context, projectID string, c pipeline.Cursor) iter.Seq[pipeline.Event]
}

// Rater records ratings.
type Rater interface {
	Rate(ctx context.Context, r feedback.Rating) (feedback.Result, error)
}

// Pinger is a dependency checked by /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server handles HTTP requests.
type Server struct {
	projects    Projects
	recommender Recommender
	rater       Rater
	health      map[string]Pinger
	validate    *validator.Validate
	logger      *zap.Logger

	// limit caps recommendation requests per client IP per window; zero
	// disables limiting.
	limit   int
	window  time.Duration
	origins []string
}

// Option configures a Server.
type Option func(*Server)

// WithRateLimit caps recommendation and load-more requests per client IP.
func WithRateLimit(requests int, window time.Duration) Option {
	return func(s *Server) {
		s.limit = requests
		s.window = window
	}
}

// WithCORS allows browser clients from origins.
func WithCORS(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// New returns a server. health names the dependencies /healthz pings.
func New(projects Projects, recommender Recommender, rater Rater, health map[string]Pinger, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		projects:    projects,
		recommender: recommender,
		rater:       rater,
		health:      health,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.instrument)
	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "Last-Event-ID"},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/projects", func(r chi.Router) {
		r.Post("/", s.createProject)
		r.Get("/", s.listProjects)
		r.Route("/{projectID}", func(r chi.Router) {
			r.Get("/", s.getProject)
			r.Patch("/", s.updateProject)
			r.Get("/papers", s.projectPapers)
			r.Group(func(r chi.Router) {
				if s.limit > 0 {
					r.Use(httprate.Limit(s.limit, s.window,
						httprate.WithKeyFuncs(httprate.KeyByIP),
						httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
							respondError(w, http.StatusTooManyRequests, "rate_limited", "too many recommendation requests")
						})))
				}
				r.Post("/recommendations", s.recommend)
				r.Post("/recommendations/more", s.loadMore)
			})
			r.Post("/ratings", s.rate)
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.health))
	for name, p := range s.health {
		if err := p.Ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}
	respondJSON(w, status, map[string]any{"status": http.StatusText(status), "checks": checks})
}
