// Package api exposes practice history and capture scoring over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/verte-zerg/signdrill/internal/model"
	"github.com/verte-zerg/signdrill/internal/pipeline"
)

// Store is the persistence the API reads and writes.
type Store interface {
	InsertAttempt(ctx context.Context, a model.Attempt) (int64, error)
	ListAttempts(ctx context.Context, userID string) ([]model.Attempt, error)
	MarkModuleCompleted(ctx context.Context, userID string, moduleID int) error
	CompletedModules(ctx context.Context, userID string) (map[int]bool, error)
}

// Scorer runs one capture through detection and scoring.
type Scorer interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Outcome, error)
}

// Server holds handler dependencies.
type Server struct {
	store    Store
	scorer   Scorer
	metrics  http.Handler
	logger   *slog.Logger
	now      func() time.Time
	maxImage int64
}

// Option configures a Server.
type Option func(*Server)

// WithScorer enables the capture endpoint.
func WithScorer(sc Scorer) Option {
	return func(s *Server) {
		s.scorer = sc
	}
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithClock overrides the timestamp source for posted attempts.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// NewServer creates a Server.
func NewServer(store Store, opts ...Option) *Server {
	s := &Server{
		store:    store,
		logger:   slog.Default(),
		now:      time.Now,
		maxImage: 10 << 20,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.health).Methods("GET")
	r.HandleFunc("/modules", s.listModules).Methods("GET")
	r.HandleFunc("/users/{user}/attempts", s.listAttempts).Methods("GET")
	r.HandleFunc("/users/{user}/attempts", s.createAttempt).Methods("POST")
	r.HandleFunc("/users/{user}/insights", s.insights).Methods("GET")
	r.HandleFunc("/users/{user}/modules/{id:[0-9]+}/complete", s.completeModule).Methods("POST")
	if s.scorer != nil {
		r.HandleFunc("/users/{user}/modules/{id:[0-9]+}/letters/{letter}/captures", s.capture).Methods("POST")
	}
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics).Methods("GET")
	}
	return r
}
