// Package httpapi serves the chat endpoint, health probes and metrics over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"symptombot/internal/config"
	"symptombot/internal/domain"
	"symptombot/internal/health"
	"symptombot/internal/logger"
	"symptombot/internal/metrics"
)

const requestIDHeader = "X-Request-ID"

// Searcher lists the closest vocabulary entries for a query.
type Searcher interface {
	Candidates(text string, topK int) []domain.ScoredSymptom
}

type Server struct {
	conv     domain.Conversation
	searcher Searcher
	checker  *health.Checker
	metrics  *metrics.Metrics
	cfg      config.HTTPConfig
	logger   *slog.Logger
}

// NewServer wires the handlers. searcher, checker and m may be nil; the
// corresponding routes are then not mounted.
func NewServer(cfg config.HTTPConfig, conv domain.Conversation, searcher Searcher, checker *health.Checker, m *metrics.Metrics) *Server {
	return &Server{
		conv:     conv,
		searcher: searcher,
		checker:  checker,
		metrics:  m,
		cfg:      cfg,
		logger:   logger.WithComponent("http"),
	}
}

// Router builds the chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
	r.Use(middleware.Recoverer)

	if s.checker != nil {
		r.Get("/health/live", s.checker.LiveHandler())
		r.Get("/health/ready", s.checker.ReadyHandler())
	}
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		if s.cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.cfg.RequestTimeout))
		}
		r.Post("/chat", s.handleChat)
		if s.searcher != nil {
			r.Get("/candidates", s.handleCandidates)
		}
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// requestID tags each request with an ID taken from X-Request-ID or
// generated, echoing it back and storing it for request-scoped logging.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}
