package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"sol-swap/pkg/logging"
)

// Server exposes /metrics and /healthz
type Server struct {
	router  *chi.Mux
	http    *http.Server
	log     *logrus.Logger
	started time.Time
}

// NewServer builds the metrics router for addr
func NewServer(addr string, m *Metrics, log *logrus.Logger) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		log:     logging.OrDiscard(log),
		started: time.Now(),
	}

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok " + time.Since(s.started).Round(time.Second).String()))
	})
	s.router.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))

	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the router for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves in the background until Shutdown
func (s *Server) Start() {
	go func() {
		s.log.WithField("addr", s.http.Addr).Debug("metrics server listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Warn("metrics server stopped")
		}
	}()
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
