package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dealmungchi/saleharvester/internal/crawler"
	"github.com/dealmungchi/saleharvester/logger"
)

// StatusProvider exposes the most recent completed run
type StatusProvider interface {
	LastRun() (crawler.Batch, bool)
}

// Server serves metrics and health over HTTP.
type Server struct {
	addr       string
	router     http.Handler
	httpServer *http.Server
	gatherer   prometheus.Gatherer
	status     StatusProvider
	logger     *logger.Logger
}

func NewServer(addr string, gatherer prometheus.Gatherer, status StatusProvider) *Server {
	s := &Server{
		addr:     addr,
		gatherer: gatherer,
		status:   status,
		logger:   logger.ForComponent("api"),
	}
	s.router = s.setupRouter()
	return s
}

// Handler returns the routed handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	s.logger.Info().Str("addr", s.addr).Msg("Serving metrics")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
