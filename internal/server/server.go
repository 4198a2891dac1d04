package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	"warden/observability/logging"
)

// Server runs the proxy and the metrics endpoint
type Server struct {
	httpServer      *http.Server
	metricsServer   *http.Server
	logger          *logging.Logger
	shutdownTimeout time.Duration
	cleanup         []func()
}

// Config holds server configuration
type Config struct {
	// Address is the address to listen on
	Address string

	// MetricsAddress is the address of the metrics and health endpoints
	MetricsAddress string

	// TLSConfig enables HTTPS when set
	TLSConfig *tls.Config

	// ShutdownTimeout is the maximum time to wait for a graceful shutdown
	ShutdownTimeout time.Duration
}

// New creates a new server
func New(config Config, handler http.Handler, metricsHandler http.Handler, logger *logging.Logger) *Server {
	httpServer := &http.Server{
		Addr:              config.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		TLSConfig:         config.TLSConfig,
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metricsHandler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})

	metricsServer := &http.Server{
		Addr:              config.MetricsAddress,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Server{
		httpServer:      httpServer,
		metricsServer:   metricsServer,
		logger:          logger.WithModule("server"),
		shutdownTimeout: config.ShutdownTimeout,
	}
}

// OnStop registers fn to run after both servers have shut down, in reverse
// registration order
func (s *Server) OnStop(fn func()) {
	s.cleanup = append(s.cleanup, fn)
}

// Start serves the metrics endpoint in the background and the proxy until
// Stop is called
func (s *Server) Start() error {
	go func() {
		if err := s.serve(s.metricsServer, "metrics", false); err != nil {
			s.logger.Error("Metrics server failed", logging.Err(err))
		}
	}()
	return s.serve(s.httpServer, "proxy", s.httpServer.TLSConfig != nil)
}

func (s *Server) serve(srv *http.Server, name string, useTLS bool) error {
	s.logger.Info("Starting server", "name", name, "address", srv.Addr, "tls", useTLS)

	var err error
	if useTLS {
		err = srv.ListenAndServeTLS("", "")
	} else {
		err = srv.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server failed: %w", name, err)
	}
	return nil
}

// Stop drains both servers and then runs the OnStop callbacks
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping servers", "timeout", s.shutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	err := errors.Join(
		s.shutdown(shutdownCtx, s.httpServer, "proxy"),
		s.shutdown(shutdownCtx, s.metricsServer, "metrics"),
	)

	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
	return err
}

func (s *Server) shutdown(ctx context.Context, srv *http.Server, name string) error {
	if err := srv.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shut down server", "name", name, logging.Err(err))
		return fmt.Errorf("%s server shutdown: %w", name, err)
	}
	s.logger.Info("Server stopped", "name", name)
	return nil
}
