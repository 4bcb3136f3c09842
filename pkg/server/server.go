// Package server exposes persisted planning runs read-only over HTTP.
package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dtplanner/pkg/logx"
	"dtplanner/pkg/persistence"
)

// BasicAuthUser is the fixed username when a password is configured.
const BasicAuthUser = "dtplanner"

// PasswordSecret names the secret (or env var) holding the basic auth password.
const PasswordSecret = "DTPLANNER_SERVER_PASSWORD"

const shutdownTimeout = 5 * time.Second

// Server serves run history, rendered reports, metrics and recent logs.
type Server struct {
	store    persistence.Store
	gatherer prometheus.Gatherer
	logger   *logx.Logger
	password string
	echo     *echo.Echo
}

// Option configures a Server.
type Option func(*Server)

// WithGatherer exposes gatherer on /metrics. Without it /metrics is not routed.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithPassword protects /api with basic auth. An empty password disables auth.
func WithPassword(password string) Option {
	return func(s *Server) { s.password = password }
}

// New builds the echo router over store.
func New(store persistence.Store, opts ...Option) *Server {
	s := &Server{
		store:  store,
		logger: logx.NewLogger("server"),
	}
	for _, opt := range opts {
		opt(s)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Debug("%s %s -> %d (%v)", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))
	s.echo = e
	s.registerRoutes()
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.Health)
	if s.gatherer != nil {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	api := s.echo.Group("/api/v1")
	if s.password != "" {
		api.Use(middleware.BasicAuth(s.checkPassword))
	}
	api.GET("/runs", s.ListRuns)
	api.GET("/runs/:id", s.GetRun)
	api.GET("/runs/:id/markdown/:section", s.GetRunMarkdown)
	api.GET("/logs", s.Logs)
}

func (s *Server) checkPassword(username, password string, _ echo.Context) (bool, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(BasicAuthUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) == 1
	if !userOK || !passOK {
		s.logger.Warn("authentication failed for user %q", username)
	}
	return userOK && passOK, nil
}

// Start listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.echo,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("starting run browser on %s", addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutting down run browser")
		// The parent context is already cancelled.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		//nolint:contextcheck // fresh context for shutdown
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	}
}
