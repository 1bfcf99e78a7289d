// Package server wires the HTTP API and serves it until the context ends.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/geoshape-index/internal/core/config"
	"github.com/mohammed-shakir/geoshape-index/internal/core/health"
	middleware "github.com/mohammed-shakir/geoshape-index/internal/core/middleware"
	"github.com/mohammed-shakir/geoshape-index/internal/core/router"
)

// NewHandler builds the root router: health checks, metrics and the API.
func NewHandler(logger *slog.Logger, api *router.Handlers, metrics http.Handler, checks map[string]health.Check) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(checks))
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	api.Mount(r)
	return r
}

// Run serves handler on cfg.Addr and shuts down gracefully when ctx ends.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, handler http.Handler) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
