package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/h3-layer-viewer/internal/core/config"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/core/health"
	middleware "github.com/mohammed-shakir/h3-layer-viewer/internal/core/middleware"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/core/router"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/session"
)

// Handler builds the full HTTP surface over sess.
func Handler(cfg config.Config, logger *slog.Logger, sess *session.Session, metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(sess))
	if metrics != nil {
		r.Method(http.MethodGet, cfg.Metrics.Path, metrics)
	}
	router.New(logger, cfg, sess).Mount(r)
	return r
}

// sets up http and starts serving until ctx is done
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, sess *session.Session, metrics http.Handler) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           Handler(cfg, logger, sess, metrics),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
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
		timeout := cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		logger.Info("http shutdown", "timeout", timeout)
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
