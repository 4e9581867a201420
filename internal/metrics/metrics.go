// Package metrics serves the Prometheus registry, optionally on its own
// listener.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Config struct {
	Enabled bool
	Addr    string
	Path    string
}

// LayerCounter is implemented by the session.
type LayerCounter interface {
	Readiness() (ready bool, layers int)
}

// Provider gathers the process-wide default registry plus a private one
// for gauges that read live session state.
type Provider struct {
	cfg Config
	reg *prometheus.Registry
}

func Init(cfg Config) *Provider {
	if cfg.Path == "" {
		cfg.Path = "/metrics"
	}
	return &Provider{cfg: cfg, reg: prometheus.NewRegistry()}
}

func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.Gatherers{prometheus.DefaultGatherer, p.reg}, promhttp.HandlerOpts{})
}

func (p *Provider) Register(cs ...prometheus.Collector) {
	for _, c := range cs {
		p.reg.MustRegister(c)
	}
}

// TrackLayers exposes the number of loaded layers as session_layers.
func (p *Provider) TrackLayers(src LayerCounter) {
	p.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "session_layers",
			Help: "Layers currently loaded in the map session.",
		},
		func() float64 {
			_, n := src.Readiness()
			return float64(n)
		},
	))
}

// Serve runs a dedicated metrics listener until ctx is cancelled. It
// returns immediately when the listener is disabled.
func (p *Provider) Serve(ctx context.Context, log *slog.Logger) error {
	if !p.cfg.Enabled {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle(p.cfg.Path, p.Handler())
	srv := &http.Server{
		Addr:              p.cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("metrics listen", "addr", p.cfg.Addr, "path", p.cfg.Path)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
