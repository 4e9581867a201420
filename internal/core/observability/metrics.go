package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	ingestRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_rows_total",
			Help: "Rows (or features) seen by ingestion, by layer kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	ingestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ingest_duration_seconds",
			Help:    "Wall time of a complete ingestion.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms to ~30s
		},
		[]string{"kind"},
	)

	ingestFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_failures_total",
			Help: "Rejected ingestions by error code.",
		},
		[]string{"code"},
	)

	styleCacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "style_cache_results_total",
			Help: "Style memo lookups by outcome.",
		},
		[]string{"outcome"},
	)

	styleCacheInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "style_cache_invalidations_total",
			Help: "Memoized styles dropped because a layer's style inputs changed.",
		},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

// ObserveIngest records one successful ingestion.
func ObserveIngest(kind string, accepted, skipped int, durationSeconds float64) {
	ingestRowsTotal.WithLabelValues(kind, "accepted").Add(float64(accepted))
	ingestRowsTotal.WithLabelValues(kind, "skipped").Add(float64(skipped))
	ingestDurationSeconds.WithLabelValues(kind).Observe(durationSeconds)
}

func IncIngestFailure(code string) {
	if code == "" {
		code = "Internal"
	}
	ingestFailuresTotal.WithLabelValues(code).Inc()
}

func ObserveStyleCache(hit bool) {
	if hit {
		styleCacheResults.WithLabelValues("hit").Inc()
		return
	}
	styleCacheResults.WithLabelValues("miss").Inc()
}

func AddStyleInvalidations(n int) {
	if n > 0 {
		styleCacheInvalidations.Add(float64(n))
	}
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
