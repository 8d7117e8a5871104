// Package observability exposes Prometheus metrics for the service.
package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
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

	dbOpTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_op_total",
			Help: "Database operations by statement and outcome.",
		},
		[]string{"op", "outcome"},
	)

	dbOpDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_op_duration_seconds",
			Help:    "Duration of database operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"op"},
	)

	visitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visits_total",
			Help: "Recorded visits by country.",
		},
		[]string{"country"},
	)

	canvasCacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canvas_cache_results_total",
			Help: "Map canvas cache results by outcome.",
		},
		[]string{"outcome"},
	)

	seedSkipsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seed_skips_total",
			Help: "Idempotent seed inserts skipped by the local dedupe.",
		},
		[]string{"table"},
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

func ObserveDBOp(op string, err error, durationSeconds float64) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	dbOpTotal.WithLabelValues(op, outcome).Inc()
	dbOpDurationSeconds.WithLabelValues(op).Observe(durationSeconds)
}

func IncVisit(country string) {
	if country == "" {
		country = "unknown"
	}
	visitsTotal.WithLabelValues(country).Inc()
}

func IncCanvasCacheHit()  { canvasCacheResults.WithLabelValues("hit").Inc() }
func IncCanvasCacheMiss() { canvasCacheResults.WithLabelValues("miss").Inc() }

func IncSeedSkip(table string) { seedSkipsTotal.WithLabelValues(table).Inc() }

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}

// Handler serves the default registry at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
