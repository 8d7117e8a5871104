package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/visitmap/visitmap/internal/health"
	imw "github.com/visitmap/visitmap/internal/middleware"
	"github.com/visitmap/visitmap/internal/observability"
)

// NewRouter assembles the chi router with the full HTTP surface.
func NewRouter(h *Handlers, ready health.Pinger, metricsEnabled bool) http.Handler {
	r := chi.NewRouter()
	r.Use(imw.Recover(h.Logger))
	r.Use(imw.Logging(h.Logger))
	r.Use(imw.CORS())

	r.Get("/", instrument("/", h.Index))
	r.Get("/worker-version", instrument("/worker-version", h.WorkerVersion))
	r.Get("/locate", instrument("/locate", h.Locate))
	r.Get("/users", instrument("/users", h.Users))
	r.Get("/add-user", instrument("/add-user", h.AddUser))

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(ready))

	if metricsEnabled {
		r.Handle("/metrics", observability.Handler())
	}

	return r
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next(sw, r)
		observability.ObserveHTTP(r.Method, route, sw.code, time.Since(start).Seconds())
	}
}
