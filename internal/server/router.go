package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/threatbridge/threatbridge/internal/metrics"
	"github.com/threatbridge/threatbridge/internal/middleware"
)

// NewRouter constructs a ServeMux with the correlation API routes registered.
func NewRouter(h *Handlers) http.Handler {
	mux := http.NewServeMux()

	// Health check and metrics
	mux.HandleFunc("/healthz", h.HealthCheck)
	mux.Handle("/metrics", promhttp.Handler())

	// Correlation API routes
	mux.HandleFunc("/api/v1/extract", instrument("extract", h.Extract))
	mux.HandleFunc("/api/v1/correlate", instrument("correlate", h.Correlate))
	mux.HandleFunc("/api/v1/search", instrument("search", h.Search))

	return middleware.RequestID(mux)
}

// instrument records request durations per handler.
func instrument(name string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next(w, r)
		metrics.RequestDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}
}
