// Package metrics defines the Prometheus instrumentation shared by the
// correlation engine, the extractor and the HTTP API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Correlation metrics
	CorrelationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threatbridge_correlations_total",
			Help: "Total number of correlation requests by execution path",
		},
		[]string{"path"},
	)

	FallbackScans = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "threatbridge_correlation_fallback_scans_total",
			Help: "Total number of times the select path was abandoned for a full scan",
		},
	)

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "threatbridge_correlation_cache_hits_total",
			Help: "Total number of correlation results served from the memo cache",
		},
	)

	// Extraction metrics
	IdentifiersExtracted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "threatbridge_identifiers_extracted_total",
			Help: "Total number of technique identifiers extracted from alerts",
		},
	)

	BatchesLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threatbridge_alert_batches_total",
			Help: "Total number of alert batches loaded by batch kind",
		},
		[]string{"kind"},
	)

	// Retrieval metrics
	RetrievalSearches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "threatbridge_retrieval_searches_total",
			Help: "Total number of context retrieval searches",
		},
	)

	// HTTP metrics
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "threatbridge_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler"},
	)
)
