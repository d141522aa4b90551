package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the ingestion core

var (
	// Document fetch metrics
	DocumentFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bowling_document_fetches_total",
			Help: "Total number of source document fetches",
		},
		[]string{"kind", "status"},
	)

	DocumentFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bowling_document_fetch_duration_seconds",
			Help:    "Duration of source document fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{},
	)

	// Extraction metrics, labeled by tier (tables, text, llm)
	ExtractionRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bowling_extraction_rows_total",
			Help: "Total number of rows extracted from source documents",
		},
		[]string{"kind", "tier"},
	)

	// LLM metrics
	LLMCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bowling_llm_calls_total",
			Help: "Total number of chat-completion calls",
		},
		[]string{"status"},
	)

	LLMCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bowling_llm_call_duration_seconds",
			Help:    "Duration of chat-completion calls in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
	)

	// Database metrics
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bowling_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "table", "status"},
	)

	// Refresh metrics
	SourceRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bowling_source_refreshes_total",
			Help: "Total number of source refresh passes",
		},
		[]string{"source", "status"},
	)

	QueryCacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bowling_query_cache_hits_total",
			Help: "Total number of query-result cache hits and misses",
		},
		[]string{"result"},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bowling_system_uptime_seconds",
			Help: "Worker uptime in seconds",
		},
	)
)
