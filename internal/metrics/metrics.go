// Package metrics holds the Prometheus instruments of the bundle service. Collectors are
// registered on the default registry and exposed by the HTTP server on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Analysis pipeline
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bundle_analyses_total",
			Help: "Total number of analysis runs by outcome",
		},
		[]string{"outcome"}, // "ok", "invalid_input", "empty", "cancelled", "error"
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bundle_stage_duration_seconds",
			Help:    "Duration of analysis stages in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"}, // "prepare", "mine", "synthesize", "dedupe", "enhance", "publish"
	)

	ItemsetsMined = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bundle_itemsets_mined",
			Help: "Number of frequent itemsets per level in the most recent run",
		},
		[]string{"level"},
	)

	RulesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bundle_rules_total",
			Help: "Total number of rules by pipeline stage",
		},
		[]string{"kind"}, // "synthesized", "filtered", "deduplicated", "enhanced"
	)

	// Ingestion
	IngestRowsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bundle_ingest_rows_skipped_total",
			Help: "Total number of input rows skipped during ingestion",
		},
		[]string{"source"}, // "transactions", "catalog", "historical"
	)

	// API
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bundle_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bundle_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	StoredResults = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bundle_stored_results",
			Help: "Current number of analysis results held in memory",
		},
	)
)

// ObserveStage records how long a pipeline stage took.
func ObserveStage(stage string, started time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

// RecordLevels replaces the per-level itemset gauges with the counts of one run.
func RecordLevels(counts map[int]int) {
	ItemsetsMined.Reset()
	for k, n := range counts {
		ItemsetsMined.WithLabelValues(strconv.Itoa(k)).Set(float64(n))
	}
}

func RecordRules(kind string, n int) {
	RulesTotal.WithLabelValues(kind).Add(float64(n))
}

func RecordSkippedRows(source string, n int) {
	if n > 0 {
		IngestRowsSkipped.WithLabelValues(source).Add(float64(n))
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestDuration.WithLabelValues(method, endpoint, statusCode).Observe(duration.Seconds())
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
}
