// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "vidbrief"

var (
	// CacheLookupsTotal tracks fingerprint cache lookups.
	// Labels:
	//   - result: hit, miss, stale, corrupt, error
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Total number of fingerprint cache lookups",
		},
		[]string{"result"},
	)

	// CacheWritesTotal tracks fingerprint cache writes.
	// Labels:
	//   - artifact: transcript, summary
	//   - status: success, error
	CacheWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_writes_total",
			Help:      "Total number of fingerprint cache writes",
		},
		[]string{"artifact", "status"},
	)

	// SingleflightRequestsTotal tracks singleflight behavior on cache bundle reads.
	// Labels:
	//   - result: initiated (new execution), shared (reused result)
	SingleflightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_requests_total",
			Help:      "Total number of singleflight requests",
		},
		[]string{"result"},
	)

	// PipelineRunsTotal tracks finished pipeline runs.
	// Labels:
	//   - outcome: complete, error, cancelled, rejected
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Total number of pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	// StageDurationSeconds tracks time spent in each executed pipeline stage.
	// Labels:
	//   - stage: extracting, transcribing, summarizing
	StageDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of executed pipeline stages",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"stage"},
	)

	// LocalFallbacksTotal counts local engine reinitializations on CPU.
	LocalFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "local_engine_fallbacks_total",
			Help:      "Total number of local engine reinitializations on CPU after driver errors",
		},
	)

	// HTTPRequestsTotal tracks API requests.
	// Labels:
	//   - route: chi route pattern
	//   - code: HTTP status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"route", "code"},
	)
)

// Cache lookup result constants.
const (
	LookupHit     = "hit"
	LookupMiss    = "miss"
	LookupStale   = "stale"
	LookupCorrupt = "corrupt"
	LookupError   = "error"
)

// Cache artifact constants.
const (
	ArtifactTranscript = "transcript"
	ArtifactSummary    = "summary"
)

// Write status constants.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Run outcome constants.
const (
	OutcomeComplete  = "complete"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
	OutcomeRejected  = "rejected"
)

// Singleflight result constants.
const (
	SingleflightInitiated = "initiated"
	SingleflightShared    = "shared"
)
