package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Batch metrics
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmap_ingest_batches_total",
			Help: "Total number of ingest batches by outcome",
		},
		[]string{"connector", "trigger", "status"},
	)

	BatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pmap_ingest_batch_duration_seconds",
			Help:    "Duration of ingest batches from begin to commit in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"connector", "trigger"},
	)

	// Tuple metrics
	TuplesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmap_ingest_tuples_total",
			Help: "Total number of processed tuples by outcome (changed, noop, failed)",
		},
		[]string{"connector", "entity_type", "outcome"},
	)

	TupleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pmap_ingest_tuple_duration_seconds",
			Help:    "Duration of processing one tuple in seconds",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"entity_type"},
	)

	NormalizationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmap_ingest_normalization_errors_total",
			Help: "Total number of tuples rejected by the normalizer",
		},
		[]string{"reason"},
	)

	// Storage metrics
	StorageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmap_ingest_storage_errors_total",
			Help: "Total number of batch-fatal storage errors",
		},
		[]string{"code"},
	)

	// Post-commit delivery metrics
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmap_ingest_notifications_total",
			Help: "Total number of batch-completed notifications by status",
		},
		[]string{"status"},
	)

	DeadLettersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmap_ingest_dead_letters_total",
			Help: "Total number of failed tuples sent to the dead letter queue",
		},
		[]string{"reason", "status"},
	)

	// Rate limiting metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmap_ingest_rate_limit_hits_total",
			Help: "Total number of rate limited webhook deliveries",
		},
		[]string{"connector"},
	)

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmap_ingest_http_requests_total",
			Help: "Total number of API requests by route and status code",
		},
		[]string{"route", "code"},
	)
)
