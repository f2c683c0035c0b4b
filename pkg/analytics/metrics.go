package analytics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	analyticsResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swrangler_analytics_results_total",
		Help: "Analytics lookups by kind and outcome",
	}, []string{"kind", "outcome"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swrangler_retries_total",
		Help: "Total number of analytics retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "swrangler_retry_backoff_seconds",
		Help:    "Total wait before an analytics retry by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swrangler_retry_exhausted_total",
		Help: "Total number of analytics lookups that exhausted their retries by error class",
	}, []string{"error_class"})
)
