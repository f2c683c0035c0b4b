// Package metrics provides centralized Prometheus metrics registry for swrangler.
// All metrics are defined in their respective packages (client, cache, ratelimit,
// pagination, analytics) to maintain modularity and avoid circular dependencies.
//
// A CLI run is short-lived, so metrics are delivered to a Pushgateway at the
// end of a command rather than scraped.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rs/zerolog/log"
)

// Registry is the default Prometheus registry used by swrangler.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the source pushed by Push.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// DefaultJob is the Pushgateway job name.
const DefaultJob = "swrangler"

// Push sends every gathered metric to the Pushgateway at url, replacing the
// previous push of the same job and command grouping.
func Push(ctx context.Context, url, job, command string) error {
	if url == "" {
		return nil
	}
	if job == "" {
		job = DefaultJob
	}

	pusher := push.New(url, job).Gatherer(Gatherer)
	if command != "" {
		pusher = pusher.Grouping("command", command)
	}

	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}

	log.Debug().Str("url", url).Str("job", job).Str("command", command).Msg("Metrics pushed")
	return nil
}

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - swrangler_rate_limit_remaining (Gauge): Requests remaining in the current window, -1 when unknown
//   - swrangler_rate_limited_total (Counter): Responses that carried a Retry-After header
//   - swrangler_rate_limit_near_total (Counter): Responses reporting a nearly exhausted budget
//
// Cache Metrics (pkg/cache):
//   - swrangler_cache_hits_total{layer="redis"} (Counter): Listing pages served from Redis
//   - swrangler_cache_misses_total (Counter): Listing cache misses
//   - swrangler_cache_stored_bytes_total{layer="redis"} (Counter): Bytes written to the cache
//   - swrangler_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - swrangler_requests_total{route, status} (Counter): Total requests by route and HTTP status
//   - swrangler_request_duration_seconds{route} (Histogram): Request duration by route
//   - swrangler_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Listing Metrics (pkg/pagination):
//   - swrangler_listing_pages_total{endpoint} (Counter): Listing pages fetched
//   - swrangler_listing_items_total{endpoint} (Counter): Items accumulated from listings
//
// Analytics Metrics (pkg/analytics):
//   - swrangler_analytics_results_total{kind, outcome} (Counter): Lookups by outcome (ok, failed, exhausted)
//   - swrangler_retries_total{error_class} (Counter): Retry attempts by error class
//   - swrangler_retry_backoff_seconds{error_class} (Histogram): Wait before each retry
//   - swrangler_retry_exhausted_total{error_class} (Counter): Lookups that exhausted max retries
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(swrangler_cache_hits_total) /
//   (sum(swrangler_cache_hits_total) + sum(swrangler_cache_misses_total))
//
//   # Analytics failure share
//   sum(swrangler_analytics_results_total{outcome!="ok"}) / sum(swrangler_analytics_results_total)
//
//   # P95 Request Latency
//   histogram_quantile(0.95, sum by (le) (swrangler_request_duration_seconds_bucket))
