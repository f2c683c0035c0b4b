// Package analytics collects per-page analytics counters with bounded
// retries and a fixed pool of workers.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"math/rand/v2"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/Sternrassler/swrangler/pkg/client"
	"github.com/Sternrassler/swrangler/pkg/ratelimit"
	"github.com/Sternrassler/swrangler/pkg/tracing"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

// Getter performs one authenticated GET and returns the response whatever
// its status. *client.Client implements it.
type Getter interface {
	Get(ctx context.Context, path, rawQuery string) (*client.Response, error)
}

// Result maps content ids to their counter. A nil value means the lookup
// failed for good.
type Result map[string]*int

// Config holds collector configuration.
type Config struct {
	// Workers is the number of concurrent workers. Values below 1 select
	// runtime.NumCPU().
	Workers int

	// Retry governs every lookup.
	Retry RetryPolicy
}

// DefaultConfig returns one worker per CPU and the default retry policy.
func DefaultConfig() Config {
	return Config{
		Workers: runtime.NumCPU(),
		Retry:   DefaultRetryPolicy(),
	}
}

// state is the position of a single lookup in its retry loop.
type state int

const (
	stateAttempting state = iota
	stateRateLimited
	stateServerError
	stateSuccess
	stateExhausted
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateAttempting:
		return "attempting"
	case stateRateLimited:
		return "rate_limited"
	case stateServerError:
		return "server_error"
	case stateSuccess:
		return "success"
	case stateExhausted:
		return "exhausted"
	default:
		return "failed"
	}
}

// Collector fetches analytics counters for many pages.
type Collector struct {
	getter Getter
	config Config
	sleep  Sleeper
	random func() float64
	now    func() time.Time
	logger zerolog.Logger
}

// NewCollector validates config and creates a collector. An invalid retry
// policy yields a *client.ConfigurationError.
func NewCollector(getter Getter, config Config) (*Collector, error) {
	if err := config.Retry.Validate(); err != nil {
		return nil, err
	}
	if config.Workers < 1 {
		config.Workers = max(runtime.NumCPU(), 1)
	}

	return &Collector{
		getter: getter,
		config: config,
		sleep:  sleepContext,
		random: rand.Float64,
		now:    time.Now,
		logger: log.With().Str("component", "analytics").Logger(),
	}, nil
}

// Workers returns the configured worker count.
func (c *Collector) Workers() int {
	return c.config.Workers
}

// SetSleeper replaces the wait function (for testing).
func (c *Collector) SetSleeper(s Sleeper) {
	c.sleep = s
}

// SetJitterSource replaces the uniform [0,1) source (for testing).
func (c *Collector) SetJitterSource(r func() float64) {
	c.random = r
}

// Collect fetches the kind counter of every id. ids are split into
// contiguous chunks, one per worker; each worker walks its chunk
// sequentially. Every id appears in the result; failed lookups map to nil.
//
// The error is non-nil only when ctx ends early, in which case the result
// holds the ids processed so far.
func (c *Collector) Collect(ctx context.Context, ids []string, kind MetricKind) (Result, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown analytics kind %q", kind)
	}

	ctx, span := tracing.StartSpan(ctx, "analytics.Collect")
	defer span.End()

	chunks := Partition(ids, c.config.Workers)
	span.SetAttributes(
		attribute.String("analytics.kind", string(kind)),
		attribute.Int("analytics.items", len(ids)),
		attribute.Int("analytics.workers", len(chunks)),
	)

	start := time.Now()
	c.logger.Info().
		Str("kind", string(kind)).
		Int("items", len(ids)).
		Int("workers", len(chunks)).
		Msg("Collecting analytics")

	results := make(chan Result, len(chunks))
	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go c.worker(ctx, i, chunk, kind, results, &wg)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	merged := make(Result, len(ids))
	for r := range results {
		maps.Copy(merged, r)
	}

	failed := 0
	for _, v := range merged {
		if v == nil {
			failed++
		}
	}

	if err := ctx.Err(); err != nil {
		tracing.RecordError(span, err)
		c.logger.Warn().
			Err(err).
			Str("kind", string(kind)).
			Int("collected", len(merged)).
			Int("items", len(ids)).
			Msg("Analytics collection interrupted - returning partial results")
		return merged, err
	}

	c.logger.Info().
		Str("kind", string(kind)).
		Int("items", len(merged)).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Analytics collection complete")

	return merged, nil
}

// worker processes one chunk into its own map and sends it when done.
func (c *Collector) worker(ctx context.Context, workerID int, chunk []string, kind MetricKind, results chan<- Result, wg *sync.WaitGroup) {
	defer wg.Done()

	local := make(Result, len(chunk))
	for _, id := range chunk {
		count, err := c.FetchMetric(ctx, id, kind)
		if err != nil {
			c.logger.Debug().
				Int("worker_id", workerID).
				Int("items_processed", len(local)).
				Msg("Worker stopping (context cancelled)")
			break
		}
		local[id] = count

		if len(local)%50 == 0 {
			c.logger.Debug().
				Int("worker_id", workerID).
				Int("processed", len(local)).
				Int("total", len(chunk)).
				Msg("Worker progress")
		}
	}

	results <- local
}

// FetchMetric looks up one counter, retrying 429 and 500 responses up to
// MaxRetries times. It returns nil for any unrecoverable outcome. The error
// is non-nil only when ctx ends.
func (c *Collector) FetchMetric(ctx context.Context, contentID string, kind MetricKind) (*int, error) {
	policy := c.config.Retry
	logger := c.logger.With().Str("content_id", contentID).Str("kind", string(kind)).Logger()

	retry := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		logger.Trace().Stringer("state", stateAttempting).Int("attempt", retry+1).Msg("Requesting analytics")
		st, count, retryAfter := c.attempt(ctx, contentID, kind, logger)
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var class client.ErrorClass
		var wait time.Duration
		switch st {
		case stateSuccess:
			analyticsResultsTotal.WithLabelValues(string(kind), "ok").Inc()
			return count, nil

		case stateFailed:
			analyticsResultsTotal.WithLabelValues(string(kind), "failed").Inc()
			return nil, nil

		case stateRateLimited:
			class = client.ErrorClassRateLimit
			if retry >= policy.MaxRetries {
				st = stateExhausted
				logger.Error().
					Int("max_retries", policy.MaxRetries).
					Msg("Exceeded max retries after being rate limited")
				break
			}
			if err := c.sleep(ctx, retryAfter); err != nil {
				return nil, err
			}
			wait = Backoff(retry, retryAfter, policy.MaxRetryDelay, policy.multiplier(c.random()))
			retryBackoffSeconds.WithLabelValues(string(class)).Observe((retryAfter + wait).Seconds())

		case stateServerError:
			class = client.ErrorClassServer
			if retry >= policy.MaxRetries {
				st = stateExhausted
				logger.Error().
					Int("max_retries", policy.MaxRetries).
					Msg("Exceeded max retries after server error")
				break
			}
			wait = Backoff(retry, policy.BaseDelay, policy.MaxRetryDelay, policy.multiplier(c.random()))
			retryBackoffSeconds.WithLabelValues(string(class)).Observe(wait.Seconds())
		}

		if st == stateExhausted {
			retryExhaustedTotal.WithLabelValues(string(class)).Inc()
			analyticsResultsTotal.WithLabelValues(string(kind), "exhausted").Inc()
			return nil, nil
		}

		retriesTotal.WithLabelValues(string(class)).Inc()
		logger.Debug().
			Stringer("state", st).
			Str("error_class", string(class)).
			Int("attempt", retry+1).
			Dur("backoff", wait).
			Msg("Retrying analytics request after backoff")

		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
		retry++
	}
}

// attempt performs one request and classifies the outcome. For a 429 it
// also returns the delay the server asked for (at most MaxRetryDelay), or
// BaseDelay.
func (c *Collector) attempt(ctx context.Context, contentID string, kind MetricKind, logger zerolog.Logger) (state, *int, time.Duration) {
	resp, err := c.getter.Get(ctx, kind.Path(contentID), "")
	if err != nil {
		if ctx.Err() == nil {
			logger.Error().Err(err).Msg("Failed to fetch analytics")
		}
		return stateFailed, nil, 0
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var payload struct {
			Count *int `json:"count"`
		}
		if err := json.Unmarshal(resp.Body, &payload); err != nil {
			logger.Error().Err(err).Msg("Failed to decode analytics response")
			return stateFailed, nil, 0
		}
		if payload.Count == nil {
			logger.Error().Msg("Analytics response has no count")
			return stateFailed, nil, 0
		}
		return stateSuccess, payload.Count, 0

	case http.StatusTooManyRequests:
		retryAfter, ok := ratelimit.ParseRetryAfter(resp.Header.Get(ratelimit.HeaderRetryAfter), c.now())
		if !ok {
			retryAfter = c.config.Retry.BaseDelay
		}
		if retryAfter > c.config.Retry.MaxRetryDelay {
			logger.Debug().
				Dur("requested", retryAfter).
				Dur("max_retry_delay", c.config.Retry.MaxRetryDelay).
				Msg("Capping server retry delay")
			retryAfter = c.config.Retry.MaxRetryDelay
		}
		logger.Warn().Dur("retry_after", retryAfter).Msg("Rate limited")
		return stateRateLimited, nil, retryAfter

	case http.StatusInternalServerError:
		logger.Warn().Int("status", resp.StatusCode).Msg("Server error")
		return stateServerError, nil, 0

	default:
		logger.Error().
			Int("status", resp.StatusCode).
			Str("error_class", string(client.ClassifyStatus(resp.StatusCode))).
			Msg("Failed to fetch analytics")
		return stateFailed, nil, 0
	}
}
