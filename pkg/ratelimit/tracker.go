package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	rateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swrangler_rate_limit_remaining",
		Help: "Requests remaining in the current API rate limit window",
	})

	rateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swrangler_rate_limited_total",
		Help: "Responses that carried a Retry-After header",
	})

	rateLimitNearTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swrangler_rate_limit_near_total",
		Help: "Responses reporting a nearly exhausted rate limit budget",
	})
)

// Tracker keeps the latest rate limit state observed across all requests.
// It only records; request pacing is left to the caller's retry policy.
type Tracker struct {
	mu     sync.RWMutex
	state  State
	now    func() time.Time
	logger zerolog.Logger
}

// NewTracker creates a tracker with an empty state.
func NewTracker(logger zerolog.Logger) *Tracker {
	return &Tracker{
		state:  State{Limit: -1, Remaining: -1},
		now:    time.Now,
		logger: logger,
	}
}

// Observe records the headers of a response and returns the resulting
// state. Budget fields the response does not carry (Limit, Remaining,
// ResetAt) keep their previous values.
func (t *Tracker) Observe(headers http.Header) State {
	s := FromHeaders(headers, t.now())

	t.mu.Lock()
	prev := t.state
	if s.Limit < 0 {
		s.Limit = prev.Limit
	}
	if s.Remaining < 0 {
		s.Remaining = prev.Remaining
	}
	if s.ResetAt.IsZero() {
		s.ResetAt = prev.ResetAt
	}
	t.state = s
	t.mu.Unlock()

	if s.Remaining >= 0 {
		rateLimitRemaining.Set(float64(s.Remaining))
	}
	if s.IsRateLimited() {
		rateLimitedTotal.Inc()
		t.logger.Debug().
			Dur("retry_after", s.RetryAfter).
			Msg("Server requested retry delay")
	}
	if s.NeedsThrottling() {
		rateLimitNearTotal.Inc()
		if !prev.NeedsThrottling() {
			t.logger.Warn().
				Int("remaining", s.Remaining).
				Int("limit", s.Limit).
				Time("reset_at", s.ResetAt).
				Msg("Rate limit budget running low")
		}
	}

	return s
}

// State returns a copy of the latest observed state.
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}
