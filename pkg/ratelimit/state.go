// Package ratelimit interprets the rate limit headers returned by the
// Confluence Cloud REST API.
//
// The API signals throttling with HTTP 429 and a Retry-After header, and
// reports the remaining budget through X-RateLimit-* headers on every
// response. This package parses those headers into a State and keeps the most
// recent observation for metrics and logging.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Response headers consumed by this package.
const (
	HeaderRetryAfter = "Retry-After"
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderNearLimit  = "X-RateLimit-NearLimit"
)

// RemainingThresholdWarning marks the budget as low when fewer requests
// than this remain in the window.
const RemainingThresholdWarning = 20

// MaxRetryAfter is the largest delay ParseRetryAfter returns.
const MaxRetryAfter = time.Duration(math.MaxInt64) / time.Second * time.Second

// State is the rate limit information carried by one response.
type State struct {
	// RetryAfter is how long the server asked us to wait. Zero when absent.
	RetryAfter time.Duration `json:"retry_after"`

	// Limit and Remaining are -1 when the server did not report them.
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`

	// ResetAt is when the current window resets. Zero when unknown.
	ResetAt time.Time `json:"reset_at"`

	// NearLimit is set by the server when the budget is almost spent.
	NearLimit bool `json:"near_limit"`

	// LastUpdate is when the headers were observed.
	LastUpdate time.Time `json:"last_update"`
}

// FromHeaders extracts the rate limit state from response headers.
func FromHeaders(h http.Header, now time.Time) State {
	s := State{
		Limit:      -1,
		Remaining:  -1,
		LastUpdate: now,
	}

	if d, ok := ParseRetryAfter(h.Get(HeaderRetryAfter), now); ok {
		s.RetryAfter = d
	}
	if v, err := strconv.Atoi(strings.TrimSpace(h.Get(HeaderLimit))); err == nil {
		s.Limit = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(h.Get(HeaderRemaining))); err == nil {
		s.Remaining = v
	}
	if reset := strings.TrimSpace(h.Get(HeaderReset)); reset != "" {
		if t, err := time.Parse(time.RFC3339, reset); err == nil {
			s.ResetAt = t
		} else if secs, err := strconv.Atoi(reset); err == nil {
			s.ResetAt = now.Add(time.Duration(secs) * time.Second)
		}
	}
	s.NearLimit = strings.EqualFold(strings.TrimSpace(h.Get(HeaderNearLimit)), "true")

	return s
}

// ParseRetryAfter parses a Retry-After value given either as delta seconds
// or as an HTTP date. Negative or past values yield zero, values beyond
// MaxRetryAfter yield MaxRetryAfter. NaN and infinities are rejected.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		switch {
		case math.IsNaN(secs) || math.IsInf(secs, 0):
			return 0, false
		case secs < 0:
			return 0, true
		case secs >= MaxRetryAfter.Seconds():
			return MaxRetryAfter, true
		}
		return time.Duration(secs * float64(time.Second)), true
	}
	if t, err := http.ParseTime(value); err == nil {
		d := min(t.Sub(now), MaxRetryAfter)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

// IsStale returns true if the state is older than maxAge.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// IsRateLimited reports whether the server asked for a pause.
func (s *State) IsRateLimited() bool {
	return s.RetryAfter > 0
}

// NeedsThrottling reports whether the remaining budget is low.
func (s *State) NeedsThrottling() bool {
	if s.NearLimit {
		return true
	}
	return s.Remaining >= 0 && s.Remaining < RemainingThresholdWarning
}

// TimeUntilReset returns the duration until the window resets, or 0.
func (s *State) TimeUntilReset() time.Duration {
	if s.ResetAt.IsZero() {
		return 0
	}
	d := time.Until(s.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}
