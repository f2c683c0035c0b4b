package analytics

import (
	"fmt"
	"time"

	"github.com/Sternrassler/swrangler/pkg/client"
)

// RetryPolicy bounds the retries of a single analytics request.
// It is immutable once handed to a Collector.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int `yaml:"max_retries"`

	// BaseDelay seeds the server error backoff and stands in for a
	// missing Retry-After header.
	BaseDelay time.Duration `yaml:"base_delay"`

	// MaxRetryDelay caps the exponential delay before jitter is added and
	// the wait a server may request with Retry-After.
	MaxRetryDelay time.Duration `yaml:"max_retry_delay"`

	// JitterMin and JitterMax bound the uniform jitter multiplier.
	JitterMin float64 `yaml:"jitter_min"`
	JitterMax float64 `yaml:"jitter_max"`
}

// DefaultRetryPolicy returns 4 retries, 5s base delay, 30s cap and a
// jitter multiplier in [0.7, 1.3).
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    4,
		BaseDelay:     5 * time.Second,
		MaxRetryDelay: 30 * time.Second,
		JitterMin:     0.7,
		JitterMax:     1.3,
	}
}

// Validate returns a *client.ConfigurationError for an unusable policy.
func (p RetryPolicy) Validate() error {
	switch {
	case p.JitterMax <= p.JitterMin:
		return &client.ConfigurationError{Reason: fmt.Sprintf(
			"jitter multiplier range must be (min, max), got (%g, %g)", p.JitterMin, p.JitterMax)}
	case p.MaxRetries < 0:
		return &client.ConfigurationError{Reason: fmt.Sprintf("max retries must be >= 0, got %d", p.MaxRetries)}
	case p.BaseDelay < 0 || p.MaxRetryDelay < 0:
		return &client.ConfigurationError{Reason: "retry delays must not be negative"}
	}
	return nil
}
