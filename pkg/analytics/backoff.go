package analytics

import (
	"context"
	"math"
	"time"
)

// Backoff returns the delay before retry number retry (0-based):
//
//	delay  = min(2^retry * base, maxDelay)
//	jitter = delay * multiplier
//	result = delay + jitter
//
// The cap applies before jitter, so the result may exceed maxDelay. A
// negative base counts as zero.
func Backoff(retry int, base, maxDelay time.Duration, multiplier float64) time.Duration {
	base = max(base, 0)
	delay := maxDelay
	if exp := math.Pow(2, float64(retry)) * float64(base); exp < float64(maxDelay) {
		delay = time.Duration(exp)
	}
	jitter := time.Duration(float64(delay) * multiplier)
	return delay + jitter
}

// multiplier draws a jitter multiplier uniformly from [JitterMin, JitterMax).
func (p RetryPolicy) multiplier(r float64) float64 {
	return p.JitterMin + (p.JitterMax-p.JitterMin)*r
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
