package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/swrangler/pkg/cache"
	"github.com/Sternrassler/swrangler/pkg/client"
	"github.com/Sternrassler/swrangler/pkg/confluence"
	"github.com/Sternrassler/swrangler/pkg/ledger"
	"github.com/Sternrassler/swrangler/pkg/metrics"
	"github.com/Sternrassler/swrangler/pkg/tracing"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// session holds everything a command needs to talk to Confluence.
type session struct {
	client   *client.Client
	svc      *confluence.Service
	cache    *cache.Manager
	redis    *redis.Client
	shutdown func(context.Context) error
}

// openSession builds the client stack. workers > 0 overrides the configured
// analytics worker count.
func (a *app) openSession(ctx context.Context, workers int) (*session, error) {
	s := &session{shutdown: func(context.Context) error { return nil }}

	tcfg := tracing.DefaultConfig(a.version)
	tcfg.Enabled = a.cfg.Tracing.Enabled
	tcfg.OTLPEndpoint = a.cfg.Tracing.OTLPEndpoint
	tcfg.SampleRate = a.cfg.Tracing.SampleRate
	if a.cfg.Tracing.Environment != "" {
		tcfg.Environment = a.cfg.Tracing.Environment
	}
	shutdown, err := tracing.Setup(ctx, tcfg)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Tracing disabled")
	} else {
		s.shutdown = shutdown
	}

	if url := a.cfg.Cache.RedisURL; url != "" {
		s.cache, s.redis = a.openCache(ctx, url)
	}

	ccfg := a.cfg.ClientConfig()
	ccfg.UserAgent = "swrangler/" + a.version
	ccfg.Cache = s.cache
	c, err := client.New(ccfg)
	if err != nil {
		s.Close(ctx)
		return nil, err
	}
	s.client = c

	scfg := confluence.Config{
		PageLimit: a.cfg.PageLimit,
		Analytics: a.cfg.CollectorConfig(),
	}
	if workers > 0 {
		scfg.Analytics.Workers = workers
	}
	svc, err := confluence.NewService(c, scfg)
	if err != nil {
		s.Close(ctx)
		return nil, err
	}
	s.svc = svc

	return s, nil
}

// openCache connects to Redis. Any failure only disables caching.
func (a *app) openCache(ctx context.Context, url string) (*cache.Manager, *redis.Client) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Invalid Redis URL - listing cache disabled")
		return nil, nil
	}

	rdb := redis.NewClient(opt)
	mgr := cache.NewManager(rdb, a.cfg.Cache.TTL)
	if err := mgr.Ping(ctx); err != nil {
		a.logger.Warn().Err(err).Str("addr", opt.Addr).Msg("Redis unreachable - listing cache disabled")
		rdb.Close()
		return nil, nil
	}

	a.logger.Debug().Str("addr", opt.Addr).Dur("ttl", mgr.TTL()).Msg("Listing cache enabled")
	return mgr, rdb
}

// Close flushes spans and releases Redis.
func (s *session) Close(ctx context.Context) {
	if s == nil {
		return
	}
	s.shutdown(context.WithoutCancel(ctx))
	if s.redis != nil {
		s.redis.Close()
	}
}

// record runs fn as one ledger entry and pushes metrics afterwards. Ledger
// and push failures are logged, never returned.
func (a *app) record(cmd *cobra.Command, spaceKey string, fn func(ctx context.Context) (int, error)) error {
	ctx := cmd.Context()
	bg := context.WithoutCancel(ctx)
	command := cmd.Name()

	var (
		l   *ledger.Ledger
		run *ledger.Run
	)
	if a.cfg.Ledger != "" {
		var err error
		l, err = ledger.Open(a.cfg.Ledger)
		if err != nil {
			a.logger.Warn().Err(err).Str("path", a.cfg.Ledger).Msg("Run ledger unavailable")
		} else {
			defer l.Close()
			run, err = l.Begin(bg, command, spaceKey)
			if err != nil {
				a.logger.Warn().Err(err).Msg("Failed to record run")
			}
		}
	}

	items, runErr := fn(ctx)

	if run != nil {
		if err := l.Finish(bg, run, items, runErr); err != nil {
			a.logger.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to record run result")
		} else {
			a.logger.Debug().
				Str("run_id", run.ID).
				Str("status", string(run.Status)).
				Dur("duration", run.Duration()).
				Msg("Run recorded")
		}
	}

	if err := metrics.Push(bg, a.cfg.PushgatewayURL, metrics.DefaultJob, command); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to push metrics")
	}

	if runErr != nil {
		if spaceKey != "" {
			return fmt.Errorf("%s %s: %w", command, spaceKey, runErr)
		}
		return fmt.Errorf("%s: %w", command, runErr)
	}
	return nil
}

// rateLimitStaleAfter is how long a reported budget is trusted.
const rateLimitStaleAfter = time.Minute

// logRateLimit reports the last rate limit budget seen.
func (a *app) logRateLimit(s *session) {
	st := s.client.RateLimit()
	if st.LastUpdate.IsZero() {
		return
	}
	ev := a.logger.Debug().
		Int("remaining", st.Remaining).
		Int("limit", st.Limit).
		Bool("near_limit", st.NearLimit).
		Bool("stale", st.IsStale(rateLimitStaleAfter))
	if reset := st.TimeUntilReset(); reset > 0 {
		ev = ev.Dur("reset_in", reset)
	}
	ev.Msg("Rate limit budget")
}
