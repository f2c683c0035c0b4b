package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

func (a *app) cachePurgeCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "cache-purge",
		Short: "Drop cached listing pages.",
		Long:  "Delete the Redis listing cache of the configured site, or of every site with --all.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Cache.RedisURL == "" {
				return errors.New("no listing cache configured (set SWRANGLER_REDIS_URL)")
			}

			s, err := a.openSession(cmd.Context(), 0)
			if err != nil {
				return err
			}
			defer s.Close(cmd.Context())

			if s.cache == nil {
				return errors.New("listing cache unavailable")
			}

			scope := s.client.CacheScope()
			if all {
				scope = ""
			}

			return a.record(cmd, "", func(ctx context.Context) (int, error) {
				n, err := s.cache.Purge(ctx, scope)
				if err != nil {
					return n, err
				}
				a.logger.Info().Str("scope", scope).Int("deleted", n).Msg("Listing cache purged")
				return n, nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Purge entries of every site")
	return cmd
}
