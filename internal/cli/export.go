package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/Sternrassler/swrangler/pkg/confluence"
	"github.com/Sternrassler/swrangler/pkg/export"
	"github.com/spf13/cobra"
)

const defaultOutputDir = "output"

// spaceFlags are shared by the per-space commands.
type spaceFlags struct {
	spaceKey  string
	outputDir string
}

func (f *spaceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.spaceKey, "space-key", "s", "", "Confluence space key(s) to work with. Separate multiple keys with commas.")
	cmd.Flags().StringVarP(&f.outputDir, "output-dir", "o", defaultOutputDir, "Directory to save the data.")
	cmd.MarkFlagRequired("space-key")
}

// forEachSpace opens a session and runs fn once per space key, each as its
// own ledger entry. The first failure stops the loop.
func (a *app) forEachSpace(cmd *cobra.Command, f *spaceFlags, workers int, fn func(ctx context.Context, s *session, exp *export.Exporter, key string) (int, error)) error {
	keys, err := spaceKeys(f.spaceKey)
	if err != nil {
		return err
	}
	outDir, err := filepath.Abs(f.outputDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	s, err := a.openSession(cmd.Context(), workers)
	if err != nil {
		return err
	}
	defer s.Close(cmd.Context())
	defer a.logRateLimit(s)

	exp := export.New(outDir, s.svc.BaseURL())
	for _, key := range keys {
		err := a.record(cmd, key, func(ctx context.Context) (int, error) {
			return fn(ctx, s, exp, key)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *app) spacesMetadataCmd() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "spaces-metadata",
		Short: "Export metadata of all spaces.",
		Long:  "Export metadata of all Confluence spaces.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			outDir, err := filepath.Abs(outputDir)
			if err != nil {
				return err
			}

			s, err := a.openSession(cmd.Context(), 0)
			if err != nil {
				return err
			}
			defer s.Close(cmd.Context())
			defer a.logRateLimit(s)

			return a.record(cmd, "", func(ctx context.Context) (int, error) {
				spaces, err := s.svc.AllSpaces(ctx)
				if err != nil {
					return 0, err
				}
				if _, err := export.New(outDir, s.svc.BaseURL()).SpacesMetadata(spaces); err != nil {
					return 0, err
				}
				a.logger.Info().Int("spaces", len(spaces)).Msg("Spaces metadata saved to CSV")
				return len(spaces), nil
			})
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", defaultOutputDir, "Directory to save the data.")
	return cmd
}

func (a *app) exportSpaceCmd() *cobra.Command {
	var flags spaceFlags

	cmd := &cobra.Command{
		Use:   "export-space",
		Short: "Export all pages from the specified space.",
		Long:  "Export all pages from the specified Confluence space as HTML, JSON and plain text.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.forEachSpace(cmd, &flags, 0, func(ctx context.Context, s *session, exp *export.Exporter, key string) (int, error) {
				pages, err := s.svc.SpacePages(ctx, key)
				if err != nil {
					return 0, err
				}
				if err := exp.SavePages(key, pages); err != nil {
					return 0, err
				}
				a.logger.Info().Str("space_key", key).Int("pages", len(pages)).Msg("Pages downloaded")
				return len(pages), nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *app) pagesMetadataCmd() *cobra.Command {
	var (
		flags   spaceFlags
		workers int
	)

	cmd := &cobra.Command{
		Use:   "pages-metadata",
		Short: "Export metadata of pages from the specified space.",
		Long:  "Export metadata and analytics (unique viewers, total views) of pages from the specified Confluence space.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.forEachSpace(cmd, &flags, workers, func(ctx context.Context, s *session, exp *export.Exporter, key string) (int, error) {
				pages, err := s.svc.SpacePages(ctx, key)
				if err != nil {
					return 0, err
				}

				a.logger.Info().
					Str("space_key", key).
					Int("workers", s.svc.Collector().Workers()).
					Msg("Fetch analytics data for specified pages")
				stats, err := s.svc.PageAnalytics(ctx, confluence.IDs(pages))
				if err != nil {
					return len(pages), err
				}

				if _, err := exp.PagesMetadata(key, pages, stats.Viewers, stats.Views); err != nil {
					return len(pages), err
				}
				a.logger.Info().Str("space_key", key).Int("pages", len(pages)).Msg("Pages metadata saved to CSV")
				return len(pages), nil
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent analytics workers (default: configured value or CPU count)")
	return cmd
}

func (a *app) ownersMetadataCmd() *cobra.Command {
	var flags spaceFlags

	cmd := &cobra.Command{
		Use:   "owners-metadata",
		Short: "Export metadata of owners from the specified space.",
		Long:  "Export metadata of page owners from the specified Confluence space.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.forEachSpace(cmd, &flags, 0, func(ctx context.Context, s *session, exp *export.Exporter, key string) (int, error) {
				pages, err := s.svc.SpacePages(ctx, key)
				if err != nil {
					return 0, err
				}
				_, owners, err := exp.OwnersMetadata(key, pages)
				if err != nil {
					return 0, err
				}
				a.logger.Info().Str("space_key", key).Int("owners", owners).Msg("Owners metadata saved to CSV")
				return owners, nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}
