// Package cli implements the swrangler commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Sternrassler/swrangler/pkg/config"
	"github.com/Sternrassler/swrangler/pkg/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// ExitInterrupted is returned when the run was stopped by SIGINT.
const ExitInterrupted = 130

const description = "Maintenance toolkit for Confluence Cloud: exports pages, page analytics and owner/space metadata to local files."

type app struct {
	version string

	quiet      bool
	silent     bool
	configPath string
	logFormat  string
	logLevel   string

	// envDirs are searched for a .confluence file; nil means the working
	// directory, then home.
	envDirs []string

	cfg    config.Config
	logger zerolog.Logger
}

func newApp(version string) *app {
	return &app{
		version: version,
		logger:  log.With().Str("component", "cli").Logger(),
	}
}

// NewRootCmd returns the swrangler command tree.
func NewRootCmd(version string) *cobra.Command {
	return newApp(version).rootCmd()
}

// Execute runs the command tree and returns the process exit code.
func Execute(ctx context.Context, version string) int {
	root := NewRootCmd(version)
	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Error().Msg("Received keyboard interrupt, terminating.")
			return ExitInterrupted
		}
		log.Error().Err(err).Msg("Command failed")
		return 1
	}
	return 0
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "swrangler",
		Short:         "Confluence export and metadata toolkit",
		Long:          description,
		Version:       a.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.SetVersionTemplate("swrangler {{.Version}}\n")

	flags := root.PersistentFlags()
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "Suppress all output except warnings and errors.")
	flags.BoolVar(&a.silent, "silent", false, "Synonym for --quiet.")
	flags.StringVarP(&a.configPath, "config", "c", "", "YAML file with tuning settings")
	flags.StringVar(&a.logFormat, "log-format", "pretty", "Log format: pretty or json")
	flags.StringVar(&a.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	root.Flags().BoolP("version", "V", false, "Show version and exit")

	root.AddCommand(
		a.spacesMetadataCmd(),
		a.exportSpaceCmd(),
		a.pagesMetadataCmd(),
		a.ownersMetadataCmd(),
		a.historyCmd(),
		a.cachePurgeCmd(),
	)

	return root
}

// setup configures logging and resolves the configuration.
func (a *app) setup(cmd *cobra.Command) error {
	format := strings.ToLower(a.logFormat)
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unknown log format %q (want pretty or json)", a.logFormat)
	}

	logging.Setup(logging.Config{
		Level:     logging.LogLevel(a.logLevel),
		Quiet:     a.quiet || a.silent,
		Pretty:    format == "pretty",
		Output:    cmd.OutOrStdout(),
		ErrOutput: cmd.ErrOrStderr(),
	})
	a.logger = logging.NewLogger("cli")

	dirs := a.envDirs
	if dirs == nil {
		dirs = config.DefaultEnvDirs()
	}
	path, err := config.LoadEnvFiles(dirs...)
	if err != nil {
		return err
	}
	if path != "" {
		a.logger.Debug().Str("path", path).Msg("Loaded environment file")
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// spaceKeys splits a comma-separated --space-key value.
func spaceKeys(value string) ([]string, error) {
	var keys []string
	for _, k := range strings.Split(value, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, errors.New("option '--space-key' requires an argument")
	}
	return keys, nil
}
