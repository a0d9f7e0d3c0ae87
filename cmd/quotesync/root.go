package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quotesync/internal/platform/config"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
)

// defaultProfile is used when neither --profile nor APP_ENVIRONMENT is set.
const defaultProfile = "local"

// cli holds the state shared by every command. It is filled in by the root
// command's PersistentPreRunE before any RunE executes.
type cli struct {
	configDir string
	profile   string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "quotesync",
		Short: "Local quote collection kept in sync with a remote posts API",
		Long: `quotesync keeps a categorized collection of quotes in a local store and
periodically merges in the quotes published by a remote posts resource.

Run "quotesync serve" for the HTTP API with background polling, or use the
one-shot commands to sync, list, import, and export from the terminal.`,
		Version:           Version,
		PersistentPreRunE: c.setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	root.PersistentFlags().StringVar(&c.configDir, "config-dir", config.DefaultConfigDir, "directory holding base.yaml and profile files")
	root.PersistentFlags().StringVar(&c.profile, "profile", "", "config profile (default $APP_ENVIRONMENT or local)")

	root.SetVersionTemplate("quotesync {{.Version}}\n")

	root.AddCommand(
		newServeCommand(c),
		newSyncCommand(c),
		newListCommand(c),
		newExportCommand(c),
		newImportCommand(c),
	)

	return root
}

// setup loads and validates configuration and installs the default logger.
func (c *cli) setup(_ *cobra.Command, _ []string) error {
	profile := c.profile
	if profile == "" {
		profile = os.Getenv("APP_ENVIRONMENT")
	}

	if profile == "" {
		profile = defaultProfile
	}

	cfg, err := config.LoadDir(c.configDir, profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	logging.SetDefault(logger)

	c.cfg = cfg
	c.logger = logger

	return nil
}
