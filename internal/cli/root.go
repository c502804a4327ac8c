package cli

import (
	"fmt"

	"prayday_bot/internal/infra/config"
	"prayday_bot/internal/infra/logger"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	EnvFile string
}

// NewRootCommand creates the root command for the PrayDay CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "prayday",
		Short:         "PrayDay - daily prayer reminders on Telegram",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "path to a .env file with configuration")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewBroadcastCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}

// loadConfig reads configuration and initializes the global logger from it.
func (o *RootOptions) loadConfig() (*config.AppConfig, error) {
	var files []string
	if o.EnvFile != "" {
		files = append(files, o.EnvFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, fmt.Errorf("could not load application configuration: %w", err)
	}
	logger.Init(cfg)
	logger.Log.WithFields(logrus.Fields{
		"environment":     cfg.Environment,
		"storage_backend": cfg.StorageBackend,
		"time_zone":       cfg.TimeZone,
	}).Info("Configuration loaded")
	return cfg, nil
}
