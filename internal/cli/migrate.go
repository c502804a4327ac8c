package cli

import (
	"context"
	"fmt"

	"prayday_bot/internal/infra/logger"

	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd.Context(), rootOpts)
		},
	}
}

func runMigrate(ctx context.Context, rootOpts *RootOptions) error {
	cfg, err := rootOpts.loadConfig()
	if err != nil {
		return err
	}

	st, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	if st.migrate == nil {
		logger.Log.WithField("storage_backend", cfg.StorageBackend).Info("Backend has no migrations, nothing to do")
		return nil
	}
	if err := st.migrate(ctx); err != nil {
		return fmt.Errorf("could not apply migrations: %w", err)
	}
	logger.Log.Info("Database migrations applied")
	return nil
}
