package cli

import (
	"context"
	"fmt"

	"prayday_bot/internal/app"
	"prayday_bot/internal/infra/logger"
	"prayday_bot/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewBroadcastCommand creates the broadcast command.
func NewBroadcastCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "broadcast",
		Short: "Send prayer reminders for the current hour once",
		Long: `Send the prayer reminder to every subscribed member whose reminder
time matches the current hour, then exit. Meant for an external clock
such as a system cron job or a scheduled cloud function.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBroadcast(cmd.Context(), rootOpts)
		},
	}
}

func runBroadcast(ctx context.Context, rootOpts *RootOptions) error {
	cfg, err := rootOpts.loadConfig()
	if err != nil {
		return err
	}

	st, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	bot, err := telegram.NewBot(cfg.TelegramToken, true, logger.Component("telebot"))
	if err != nil {
		return err
	}

	svc := newBroadcastService(cfg, st, telegram.NewTelebotAdapter(bot), app.NewRandomizer(cfg.RandomSeed))
	report, err := svc.Broadcast(ctx)
	if err != nil {
		return fmt.Errorf("broadcast failed: %w", err)
	}

	logger.Component("broadcast").WithFields(logrus.Fields{
		"reminder_time": report.Label,
		"due":           report.Due,
		"sent":          report.Sent,
		"failed":        report.Failed,
	}).Info("Broadcast run complete")
	return nil
}
