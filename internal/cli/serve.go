package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"prayday_bot/internal/app"
	"prayday_bot/internal/infra/logger"
	"prayday_bot/internal/infra/scheduler"
	"prayday_bot/internal/infra/telegram"

	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot and the hourly broadcast scheduler",
		Long: `Run the Telegram bot with long polling.

Pending migrations are applied first when the postgres backend is used.
Unless SCHEDULER_ENABLED is false, the prayer reminder broadcast runs
on BROADCAST_CRON in the configured time zone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), rootOpts)
		},
	}
}

func runServe(parent context.Context, rootOpts *RootOptions) error {
	cfg, err := rootOpts.loadConfig()
	if err != nil {
		return err
	}
	log := logger.Component("serve")

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	if st.migrate != nil {
		if err := st.migrate(ctx); err != nil {
			return fmt.Errorf("could not apply migrations: %w", err)
		}
		log.Info("Database migrations applied")
	}

	bot, err := telegram.NewBot(cfg.TelegramToken, false, logger.Component("telebot"))
	if err != nil {
		return err
	}
	client := telegram.NewTelebotAdapter(bot)
	rnd := app.NewRandomizer(cfg.RandomSeed)

	conv := app.NewConversationService(st.members, client, rnd, cfg.OpenRegistration, logger.Component("conversation"))
	telegram.RegisterBotCommands(ctx, bot, conv, logger.Component("telegram"))
	if err := telegram.PublishCommands(bot, conv); err != nil {
		log.WithError(err).Warn("Could not publish command menu")
	}
	log.Info("Command handlers registered")

	var sched *scheduler.BroadcastScheduler
	if cfg.SchedulerEnabled {
		broadcast := newBroadcastService(cfg, st, client, rnd)
		sched = scheduler.NewBroadcastScheduler(broadcast, logger.Component("scheduler"), cfg.BroadcastCron, cfg.Location)
		if err := sched.Start(); err != nil {
			return err
		}
	} else {
		log.Info("Broadcast scheduler disabled")
	}

	log.Info("Application setup complete. Bot is starting...")
	go bot.Start()

	<-ctx.Done()

	log.Info("Shutting down application...")
	bot.Stop()
	if sched != nil {
		sched.Stop()
	}
	log.Info("Application shut down gracefully.")
	return nil
}
