package scheduler

import (
	"context"
	"fmt"
	"time"

	"prayday_bot/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const runTimeout = 10 * time.Minute

type BroadcastScheduler struct {
	cronEngine  *cron.Cron
	broadcaster app.Broadcaster
	logger      *logrus.Entry
	cronSpec    string
}

func NewBroadcastScheduler(
	broadcaster app.Broadcaster,
	logger *logrus.Entry,
	cronSpec string, // e.g. "0 * * * *" (top of every hour)
	loc *time.Location,
) *BroadcastScheduler {
	if loc == nil {
		loc = time.Local
	}
	return &BroadcastScheduler{
		cronEngine:  cron.New(cron.WithLocation(loc)),
		broadcaster: broadcaster,
		logger:      logger,
		cronSpec:    cronSpec,
	}
}

// Start registers the broadcast job and starts the cron engine.
func (s *BroadcastScheduler) Start() error {
	s.logger.Info("Starting broadcast scheduler...")

	if _, err := s.cronEngine.AddFunc(s.cronSpec, s.runOnce); err != nil {
		return fmt.Errorf("could not add broadcast cron job %q: %w", s.cronSpec, err)
	}

	s.cronEngine.Start()
	s.logger.WithField("cron", s.cronSpec).Info("Broadcast scheduler started")
	return nil
}

func (s *BroadcastScheduler) runOnce() {
	s.logger.Info("Cron job triggered for prayer reminder broadcast")
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	report, err := s.broadcaster.Broadcast(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Error during prayer reminder broadcast")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"reminder_time": report.Label,
		"sent":          report.Sent,
		"failed":        report.Failed,
	}).Info("Prayer reminder broadcast completed")
}

// Stop stops the cron engine and waits for a running broadcast to finish.
func (s *BroadcastScheduler) Stop() {
	s.logger.Info("Stopping broadcast scheduler...")
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.logger.Info("Broadcast scheduler gracefully stopped.")
}
