package cli

import (
	"context"
	"fmt"

	"prayday_bot/internal/app"
	"prayday_bot/internal/domain/family"
	"prayday_bot/internal/domain/member"
	domainTelegram "prayday_bot/internal/domain/telegram"
	"prayday_bot/internal/infra/config"
	idb "prayday_bot/internal/infra/database"
	"prayday_bot/internal/infra/dynamo"
	"prayday_bot/internal/infra/logger"
	"prayday_bot/internal/infra/memstore"
)

type storage struct {
	members  member.Repository
	families family.Repository
	migrate  func(ctx context.Context) error // nil when the backend has no schema to manage
	close    func() error
}

func openStorage(ctx context.Context, cfg *config.AppConfig) (*storage, error) {
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("could not connect to database: %w", err)
		}
		logger.Log.Info("Database connection established successfully")
		return &storage{
			members:  idb.NewPostgresMemberRepository(db, logger.Component("members")),
			families: idb.NewPostgresFamilyRepository(db),
			migrate:  func(ctx context.Context) error { return idb.RunMigrations(ctx, db) },
			close:    db.Close,
		}, nil

	case config.BackendDynamoDB:
		client, err := dynamo.NewClient(ctx, cfg.DynamoDB)
		if err != nil {
			return nil, fmt.Errorf("could not create DynamoDB client: %w", err)
		}
		d := cfg.DynamoDB
		return &storage{
			members: dynamo.NewMemberRepository(client, d.MembersTableName,
				d.TelegramChatIDIndexName, d.ReminderTimeIndexName, logger.Component("members")),
			families: dynamo.NewFamilyRepository(client, d.FamiliesTableName),
			close:    func() error { return nil },
		}, nil

	case config.BackendMemory:
		logger.Log.Warn("Using in-memory storage, data is lost on exit")
		return &storage{
			members:  memstore.NewMemberRepository(),
			families: memstore.NewFamilyRepository(),
			close:    func() error { return nil },
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func newBroadcastService(cfg *config.AppConfig, st *storage, client domainTelegram.Client, rnd *app.Randomizer) *app.BroadcastService {
	return app.NewBroadcastService(st.members, st.families, client, rnd, app.BroadcastOptions{
		Location:   cfg.Location,
		Workers:    cfg.BroadcastWorkers,
		RatePerSec: cfg.BroadcastRatePerSec,
	}, logger.Component("broadcast"))
}
