package main

import (
	"context"
	"log/slog"
	"time"

	"monteur/internal/app/middleware"
	appoutbox "monteur/internal/app/outbox"
	"monteur/internal/app/uow"
	"monteur/internal/infra/config"
	inframongo "monteur/internal/infra/db/mongo"
	infrasql "monteur/internal/infra/db/sql"
	"monteur/internal/infra/inbox"
	"monteur/internal/infra/obs"
	infraoutbox "monteur/internal/infra/outbox"
	"monteur/internal/infra/storage/memory"
)

const consumerName = "monteur"

// storage bundles everything one storage driver provides.
type storage struct {
	factory     uow.UoWFactory
	outbox      appoutbox.Outbox
	source      infraoutbox.Source
	idempotency middleware.IdempotencyStore
	inbox       inbox.Deduper
	checks      map[string]obs.Check
	close       func(ctx context.Context) error
}

// openStorage connects the configured driver. relay receives committed
// records in memory mode, where no durable outbox exists.
func openStorage(cfg config.Config, logger *slog.Logger, relay memory.RelayFunc) (*storage, error) {
	switch cfg.StorageDriver {
	case config.DriverMongo:
		client, err := inframongo.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		box := infraoutbox.NewStore(client.DB)
		return &storage{
			factory:     inframongo.NewFactory(client.DB),
			outbox:      box,
			source:      box,
			idempotency: inframongo.NewIdempotencyStore(client.DB, cfg.IdempotencyTTL),
			inbox:       inbox.NewStore(client.DB, consumerName),
			checks:      map[string]obs.Check{"mongo": client.Ping},
			close:       client.Close,
		}, nil
	case config.DriverPostgres, config.DriverSQLite:
		db, err := infrasql.Open(infrasql.Config{
			Dialect:         cfg.StorageDriver,
			DSN:             cfg.DatabaseURL,
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			Debug:           cfg.Env == "debug",
		}, logger)
		if err != nil {
			return nil, err
		}
		box := infrasql.NewOutboxStore(db)
		return &storage{
			factory:     infrasql.NewFactory(db),
			outbox:      box,
			source:      box,
			idempotency: infrasql.NewIdempotencyStore(db, cfg.IdempotencyTTL),
			inbox:       infrasql.NewInboxStore(db, consumerName),
			checks:      map[string]obs.Check{cfg.StorageDriver: infrasql.Ping(db)},
			close:       func(context.Context) error { return infrasql.Close(db) },
		}, nil
	default:
		store := memory.NewStore()
		return &storage{
			factory:     memory.Factory{Store: store},
			outbox:      memory.NewOutbox(store, relay),
			idempotency: memory.NewIdempotencyStore(cfg.IdempotencyTTL),
			inbox:       inbox.NewMemoryStore(),
			checks:      map[string]obs.Check{},
			close:       func(context.Context) error { return nil },
		}, nil
	}
}
