package main

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/hanpama/fieldguide/internal/config"
	"github.com/hanpama/fieldguide/internal/store"
	"github.com/hanpama/fieldguide/internal/store/badgerstore"
	"github.com/hanpama/fieldguide/internal/store/mongostore"
	"github.com/hanpama/fieldguide/internal/store/pgstore"
)

// openStore connects the configured backend once. A failure is returned as
// is; callers exit rather than retry.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (store.Store, error) {
	var (
		s   store.Store
		err error
	)
	switch cfg.Store.Backend {
	case "mongo":
		s, err = mongostore.Connect(ctx, mongostore.Options{
			URI:            cfg.Mongo.URI,
			Database:       cfg.Mongo.Database,
			ConnectTimeout: cfg.Mongo.ConnectTimeout,
			Logger:         log,
		})
	case "badger":
		s, err = badgerstore.Open(badgerstore.Options{
			Dir:      cfg.Badger.Dir,
			InMemory: cfg.Badger.InMemory,
			Logger:   log,
		})
	case "postgres":
		s, err = pgstore.Open(ctx, pgstore.Options{
			DSN:             cfg.Postgres.DSN,
			MaxOpenConns:    cfg.Postgres.MaxConn,
			MaxIdleConns:    cfg.Postgres.MaxIdleConn,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
			AutoMigrate:     cfg.Postgres.AutoMigrate,
			LogLevel:        cfg.Postgres.LogLevel,
			Logger:          log,
		})
	default:
		return nil, errors.Wrapf(store.ErrUnknownBackend, "%q", cfg.Store.Backend)
	}
	if err != nil {
		return nil, err
	}
	return store.Instrument(s), nil
}
