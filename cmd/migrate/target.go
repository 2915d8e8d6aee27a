package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/rentquote-backend/pkg/config"
	"github.com/angelmondragon/rentquote-backend/pkg/db"
	"github.com/angelmondragon/rentquote-backend/pkg/logger"
	"github.com/angelmondragon/rentquote-backend/pkg/migrate"
)

// target is a database whose schema the commands move.
type target interface {
	Up(ctx context.Context) ([]migrate.Step, error)
	Down(ctx context.Context) ([]migrate.Step, error)
	Status(ctx context.Context) ([]migrate.Step, error)
	ToVersion(ctx context.Context, version int64) ([]migrate.Step, error)
	Close() error
}

type opener func(ctx context.Context, dir string) (target, error)

type gooseTarget struct {
	*migrate.Migrator
	client *db.Client
}

// sqliteTarget only knows how to sync tables from the models.
type sqliteTarget struct {
	client *db.Client
}

func openTarget(ctx context.Context, dir string) (target, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": dir})

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap database: %w", err)
	}

	_, err = migrate.Dialect(cfg.DB.Driver)
	switch {
	case errors.Is(err, migrate.ErrSQLiteSchema):
		return sqliteTarget{client: client}, nil
	case err != nil:
		_ = client.Close()
		return nil, err
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	migrator, err := migrate.NewMigrator(sqlDB, dir)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	logg.Info(ctx, "migrate ready")
	return gooseTarget{Migrator: migrator, client: client}, nil
}

func (g gooseTarget) Close() error { return g.client.Close() }

func (s sqliteTarget) Up(ctx context.Context) ([]migrate.Step, error) {
	return nil, migrate.SyncModels(ctx, s.client.DB())
}

func (s sqliteTarget) Down(context.Context) ([]migrate.Step, error) { return nil, errSQLiteOnlyUp }

func (s sqliteTarget) Status(context.Context) ([]migrate.Step, error) { return nil, errSQLiteOnlyUp }

func (s sqliteTarget) ToVersion(context.Context, int64) ([]migrate.Step, error) {
	return nil, errSQLiteOnlyUp
}

func (s sqliteTarget) Close() error { return s.client.Close() }

var errSQLiteOnlyUp = errors.New("sqlite schemas are synced from the models; only `up` is supported")
