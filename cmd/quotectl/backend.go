package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/rentquote-backend/internal/auth"
	"github.com/angelmondragon/rentquote-backend/internal/equipment"
	"github.com/angelmondragon/rentquote-backend/internal/quotes"
	"github.com/angelmondragon/rentquote-backend/pkg/config"
	"github.com/angelmondragon/rentquote-backend/pkg/db"
	"github.com/angelmondragon/rentquote-backend/pkg/logger"
	"github.com/angelmondragon/rentquote-backend/pkg/metrics"
	"github.com/angelmondragon/rentquote-backend/pkg/migrate"
	"github.com/angelmondragon/rentquote-backend/pkg/money"
	"github.com/angelmondragon/rentquote-backend/pkg/redis"
)

type quoteAuditor interface {
	Run(ctx context.Context) (quotes.AuditReport, error)
}

// backend is the slice of the service layer the CLI drives.
type backend interface {
	Equipment() equipment.Service
	Register() auth.RegisterService
	Auditor(ctx context.Context, repair bool) (quoteAuditor, error)
	Close() error
}

type opener func(ctx context.Context) (backend, error)

type dbBackend struct {
	cfg       *config.Config
	logg      *logger.Logger
	dbClient  *db.Client
	redis     *redis.Client
	equipment equipment.Service
	register  auth.RegisterService
}

func openBackend(ctx context.Context) (backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logg := logger.New(logger.Options{
		ServiceName: "quotectl",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap database: %w", err)
	}
	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		_ = dbClient.Close()
		return nil, fmt.Errorf("dev migrations: %w", err)
	}

	formatter, err := money.NewFormatter(cfg.App.Locale, cfg.App.Currency)
	if err != nil {
		_ = dbClient.Close()
		return nil, err
	}
	equipmentService, err := equipment.NewService(equipment.NewRepository(dbClient.DB()), dbClient, formatter)
	if err != nil {
		_ = dbClient.Close()
		return nil, err
	}
	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{DB: dbClient, PasswordConfig: cfg.Password})
	if err != nil {
		_ = dbClient.Close()
		return nil, err
	}

	return &dbBackend{
		cfg:       cfg,
		logg:      logg,
		dbClient:  dbClient,
		equipment: equipmentService,
		register:  registerService,
	}, nil
}

func (b *dbBackend) Equipment() equipment.Service   { return b.equipment }
func (b *dbBackend) Register() auth.RegisterService { return b.register }

// Auditor connects to Redis only for repair runs, which need the draft lock.
func (b *dbBackend) Auditor(ctx context.Context, repair bool) (quoteAuditor, error) {
	params := quotes.AuditParams{
		Repo:          quotes.NewRepository(b.dbClient.DB()),
		EquipmentRepo: equipment.NewRepository(b.dbClient.DB()),
		Metrics:       metrics.NewQuoteMetrics(prometheus.NewRegistry()),
		Logger:        b.logg,
		BatchSize:     b.cfg.Cron.AuditBatch,
		Repair:        repair,
	}
	if repair {
		if b.redis == nil {
			client, err := redis.New(ctx, b.cfg.Redis, b.logg)
			if err != nil {
				return nil, fmt.Errorf("bootstrap redis: %w", err)
			}
			b.redis = client
		}
		locker, err := quotes.NewRedisDraftLocker(b.redis, b.cfg.Quotes.DraftLockTTL)
		if err != nil {
			return nil, err
		}
		params.Locker = locker
	}
	auditor, err := quotes.NewAuditor(params)
	if err != nil {
		return nil, err
	}
	return auditor, nil
}

func (b *dbBackend) Close() error {
	var err error
	if b.redis != nil {
		err = b.redis.Close()
	}
	return multierr.Append(err, b.dbClient.Close())
}
