package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/rentquote-backend/internal/cron"
	"github.com/angelmondragon/rentquote-backend/internal/equipment"
	"github.com/angelmondragon/rentquote-backend/internal/quotes"
	"github.com/angelmondragon/rentquote-backend/pkg/config"
	"github.com/angelmondragon/rentquote-backend/pkg/db"
	"github.com/angelmondragon/rentquote-backend/pkg/logger"
	"github.com/angelmondragon/rentquote-backend/pkg/metrics"
	"github.com/angelmondragon/rentquote-backend/pkg/migrate"
	"github.com/angelmondragon/rentquote-backend/pkg/redis"
)

const serviceKind = "cron-worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceKind})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind
	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"service_kind": cfg.Service.Kind,
		"schedule":     cfg.Cron.Schedule,
	})

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		stop()
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shut down")
}

// run wires the worker and blocks until ctx is canceled or a component fails.
func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer closeQuietly(ctx, logg, "database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer closeQuietly(ctx, logg, "redis", redisClient.Close)

	registry := prometheus.NewRegistry()
	service, err := newScheduler(cfg, logg, dbClient, redisClient, registry)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	logg.Info(ctx, "starting cron worker")
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := service.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func newScheduler(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, reg prometheus.Registerer) (*cron.Service, error) {
	locker, err := quotes.NewRedisDraftLocker(redisClient, cfg.Quotes.DraftLockTTL)
	if err != nil {
		return nil, fmt.Errorf("draft locker: %w", err)
	}
	auditor, err := quotes.NewAuditor(quotes.AuditParams{
		Repo:          quotes.NewRepository(dbClient.DB()),
		EquipmentRepo: equipment.NewRepository(dbClient.DB()),
		Locker:        locker,
		Metrics:       metrics.NewQuoteMetrics(reg),
		Logger:        logg,
		BatchSize:     cfg.Cron.AuditBatch,
		Repair:        cfg.Cron.AuditRepair,
	})
	if err != nil {
		return nil, fmt.Errorf("quote auditor: %w", err)
	}
	auditJob, err := cron.NewQuoteAuditJob(logg, auditor)
	if err != nil {
		return nil, fmt.Errorf("quote audit job: %w", err)
	}
	jobs, err := cron.NewRegistry(auditJob)
	if err != nil {
		return nil, fmt.Errorf("register jobs: %w", err)
	}

	env := cfg.App.Env
	if env == "" {
		env = "local"
	}
	lock, err := cron.NewRedisLock(redisClient, "scheduler-"+env, 0)
	if err != nil {
		return nil, fmt.Errorf("cron lock: %w", err)
	}

	return cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   jobs,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(reg),
		Schedule:   cfg.Cron.Schedule,
		RunOnStart: true,
	})
}

func closeQuietly(ctx context.Context, logg *logger.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(logg.WithField(ctx, "resource", what), "close failed", err)
	}
}
