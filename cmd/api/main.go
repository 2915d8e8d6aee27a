package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/rentquote-backend/api/routes"
	"github.com/angelmondragon/rentquote-backend/internal/auth"
	"github.com/angelmondragon/rentquote-backend/internal/clients"
	"github.com/angelmondragon/rentquote-backend/internal/equipment"
	"github.com/angelmondragon/rentquote-backend/internal/quotes"
	"github.com/angelmondragon/rentquote-backend/internal/users"
	"github.com/angelmondragon/rentquote-backend/pkg/auth/session"
	"github.com/angelmondragon/rentquote-backend/pkg/config"
	"github.com/angelmondragon/rentquote-backend/pkg/db"
	"github.com/angelmondragon/rentquote-backend/pkg/logger"
	"github.com/angelmondragon/rentquote-backend/pkg/mailer"
	"github.com/angelmondragon/rentquote-backend/pkg/metrics"
	"github.com/angelmondragon/rentquote-backend/pkg/migrate"
	"github.com/angelmondragon/rentquote-backend/pkg/money"
	"github.com/angelmondragon/rentquote-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)
	quoteMetrics := metrics.NewQuoteMetrics(registry)

	formatter, err := money.NewFormatter(cfg.App.Locale, cfg.App.Currency)
	if err != nil {
		logg.Error(context.Background(), "invalid locale or currency", err)
		os.Exit(1)
	}

	userRepo := users.NewRepository(dbClient.DB())
	equipmentRepo := equipment.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	exitOnErr(logg, "failed to create auth service", err)

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
	})
	exitOnErr(logg, "failed to create register service", err)

	approvalService, err := auth.NewApprovalService(auth.ApprovalServiceParams{
		UserRepo: userRepo,
		Mailer:   mailer.New(cfg.Sendgrid, logg),
		Logger:   logg,
	})
	exitOnErr(logg, "failed to create approval service", err)

	equipmentService, err := equipment.NewService(equipmentRepo, dbClient, formatter)
	exitOnErr(logg, "failed to create equipment service", err)

	clientService, err := clients.NewService(clients.NewRepository(dbClient.DB()), dbClient)
	exitOnErr(logg, "failed to create client service", err)

	locker, err := quotes.NewRedisDraftLocker(redisClient, cfg.Quotes.DraftLockTTL)
	exitOnErr(logg, "failed to create draft locker", err)

	numberer, err := quotes.NewNumberer(redisClient, cfg.Quotes.NumberPrefix)
	exitOnErr(logg, "failed to create quote numberer", err)

	quoteService, err := quotes.NewService(quotes.ServiceParams{
		Repo:          quotes.NewRepository(dbClient.DB()),
		EquipmentRepo: equipmentRepo,
		DB:            dbClient,
		Locker:        locker,
		Numberer:      numberer,
		Formatter:     formatter,
		Metrics:       quoteMetrics,
		Logger:        logg,
		ValidityDays:  cfg.Quotes.ValidityDays,
	})
	exitOnErr(logg, "failed to create quote service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"metrics_addr": cfg.Metrics.Addr,
		"db_driver":    cfg.DB.Driver,
	})
	logg.Info(ctx, "starting api server")

	apiServer := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Dependencies{
			Config:      cfg,
			Logger:      logg,
			HTTPMetrics: httpMetrics,
			DBPinger:    dbClient,
			RedisPinger: redisClient,
			RateLimiter: redisClient,
			Idempotency: redisClient,
			Sessions:    sessionManager,
			Auth:        authService,
			Register:    registerService,
			Approvals:   approvalService,
			Equipment:   equipmentService,
			Clients:     clientService,
			Quotes:      quoteService,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error { return serve(apiServer) })
	group.Go(func() error { return serve(metricsServer) })
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logg.Info(ctx, "shutting down api server")
		return errors.Join(apiServer.Shutdown(shutdownCtx), metricsServer.Shutdown(shutdownCtx))
	})

	if err := group.Wait(); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

func serve(server *http.Server) error {
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func exitOnErr(logg *logger.Logger, msg string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}
