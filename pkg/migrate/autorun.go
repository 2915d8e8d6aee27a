package migrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/rentquote-backend/pkg/config"
	"github.com/angelmondragon/rentquote-backend/pkg/db"
	"github.com/angelmondragon/rentquote-backend/pkg/logger"
)

// MaybeRunDev brings the schema up to date at startup, but only in dev with
// the auto-migrate flag on. Other environments run cmd/migrate explicitly.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	ctx = logg.WithFields(ctx, map[string]any{"driver": cfg.DB.Driver, "dir": DefaultDir})
	start := time.Now()

	_, err := Dialect(cfg.DB.Driver)
	switch {
	case errors.Is(err, ErrSQLiteSchema):
		err = SyncModels(ctx, client.DB())
	case err == nil:
		err = upFromDB(ctx, client)
	}
	if err != nil {
		return fmt.Errorf("dev auto-migrate: %w", err)
	}

	logg.Info(logg.WithField(ctx, "duration_ms", time.Since(start).Milliseconds()), "schema.auto_migrated")
	return nil
}

func upFromDB(ctx context.Context, client *db.Client) error {
	sqlDB, err := client.DB().DB()
	if err != nil {
		return err
	}
	m, err := NewMigrator(sqlDB, DefaultDir)
	if err != nil {
		return err
	}
	_, err = m.Up(ctx)
	return err
}
