// Package migrate owns the schema: goose SQL migrations for Postgres and a
// model sync for SQLite development databases.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"

	"github.com/angelmondragon/rentquote-backend/pkg/config"
	"github.com/angelmondragon/rentquote-backend/pkg/db/models"
)

const DefaultDir = "pkg/migrate/migrations"

// ErrSQLiteSchema is returned when goose is asked to migrate a SQLite database.
// The SQL migrations target Postgres; SQLite schemas are synced from the models.
var ErrSQLiteSchema = errors.New("goose migrations target postgres; sqlite schemas are synced from models")

// Dialect maps the configured database driver to a goose dialect.
func Dialect(driver string) (goose.Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", config.DBDriverPostgres:
		return goose.DialectPostgres, nil
	case config.DBDriverSQLite:
		return "", ErrSQLiteSchema
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// SyncModels creates or updates tables straight from the GORM models.
func SyncModels(ctx context.Context, conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db is required")
	}
	if err := conn.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto-migrate models: %w", err)
	}
	return nil
}

// Step is one migration as reported by the Migrator.
type Step struct {
	Version   int64
	File      string
	Applied   bool
	AppliedAt time.Time
	Duration  time.Duration
}

// Migrator applies the SQL files in one directory to a Postgres database.
// It never closes the database it was given.
type Migrator struct {
	provider *goose.Provider
}

func NewMigrator(db *sql.DB, dir string) (*Migrator, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("load migrations from %s: %w", dir, err)
	}
	return &Migrator{provider: provider}, nil
}

// Up applies every pending migration.
func (m *Migrator) Up(ctx context.Context) ([]Step, error) {
	results, err := m.provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose up: %w", err)
	}
	return fromResults(results, true), nil
}

// Down rolls back the most recent migration.
func (m *Migrator) Down(ctx context.Context) ([]Step, error) {
	result, err := m.provider.Down(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose down: %w", err)
	}
	return fromResults([]*goose.MigrationResult{result}, false), nil
}

// ToVersion moves the schema up or down until version is the latest applied.
func (m *Migrator) ToVersion(ctx context.Context, version int64) ([]Step, error) {
	if version < 0 {
		return nil, fmt.Errorf("invalid version %d", version)
	}
	current, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("get db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == version:
		return nil, nil
	case current < version:
		results, err = m.provider.UpTo(ctx, version)
	default:
		results, err = m.provider.DownTo(ctx, version)
	}
	if err != nil {
		return nil, fmt.Errorf("migrate %d -> %d: %w", current, version, err)
	}
	return fromResults(results, current < version), nil
}

// Status lists every known migration with its applied state.
func (m *Migrator) Status(ctx context.Context) ([]Step, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose status: %w", err)
	}
	steps := make([]Step, 0, len(statuses))
	for _, s := range statuses {
		steps = append(steps, Step{
			Version:   s.Source.Version,
			File:      filepath.Base(s.Source.Path),
			Applied:   s.State == goose.StateApplied,
			AppliedAt: s.AppliedAt,
		})
	}
	return steps, nil
}

func fromResults(results []*goose.MigrationResult, applied bool) []Step {
	steps := make([]Step, 0, len(results))
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		steps = append(steps, Step{
			Version:  r.Source.Version,
			File:     filepath.Base(r.Source.Path),
			Applied:  applied,
			Duration: r.Duration,
		})
	}
	return steps
}
