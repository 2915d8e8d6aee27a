package migrate

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/rentquote-backend/pkg/config"
	"github.com/angelmondragon/rentquote-backend/pkg/db"
	"github.com/angelmondragon/rentquote-backend/pkg/db/dbtest"
	"github.com/angelmondragon/rentquote-backend/pkg/logger"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one migration named %q, found %d", suffix, len(matches))
	}
	b, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	return string(b)
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestPricingTierMigrationConstraints(t *testing.T) {
	sql := readMigration(t, "create_equipment_pricing_tiers")
	for _, want := range []string{
		"CHECK (period_start >= 1)",
		"CHECK (period_end IS NULL OR period_end >= period_start)",
		"CHECK (price_per_day >= 0)",
		"CHECK (discount_percent >= 0 AND discount_percent <= 100)",
		"UNIQUE (equipment_id, period_start)",
		"REFERENCES equipment(id) ON DELETE CASCADE",
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("pricing tier migration missing %q", want)
		}
	}
}

func TestQuoteLineItemsHaveNoEquipmentForeignKey(t *testing.T) {
	sql := readMigration(t, "create_quotes")
	if strings.Contains(sql, "REFERENCES equipment(") {
		t.Fatal("quote_line_items.equipment_id must not reference equipment")
	}
	for _, want := range []string{
		"CHECK (quantity > 0)",
		"CHECK (rental_period_days > 0)",
		"CHECK (status IN ('draft', 'sent', 'accepted', 'rejected'))",
		"REFERENCES quotes(id) ON DELETE CASCADE",
		"REFERENCES clients(id) ON DELETE RESTRICT",
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("quotes migration missing %q", want)
		}
	}
}

func TestUsersMigrationStatusCheck(t *testing.T) {
	sql := readMigration(t, "create_users")
	if !strings.Contains(sql, "CHECK (status IN ('pending', 'approved', 'rejected'))") {
		t.Fatal("users migration missing status check")
	}
}

func TestDialect(t *testing.T) {
	if d, err := Dialect("postgres"); err != nil || d != "postgres" {
		t.Fatalf("postgres dialect = %q, %v", d, err)
	}
	if d, err := Dialect(""); err != nil || d != "postgres" {
		t.Fatalf("default dialect = %q, %v", d, err)
	}
	if _, err := Dialect("SQLite"); !errors.Is(err, ErrSQLiteSchema) {
		t.Fatalf("expected ErrSQLiteSchema, got %v", err)
	}
	if _, err := Dialect("mysql"); err == nil {
		t.Fatal("expected unsupported driver error")
	}
}

func TestSyncModelsIsIdempotent(t *testing.T) {
	conn := dbtest.Open(t)
	if err := SyncModels(context.Background(), conn); err != nil {
		t.Fatalf("sync models: %v", err)
	}
	for _, table := range []string{"users", "equipment", "equipment_pricing_tiers", "clients", "quotes", "quote_line_items"} {
		if !conn.Migrator().HasTable(table) {
			t.Errorf("expected table %s", table)
		}
	}
	if err := SyncModels(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil db")
	}
}

func TestMaybeRunDevSyncsSQLiteOnlyInDev(t *testing.T) {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "migrate-test", Output: io.Discard})
	dbCfg := config.DBConfig{Driver: config.DBDriverSQLite, DSN: "file::memory:"}

	client, err := db.New(ctx, dbCfg, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	cfg := &config.Config{
		App:          config.AppConfig{Env: "prod"},
		DB:           dbCfg,
		FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: true},
	}
	if err := MaybeRunDev(ctx, cfg, logg, client); err != nil {
		t.Fatalf("prod run: %v", err)
	}
	if client.DB().Migrator().HasTable("quotes") {
		t.Fatal("auto-migrate must not run outside dev")
	}

	cfg.App.Env = config.AppEnvDev
	if err := MaybeRunDev(ctx, cfg, logg, client); err != nil {
		t.Fatalf("dev run: %v", err)
	}
	if !client.DB().Migrator().HasTable("quotes") {
		t.Fatal("expected quotes table after dev auto-migrate")
	}
}
