package db

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/rentquote-backend/pkg/config"
	"github.com/angelmondragon/rentquote-backend/pkg/logger"
)

type testModel struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}

	ctx := context.Background()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", count)
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	client := Wrap(db)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestDialectorFollowsDriver(t *testing.T) {
	if got := Dialector(config.DBConfig{Driver: "sqlite", DSN: ":memory:"}).Name(); got != "sqlite" {
		t.Fatalf("expected sqlite dialector, got %s", got)
	}
	if got := Dialector(config.DBConfig{Driver: "postgres", DSN: "postgres://localhost/rentquote"}).Name(); got != "postgres" {
		t.Fatalf("expected postgres dialector, got %s", got)
	}
}

func TestNewRequiresDSN(t *testing.T) {
	if _, err := New(context.Background(), config.DBConfig{Driver: config.DBDriverSQLite}, nil); err == nil {
		t.Fatal("expected missing DSN to be rejected")
	}
}

func TestNewSQLiteEnforcesForeignKeys(t *testing.T) {
	client, err := New(context.Background(), config.DBConfig{Driver: config.DBDriverSQLite, DSN: "file::memory:"}, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	var enabled int
	if err := client.DB().Raw("PRAGMA foreign_keys").Scan(&enabled).Error; err != nil {
		t.Fatalf("read pragma: %v", err)
	}
	if enabled != 1 {
		t.Fatalf("expected foreign keys on, got %d", enabled)
	}
}

func TestQueryLoggerReportsSlowAndFailedStatements(t *testing.T) {
	var logs bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "db-test", Output: &logs, Format: logger.FormatJSON})
	client, err := New(context.Background(), config.DBConfig{
		Driver:    config.DBDriverSQLite,
		DSN:       "file::memory:",
		SlowQuery: time.Nanosecond,
	}, logg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	if err := client.DB().AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logs.Reset()
	if err := client.DB().Create(&testModel{Name: "argon-hash-value"}).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	out := logs.String()
	if !strings.Contains(out, "db.slow_query") {
		t.Fatalf("expected slow query entry, got %s", out)
	}
	if strings.Contains(out, "argon-hash-value") {
		t.Fatalf("bound values leaked into logs: %s", out)
	}

	logs.Reset()
	var rows []testModel
	_ = client.DB().Table("missing_table").Find(&rows).Error
	if !strings.Contains(logs.String(), "db.query_failed") {
		t.Fatalf("expected failure entry, got %s", logs.String())
	}

	logs.Reset()
	var one testModel
	if err := client.DB().Where("name = ?", "nobody").First(&one).Error; !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if strings.Contains(logs.String(), "db.query_failed") {
		t.Fatalf("not found should not log as a failure: %s", logs.String())
	}
}
