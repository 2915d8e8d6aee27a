package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	path, err := createSQLMigration(dir, "Add Quote Notes!", now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if filepath.Base(path) != "20260304050607_add_quote_notes.sql" {
		t.Fatalf("unexpected file %s", path)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}

	if _, err := createSQLMigration(dir, "another", now); err == nil {
		t.Fatalf("expected version clash")
	}
	if _, err := createSQLMigration(dir, " !! ", now.Add(time.Second)); err == nil {
		t.Fatalf("expected empty name error")
	}
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	cases := map[string]string{
		"20260101000000_bad-name.sql":   "-- +goose Up\n-- +goose Down\n",
		"20260101000000_no_down.sql":    "-- +goose Up\nSELECT 1;\n",
		"20260101000000_down_first.sql": "-- +goose Down\n-- +goose Up\n",
	}
	for name, body := range cases {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := ValidateDir(dir); err == nil {
			t.Fatalf("expected %s to fail validation", name)
		}
	}

	dir := t.TempDir()
	for _, name := range []string{"20260101000000_a.sql", "20260101000000_b.sql"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := ValidateDir(dir); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate version error, got %v", err)
	}

	if err := ValidateDir(t.TempDir()); err == nil {
		t.Fatalf("empty dir should fail")
	}
}
