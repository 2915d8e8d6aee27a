package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/rentquote-backend/pkg/migrate"
)

type stubTarget struct {
	calls   []string
	fail    error
	steps   []migrate.Step
	closed  bool
	openDir string
}

func (s *stubTarget) record(call string) ([]migrate.Step, error) {
	s.calls = append(s.calls, call)
	if s.fail != nil {
		return nil, s.fail
	}
	return s.steps, nil
}

func (s *stubTarget) Up(context.Context) ([]migrate.Step, error)     { return s.record("up") }
func (s *stubTarget) Down(context.Context) ([]migrate.Step, error)   { return s.record("down") }
func (s *stubTarget) Status(context.Context) ([]migrate.Step, error) { return s.record("status") }
func (s *stubTarget) ToVersion(_ context.Context, v int64) ([]migrate.Step, error) {
	return s.record(fmt.Sprintf("version %d", v))
}
func (s *stubTarget) Close() error { s.closed = true; return nil }

func run(t *testing.T, stub *stubTarget, args ...string) (string, error) {
	t.Helper()
	opened := false
	open := func(_ context.Context, dir string) (target, error) {
		opened = true
		stub.openDir = dir
		return stub, nil
	}
	cmd := newRootCmd(open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	if opened {
		require.True(t, stub.closed, "target must be closed")
	}
	return out.String(), err
}

func TestSchemaCommandsDispatch(t *testing.T) {
	for args, want := range map[string]string{
		"up":                     "up",
		"down":                   "down",
		"status":                 "status",
		"version 20260301000000": "version 20260301000000",
	} {
		stub := &stubTarget{}
		_, err := run(t, stub, append(strings.Fields(args), "--dir", "db/migrations")...)
		require.NoError(t, err, args)
		require.Equal(t, []string{want}, stub.calls)
		require.Equal(t, "db/migrations", stub.openDir)
	}
}

func TestSchemaCommandErrorsPropagate(t *testing.T) {
	stub := &stubTarget{fail: errSQLiteOnlyUp}
	_, err := run(t, stub, "down")
	require.True(t, errors.Is(err, errSQLiteOnlyUp))
}

func TestVersionRequiresArgument(t *testing.T) {
	stub := &stubTarget{}
	_, err := run(t, stub, "version")
	require.Error(t, err)
	require.Empty(t, stub.calls)

	_, err = run(t, stub, "version", "latest")
	require.ErrorContains(t, err, "invalid version")
	require.Empty(t, stub.calls)
}

func TestStatusPrintsSteps(t *testing.T) {
	stub := &stubTarget{steps: []migrate.Step{
		{Version: 20260101000000, File: "20260101000000_create_users.sql", Applied: true, AppliedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		{Version: 20260301000000, File: "20260301000000_create_quotes.sql"},
	}}
	out, err := run(t, stub, "status")
	require.NoError(t, err)
	require.Contains(t, out, "20260101000000_create_users.sql")
	require.Contains(t, out, "2026-01-02T03:04:05Z")
	require.Regexp(t, `20260301000000_create_quotes\.sql\s+pending`, out)

	out, err = run(t, &stubTarget{}, "up")
	require.NoError(t, err)
	require.Contains(t, out, "schema up to date")
}

func TestCreateAndValidateSkipDatabase(t *testing.T) {
	dir := t.TempDir()
	stub := &stubTarget{}

	out, err := run(t, stub, "create", "add_depot_column", "--dir", dir)
	require.NoError(t, err)
	require.Contains(t, out, "created")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.True(t, strings.HasSuffix(entries[0].Name(), "_add_depot_column.sql"))

	out, err = run(t, stub, "validate", "--dir", dir)
	require.NoError(t, err)
	require.Contains(t, out, "migrations valid")
	require.Empty(t, stub.calls)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "oops.sql"), []byte("SELECT 1;"), 0o644))
	_, err = run(t, stub, "validate", "--dir", dir)
	require.Error(t, err)
}
