package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/rentquote-backend/pkg/migrate"
)

func newRootCmd(open opener) *cobra.Command {
	var dir string
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the rentquote database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dir, "dir", migrate.DefaultDir, "goose migrations directory")

	withTarget := func(ctx context.Context, fn func(target) error) (err error) {
		t, err := open(ctx, dir)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := t.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		return fn(t)
	}

	schemaCmd := func(use, short string, fn func(target, context.Context) ([]migrate.Step, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withTarget(cmd.Context(), func(t target) error {
					steps, err := fn(t, cmd.Context())
					if err != nil {
						return err
					}
					return printSteps(cmd.OutOrStdout(), steps)
				})
			},
		}
	}

	up := schemaCmd("up", "Apply pending migrations (sqlite: sync tables from models)", target.Up)
	down := schemaCmd("down", "Roll back the latest migration", target.Down)
	status := schemaCmd("status", "Print applied and pending migrations", target.Status)
	version := &cobra.Command{
		Use:   "version YYYYMMDDHHMMSS",
		Short: "Migrate up or down to an exact version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || v < 0 {
				return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", args[0])
			}
			return withTarget(cmd.Context(), func(t target) error {
				steps, err := t.ToVersion(cmd.Context(), v)
				if err != nil {
					return err
				}
				return printSteps(cmd.OutOrStdout(), steps)
			})
		},
	}
	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Write an empty timestamped SQL migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := migrate.CreateSQLMigration(dir, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "created", path)
			return nil
		},
	}
	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check migration file names and goose annotations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := migrate.ValidateDir(dir); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations valid")
			return nil
		},
	}

	root.AddCommand(up, down, status, version, create, validate)
	return root
}

func printSteps(w io.Writer, steps []migrate.Step) error {
	if len(steps) == 0 {
		_, err := fmt.Fprintln(w, "schema up to date")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tFILE\tSTATE\tWHEN")
	for _, s := range steps {
		state, when := "pending", ""
		if s.Applied {
			state = "applied"
		}
		switch {
		case !s.AppliedAt.IsZero():
			when = s.AppliedAt.UTC().Format(time.RFC3339)
		case s.Duration > 0:
			when = s.Duration.Round(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Version, s.File, state, when)
	}
	return tw.Flush()
}
