package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/rentquote-backend/internal/auth"
	"github.com/angelmondragon/rentquote-backend/internal/equipment"
)

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "quotectl",
		Short:         "Administer the rental catalog, quotes and accounts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		rateCardCmd(open),
		priceCmd(open),
		quoteCmd(open),
		userCmd(open),
	)
	return root
}

// withBackend opens the backend for one command and closes it afterwards.
func withBackend(ctx context.Context, open opener, fn func(backend) error) (err error) {
	b, err := open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := b.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(b)
}

func readRateCard(path string) (*equipment.RateCardFile, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("--file is required")
	}
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	file, err := equipment.ParseRateCard(r)
	if err != nil {
		return nil, err
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}
	return file, nil
}

func rateCardCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratecard",
		Short: "Validate or apply YAML rate cards",
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check a rate card without touching the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			file, err := readRateCard(path)
			if err != nil {
				return fmt.Errorf("invalid rate card: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rate card ok: %d equipment\n", len(file.Equipment))
			return nil
		},
	}
	validate.Flags().StringP("file", "f", "", "rate card YAML file, - for stdin")

	apply := &cobra.Command{
		Use:   "apply",
		Short: "Upsert categories, equipment and tiers from a rate card",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			file, err := readRateCard(path)
			if err != nil {
				return fmt.Errorf("invalid rate card: %w", err)
			}
			return withBackend(cmd.Context(), open, func(b backend) error {
				result, err := b.Equipment().ApplyRateCard(cmd.Context(), file)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "categories created: %d\nequipment created: %d\nequipment updated: %d\ntiers written: %d\n",
					result.CategoriesCreated, result.EquipmentCreated, result.EquipmentUpdated, result.TiersWritten)
				return nil
			})
		},
	}
	apply.Flags().StringP("file", "f", "", "rate card YAML file, - for stdin")

	cmd.AddCommand(validate, apply)
	return cmd
}

func priceCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Resolve the price of one rental",
		RunE: func(cmd *cobra.Command, args []string) error {
			rawID, _ := cmd.Flags().GetString("equipment")
			days, _ := cmd.Flags().GetInt("days")
			quantity, _ := cmd.Flags().GetInt("quantity")

			id, err := uuid.Parse(strings.TrimSpace(rawID))
			if err != nil {
				return fmt.Errorf("--equipment must be a uuid: %w", err)
			}
			if days <= 0 {
				return fmt.Errorf("--days must be positive")
			}
			if quantity <= 0 {
				return fmt.Errorf("--quantity must be positive")
			}

			return withBackend(cmd.Context(), open, func(b backend) error {
				preview, err := b.Equipment().PreviewPrice(cmd.Context(), id, days, quantity)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "tier: %s\n", tierLabel(preview.Tier))
				fmt.Fprintf(out, "price per day: %s\n", preview.PricePerDay.StringFixed(2))
				fmt.Fprintf(out, "discount: %s%%\n", preview.DiscountPercent.StringFixed(2))
				fmt.Fprintf(out, "total: %s\n", preview.LineTotalDisplay)
				if preview.ExceedsAvailable {
					fmt.Fprintln(out, "warning: quantity exceeds available stock")
				}
				return nil
			})
		},
	}
	cmd.Flags().String("equipment", "", "equipment id")
	cmd.Flags().Int("days", 0, "rental length in days")
	cmd.Flags().Int("quantity", 1, "units rented")
	_ = cmd.MarkFlagRequired("equipment")
	_ = cmd.MarkFlagRequired("days")
	return cmd
}

func tierLabel(t equipment.TierDTO) string {
	if t.PeriodEnd == nil {
		return fmt.Sprintf("%d+ days", t.PeriodStart)
	}
	return fmt.Sprintf("%d-%d days", t.PeriodStart, *t.PeriodEnd)
}

func quoteCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote maintenance",
	}
	audit := &cobra.Command{
		Use:   "audit",
		Short: "Compare stored quote totals with their lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			repair, _ := cmd.Flags().GetBool("repair")
			return withBackend(cmd.Context(), open, func(b backend) error {
				auditor, err := b.Auditor(cmd.Context(), repair)
				if err != nil {
					return err
				}
				report, err := auditor.Run(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, d := range report.Drifts {
					status := "drifted"
					if d.Repaired {
						status = "repaired"
					}
					fmt.Fprintf(out, "%s %s stored=%s recomputed=%s\n", status, d.QuoteNumber, d.Stored.StringFixed(2), d.Recomputed.StringFixed(2))
				}
				fmt.Fprintf(out, "checked %d quotes, %d drifted\n", report.Checked, len(report.Drifts))
				return nil
			})
		},
	}
	audit.Flags().Bool("repair", false, "rewrite drifted totals")
	cmd.AddCommand(audit)
	return cmd
}

func userCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Account administration",
	}
	createAdmin := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an approved administrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := auth.CreateAdminRequest{}
			req.Email, _ = cmd.Flags().GetString("email")
			req.Password, _ = cmd.Flags().GetString("password")
			req.FirstName, _ = cmd.Flags().GetString("first-name")
			req.LastName, _ = cmd.Flags().GetString("last-name")

			return withBackend(cmd.Context(), open, func(b backend) error {
				user, err := b.Register().CreateAdmin(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", user.Email, user.ID)
				return nil
			})
		},
	}
	createAdmin.Flags().String("email", "", "login email")
	createAdmin.Flags().String("password", "", "initial password")
	createAdmin.Flags().String("first-name", "", "first name")
	createAdmin.Flags().String("last-name", "", "last name")
	for _, name := range []string{"email", "password", "first-name", "last-name"} {
		_ = createAdmin.MarkFlagRequired(name)
	}
	cmd.AddCommand(createAdmin)
	return cmd
}
