package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"productlogik/internal/domain/quota"
	"productlogik/internal/schema"
)

type dbOpener func() (*gorm.DB, error)

func newRootCmd(open dbOpener) *cobra.Command {
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:   "feedbackctl",
		Short: "Operator tool for the feedback analysis service",
		Long: `feedbackctl runs schema migrations and manages analysis quotas
(plan changes and period resets) against the service database.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	quotaService := func() (*quota.Service, error) {
		db, err := open()
		if err != nil {
			return nil, err
		}
		catalog, err := quota.DefaultCatalog()
		if err != nil {
			return nil, err
		}
		return quota.NewService(quota.NewRepository(db), catalog), nil
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := open()
			if err != nil {
				return err
			}
			if err := schema.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			return report(cmd.OutOrStdout(), jsonOutput, map[string]any{"ok": true}, "schema is up to date")
		},
	})

	var all bool
	resetCmd := &cobra.Command{
		Use:   "reset-quotas",
		Short: "Reset analysis usage for quotas whose period has ended",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := quotaService()
			if err != nil {
				return err
			}
			n, err := svc.ResetUsage(cmd.Context(), !all)
			if err != nil {
				return fmt.Errorf("reset quotas: %w", err)
			}
			return report(cmd.OutOrStdout(), jsonOutput, map[string]any{"ok": true, "reset": n},
				fmt.Sprintf("reset %d quota(s)", n))
		},
	}
	resetCmd.Flags().BoolVar(&all, "all", false, "Reset every quota, not only expired periods")
	rootCmd.AddCommand(resetCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "set-plan <user-id> <tier>",
		Short: "Move a user to another plan tier",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || userID <= 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			svc, err := quotaService()
			if err != nil {
				return err
			}
			q, err := svc.SetPlan(cmd.Context(), userID, args[1])
			if err != nil {
				return fmt.Errorf("set plan: %w", err)
			}
			return report(cmd.OutOrStdout(), jsonOutput, q,
				fmt.Sprintf("user %d is now on %s (%d/%d used)", q.UserID, q.PlanTier, q.AnalysesUsed, q.AnalysesLimit))
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "plans",
		Short: "List the plan catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := quota.DefaultCatalog()
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), catalog.Plans)
			}
			for _, p := range catalog.Plans {
				limit := strconv.Itoa(p.AnalysesLimit)
				if p.AnalysesLimit == quota.Unlimited {
					limit = "unlimited"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %-12s %s\n", p.Tier, p.Name, limit)
			}
			return nil
		},
	})

	return rootCmd
}

func report(w io.Writer, asJSON bool, v any, text string) error {
	if asJSON {
		return printJSON(w, v)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
