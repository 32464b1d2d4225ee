package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"spot/internal/database"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the on-disk search response cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached search page",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg, afero.NewOsFs())
		if err != nil {
			return err
		}
		defer a.Close()
		if cfg.Cache.TTL <= 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "cache is disabled (cache.ttl is 0)")
			return nil
		}
		if err := a.aggregator.ClearCache(); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", cfg.Cache.Dir)
		return nil
	},
}

var submissionsLimit int

var submissionsCmd = &cobra.Command{
	Use:   "submissions",
	Short: "Show recent contact submissions and signup totals from the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Database.Path == "" {
			return fmt.Errorf("database.path is not configured")
		}
		db, err := database.NewDB(database.Config{DatabasePath: cfg.Database.Path})
		if err != nil {
			return err
		}
		defer db.Close()
		repo := database.NewSubmissionRepository(db.Connection())
		ctx := cmd.Context()

		sent, err := repo.CountContacts(ctx, database.SubmissionSent)
		if err != nil {
			return err
		}
		failed, err := repo.CountContacts(ctx, database.SubmissionFailed)
		if err != nil {
			return err
		}
		signups, err := repo.CountSignups(ctx, database.SubmissionSent)
		if err != nil {
			return err
		}
		recent, err := repo.RecentContacts(ctx, submissionsLimit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "contact: %d sent, %d failed; newsletter: %d subscribed\n\n", sent, failed, signups)
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "WHEN\tFROM\tEMAIL\tSTATUS")
		for _, rec := range recent {
			fmt.Fprintf(tw, "%s\t%s %s\t%s\t%s\n", rec.CreatedAt.Format("2006-01-02 15:04"), rec.Name, rec.LastName, rec.Email, rec.Status)
		}
		return tw.Flush()
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	submissionsCmd.Flags().IntVarP(&submissionsLimit, "limit", "n", 20, "number of recent submissions to show")
	rootCmd.AddCommand(cacheCmd, submissionsCmd)
}
