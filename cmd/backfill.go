package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/moazrovne/harvest-cli/internal/sweep"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Harvest the paged archive listing",
	Long: `Walk the archive's paged listing instead of probing individual IDs. Each
page carries many questions and is cached like any other document, so re-runs
only fetch pages not seen before. Useful for the initial dataset build and for
picking up questions the ID sweep's cursor has already passed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		first, _ := cmd.Flags().GetInt("first-page")
		last, _ := cmd.Flags().GetInt("last-page")
		if last <= 0 {
			last = cfg.Sweep.ArchivePages
		}

		engine, err := newEngine(cfg)
		if err != nil {
			return err
		}

		summary, err := runLogged(ctx, "backfill", func(ctx context.Context) (*sweep.Summary, error) {
			return engine.Backfill(ctx, first, last)
		})
		if err != nil {
			return err
		}

		fmt.Printf("Backfilled %d new questions from %d pages (skipped %d) in %s\n",
			summary.NewRecords, summary.Probed, summary.Skipped, summary.Elapsed.Round(time.Second))
		return nil
	},
}

func init() {
	backfillCmd.Flags().Int("first-page", 1, "first listing page to harvest")
	backfillCmd.Flags().Int("last-page", 0, "last listing page (default sweep.archive_pages)")
	rootCmd.AddCommand(backfillCmd)
}
