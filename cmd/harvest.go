package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/moazrovne/harvest-cli/internal/cache"
	"github.com/moazrovne/harvest-cli/internal/config"
	"github.com/moazrovne/harvest-cli/internal/extract"
	"github.com/moazrovne/harvest-cli/internal/fetcher"
	"github.com/moazrovne/harvest-cli/internal/runlog"
	"github.com/moazrovne/harvest-cli/internal/sweep"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Sweep new question IDs into the dataset",
	Long: `Sweep the archive starting one past the highest question ID already in the
dataset. Cached pages are never re-fetched, failed IDs are skipped and retried
on the next run, and the sweep stops once a sustained run of missing IDs past
the buffer threshold signals the live frontier.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applySweepOverrides(cmd, cfg)
		engine, err := newEngine(cfg)
		if err != nil {
			return err
		}

		summary, err := runLogged(ctx, "harvest", func(ctx context.Context) (*sweep.Summary, error) {
			return engine.Run(ctx)
		})
		if err != nil {
			return err
		}

		fmt.Printf("Harvested %d new questions (probed %d IDs, skipped %d) in %s\n",
			summary.NewRecords, summary.Probed, summary.Skipped, summary.Elapsed.Round(time.Second))
		return nil
	},
}

func init() {
	harvestCmd.Flags().Int("buffer-threshold", 0, "override sweep.buffer_threshold")
	harvestCmd.Flags().Int("max-missing-streak", 0, "override sweep.max_missing_streak")
	harvestCmd.Flags().Int("checkpoint-interval", 0, "override sweep.checkpoint_interval")
	rootCmd.AddCommand(harvestCmd)
}

// applySweepOverrides folds flag values over the loaded configuration.
func applySweepOverrides(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetInt("buffer-threshold"); v > 0 {
		cfg.Sweep.BufferThreshold = v
	}
	if v, _ := cmd.Flags().GetInt("max-missing-streak"); v > 0 {
		cfg.Sweep.MaxMissingStreak = v
	}
	if v, _ := cmd.Flags().GetInt("checkpoint-interval"); v > 0 {
		cfg.Sweep.CheckpointInterval = v
	}
}

// newEngine wires caches, fetcher, and extractor into a sweep engine from the
// loaded configuration plus any flag overrides.
func newEngine(cfg *config.Config) (*sweep.Engine, error) {
	docs, err := cache.NewStore(cfg.Cache.HTMLDir, "q")
	if err != nil {
		return nil, err
	}
	pages, err := cache.NewStore(cfg.Cache.HTMLDir, "page")
	if err != nil {
		return nil, err
	}
	media, err := cache.NewMediaStore(cfg.Cache.MediaDir)
	if err != nil {
		return nil, err
	}

	client := fetcher.New(fetcher.Options{
		QuestionURL: cfg.Remote.QuestionURL,
		ArchiveURL:  cfg.Remote.ArchiveURL,
		UserAgent:   cfg.Remote.UserAgent,
		Timeout:     cfg.Remote.Timeout(),
		Delay:       cfg.Remote.Delay(),
	}, docs, pages, media)

	ex := extract.Moazrovne{}
	return sweep.New(client, ex, ex, sweep.Config{
		DatasetPath: cfg.Dataset.Path,
		Policy: sweep.Policy{
			BufferThreshold:  cfg.Sweep.BufferThreshold,
			MaxMissingStreak: cfg.Sweep.MaxMissingStreak,
		},
		CheckpointInterval: cfg.Sweep.CheckpointInterval,
		ProgressEvery:      cfg.Sweep.ProgressEvery,
	}), nil
}

// runLogged wraps a run with run-history bookkeeping. The run log is
// best-effort: an unopenable log is warned about, never fatal.
func runLogged(ctx context.Context, kind string, run func(context.Context) (*sweep.Summary, error)) (*sweep.Summary, error) {
	log, err := runlog.Open(cfg.RunLog.Path)
	if err != nil {
		zap.L().Warn("run log unavailable", zap.Error(err))
		return run(ctx)
	}
	defer log.Close() //nolint:errcheck

	runID, err := log.Start(ctx, kind)
	if err != nil {
		zap.L().Warn("run log start failed", zap.Error(err))
		return run(ctx)
	}

	summary, err := run(ctx)
	if err != nil {
		if failErr := log.Fail(context.WithoutCancel(ctx), runID, err.Error()); failErr != nil {
			zap.L().Warn("run log fail-mark failed", zap.Error(failErr))
		}
		return nil, eris.Wrapf(err, "%s run", kind)
	}

	if err := log.Complete(context.WithoutCancel(ctx), runID, summary.LastID, summary.NewRecords); err != nil {
		zap.L().Warn("run log complete-mark failed", zap.Error(err))
	}
	return summary, nil
}
