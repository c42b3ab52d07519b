package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"codeatlas/internal/analyzer"
	"codeatlas/internal/ingest"
	"codeatlas/internal/watcher"
)

var (
	watchNoEmbeddings bool
	watchInterval     time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-analyze the repository whenever its files change",
	Long: `Runs an initial analysis (reusing the cache when present), then polls
file metadata and re-runs the full pipeline after each debounced batch of
changes. Stop with Ctrl-C.`,
	Run: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchNoEmbeddings, "no-embeddings", false, "Skip the embedding stage on every run")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Polling interval (default: from config)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	root, cfg, logger := setup()

	ctx, stop := signalContext()
	defer stop()

	a := analyzer.New(cfg, logger)
	if _, err := a.Run(ctx, root, analyzer.Options{SkipEmbeddings: watchNoEmbeddings}); err != nil {
		fail(err)
	}

	interval := time.Duration(cfg.Watch.IntervalMs) * time.Millisecond
	if watchInterval > 0 {
		interval = watchInterval
	}

	w := watcher.New(root, watcher.Options{
		Interval: interval,
		Debounce: time.Duration(cfg.Watch.DebounceMs) * time.Millisecond,
		Ingest: ingest.Options{
			MaxFileSize:     cfg.Ingest.MaxFileSizeBytes,
			ExtraIgnoreDirs: cfg.Ingest.ExtraIgnoreDirs,
		},
	}, logger, func(events []watcher.Event) {
		if _, err := a.Run(ctx, root, analyzer.Options{
			Force:          true,
			SkipEmbeddings: watchNoEmbeddings,
		}); err != nil && ctx.Err() == nil {
			logger.Error("Re-analysis failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	})

	if err := w.Run(ctx); err != nil && !isContextErr(err) {
		fail(err)
	}
}

func isContextErr(err error) bool {
	return err == context.Canceled || err == context.DeadlineExceeded
}
