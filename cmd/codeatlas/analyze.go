package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"codeatlas/internal/analyzer"
	"codeatlas/internal/config"
	"codeatlas/internal/ingest"
)

var (
	analyzeNoEmbeddings bool
	analyzeForce        bool
	analyzeWorkers      int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [source]",
	Short: "Analyze a repository into the .codeatlas cache",
	Long: `Analyzes a local directory or a remote git URL (shallow-cloned into a
temporary directory). Produces the structural index, dependency graph,
retrieval chunks, and — when an embedding provider is configured — the
vector index, all persisted under .codeatlas/.

Without --force an existing cache is reloaded instead of re-analyzed.

Examples:
  codeatlas analyze                     # analyze the current directory
  codeatlas analyze ../other-repo
  codeatlas analyze https://github.com/user/repo
  codeatlas analyze --force --no-embeddings`,
	Args: cobra.MaximumNArgs(1),
	Run:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeNoEmbeddings, "no-embeddings", false, "Skip the embedding stage (chunks are still produced)")
	analyzeCmd.Flags().BoolVar(&analyzeForce, "force", false, "Re-analyze even when a cache exists")
	analyzeCmd.Flags().IntVar(&analyzeWorkers, "workers", 0, "Parser worker count (default: from config, else CPU count)")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) {
	source := repoFlag
	if len(args) > 0 {
		source = args[0]
	}

	// Remote sources have no config on disk until after the clone; they
	// run with defaults plus flag overrides.
	var cfg *config.Config
	if ingest.IsRemote(source) {
		cfg = config.DefaultConfig()
	} else {
		abs, err := filepath.Abs(source)
		if err != nil {
			fail(err)
		}
		source = abs
		if loaded, err := config.LoadConfig(abs); err == nil {
			cfg = loaded
		} else {
			cfg = config.DefaultConfig()
		}
	}
	logger := newLogger(cfg)

	ctx, stop := signalContext()
	defer stop()

	res, err := analyzer.New(cfg, logger).Run(ctx, source, analyzer.Options{
		SkipEmbeddings: analyzeNoEmbeddings,
		Force:          analyzeForce,
		Workers:        analyzeWorkers,
	})
	if err != nil {
		fail(err)
	}
	printJSON(res.Stats)
}
