package main

import (
	"github.com/spf13/cobra"

	"codeatlas/internal/version"
)

var (
	repoFlag      string
	logLevelFlag  string
	logFormatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "codeatlas",
	Short: "codeatlas - structural and semantic index over a source repository",
	Long: `codeatlas analyzes a source repository into three linked artifacts: a
structural index of files, classes and functions; a dependency graph of
imports, inheritance and containment; and an embedding index for semantic
search. Analyze once, then query the cached artifacts.`,
	Version: version.Info(),
}

func init() {
	rootCmd.SetVersionTemplate("codeatlas version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&repoFlag, "repo", ".", "Repository root to operate on")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error (default: from config)")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "", "Log format: human, json (default: from config)")
}
