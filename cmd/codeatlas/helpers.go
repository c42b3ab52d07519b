package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"codeatlas/internal/config"
	"codeatlas/internal/logging"
	"codeatlas/internal/query"
)

// repoRoot resolves the --repo flag to an absolute path.
func repoRoot() string {
	abs, err := filepath.Abs(repoFlag)
	if err != nil {
		fail(err)
	}
	return abs
}

// setup resolves the repo root, loads its config (defaults when the file
// is absent or unreadable), and builds the command logger from config plus
// flag overrides. Every command goes through here so flag precedence is
// uniform.
func setup() (string, *config.Config, *logging.Logger) {
	root := repoRoot()
	cfg, cfgErr := config.LoadConfig(root)
	if cfgErr != nil {
		cfg = config.DefaultConfig()
	}
	logger := newLogger(cfg)
	if cfgErr != nil {
		logger.Warn("Failed to load config, using defaults", map[string]interface{}{
			"error": cfgErr.Error(),
		})
	}
	return root, cfg, logger
}

// newLogger builds a logger from config, with --log-level/--log-format
// taking precedence.
func newLogger(cfg *config.Config) *logging.Logger {
	level := cfg.Logging.Level
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	format := cfg.Logging.Format
	if logFormatFlag != "" {
		format = logFormatFlag
	}
	return logging.New(logging.Config{
		Level:  logging.ParseLevel(level),
		Format: logging.Format(format),
	})
}

// openEngine loads the cached analysis for the target repo. Commands that
// only read never trigger an analysis; a missing cache is an error telling
// the user to run analyze.
func openEngine() *query.Engine {
	root, cfg, logger := setup()
	engine, err := query.Open(root, cfg, logger)
	if err != nil {
		fail(err)
	}
	return engine
}

// printJSON writes v to stdout as indented JSON. Logs go to stderr, so
// stdout stays parseable.
func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// signalContext returns a context cancelled on SIGINT/SIGTERM so long
// operations unwind cleanly instead of dying mid-write.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
