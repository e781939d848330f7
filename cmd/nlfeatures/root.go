package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/scholarslab/nlfeatures/internal/config"
	"github.com/scholarslab/nlfeatures/internal/retry"
	"github.com/scholarslab/nlfeatures/internal/store"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "nlfeatures",
	Short: "Map features for Omeka coverage values",
	Long: "nlfeatures stores the geometry and map viewport behind each item's Coverage values " +
		"and finds them again from the text a form submits.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: NLFEATURES_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > NLFEATURES_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("NLFEATURES_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

// setupLogger writes to stderr so command output on stdout stays clean.
func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(cfg.Database, store.Settings{
		CoverageElementID: cfg.CoverageElementID,
		Defaults:          cfg.Defaults,
	})
}

// Writes that hit a locked database are retried; serve and import can run
// against the same file.
const (
	writeRetries    = 2
	writeRetryDelay = 100 * time.Millisecond
)

func withRetry(s *store.SQLiteStore, logger *slog.Logger) *retry.RetryStore {
	return retry.NewRetryStore(s, writeRetries, writeRetryDelay, logger)
}
