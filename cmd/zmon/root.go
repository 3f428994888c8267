package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"zmon/internal/config"
	"zmon/internal/logging"
	"zmon/internal/storage"
	"zmon/internal/version"
)

var (
	// configFlag is the CLI --config flag value
	configFlag string
	// dbFlag overrides the configured database path
	dbFlag string
	// logLevelFlag overrides the configured log level
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "zmon",
	Short: "zmon - bedside monitor persistence engine",
	Long: `zmon manages the local SQLite store of a bedside patient monitor:
vital sign samples, alarm history, telemetry upload batches, the
hash-chained action log and the cached patient record.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("zmon version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "",
		"Path to the YAML config file (default: zmon.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "",
		"Database path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, error (overrides config)")
}

// loadConfig reads the config file and applies the CLI/env overrides.
// Precedence: CLI flag > ZMON_DB env var > config file > default.
func loadConfig() (*config.Config, error) {
	path := configFlag
	if path == "" {
		path = "zmon.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if dbFlag != "" {
		cfg.Database.Path = dbFlag
	} else if env := os.Getenv("ZMON_DB"); env != "" {
		cfg.Database.Path = env
	}
	if logLevelFlag != "" {
		cfg.Logging.Level = logLevelFlag
	}
	return cfg, nil
}

// newLogger builds the process logger from the effective config.
func newLogger(cfg *config.Config) *slog.Logger {
	level := logging.LevelFromString(cfg.Logging.Level)
	if cfg.Logging.File != "" {
		logger, _, err := logging.NewFileLogger(cfg.Logging.File, level)
		if err == nil {
			return logger
		}
		// Fall through to stderr if the log file cannot be opened.
	}
	return logging.NewLogger(os.Stderr, level)
}

// openStore loads config, builds the logger and opens the store.
func openStore() (*storage.Store, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg)
	store, err := storage.OpenStore(cfg.Database.Path, cfg.Database.Passphrase, logger)
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}
