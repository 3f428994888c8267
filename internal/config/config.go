// Package config loads the zmon configuration file.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config is the complete zmon configuration.
type Config struct {
	Database  DatabaseConfig  `json:"database" mapstructure:"database"`
	Retention RetentionConfig `json:"retention" mapstructure:"retention"`
	Batch     BatchConfig     `json:"batch" mapstructure:"batch"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
}

// DatabaseConfig controls the SQLite store.
type DatabaseConfig struct {
	Path       string `json:"path" mapstructure:"path"`
	Passphrase string `json:"passphrase" mapstructure:"passphrase"`
}

// RetentionConfig sets how long each table keeps data, in days.
// Zero disables retention for that table.
type RetentionConfig struct {
	VitalsDays    int `json:"vitalsDays" mapstructure:"vitalsDays"`
	AlarmsDays    int `json:"alarmsDays" mapstructure:"alarmsDays"`
	TelemetryDays int `json:"telemetryDays" mapstructure:"telemetryDays"`
	AuditDays     int `json:"auditDays" mapstructure:"auditDays"`
}

// BatchConfig controls the vitals write-behind buffer and the worker queue.
type BatchConfig struct {
	MaxSize         int `json:"maxSize" mapstructure:"maxSize"`
	FlushIntervalMs int `json:"flushIntervalMs" mapstructure:"flushIntervalMs"`
	QueueSize       int `json:"queueSize" mapstructure:"queueSize"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `json:"level" mapstructure:"level"`
	File  string `json:"file" mapstructure:"file"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "zmon.db",
		},
		Retention: RetentionConfig{
			VitalsDays:    7,
			AlarmsDays:    30,
			TelemetryDays: 30,
			AuditDays:     365,
		},
		Batch: BatchConfig{
			MaxSize:         200,
			FlushIntervalMs: 1000,
			QueueSize:       1024,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML config at path, layered over the defaults. An empty
// path or a missing file returns the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Batch.MaxSize <= 0 {
		return fmt.Errorf("batch.maxSize must be positive")
	}
	if c.Batch.FlushIntervalMs <= 0 {
		return fmt.Errorf("batch.flushIntervalMs must be positive")
	}
	if c.Batch.QueueSize <= 0 {
		return fmt.Errorf("batch.queueSize must be positive")
	}
	for name, days := range map[string]int{
		"retention.vitalsDays":    c.Retention.VitalsDays,
		"retention.alarmsDays":    c.Retention.AlarmsDays,
		"retention.telemetryDays": c.Retention.TelemetryDays,
		"retention.auditDays":     c.Retention.AuditDays,
	} {
		if days < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}
