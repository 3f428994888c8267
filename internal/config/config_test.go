package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
	if cfg.Database.Path == "" {
		t.Error("default database path is empty")
	}
	if cfg.Retention.VitalsDays != 7 {
		t.Errorf("vitals retention %d, want 7", cfg.Retention.VitalsDays)
	}
	if cfg.Batch.MaxSize != 200 || cfg.Batch.FlushIntervalMs != 1000 {
		t.Errorf("unexpected batch defaults: %+v", cfg.Batch)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default log level %q, want info", cfg.Logging.Level)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Batch.MaxSize != DefaultConfig().Batch.MaxSize {
		t.Error("missing file did not return defaults")
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Database.Path != DefaultConfig().Database.Path {
		t.Error("empty path did not return defaults")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zmon.yaml")
	content := `
database:
  path: /var/lib/zmon/monitor.db
retention:
  vitalsDays: 14
batch:
  maxSize: 500
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Database.Path != "/var/lib/zmon/monitor.db" {
		t.Errorf("database path %q not applied", cfg.Database.Path)
	}
	if cfg.Retention.VitalsDays != 14 {
		t.Errorf("vitals retention %d, want 14", cfg.Retention.VitalsDays)
	}
	if cfg.Batch.MaxSize != 500 {
		t.Errorf("batch size %d, want 500", cfg.Batch.MaxSize)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level %q, want debug", cfg.Logging.Level)
	}
	// Untouched keys keep their defaults.
	if cfg.Retention.AuditDays != 365 {
		t.Errorf("audit retention %d, want default 365", cfg.Retention.AuditDays)
	}
	if cfg.Batch.FlushIntervalMs != 1000 {
		t.Errorf("flush interval %d, want default 1000", cfg.Batch.FlushIntervalMs)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zmon.yaml")
	content := `
batch:
  maxSize: -5
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("invalid config was accepted")
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty database path accepted")
	}

	cfg = DefaultConfig()
	cfg.Retention.TelemetryDays = -1
	if err := cfg.Validate(); err == nil {
		t.Error("negative retention accepted")
	}
}
