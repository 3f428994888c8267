package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLineHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelDebug)

	logger.Info("Database opened", "path", "/tmp/z.db", "readonly", false)

	out := buf.String()
	if !strings.Contains(out, "[info] Database opened") {
		t.Errorf("unexpected log line: %q", out)
	}
	if !strings.Contains(out, "path=/tmp/z.db") {
		t.Errorf("missing attribute: %q", out)
	}
	if !strings.Contains(out, "readonly=false") {
		t.Errorf("missing attribute: %q", out)
	}
}

func TestLineHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)

	logger.Info("should be dropped")
	logger.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should be dropped") {
		t.Errorf("info record leaked through warn filter: %q", out)
	}
	if !strings.Contains(out, "[warn] should appear") {
		t.Errorf("warn record missing: %q", out)
	}
}

func TestLineHandlerGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo).WithGroup("storage")

	logger.Info("flush", "count", 12)

	if !strings.Contains(buf.String(), "storage.count=12") {
		t.Errorf("group prefix missing: %q", buf.String())
	}
}

func TestLevelFromString(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"Warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := LevelFromString(in); got != want {
			t.Errorf("LevelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestDiscardLogger(t *testing.T) {
	logger := NewDiscardLogger()
	// Must not panic and must swallow everything.
	logger.Error("ignored", "k", "v")
}
