package slogutil

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLineHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Info("Scan finished", "repo", "web", "files", 3)

	output := buf.String()
	for _, want := range []string{"[info]", "Scan finished", " | ", "repo=web", "files=3"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
	if !strings.HasSuffix(output, "\n") {
		t.Errorf("expected trailing newline, got: %q", output)
	}
}

func TestLineHandler_NoAttrs(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, slog.LevelInfo).Info("plain")

	if strings.Contains(buf.String(), "|") {
		t.Errorf("expected no separator without attrs, got: %s", buf.String())
	}
}

func TestLineHandler_Component(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(NewLogger(&buf, slog.LevelInfo), "scheduler")

	logger.Info("wake", "due", 2)

	output := buf.String()
	if !strings.Contains(output, "] scheduler: wake") {
		t.Errorf("expected component prefix, got: %s", output)
	}
	if strings.Contains(output, "component=") {
		t.Errorf("component should not be repeated as attr, got: %s", output)
	}
}

func TestLineHandler_Levels(t *testing.T) {
	tests := []struct {
		logFunc  func(*slog.Logger)
		expected string
	}{
		{func(l *slog.Logger) { l.Debug("debug") }, "[debug]"},
		{func(l *slog.Logger) { l.Info("info") }, "[info]"},
		{func(l *slog.Logger) { l.Warn("warn") }, "[warn]"},
		{func(l *slog.Logger) { l.Error("error") }, "[error]"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(NewLogger(&buf, slog.LevelDebug))
			if !strings.Contains(buf.String(), tt.expected) {
				t.Errorf("expected %s in output, got: %s", tt.expected, buf.String())
			}
		})
	}
}

func TestLineHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()
	if strings.Contains(output, "debug message") || strings.Contains(output, "info message") {
		t.Errorf("debug/info should be filtered, got: %s", output)
	}
	if !strings.Contains(output, "warn message") || !strings.Contains(output, "error message") {
		t.Errorf("warn/error should be included, got: %s", output)
	}
}

func TestLineHandler_WithGroupAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo).With("repo", "api").WithGroup("cache")

	logger.Info("lookup", "hit", true, "took", 2*time.Millisecond)

	output := buf.String()
	for _, want := range []string{"repo=api", "cache.hit=true", "cache.took=2ms"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, FormatJSON, slog.LevelInfo))

	logger.Info("evicted", "removed", 4)

	var record map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "evicted" {
		t.Errorf("msg = %v, want evicted", record["msg"])
	}
	if record["removed"] != float64(4) {
		t.Errorf("removed = %v, want 4", record["removed"])
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"silent", LevelSilent},
		{" info ", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := LevelFromString(tt.input); got != tt.want {
				t.Errorf("LevelFromString(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	tests := []struct {
		verbosity int
		quiet     bool
		want      slog.Level
	}{
		{0, false, slog.LevelWarn},
		{1, false, slog.LevelInfo},
		{2, false, slog.LevelDebug},
		{5, false, slog.LevelDebug},
		{2, true, LevelSilent},
	}

	for _, tt := range tests {
		if got := LevelFromVerbosity(tt.verbosity, tt.quiet); got != tt.want {
			t.Errorf("LevelFromVerbosity(%d, %v) = %v, want %v", tt.verbosity, tt.quiet, got, tt.want)
		}
	}
}

func TestNewDiscardLogger(t *testing.T) {
	logger := NewDiscardLogger()
	if logger == nil {
		t.Fatal("NewDiscardLogger returned nil")
	}
	logger.Error("should not panic")
}

func TestComponent_NilLogger(t *testing.T) {
	logger := Component(nil, "gate")
	if logger == nil {
		t.Fatal("Component(nil) returned nil")
	}
	logger.Info("should not panic")
}

func TestTeeHandler(t *testing.T) {
	var infoBuf, errBuf bytes.Buffer
	logger := slog.New(NewTeeHandler(
		NewLineHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		NewLineHandler(&errBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	))

	logger.Info("info only")
	logger.Error("both", "code", "CACHE_CORRUPT")

	if !strings.Contains(infoBuf.String(), "info only") || !strings.Contains(infoBuf.String(), "both") {
		t.Errorf("info handler missing records: %s", infoBuf.String())
	}
	if strings.Contains(errBuf.String(), "info only") {
		t.Errorf("error handler should filter info: %s", errBuf.String())
	}
	if !strings.Contains(errBuf.String(), "code=CACHE_CORRUPT") {
		t.Errorf("error handler missing error record: %s", errBuf.String())
	}
}
