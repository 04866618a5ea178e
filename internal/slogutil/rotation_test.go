package slogutil

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"repowatch/internal/config"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"", 0},
		{"invalid", 0},
		{"100", 100},
		{"100B", 100},
		{"1KB", 1000},
		{"1KiB", 1024},
		{"10MB", 10 * 1000 * 1000},
		{"1MiB", 1024 * 1024},
		{"1GB", 1000 * 1000 * 1000},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseSize(tt.input); got != tt.expected {
				t.Errorf("ParseSize(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRotatingFile_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "scan.log")

	rf, err := OpenRotatingFile(path, 100, 2)
	if err != nil {
		t.Fatalf("OpenRotatingFile failed: %v", err)
	}
	defer rf.Close()

	for i := 0; i < 5; i++ {
		if _, err := rf.Write([]byte("hello world\n")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("log file should exist: %v", err)
	}
}

func TestRotatingFile_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.log")

	rf, err := OpenRotatingFile(path, 50, 2)
	if err != nil {
		t.Fatalf("OpenRotatingFile failed: %v", err)
	}

	line := []byte(strings.Repeat("a", 29) + "\n")
	for i := 0; i < 7; i++ {
		if _, err := rf.Write(line); err != nil {
			t.Fatalf("Write %d failed: %v", i, err)
		}
	}
	if err := rf.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	for _, p := range []string{path, path + ".1", path + ".2"} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s to exist: %v", p, err)
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Error("backup .3 should not exist with maxBackups=2")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() > 50 {
		t.Errorf("current file size = %d, want <= 50", info.Size())
	}
}

func TestRotatingFile_NoBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.log")

	rf, err := OpenRotatingFile(path, 10, 0)
	if err != nil {
		t.Fatalf("OpenRotatingFile failed: %v", err)
	}
	defer rf.Close()

	for i := 0; i < 3; i++ {
		if _, err := rf.Write([]byte("12345678\n")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	if _, err := os.Stat(path + ".1"); !os.IsNotExist(err) {
		t.Error("no backups should be kept with maxBackups=0")
	}
}

func TestNewRotatingFileLogger(t *testing.T) {
	dir := t.TempDir()

	logger, closer, err := NewRotatingFileLogger(filepath.Join(dir, "a.log"), FormatHuman, slog.LevelInfo, "1MB", 3)
	if err != nil {
		t.Fatalf("NewRotatingFileLogger failed: %v", err)
	}
	logger.Info("rotating")
	_ = closer.Close()

	logger2, closer2, err := NewRotatingFileLogger(filepath.Join(dir, "sub", "b.log"), FormatJSON, slog.LevelInfo, "", 3)
	if err != nil {
		t.Fatalf("NewRotatingFileLogger without rotation failed: %v", err)
	}
	logger2.Info("plain")
	_ = closer2.Close()

	data, err := os.ReadFile(filepath.Join(dir, "sub", "b.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"msg":"plain"`) {
		t.Errorf("expected JSON record, got %s", data)
	}
}

func TestLoggerFactory(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Logging.File = "repowatch.log"

	factory := NewLoggerFactory(dir, cfg, nil)
	var stderr bytes.Buffer
	factory.stderr = &stderr

	Component(factory.Logger(), "cli").Info("hello", "k", "v")
	if err := factory.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if !strings.Contains(stderr.String(), "cli: hello") {
		t.Errorf("expected console output, got %q", stderr.String())
	}
	data, err := os.ReadFile(filepath.Join(dir, "logs", "repowatch.log"))
	if err != nil {
		t.Fatalf("expected log file: %v", err)
	}
	if !strings.Contains(string(data), "k=v") {
		t.Errorf("expected file output, got %q", data)
	}
}

func TestLoggerFactory_CLILevelWins(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Logging.Level = "debug"
	level := slog.LevelError

	factory := NewLoggerFactory(t.TempDir(), cfg, &level)
	var stderr bytes.Buffer
	factory.stderr = &stderr

	logger := factory.Logger()
	logger.Info("hidden")
	logger.Error("shown")

	if strings.Contains(stderr.String(), "hidden") {
		t.Error("CLI level should override config level")
	}
	if !strings.Contains(stderr.String(), "shown") {
		t.Error("error record should be written")
	}
}
