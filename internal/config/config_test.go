package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d", cfg.Version, CurrentVersion)
	}
	if cfg.Scheduler.CheckIntervalSeconds != 60 {
		t.Errorf("CheckIntervalSeconds = %d, want 60", cfg.Scheduler.CheckIntervalSeconds)
	}
	if cfg.Scheduler.MaxConcurrentScans <= 0 {
		t.Error("MaxConcurrentScans should be positive")
	}
	if cfg.Detector.FallbackCommits != 5 {
		t.Errorf("FallbackCommits = %d, want 5", cfg.Detector.FallbackCommits)
	}
	if len(cfg.Detector.Extensions) == 0 {
		t.Error("Extensions should not be empty")
	}
	if cfg.Cache.Compression != "zstd" {
		t.Errorf("Compression = %q, want zstd", cfg.Cache.Compression)
	}
	if cfg.Analyzer.Provider != "heuristic" {
		t.Errorf("Provider = %q, want heuristic", cfg.Analyzer.Provider)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestDefaultConfig_ExtensionsAreCopied(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Detector.Extensions[0] = ".changed"

	if DefaultExtensions[0] == ".changed" {
		t.Error("DefaultConfig should not alias DefaultExtensions")
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	def := DefaultConfig()
	if cfg.Scheduler.MaxConcurrentScans != def.Scheduler.MaxConcurrentScans {
		t.Errorf("MaxConcurrentScans = %d, want %d", cfg.Scheduler.MaxConcurrentScans, def.Scheduler.MaxConcurrentScans)
	}
	if cfg.Cache.EvictionPolicy != def.Cache.EvictionPolicy {
		t.Errorf("EvictionPolicy = %q, want %q", cfg.Cache.EvictionPolicy, def.Cache.EvictionPolicy)
	}
}

func TestLoadConfig_PartialFile(t *testing.T) {
	dir := t.TempDir()
	content := `{
  "version": 1,
  "scheduler": {"maxConcurrentScans": 9},
  "cache": {"compression": "lz4"}
}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Scheduler.MaxConcurrentScans != 9 {
		t.Errorf("MaxConcurrentScans = %d, want 9", cfg.Scheduler.MaxConcurrentScans)
	}
	if cfg.Cache.Compression != "lz4" {
		t.Errorf("Compression = %q, want lz4", cfg.Cache.Compression)
	}
	// Untouched keys keep their defaults
	if cfg.Scheduler.CheckIntervalSeconds != 60 {
		t.Errorf("CheckIntervalSeconds = %d, want 60", cfg.Scheduler.CheckIntervalSeconds)
	}
	if cfg.Detector.FallbackCommits != 5 {
		t.Errorf("FallbackCommits = %d, want 5", cfg.Detector.FallbackCommits)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("REPOWATCH_SCHEDULER_MAXCONCURRENTSCANS", "7")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Scheduler.MaxConcurrentScans != 7 {
		t.Errorf("MaxConcurrentScans = %d, want 7", cfg.Scheduler.MaxConcurrentScans)
	}
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := LoadConfig(dir); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	cfg := DefaultConfig()
	cfg.Scheduler.DefaultScanIntervalMinutes = 15
	cfg.Analyzer.Provider = "complexity"

	if err := cfg.Save(dir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Scheduler.DefaultScanIntervalMinutes != 15 {
		t.Errorf("DefaultScanIntervalMinutes = %d, want 15", loaded.Scheduler.DefaultScanIntervalMinutes)
	}
	if loaded.Analyzer.Provider != "complexity" {
		t.Errorf("Provider = %q, want complexity", loaded.Analyzer.Provider)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad version", func(c *Config) { c.Version = 99 }, "version"},
		{"zero interval", func(c *Config) { c.Scheduler.CheckIntervalSeconds = 0 }, "scheduler.checkIntervalSeconds"},
		{"zero concurrency", func(c *Config) { c.Scheduler.MaxConcurrentScans = 0 }, "scheduler.maxConcurrentScans"},
		{"zero scan interval", func(c *Config) { c.Scheduler.DefaultScanIntervalMinutes = 0 }, "scheduler.defaultScanIntervalMinutes"},
		{"zero fallback", func(c *Config) { c.Detector.FallbackCommits = 0 }, "detector.fallbackCommits"},
		{"no extensions", func(c *Config) { c.Detector.Extensions = nil }, "detector.extensions"},
		{"bad compression", func(c *Config) { c.Cache.Compression = "gzip" }, "cache.compression"},
		{"bad policy", func(c *Config) { c.Cache.EvictionPolicy = "random" }, "cache.evictionPolicy"},
		{"negative size", func(c *Config) { c.Cache.MaxSizeBytes = -1 }, "cache.maxSizeBytes"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			cfgErr, ok := err.(*ConfigError)
			if !ok {
				t.Fatalf("expected *ConfigError, got %T", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{Field: "cache.compression", Message: "bad"}
	want := "config error in field 'cache.compression': bad"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
