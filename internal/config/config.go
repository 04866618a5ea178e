package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// CurrentVersion is the config schema version written by Save
const CurrentVersion = 1

// Config represents the complete repowatch configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Scheduler SchedulerConfig `json:"scheduler" mapstructure:"scheduler"`
	Detector  DetectorConfig  `json:"detector" mapstructure:"detector"`
	Cache     CacheConfig     `json:"cache" mapstructure:"cache"`
	Analyzer  AnalyzerConfig  `json:"analyzer" mapstructure:"analyzer"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
}

// SchedulerConfig controls the wake loop and scan concurrency
type SchedulerConfig struct {
	CheckIntervalSeconds       int `json:"checkIntervalSeconds" mapstructure:"checkIntervalSeconds"`
	MaxConcurrentScans         int `json:"maxConcurrentScans" mapstructure:"maxConcurrentScans"`
	DefaultScanIntervalMinutes int `json:"defaultScanIntervalMinutes" mapstructure:"defaultScanIntervalMinutes"`
	ShutdownTimeoutSeconds     int `json:"shutdownTimeoutSeconds" mapstructure:"shutdownTimeoutSeconds"`
}

// DetectorConfig controls change detection
type DetectorConfig struct {
	FallbackCommits int      `json:"fallbackCommits" mapstructure:"fallbackCommits"`
	Extensions      []string `json:"extensions" mapstructure:"extensions"`
	Excludes        []string `json:"excludes" mapstructure:"excludes"`
	GitTimeoutMs    int      `json:"gitTimeoutMs" mapstructure:"gitTimeoutMs"`
}

// CacheConfig controls the analysis cache store
type CacheConfig struct {
	Compression    string `json:"compression" mapstructure:"compression"`
	MaxSizeBytes   int64  `json:"maxSizeBytes" mapstructure:"maxSizeBytes"`
	EvictionPolicy string `json:"evictionPolicy" mapstructure:"evictionPolicy"`
}

// AnalyzerConfig selects and tunes the analyzer provider
type AnalyzerConfig struct {
	Provider         string `json:"provider" mapstructure:"provider"`
	ProfilePath      string `json:"profilePath" mapstructure:"profilePath"`
	MaxFileSizeBytes int64  `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format     string `json:"format" mapstructure:"format"`
	Level      string `json:"level" mapstructure:"level"`
	File       string `json:"file" mapstructure:"file"`
	MaxSize    string `json:"maxSize" mapstructure:"maxSize"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups"`
}

// DefaultExtensions is the analyzable file allow-list used when none is configured
var DefaultExtensions = []string{
	".go", ".rs", ".py", ".js", ".jsx", ".ts", ".tsx",
	".java", ".kt", ".c", ".h", ".cpp", ".hpp", ".cs",
	".rb", ".php", ".swift", ".scala",
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Scheduler: SchedulerConfig{
			CheckIntervalSeconds:       60,
			MaxConcurrentScans:         4,
			DefaultScanIntervalMinutes: 30,
			ShutdownTimeoutSeconds:     30,
		},
		Detector: DetectorConfig{
			FallbackCommits: 5,
			Extensions:      append([]string(nil), DefaultExtensions...),
			Excludes:        []string{"vendor", "node_modules", "dist", "build"},
			GitTimeoutMs:    10000,
		},
		Cache: CacheConfig{
			Compression:    "zstd",
			MaxSizeBytes:   0,
			EvictionPolicy: "lru",
		},
		Analyzer: AnalyzerConfig{
			Provider:         "heuristic",
			MaxFileSizeBytes: 1 << 20,
		},
		Logging: LoggingConfig{
			Format:     "human",
			Level:      "info",
			MaxSize:    "10MB",
			MaxBackups: 3,
		},
	}
}

// setDefaults mirrors DefaultConfig into viper so partial files and env
// overrides merge over the defaults.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)

	v.SetDefault("scheduler.checkIntervalSeconds", d.Scheduler.CheckIntervalSeconds)
	v.SetDefault("scheduler.maxConcurrentScans", d.Scheduler.MaxConcurrentScans)
	v.SetDefault("scheduler.defaultScanIntervalMinutes", d.Scheduler.DefaultScanIntervalMinutes)
	v.SetDefault("scheduler.shutdownTimeoutSeconds", d.Scheduler.ShutdownTimeoutSeconds)

	v.SetDefault("detector.fallbackCommits", d.Detector.FallbackCommits)
	v.SetDefault("detector.extensions", d.Detector.Extensions)
	v.SetDefault("detector.excludes", d.Detector.Excludes)
	v.SetDefault("detector.gitTimeoutMs", d.Detector.GitTimeoutMs)

	v.SetDefault("cache.compression", d.Cache.Compression)
	v.SetDefault("cache.maxSizeBytes", d.Cache.MaxSizeBytes)
	v.SetDefault("cache.evictionPolicy", d.Cache.EvictionPolicy)

	v.SetDefault("analyzer.provider", d.Analyzer.Provider)
	v.SetDefault("analyzer.profilePath", d.Analyzer.ProfilePath)
	v.SetDefault("analyzer.maxFileSizeBytes", d.Analyzer.MaxFileSizeBytes)

	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.maxSize", d.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", d.Logging.MaxBackups)
}

// LoadConfig loads configuration from <dataDir>/config.json.
// REPOWATCH_* environment variables override file values, e.g.
// REPOWATCH_SCHEDULER_MAXCONCURRENTSCANS=8.
func LoadConfig(dataDir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(dataDir)

	v.SetEnvPrefix("REPOWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to <dataDir>/config.json
func (c *Config) Save(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dataDir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Scheduler.CheckIntervalSeconds <= 0 {
		return &ConfigError{Field: "scheduler.checkIntervalSeconds", Message: "must be positive"}
	}
	if c.Scheduler.MaxConcurrentScans <= 0 {
		return &ConfigError{Field: "scheduler.maxConcurrentScans", Message: "must be positive"}
	}
	if c.Scheduler.DefaultScanIntervalMinutes <= 0 {
		return &ConfigError{Field: "scheduler.defaultScanIntervalMinutes", Message: "must be positive"}
	}
	if c.Detector.FallbackCommits <= 0 {
		return &ConfigError{Field: "detector.fallbackCommits", Message: "must be positive"}
	}
	if len(c.Detector.Extensions) == 0 {
		return &ConfigError{Field: "detector.extensions", Message: "at least one extension is required"}
	}
	switch c.Cache.Compression {
	case "zstd", "lz4", "none":
	default:
		return &ConfigError{Field: "cache.compression", Message: "must be one of zstd, lz4, none"}
	}
	switch c.Cache.EvictionPolicy {
	case "lru", "oldest", "largest", "most-expensive":
	default:
		return &ConfigError{Field: "cache.evictionPolicy", Message: "must be one of lru, oldest, largest, most-expensive"}
	}
	if c.Cache.MaxSizeBytes < 0 {
		return &ConfigError{Field: "cache.maxSizeBytes", Message: "must not be negative"}
	}
	switch c.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be human or json"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
