package slogutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"repowatch/internal/config"
	"repowatch/internal/paths"
)

// LoggerFactory creates loggers for the repowatch subsystems.
// Level precedence: CLI flag > config > info.
type LoggerFactory struct {
	dataDir  string
	config   *config.Config
	cliLevel *slog.Level
	stderr   io.Writer
	closers  []io.Closer
}

// NewLoggerFactory creates a new logger factory. cliLevel is nil when no
// verbosity flag was given on the command line.
func NewLoggerFactory(dataDir string, cfg *config.Config, cliLevel *slog.Level) *LoggerFactory {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &LoggerFactory{
		dataDir:  dataDir,
		config:   cfg,
		cliLevel: cliLevel,
		stderr:   os.Stderr,
	}
}

// Logger returns the root logger: stderr, plus a rotating file when
// logging.file is configured. Subsystems derive children with Component.
func (f *LoggerFactory) Logger() *slog.Logger {
	level := f.effectiveLevel()
	format := Format(f.config.Logging.Format)
	console := NewHandler(f.stderr, format, level)

	if f.config.Logging.File == "" {
		return slog.New(console)
	}

	// Relative names live under <dataDir>/logs
	path := f.config.Logging.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(paths.LogsDir(f.dataDir), path)
	}

	fileLogger, closer, err := NewRotatingFileLogger(path, format, level, f.config.Logging.MaxSize, f.config.Logging.MaxBackups)
	if err != nil {
		logger := slog.New(console)
		logger.Warn("Failed to open log file, logging to stderr only", "path", path, "error", err.Error())
		return logger
	}
	f.closers = append(f.closers, closer)

	return slog.New(NewTeeHandler(console, fileLogger.Handler()))
}

func (f *LoggerFactory) effectiveLevel() slog.Level {
	if f.cliLevel != nil {
		return *f.cliLevel
	}
	if f.config.Logging.Level != "" {
		return LevelFromString(f.config.Logging.Level)
	}
	return slog.LevelInfo
}

// Close closes all open log files.
func (f *LoggerFactory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}
