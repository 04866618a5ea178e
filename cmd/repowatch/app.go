package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"repowatch/internal/analysiscache"
	"repowatch/internal/analyzer"
	"repowatch/internal/backends/git"
	"repowatch/internal/config"
	"repowatch/internal/gate"
	"repowatch/internal/incremental"
	"repowatch/internal/paths"
	"repowatch/internal/scheduler"
	"repowatch/internal/slogutil"
	"repowatch/internal/storage"
)

// app bundles the components shared by all commands. No goroutine starts
// until the scheduler is started.
type app struct {
	dataDir   string
	config    *config.Config
	logs      *slogutil.LoggerFactory
	logger    *slog.Logger
	db        *storage.DB
	repos     *storage.RepositoryStore
	git       *git.Runner
	cache     *analysiscache.Store
	scheduler *scheduler.Scheduler
}

// openApp loads configuration, opens the database and wires the pipeline.
func openApp() (*app, error) {
	dataDir, err := paths.GetDataDir()
	if err != nil {
		return nil, err
	}
	if _, err := paths.EnsureDataDir(dataDir); err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logs := slogutil.NewLoggerFactory(dataDir, cfg, cliLevel())
	logger := logs.Logger()

	db, err := storage.Open(dataDir, slogutil.Component(logger, "storage"))
	if err != nil {
		logs.Close()
		return nil, err
	}

	a := &app{
		dataDir: dataDir,
		config:  cfg,
		logs:    logs,
		logger:  logger,
		db:      db,
		repos:   storage.NewRepositoryStore(db),
	}
	if err := a.wire(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire() error {
	codec, err := analysiscache.ParseCodec(a.config.Cache.Compression)
	if err != nil {
		return err
	}
	a.cache = analysiscache.New(a.db, analysiscache.Options{
		Compression: codec,
		Logger:      slogutil.Component(a.logger, "cache"),
	})

	an, err := analyzer.New(a.config.Analyzer, slogutil.Component(a.logger, "analyzer"))
	if err != nil {
		return err
	}

	a.git = git.NewRunner(time.Duration(a.config.Detector.GitTimeoutMs)*time.Millisecond, slogutil.Component(a.logger, "git"))
	detector := incremental.NewChangeDetector(a.git, incremental.ConfigFrom(a.config.Detector), slogutil.Component(a.logger, "detector"))
	g := gate.New(a.cache, an, gate.Options{MaxFileSizeBytes: a.config.Analyzer.MaxFileSizeBytes}, slogutil.Component(a.logger, "gate"))

	schedCfg, err := scheduler.ConfigFrom(a.config)
	if err != nil {
		return err
	}
	a.scheduler = scheduler.New(scheduler.Deps{
		Registry: a.repos,
		Detector: detector,
		Gate:     g,
		Cache:    a.cache,
	}, schedCfg, slogutil.Component(a.logger, "scheduler"))
	return nil
}

// Close releases the database and log files.
func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("Failed to close database", "error", err.Error())
		}
	}
	a.logs.Close()
}

// cliLevel returns the level implied by -v/-q, or nil when neither was given
// so the configured level applies.
func cliLevel() *slog.Level {
	if verbosity == 0 && !quiet {
		return nil
	}
	level := slogutil.LevelFromVerbosity(verbosity, quiet)
	return &level
}

// newContext creates a new context for command execution.
func newContext() context.Context {
	return context.Background()
}
