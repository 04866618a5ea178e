// Package scheduler drives periodic incremental analysis of tracked
// repositories.
//
// A timer loop wakes every check interval, lists repositories with auto-scan
// enabled, and dispatches each due repository to its own goroutine, bounded
// by a counting semaphore. A pipeline runs change detection, then the
// analysis gate, then advances the repository's bookkeeping.
//
// Claim semantics: last_scan_check is written when a scan is dispatched, not
// when it finishes, so a scan that outlives the wake interval is not
// dispatched again. Two wakes that read the registry before either claim
// lands (RunOnce called concurrently with the loop, or a second process on
// the same database) can both dispatch the same repository. The duplicate
// costs work only: cache writes are idempotent and the bookkeeping updates
// converge on the same values.
package scheduler

import (
	"context"
	"time"

	"repowatch/internal/analysiscache"
	"repowatch/internal/config"
	"repowatch/internal/gate"
	"repowatch/internal/incremental"
	"repowatch/internal/storage"
)

// Registry is the repository bookkeeping the scheduler reads and advances.
type Registry interface {
	Get(ctx context.Context, id string) (*storage.TrackedRepository, error)
	ListSchedulable(ctx context.Context) ([]*storage.TrackedRepository, error)
	SetAutoScan(ctx context.Context, id string, enabled bool, intervalMinutes int) error
	ClaimScan(ctx context.Context, id string, at time.Time) error
	ResetScanCheck(ctx context.Context, id string) error
	RecordCommit(ctx context.Context, id, commit string) error
	RecordAnalyzed(ctx context.Context, id string, at time.Time) error
}

// Detector finds the files of a repository that need analysis.
type Detector interface {
	Detect(ctx context.Context, repoPath, previousCommit string) (*incremental.ChangeSet, error)
}

// Processor analyzes a batch of files through the cache.
type Processor interface {
	Process(ctx context.Context, files []string) (*gate.Report, error)
}

// Evictor trims the cache to a size budget.
type Evictor interface {
	Evict(ctx context.Context, policy analysiscache.Policy, targetBytes int64) (*analysiscache.EvictResult, error)
}

// Deps are the collaborators shared by every pipeline.
type Deps struct {
	Registry Registry
	Detector Detector
	Gate     Processor
	Cache    Evictor // optional; enables size-bounded eviction
}

// Config contains scheduler configuration
type Config struct {
	CheckInterval      time.Duration // How often to look for due repositories
	MaxConcurrentScans int           // Semaphore size
	DefaultInterval    int           // Minutes, used by Enable when none is given

	// CacheMaxBytes > 0 evicts after each wake until the cache fits.
	CacheMaxBytes  int64
	EvictionPolicy analysiscache.Policy
}

// DefaultConfig returns the default scheduler configuration
func DefaultConfig() Config {
	return Config{
		CheckInterval:      time.Minute,
		MaxConcurrentScans: 4,
		DefaultInterval:    30,
		EvictionPolicy:     analysiscache.PolicyLRU,
	}
}

// ConfigFrom derives scheduler settings from the loaded configuration.
func ConfigFrom(cfg *config.Config) (Config, error) {
	policy, err := analysiscache.ParsePolicy(cfg.Cache.EvictionPolicy)
	if err != nil {
		return Config{}, err
	}
	return Config{
		CheckInterval:      time.Duration(cfg.Scheduler.CheckIntervalSeconds) * time.Second,
		MaxConcurrentScans: cfg.Scheduler.MaxConcurrentScans,
		DefaultInterval:    cfg.Scheduler.DefaultScanIntervalMinutes,
		CacheMaxBytes:      cfg.Cache.MaxSizeBytes,
		EvictionPolicy:     policy,
	}, nil
}

// ScanResult summarizes one pipeline run.
type ScanResult struct {
	RepoID   string                 `json:"repoId"`
	Name     string                 `json:"name"`
	Head     string                 `json:"head,omitempty"`
	Files    int                    `json:"files"`
	Fallback bool                   `json:"fallback,omitempty"`
	Degraded bool                   `json:"degraded,omitempty"`
	Report   *gate.Report           `json:"report,omitempty"`
	Duration time.Duration          `json:"duration"`
	Changes  *incremental.ChangeSet `json:"-"`
}

// IsDue reports whether repo should be scanned at now. A repository that
// was never claimed is always due.
func IsDue(repo *storage.TrackedRepository, now time.Time) bool {
	if repo.LastScanCheck == nil {
		return true
	}
	interval := time.Duration(repo.ScanIntervalMinutes) * time.Minute
	return now.Sub(*repo.LastScanCheck) >= interval
}
