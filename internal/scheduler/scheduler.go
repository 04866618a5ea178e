package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"repowatch/internal/errors"
	"repowatch/internal/storage"
)

// Scheduler manages periodic repository scans
type Scheduler struct {
	deps   Deps
	config Config
	logger *slog.Logger
	sem    *semaphore.Weighted
	now    func() time.Time

	// Control
	mu      sync.Mutex
	cancel  context.CancelFunc
	loop    sync.WaitGroup
	scans   sync.WaitGroup
	running bool
}

// New creates a new scheduler
func New(deps Deps, config Config, logger *slog.Logger) *Scheduler {
	defaults := DefaultConfig()
	if config.CheckInterval <= 0 {
		config.CheckInterval = defaults.CheckInterval
	}
	if config.MaxConcurrentScans <= 0 {
		config.MaxConcurrentScans = defaults.MaxConcurrentScans
	}
	if config.DefaultInterval <= 0 {
		config.DefaultInterval = defaults.DefaultInterval
	}
	if config.EvictionPolicy == "" {
		config.EvictionPolicy = defaults.EvictionPolicy
	}

	return &Scheduler{
		deps:   deps,
		config: config,
		logger: logger,
		sem:    semaphore.NewWeighted(int64(config.MaxConcurrentScans)),
		now:    time.Now,
	}
}

// Enable turns on auto-scan for a repository. intervalMinutes <= 0 uses
// the configured default.
func (s *Scheduler) Enable(ctx context.Context, repoID string, intervalMinutes int) error {
	if intervalMinutes <= 0 {
		intervalMinutes = s.config.DefaultInterval
	}
	if err := s.deps.Registry.SetAutoScan(ctx, repoID, true, intervalMinutes); err != nil {
		return err
	}
	s.logger.Info("Auto-scan enabled", "repoId", repoID, "intervalMinutes", intervalMinutes)
	return nil
}

// Disable turns off auto-scan for a repository. Scans already in flight
// finish normally.
func (s *Scheduler) Disable(ctx context.Context, repoID string) error {
	if err := s.deps.Registry.SetAutoScan(ctx, repoID, false, 0); err != nil {
		return err
	}
	s.logger.Info("Auto-scan disabled", "repoId", repoID)
	return nil
}

// ForceRescan clears the repository's claim so the next wake treats it as
// due.
func (s *Scheduler) ForceRescan(ctx context.Context, repoID string) error {
	if err := s.deps.Registry.ResetScanCheck(ctx, repoID); err != nil {
		return err
	}
	s.logger.Info("Rescan requested", "repoId", repoID)
	return nil
}

// Start begins the scheduler loop. The first wake runs immediately.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running = true

	s.logger.Info("Starting scheduler",
		"checkInterval", s.config.CheckInterval.String(),
		"maxConcurrentScans", s.config.MaxConcurrentScans,
	)

	s.loop.Add(1)
	go s.run(ctx)
	return nil
}

// Stop halts dispatching and waits up to timeout for in-flight scans.
// In-flight scans are not cancelled.
func (s *Scheduler) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.logger.Info("Stopping scheduler")

	done := make(chan struct{})
	go func() {
		s.loop.Wait()
		s.scans.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("scheduler shutdown timed out after %s", timeout)
	}
}

// Wait blocks until every dispatched scan has finished.
func (s *Scheduler) Wait() {
	s.scans.Wait()
}

// run is the main scheduler loop
func (s *Scheduler) run(ctx context.Context) {
	defer s.loop.Done()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	s.wake(ctx)
	for {
		select {
		case <-ticker.C:
			s.wake(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// wake performs one due-check pass and the optional cache trim.
func (s *Scheduler) wake(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("Scheduler wake failed", "error", err.Error())
	}
	s.trimCache(ctx)
}

// RunOnce dispatches every due repository and returns how many scans were
// started. Dispatched scans keep running after it returns; call Wait to
// join them. A cancelled ctx stops further dispatch.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	repos, err := s.deps.Registry.ListSchedulable(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list repositories: %w", err)
	}

	now := s.now()
	dispatched := 0
	for _, repo := range repos {
		if !IsDue(repo, now) {
			continue
		}

		if err := s.sem.Acquire(ctx, 1); err != nil {
			return dispatched, nil
		}
		if err := s.deps.Registry.ClaimScan(ctx, repo.ID, s.now()); err != nil {
			s.sem.Release(1)
			s.logger.Error("Failed to claim repository",
				"repoId", repo.ID,
				"name", repo.Name,
				"error", err.Error(),
			)
			continue
		}

		s.scans.Add(1)
		dispatched++
		go s.dispatch(repo)
	}

	if dispatched > 0 {
		s.logger.Debug("Dispatched scans", "count", dispatched, "tracked", len(repos))
	}
	return dispatched, nil
}

// dispatch runs one pipeline to completion on its own context and reports
// the outcome. It owns a semaphore slot.
func (s *Scheduler) dispatch(repo *storage.TrackedRepository) {
	defer s.scans.Done()
	defer s.sem.Release(1)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Scan panicked",
				"repoId", repo.ID,
				"name", repo.Name,
				"path", repo.Path,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
		}
	}()

	result, err := s.scan(context.Background(), repo)
	if err != nil {
		s.logger.Error("Scan failed",
			"repoId", repo.ID,
			"name", repo.Name,
			"path", repo.Path,
			"code", errors.CodeOf(err),
			"error", err.Error(),
		)
		return
	}

	attrs := []any{
		"repoId", repo.ID,
		"name", repo.Name,
		"head", result.Head,
		"files", result.Files,
		"duration", result.Duration.String(),
	}
	if result.Report != nil {
		attrs = append(attrs, "hits", result.Report.Hits, "analyzed", result.Report.Analyzed)
	}
	s.logger.Info("Scan completed", attrs...)
}

// ScanNow runs the pipeline for one repository synchronously. It takes a
// semaphore slot and claims the repository like a scheduled scan.
func (s *Scheduler) ScanNow(ctx context.Context, repoID string) (*ScanResult, error) {
	repo, err := s.deps.Registry.Get(ctx, repoID)
	if err != nil {
		return nil, err
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	if err := s.deps.Registry.ClaimScan(ctx, repo.ID, s.now()); err != nil {
		return nil, err
	}
	return s.scan(ctx, repo)
}

// scan runs change detection and analysis for one repository, then
// advances its bookkeeping. The commit advances on every resolved HEAD,
// even when nothing changed. A cache failure records nothing so the next
// cycle retries the same range.
func (s *Scheduler) scan(ctx context.Context, repo *storage.TrackedRepository) (*ScanResult, error) {
	start := s.now()

	changes, err := s.deps.Detector.Detect(ctx, repo.Path, repo.LastCommitHash)
	if err != nil {
		return nil, err
	}

	result := &ScanResult{
		RepoID:   repo.ID,
		Name:     repo.Name,
		Head:     changes.Head,
		Files:    changes.Len(),
		Fallback: changes.UsedFallback,
		Degraded: changes.Degraded(),
		Changes:  changes,
	}

	if changes.Degraded() {
		s.logger.Warn("Change detection incomplete",
			"repoId", repo.ID,
			"name", repo.Name,
			"headResolved", changes.HeadResolved,
			"diffFailed", changes.DiffFailed,
			"statusFailed", changes.StatusFailed,
		)
	}

	if !changes.Empty() {
		report, err := s.deps.Gate.Process(ctx, changes.Files)
		result.Report = report
		if err != nil {
			result.Duration = s.now().Sub(start)
			return result, fmt.Errorf("analysis of %s incomplete: %w", repo.Name, err)
		}
	}

	if changes.HeadResolved {
		if err := s.deps.Registry.RecordCommit(ctx, repo.ID, changes.Head); err != nil {
			return result, err
		}
	}
	if err := s.deps.Registry.RecordAnalyzed(ctx, repo.ID, s.now()); err != nil {
		return result, err
	}

	result.Duration = s.now().Sub(start)
	return result, nil
}

// trimCache evicts down to the configured budget.
func (s *Scheduler) trimCache(ctx context.Context) {
	if s.deps.Cache == nil || s.config.CacheMaxBytes <= 0 {
		return
	}
	res, err := s.deps.Cache.Evict(ctx, s.config.EvictionPolicy, s.config.CacheMaxBytes)
	if err != nil {
		s.logger.Error("Cache eviction failed", "policy", s.config.EvictionPolicy, "error", err.Error())
		return
	}
	if res.Removed > 0 {
		s.logger.Debug("Cache trimmed", "removed", res.Removed, "remainingBytes", res.RemainingBytes)
	}
}
