package scheduler

import (
	"context"
	"testing"
	"time"

	"repowatch/internal/analysiscache"
	"repowatch/internal/analyzer"
	"repowatch/internal/backends/git"
	"repowatch/internal/gate"
	"repowatch/internal/incremental"
	"repowatch/internal/slogutil"
	"repowatch/internal/storage"
	"repowatch/internal/testutil"
)

func TestPipeline_EndToEnd(t *testing.T) {
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("src/lib.rs", "fn lib() {}\n")
	repo.WriteFile("src/main.rs", "fn main() { lib(); }\n")
	repo.WriteFile("README.md", "# demo\n")
	head := repo.Commit("initial")

	logger := slogutil.NewDiscardLogger()
	db, err := storage.Open(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	registry := storage.NewRepositoryStore(db)
	cache := analysiscache.New(db, analysiscache.Options{Logger: logger})
	profile, _ := analyzer.DefaultProfile(analyzer.ProviderHeuristic)
	detector := incremental.NewChangeDetector(
		git.NewRunner(10*time.Second, logger),
		&incremental.Config{FallbackCommits: 5, Extensions: []string{".rs"}},
		logger,
	)
	g := gate.New(cache, analyzer.NewHeuristic(profile), gate.Options{}, logger)
	s := New(Deps{Registry: registry, Detector: detector, Gate: g, Cache: cache}, DefaultConfig(), logger)
	ctx := context.Background()

	tracked, err := registry.Add(ctx, "demo", repo.Dir, 30)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := s.Enable(ctx, tracked.ID, 0); err != nil {
		t.Fatalf("Enable failed: %v", err)
	}

	// First scan: bounded fallback over the only commit.
	if n, err := s.RunOnce(ctx); err != nil || n != 1 {
		t.Fatalf("RunOnce = %d, %v; want 1 dispatch", n, err)
	}
	s.Wait()

	got, err := registry.Get(ctx, tracked.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.LastCommitHash != head || got.LastAnalyzed == nil || got.LastScanCheck == nil {
		t.Fatalf("bookkeeping after first scan = %+v", got)
	}
	stats, err := cache.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 2 {
		t.Errorf("cache entries = %d, want 2", stats.Entries)
	}

	// Not due again until forced.
	if n, _ := s.RunOnce(ctx); n != 0 {
		t.Errorf("second wake dispatched %d, want 0", n)
	}

	// A working-tree edit surfaces although HEAD did not move.
	repo.WriteFile("src/lib.rs", "fn lib() { changed(); }\n")
	if err := s.ForceRescan(ctx, tracked.ID); err != nil {
		t.Fatal(err)
	}
	result, err := s.ScanNow(ctx, tracked.ID)
	if err != nil {
		t.Fatalf("ScanNow failed: %v", err)
	}
	if result.Files != 1 || result.Report == nil || result.Report.Analyzed != 1 {
		t.Errorf("rescan result = %+v report=%+v", result, result.Report)
	}
	if result.Head != head || result.Fallback {
		t.Errorf("rescan should diff against the recorded head: %+v", result)
	}

	// A new file with already-cached content is a hit.
	repo.WriteFile("src/lib.rs", "fn lib() {}\n")
	repo.WriteFile("src/new.rs", "fn lib() {}\n")
	result, err = s.ScanNow(ctx, tracked.ID)
	if err != nil {
		t.Fatalf("ScanNow failed: %v", err)
	}
	if result.Report == nil || result.Report.Hits != 1 || result.Report.Analyzed != 0 {
		t.Errorf("identical content should hit: %+v", result.Report)
	}
}
