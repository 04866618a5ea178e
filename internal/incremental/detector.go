package incremental

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"repowatch/internal/backends/git"
	"repowatch/internal/errors"
	"repowatch/internal/paths"
)

// ChangeDetector finds files that need analysis since a recorded commit.
// It holds no per-repository state and is safe for concurrent use.
type ChangeDetector struct {
	git    *git.Runner
	config *Config
	logger *slog.Logger
}

// NewChangeDetector creates a new change detector
func NewChangeDetector(runner *git.Runner, config *Config, logger *slog.Logger) *ChangeDetector {
	if config == nil {
		config = DefaultConfig()
	}
	return &ChangeDetector{
		git:    runner,
		config: config,
		logger: logger,
	}
}

// Detect returns the files changed in repoPath since previousCommit,
// unioned with uncommitted edits. previousCommit may be empty on a first
// scan. Git failures are soft and reflected in the ChangeSet flags; only an
// unreadable repository returns an error.
func (d *ChangeDetector) Detect(ctx context.Context, repoPath, previousCommit string) (*ChangeSet, error) {
	root, scope, err := d.checkReadable(ctx, repoPath)
	if err != nil {
		return nil, err
	}

	cs := &ChangeSet{Root: root, Previous: previousCommit}
	candidates := make(map[string]struct{})
	removed := make(map[string]struct{})

	head, err := d.git.HeadCommit(ctx, repoPath)
	if err != nil {
		d.logger.Warn("Failed to resolve HEAD, skipping committed changes",
			"repo", repoPath,
			"error", err.Error(),
		)
	} else {
		cs.Head = head
		cs.HeadResolved = true
		d.collectCommitted(ctx, repoPath, cs, candidates)
	}

	d.collectWorkingTree(ctx, repoPath, cs, candidates, removed)

	cs.Files = d.finalize(repoPath, scope, candidates, removed)

	d.logger.Debug("Change detection complete",
		"repo", repoPath,
		"root", root,
		"head", cs.Head,
		"previous", previousCommit,
		"files", len(cs.Files),
		"fallback", cs.UsedFallback,
		"degraded", cs.Degraded(),
	)
	return cs, nil
}

// checkReadable fails when the repository cannot be inspected at all. It
// returns the work-tree root and the slash-separated location of repoPath
// inside it ("" when repoPath is the root).
func (d *ChangeDetector) checkReadable(ctx context.Context, repoPath string) (string, string, error) {
	info, err := os.Stat(repoPath)
	if err != nil {
		return "", "", errors.New(errors.RepoUnreadable, "repository path is not accessible", err).
			WithDetails(map[string]interface{}{"path": repoPath})
	}
	if !info.IsDir() {
		return "", "", errors.Newf(errors.RepoUnreadable, "repository path %s is not a directory", repoPath)
	}
	if !d.git.IsWorkTree(ctx, repoPath) {
		return "", "", errors.Newf(errors.RepoUnreadable, "%s is not a git work tree", repoPath)
	}

	root, err := d.git.TopLevel(ctx, repoPath)
	if err != nil {
		return "", "", errors.New(errors.RepoUnreadable, "failed to resolve work tree root", err).
			WithDetails(map[string]interface{}{"path": repoPath})
	}
	if !paths.IsWithinRepo(repoPath, root) {
		return "", "", errors.Newf(errors.RepoUnreadable, "%s is not inside work tree %s", repoPath, root)
	}
	scope, err := paths.CanonicalizePath(repoPath, root)
	if err != nil {
		return "", "", errors.New(errors.RepoUnreadable, "failed to locate path in work tree", err).
			WithDetails(map[string]interface{}{"path": repoPath, "root": root})
	}
	if scope == "." {
		scope = ""
	}
	return root, scope, nil
}

// collectCommitted adds files changed between the previous commit and HEAD.
// Without a usable previous commit it inspects the bounded window instead.
func (d *ChangeDetector) collectCommitted(ctx context.Context, repoPath string, cs *ChangeSet, out map[string]struct{}) {
	if cs.Previous != "" && cs.Previous == cs.Head {
		return
	}

	if cs.Previous != "" {
		changes, err := d.git.DiffNameStatus(ctx, repoPath, cs.Previous, cs.Head)
		if err == nil {
			addCommitted(changes, out)
			return
		}
		d.logger.Warn("Diff against previous commit failed, using bounded window",
			"repo", repoPath,
			"previous", cs.Previous,
			"error", err.Error(),
		)
	}

	cs.UsedFallback = true
	base, err := d.git.WindowBase(ctx, repoPath, d.config.FallbackCommits)
	if err != nil {
		cs.DiffFailed = true
		d.logger.Warn("Failed to resolve fallback window",
			"repo", repoPath,
			"commits", d.config.FallbackCommits,
			"error", err.Error(),
		)
		return
	}

	changes, err := d.git.DiffNameStatus(ctx, repoPath, base, cs.Head)
	if err != nil {
		cs.DiffFailed = true
		d.logger.Warn("Fallback diff failed",
			"repo", repoPath,
			"base", base,
			"error", err.Error(),
		)
		return
	}
	addCommitted(changes, out)
}

// addCommitted records surviving paths; renames contribute their destination
func addCommitted(changes []git.FileChange, out map[string]struct{}) {
	for _, c := range changes {
		if c.IsDeletion() {
			continue
		}
		out[c.Path] = struct{}{}
	}
}

// collectWorkingTree adds staged, modified and untracked files. Paths deleted
// in the index or work tree, and the source of a staged rename, are recorded
// as removed so committed evidence for them is dropped too.
func (d *ChangeDetector) collectWorkingTree(ctx context.Context, repoPath string, cs *ChangeSet, out, removed map[string]struct{}) {
	entries, err := d.git.Status(ctx, repoPath)
	if err != nil {
		cs.StatusFailed = true
		d.logger.Warn("Failed to read working tree status",
			"repo", repoPath,
			"error", err.Error(),
		)
		return
	}

	for _, e := range entries {
		if e.OrigPath != "" && e.X == 'R' {
			removed[e.OrigPath] = struct{}{}
		}
		if e.IsDeletion() {
			removed[e.Path] = struct{}{}
			continue
		}
		out[e.Path] = struct{}{}
	}
}

// finalize applies deletions, the registration scope and filters, returning
// sorted absolute paths under repoPath. Git reports paths relative to the
// work-tree root; scope is repoPath's location inside it.
func (d *ChangeDetector) finalize(repoPath, scope string, candidates, removed map[string]struct{}) []string {
	files := make([]string, 0, len(candidates))
	for path := range candidates {
		if _, gone := removed[path]; gone {
			continue
		}
		rel, ok := scopedPath(path, scope)
		if !ok || !d.isAnalyzable(rel) {
			continue
		}
		files = append(files, paths.JoinRepoPath(repoPath, rel))
	}
	sort.Strings(files)
	return files
}

// scopedPath rewrites a root-relative git path relative to scope, reporting
// false when it lies outside scope.
func scopedPath(path, scope string) (string, bool) {
	if scope == "" {
		return path, true
	}
	rel, ok := strings.CutPrefix(path, scope+"/")
	return rel, ok && rel != ""
}

// isAnalyzable checks the extension allow-list and exclude patterns
func (d *ChangeDetector) isAnalyzable(path string) bool {
	if d.isExcluded(path) {
		return false
	}
	if len(d.config.Extensions) == 0 {
		return true
	}

	base := filepath.Base(filepath.FromSlash(path))
	ext := strings.ToLower(filepath.Ext(base))
	for _, allowed := range d.config.Extensions {
		if strings.HasPrefix(allowed, ".") {
			if ext == strings.ToLower(allowed) {
				return true
			}
		} else if base == allowed {
			return true
		}
	}
	return false
}

// isExcluded checks if a path matches exclude patterns
func (d *ChangeDetector) isExcluded(path string) bool {
	// Normalize to forward slashes for consistent matching
	normalizedPath := filepath.ToSlash(path)

	for _, pattern := range d.config.Excludes {
		normalizedPattern := filepath.ToSlash(pattern)

		if matched, _ := filepath.Match(normalizedPattern, normalizedPath); matched {
			return true
		}

		// Directory exclude: "vendor" matches "vendor/foo/bar.go" and "a/vendor/x.go"
		dir := strings.TrimSuffix(normalizedPattern, "/")
		if strings.HasPrefix(normalizedPath, dir+"/") || strings.Contains(normalizedPath, "/"+dir+"/") {
			return true
		}

		if normalizedPath == dir {
			return true
		}
	}
	return false
}
