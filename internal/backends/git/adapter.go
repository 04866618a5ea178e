package git

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"repowatch/internal/errors"
)

const (
	// DefaultTimeout bounds a single git invocation
	DefaultTimeout = 10 * time.Second

	// EmptyTreeHash is the object id of git's empty tree. Diffing against it
	// lists every file in the target revision.
	EmptyTreeHash = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"
)

// Runner executes git subprocesses with a per-call timeout. It holds no
// repository state, so one Runner serves every repository concurrently.
type Runner struct {
	timeout time.Duration
	logger  *slog.Logger
}

// NewRunner creates a runner. timeout <= 0 uses DefaultTimeout.
func NewRunner(timeout time.Duration, logger *slog.Logger) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{timeout: timeout, logger: logger}
}

// Run runs git with args inside dir and returns raw stdout.
// Failures map to GIT_TIMEOUT or GIT_COMMAND_FAILED.
func (r *Runner) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...) // #nosec G204 -- fixed binary, args built internally
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	r.logger.Debug("Executing git command",
		"dir", dir,
		"args", args,
		"timeout", r.timeout.String(),
	)

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.New(errors.GitTimeout,
				fmt.Sprintf("git %s timed out after %s", args[0], r.timeout), err)
		}
		return nil, errors.New(errors.GitCommandFailed,
			fmt.Sprintf("git %s failed", args[0]), err).WithDetails(map[string]interface{}{
			"args":   args,
			"stderr": strings.TrimSpace(stderr.String()),
		})
	}
	return output, nil
}

// runTrimmed runs git and returns stdout with surrounding whitespace removed
func (r *Runner) runTrimmed(ctx context.Context, dir string, args ...string) (string, error) {
	out, err := r.Run(ctx, dir, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// IsWorkTree reports whether dir is inside a git work tree.
func (r *Runner) IsWorkTree(ctx context.Context, dir string) bool {
	out, err := r.runTrimmed(ctx, dir, "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// TopLevel returns the root of the work tree containing dir. Paths printed
// by diff and status are relative to it, whatever dir is.
func (r *Runner) TopLevel(ctx context.Context, dir string) (string, error) {
	return r.runTrimmed(ctx, dir, "rev-parse", "--show-toplevel")
}

// HeadCommit resolves HEAD to a full commit hash.
func (r *Runner) HeadCommit(ctx context.Context, dir string) (string, error) {
	return r.runTrimmed(ctx, dir, "rev-parse", "--verify", "HEAD^{commit}")
}

// DiffNameStatus lists files changed between two revisions, renames
// detected.
func (r *Runner) DiffNameStatus(ctx context.Context, dir, from, to string) ([]FileChange, error) {
	out, err := r.Run(ctx, dir, "diff", "--name-status", "-z", "--find-renames", "--no-ext-diff", from, to)
	if err != nil {
		return nil, err
	}
	return ParseNameStatusZ(out), nil
}

// WindowBase returns the revision that sits `commits` commits below HEAD.
// When history is shorter than that, it returns EmptyTreeHash so a diff from
// the base covers every file the short history introduced.
func (r *Runner) WindowBase(ctx context.Context, dir string, commits int) (string, error) {
	if commits < 1 {
		commits = 1
	}
	out, err := r.runTrimmed(ctx, dir, "rev-list", fmt.Sprintf("--max-count=%d", commits+1), "HEAD")
	if err != nil {
		return "", err
	}
	revs := strings.Fields(out)
	if len(revs) <= commits {
		return EmptyTreeHash, nil
	}
	return revs[commits], nil
}

// Status lists working-tree and staged changes, including untracked files.
func (r *Runner) Status(ctx context.Context, dir string) ([]StatusEntry, error) {
	out, err := r.Run(ctx, dir, "status", "--porcelain=v1", "-z", "--untracked-files=all")
	if err != nil {
		return nil, err
	}
	return ParseStatusZ(out), nil
}
