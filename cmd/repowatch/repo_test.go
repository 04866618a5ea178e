package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"repowatch/internal/backends/git"
	"repowatch/internal/errors"
	"repowatch/internal/slogutil"
	"repowatch/internal/testutil"
)

func TestWorkTreeRoot(t *testing.T) {
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("pkg/a.go", "package pkg\n")
	plain := t.TempDir()
	file := filepath.Join(plain, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	runner := git.NewRunner(10*time.Second, slogutil.NewDiscardLogger())
	ctx := context.Background()

	tests := []struct {
		name     string
		path     string
		wantRoot string
		wantErr  bool
	}{
		{"top level", repo.Dir, repo.Dir, false},
		{"subdirectory", repo.Path("pkg"), repo.Dir, false},
		{"not git", plain, "", true},
		{"file", file, "", true},
		{"missing", filepath.Join(plain, "nope"), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := workTreeRoot(ctx, runner, tt.path)
			if tt.wantErr {
				if !errors.Is(err, errors.RepoUnreadable) {
					t.Fatalf("workTreeRoot(%s) error = %v, want REPO_UNREADABLE", tt.path, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("workTreeRoot(%s) failed: %v", tt.path, err)
			}
			if root != tt.wantRoot {
				t.Errorf("workTreeRoot(%s) = %q, want %q", tt.path, root, tt.wantRoot)
			}
		})
	}
}
