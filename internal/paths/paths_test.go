package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetDataDir_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(HomeEnv, dir)

	got, err := GetDataDir()
	if err != nil {
		t.Fatalf("GetDataDir failed: %v", err)
	}
	if got != dir {
		t.Errorf("GetDataDir = %q, want %q", got, dir)
	}
}

func TestGetDataDir_Default(t *testing.T) {
	t.Setenv(HomeEnv, "")

	got, err := GetDataDir()
	if err != nil {
		t.Fatalf("GetDataDir failed: %v", err)
	}
	if filepath.Base(got) != ".repowatch" {
		t.Errorf("GetDataDir = %q, want basename .repowatch", got)
	}
}

func TestDerivedPaths(t *testing.T) {
	dataDir := filepath.Join("var", "rw")

	if got := DatabasePath(dataDir); got != filepath.Join(dataDir, "repowatch.db") {
		t.Errorf("DatabasePath = %q", got)
	}
	if got := ConfigPath(dataDir); got != filepath.Join(dataDir, "config.json") {
		t.Errorf("ConfigPath = %q", got)
	}
	if got := LogPath(dataDir, "scheduler"); got != filepath.Join(dataDir, "logs", "scheduler.log") {
		t.Errorf("LogPath = %q", got)
	}
	if got := PIDPath(dataDir); got != filepath.Join(dataDir, "repowatch.pid") {
		t.Errorf("PIDPath = %q", got)
	}
}

func TestEnsureDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	got, err := EnsureDataDir(dir)
	if err != nil {
		t.Fatalf("EnsureDataDir failed: %v", err)
	}
	if info, err := os.Stat(got); err != nil || !info.IsDir() {
		t.Errorf("expected %q to be a directory", got)
	}
}

func TestCanonicalizePath(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "pkg", "a.go")
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(file, []byte("package pkg"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := CanonicalizePath(file, root)
	if err != nil {
		t.Fatalf("CanonicalizePath failed: %v", err)
	}
	if got != "pkg/a.go" {
		t.Errorf("CanonicalizePath = %q, want %q", got, "pkg/a.go")
	}

	// Missing files are still canonicalized
	got, err = CanonicalizePath(filepath.Join(root, "gone.go"), root)
	if err != nil {
		t.Fatalf("CanonicalizePath on missing file failed: %v", err)
	}
	if got != "gone.go" {
		t.Errorf("CanonicalizePath = %q, want %q", got, "gone.go")
	}
}

func TestIsWithinRepo(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"inside", filepath.Join(root, "a.go"), true},
		{"nested", filepath.Join(root, "x", "y", "b.go"), true},
		{"parent", filepath.Dir(root), false},
		{"sibling", filepath.Join(filepath.Dir(root), "other", "c.go"), false},
		{"dotdot prefix name", filepath.Join(root, "..foo"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsWithinRepo(tt.path, root); got != tt.want {
				t.Errorf("IsWithinRepo(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestJoinRepoPath(t *testing.T) {
	got := JoinRepoPath("/repo", "src/lib.rs")
	want := filepath.Join("/repo", "src", "lib.rs")
	if got != want {
		t.Errorf("JoinRepoPath = %q, want %q", got, want)
	}
}

func TestResolveRepoPath(t *testing.T) {
	root := t.TempDir()

	got, err := ResolveRepoPath(root)
	if err != nil {
		t.Fatalf("ResolveRepoPath failed: %v", err)
	}
	if !filepath.IsAbs(got) {
		t.Errorf("expected absolute path, got %q", got)
	}

	if _, err := ResolveRepoPath(filepath.Join(root, "missing")); err == nil {
		t.Error("expected error for missing path")
	}
}
