package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// HomeEnv overrides the default data directory
	HomeEnv = "REPOWATCH_HOME"

	dataDirName  = ".repowatch"
	databaseName = "repowatch.db"
	configName   = "config.json"
	logsDirName  = "logs"
	pidName      = "repowatch.pid"
)

// GetDataDir returns the directory holding the database, config and logs.
// $REPOWATCH_HOME wins over ~/.repowatch.
func GetDataDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return filepath.Abs(dir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, dataDirName), nil
}

// EnsureDataDir creates the data directory if needed and returns it
func EnsureDataDir(dataDir string) (string, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dataDir, nil
}

// DatabasePath returns <dataDir>/repowatch.db
func DatabasePath(dataDir string) string {
	return filepath.Join(dataDir, databaseName)
}

// ConfigPath returns <dataDir>/config.json
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, configName)
}

// PIDPath returns <dataDir>/repowatch.pid
func PIDPath(dataDir string) string {
	return filepath.Join(dataDir, pidName)
}

// LogsDir returns <dataDir>/logs
func LogsDir(dataDir string) string {
	return filepath.Join(dataDir, logsDirName)
}

// LogPath returns <dataDir>/logs/<subsystem>.log
func LogPath(dataDir, subsystem string) string {
	return filepath.Join(LogsDir(dataDir), subsystem+".log")
}

// ResolveRepoPath turns a user-supplied repository path into an absolute,
// symlink-resolved, cleaned path.
func ResolveRepoPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return filepath.Clean(resolved), nil
}

// CanonicalizePath converts an absolute path to a repo-relative canonical path
// - Resolves symlinks to real paths
// - Makes path relative to repo root
// - Returns repo-relative path with forward slashes
func CanonicalizePath(absolutePath string, repoRoot string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		// Deleted or not-yet-created files keep their literal path
		if os.IsNotExist(err) {
			resolved = absolutePath
		} else {
			return "", err
		}
	}

	repoRootResolved, err := filepath.EvalSymlinks(repoRoot)
	if err != nil {
		if os.IsNotExist(err) {
			repoRootResolved = repoRoot
		} else {
			return "", err
		}
	}

	relativePath, err := filepath.Rel(repoRootResolved, resolved)
	if err != nil {
		return "", err
	}

	return filepath.ToSlash(relativePath), nil
}

// IsWithinRepo checks if a path is within the repository root
func IsWithinRepo(path string, repoRoot string) bool {
	canonical, err := CanonicalizePath(path, repoRoot)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// JoinRepoPath joins a git-reported (forward slash) path onto the repo root
func JoinRepoPath(repoRoot string, gitPath string) string {
	return filepath.Join(repoRoot, filepath.FromSlash(gitPath))
}
