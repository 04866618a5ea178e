// Package incremental reconciles committed history and uncommitted edits of
// a repository into the minimal set of files that need (re-)analysis.
//
// Detection is best effort: every git call may fail on its own and the
// detector keeps going with whatever evidence it has. Only a repository
// that cannot be read at all fails the cycle. The ChangeSet records which
// sources were unavailable so callers can tell "nothing changed" apart from
// "could not look".
package incremental

import (
	"repowatch/internal/config"
)

// DefaultFallbackCommits is the bounded window used when no exact diff is
// possible.
const DefaultFallbackCommits = 5

// Config controls change detection
type Config struct {
	// FallbackCommits is the number of commits ending at HEAD inspected on a
	// first scan or when the previous commit is unreachable.
	FallbackCommits int

	// Extensions is the allow-list of analyzable files. Entries starting with
	// "." match the file extension, others match the file name exactly.
	// Empty allows every file.
	Extensions []string

	// Excludes are repository-relative globs or directory prefixes
	Excludes []string
}

// DefaultConfig returns detector defaults
func DefaultConfig() *Config {
	d := config.DefaultConfig().Detector
	return ConfigFrom(d)
}

// ConfigFrom converts the persisted detector settings
func ConfigFrom(d config.DetectorConfig) *Config {
	cfg := &Config{
		FallbackCommits: d.FallbackCommits,
		Extensions:      append([]string(nil), d.Extensions...),
		Excludes:        append([]string(nil), d.Excludes...),
	}
	if cfg.FallbackCommits <= 0 {
		cfg.FallbackCommits = DefaultFallbackCommits
	}
	return cfg
}

// ChangeSet is the result of one detection pass. It is never persisted.
type ChangeSet struct {
	// Root is the work-tree top level. It differs from the scanned path when
	// a subdirectory of a repository is registered.
	Root string

	// Head is the resolved HEAD commit, empty when resolution failed
	Head string

	// Previous is the commit the caller last recorded
	Previous string

	// Files holds deduplicated absolute paths under the scanned path, sorted
	Files []string

	HeadResolved bool // HEAD resolved to a commit
	UsedFallback bool // committed changes came from the bounded window
	DiffFailed   bool // no committed evidence could be gathered
	StatusFailed bool // working-tree status was unavailable
}

// Len returns the number of files in the set
func (c *ChangeSet) Len() int {
	return len(c.Files)
}

// Empty reports whether nothing needs analysis
func (c *ChangeSet) Empty() bool {
	return len(c.Files) == 0
}

// Degraded reports whether any detection source failed. An empty degraded
// set means "unknown", not "unchanged".
func (c *ChangeSet) Degraded() bool {
	return !c.HeadResolved || c.DiffFailed || c.StatusFailed
}
