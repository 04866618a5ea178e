package git

import (
	"bytes"
	"strings"
)

// FileChange is one entry of `git diff --name-status`.
type FileChange struct {
	Status  byte   // A, C, D, M, R, T, U or X
	Score   string // similarity for R/C, e.g. "100"
	Path    string // destination path
	OldPath string // source path for R/C, otherwise equal to Path
}

// IsDeletion reports whether the change removed Path.
func (c FileChange) IsDeletion() bool {
	return c.Status == 'D'
}

// ParseNameStatusZ parses `git diff --name-status -z` output.
// Format: STATUS\0PATH\0, or STATUS\0OLDPATH\0NEWPATH\0 for renames/copies.
// Both paths of a rename are consumed before the entry is emitted.
func ParseNameStatusZ(output []byte) []FileChange {
	var changes []FileChange

	parts := bytes.Split(output, []byte{0})
	for i := 0; i < len(parts); {
		if len(parts[i]) == 0 {
			i++
			continue
		}

		status := string(parts[i])
		if i+1 >= len(parts) {
			break
		}

		change := FileChange{Status: status[0], Score: status[1:]}
		if change.Status == 'R' || change.Status == 'C' {
			if i+2 >= len(parts) {
				break // Malformed
			}
			change.OldPath = string(parts[i+1])
			change.Path = string(parts[i+2])
			i += 3
		} else {
			change.Path = string(parts[i+1])
			change.OldPath = change.Path
			i += 2
		}
		if change.Path == "" {
			break // Malformed
		}
		changes = append(changes, change)
	}

	return changes
}

// StatusEntry is one entry of `git status --porcelain=v1`.
// X is the index status, Y the work-tree status.
type StatusEntry struct {
	X, Y     byte
	Path     string
	OrigPath string // source of a staged rename or copy
}

// IsDeletion reports whether Path is deleted in the index or work tree.
func (e StatusEntry) IsDeletion() bool {
	return e.X == 'D' || e.Y == 'D'
}

// IsUntracked reports whether Path is not yet known to git.
func (e StatusEntry) IsUntracked() bool {
	return e.X == '?' && e.Y == '?'
}

// ParseStatusZ parses `git status --porcelain=v1 -z` output.
// Format: XY PATH\0, and for renames/copies XY NEWPATH\0ORIGPATH\0.
func ParseStatusZ(output []byte) []StatusEntry {
	var entries []StatusEntry

	parts := bytes.Split(output, []byte{0})
	for i := 0; i < len(parts); i++ {
		record := string(parts[i])
		if len(record) < 4 || record[2] != ' ' {
			continue
		}

		entry := StatusEntry{
			X:    record[0],
			Y:    record[1],
			Path: strings.TrimSuffix(record[3:], "/"),
		}
		if entry.X == 'R' || entry.X == 'C' {
			if i+1 < len(parts) {
				entry.OrigPath = string(parts[i+1])
				i++
			}
		}
		entries = append(entries, entry)
	}

	return entries
}
