// Package version reports the repowatch build.
package version

import (
	"runtime"
	"runtime/debug"
)

// Set at build time:
// go build -ldflags "-X repowatch/internal/version.Commit=$(git rev-parse HEAD) -X repowatch/internal/version.BuildDate=$(date -u +%F)"
var (
	Version   = "0.1.0"
	Commit    = ""
	BuildDate = ""
)

// Build describes the running binary.
type Build struct {
	Version   string
	Commit    string
	Date      string
	GoVersion string
	Modified  bool // built from a dirty work tree; only known from the VCS stamp
}

// Current returns the build description. Commit and date fall back to the
// VCS stamp the Go toolchain embeds when ldflags left them empty.
func Current() Build {
	b := Build{Version: Version, Commit: Commit, Date: BuildDate, GoVersion: runtime.Version()}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return b
	}

	fromVCS := b.Commit == ""
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if fromVCS {
				b.Commit = s.Value
			}
		case "vcs.time":
			if b.Date == "" {
				b.Date = s.Value
			}
		case "vcs.modified":
			b.Modified = fromVCS && s.Value == "true"
		}
	}
	return b
}

// ShortCommit returns the abbreviated commit, or "" when unknown.
func (b Build) ShortCommit() string {
	if len(b.Commit) > 12 {
		return b.Commit[:12]
	}
	return b.Commit
}

// String is the one-line form printed by --version.
func (b Build) String() string {
	c := b.ShortCommit()
	switch {
	case c == "":
		return b.Version
	case b.Modified:
		return b.Version + " (" + c + ", modified)"
	default:
		return b.Version + " (" + c + ")"
	}
}

// Full returns the multi-line form printed by the version command.
func Full() string {
	b := Current()
	date := b.Date
	if date == "" {
		date = "unknown"
	}
	return "repowatch " + b.String() + "\n" +
		"built: " + date + "\n" +
		"go: " + b.GoVersion
}
