// Package version reports the build identity of the hcat binaries.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/muurk/hcat/internal/version.Version=v0.3.0 \
//	                   -X github.com/muurk/hcat/internal/version.Commit=abc123"
var (
	Version = ""
	Commit  = ""
)

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		fill(info.Settings)
	}
	if Version == "" {
		Version = "dev"
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fill takes whatever ldflags left empty from the VCS stamp.
func fill(settings []debug.BuildSetting) {
	var rev, when string
	dirty := false
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.time":
			when = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if Commit == "" && rev != "" {
		if len(rev) > 7 {
			rev = rev[:7]
		}
		Commit = rev
		if dirty {
			Commit += "-dirty"
		}
	}
	if Version == "" && len(when) >= 10 {
		Version = "dev-" + strings.ReplaceAll(when[:10], "-", "")
	}
}

// Full returns the version with its commit.
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// Banner is the first line a binary prints for --version and in the TUI header.
func Banner(binary string) string {
	return fmt.Sprintf("%s %s", binary, Full())
}
