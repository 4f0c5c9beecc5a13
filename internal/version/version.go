// Package version reports the build of the homepage binary.
//
// Release builds stamp the variables with ldflags:
//
//	go build -ldflags "-X github.com/rickgao/homepage/internal/version.Version=1.0.0 \
//	                   -X github.com/rickgao/homepage/internal/version.Commit=$(git rev-parse --short HEAD) \
//	                   -X github.com/rickgao/homepage/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Unstamped builds fall back to the VCS settings the Go toolchain embeds.
package version

import (
	"runtime/debug"
	"strings"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info is the resolved build description.
type Info struct {
	Version   string
	Commit    string
	BuildTime string
	Modified  bool // built from a dirty tree
}

// Get resolves the build description, filling unstamped fields from the
// embedded build info when available.
func Get() Info {
	info := Info{Version: Version, Commit: Commit, BuildTime: BuildTime}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info = fromBuildSettings(info, bi.Settings)
	}
	return info
}

func fromBuildSettings(info Info, settings []debug.BuildSetting) Info {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "unknown" && s.Value != "" {
				info.Commit = s.Value[:min(len(s.Value), 7)]
			}
		case "vcs.time":
			if info.BuildTime == "unknown" && s.Value != "" {
				info.BuildTime = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

// String formats the build description for `homepage version`.
func (i Info) String() string {
	var b strings.Builder
	b.WriteString(i.Version)
	b.WriteString(" (")
	b.WriteString(i.Commit)
	if i.Modified {
		b.WriteString("-dirty")
	}
	b.WriteString(") built ")
	b.WriteString(i.BuildTime)
	return b.String()
}

// String returns the formatted build description.
func String() string {
	return Get().String()
}
