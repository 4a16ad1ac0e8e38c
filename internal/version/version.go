// Package version holds build metadata injected via ldflags, e.g.
//
//	-X github.com/kailas-cloud/zelastic/internal/version.Version=v0.4.0
package version

import "fmt"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Build is the metadata of the running binary as reported by /health.
type Build struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Current returns the build metadata.
func Current() Build {
	return Build{Version: Version, Commit: Commit, Date: Date}
}

func (b Build) String() string {
	return fmt.Sprintf("zelastic %s (commit %s, built %s)", b.Version, b.Commit, b.Date)
}
