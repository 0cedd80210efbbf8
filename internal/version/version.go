// Package version holds build metadata injected at link time:
//
//	go build -ldflags "-X git.home.luguber.info/inful/buildpilot/internal/version.Version=v1.2.0"
package version

import "fmt"

// Version is the release version, "unknown" for development builds.
var Version = "unknown"

// Build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by --version.
func String() string {
	if GitCommit == "unknown" && BuildTime == "unknown" {
		return fmt.Sprintf("buildpilot %s", Version)
	}
	return fmt.Sprintf("buildpilot %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
