package courier

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version information for the courier library. Values are injected at
// build time via ldflags; the fallbacks below cover development builds.
var (
	// Version is the semantic version of the library.
	Version = "dev"

	// GitCommit is the git commit hash when the binary was built.
	GitCommit = "unknown"
)

// VersionInfo contains detailed version information.
type VersionInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetVersionInfo returns detailed version information, preferring VCS
// metadata embedded by the Go toolchain when ldflags left the defaults.
func GetVersionInfo() *VersionInfo {
	info := &VersionInfo{
		Version:   Version,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}

	if buildInfo, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range buildInfo.Settings {
			if setting.Key == "vcs.revision" && info.GitCommit == "unknown" {
				info.GitCommit = setting.Value
			}
		}
	}
	return info
}

// String returns a human-readable version string.
func (v *VersionInfo) String() string {
	return fmt.Sprintf("courier %s (%s, %s, %s)", v.Version, v.GitCommit, v.GoVersion, v.Platform)
}
