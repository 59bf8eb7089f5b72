// Package misc holds build metadata helpers shared by all binaries.
package misc

import "runtime/debug"

// Overwritten by the linker in release builds.
var (
	appName = "typeflow"
	version = "0.0.0-dev"
)

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

// GetGitHash returns the vcs revision recorded in build info, if any.
func GetGitHash() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
