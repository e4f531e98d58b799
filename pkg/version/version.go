package version

import "runtime/debug"

var version = "dev"

// Version returns the build string embedded via -ldflags when available,
// falling back to module build info.
func Version() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Sum != "" {
		return info.Main.Version
	}
	return version
}
