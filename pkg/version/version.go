// Package version reports the running binary's identity for logging,
// user-agent strings, and the classifier model-id recorded on every
// AIPrediction row.
//
// The commit hash comes from runtime/debug.BuildInfo, which the Go
// toolchain embeds automatically on any build done inside a git
// checkout (Go 1.18+) — no -ldflags version stamping needed.
//
//	version.GitCommit  // "a3f8c2d1" or "dev" outside a git checkout
//	version.Full()     // "deskcore/a3f8c2d1"
package version

import "runtime/debug"

// AppName is the application name used in version strings and protocol handshakes.
const AppName = "deskcore"

// GitCommit is the short git commit hash (8 chars) from build info.
// Set to "dev" when build info is unavailable (e.g., `go test`, non-git builds).
var GitCommit = initGitCommit()

func initGitCommit() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 8 {
				return s.Value[:8]
			}
			return s.Value
		}
	}
	return "dev"
}

// Full returns "deskcore/<commit>" for use in user-agent strings, logging, etc.
func Full() string {
	return AppName + "/" + GitCommit
}
