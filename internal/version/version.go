// Package version holds build-time version metadata for the scheduler
// binary, resolved at link time rather than read back from the running
// binary.
package version

// Version is overridden at build time via -ldflags
// "-X github.com/minisource/jobengine/internal/version.Version=...".
var Version = "dev"

// Commit is the VCS revision the binary was built from, also overridden
// via -ldflags at build time.
var Commit = "unknown"

// String renders the version and commit for CLI --version output and the
// health handler's readiness payload.
func String() string {
	if Commit == "unknown" || Commit == "" {
		return Version
	}
	return Version + "+" + Commit
}
