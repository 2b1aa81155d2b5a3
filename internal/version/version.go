// Package version carries build metadata stamped via -ldflags.
package version

var (
	// Version is the release tag, "dev" for local builds.
	Version = "dev"
	// Commit is the short git SHA of the build.
	Commit = "unknown"
	// Date is the build timestamp.
	Date = "unknown"
)
