// Package version carries build information set through -ldflags.
package version

var (
	// Version is the released version of the binaries.
	Version = "dev"
	// GitCommit is the commit the binaries were built from.
	GitCommit = "unknown"
	// BuildDate is the UTC build timestamp.
	BuildDate = "unknown"
)
