// Package version provides build version information for the application.
package version

// Version is the build version string, set by ldflags during release builds.
var Version = "v0.3.0-dev"

// BuildTime is the build timestamp, set by ldflags during release builds.
var BuildTime = "unknown"
