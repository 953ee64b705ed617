// Package version provides information about the relnotes build.
package version

// BuildInfo holds version information about the binary build.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Info returns the build information. The version, commit, and date variables
// are intended to be set at build time using -ldflags.
func Info() BuildInfo {
	// Set via -ldflags "-X 'github.com/Sumatoshi-tech/relnotes/pkg/version.version=v0.1.0'
	// -X 'github.com/Sumatoshi-tech/relnotes/pkg/version.commit=abcd'
	// -X 'github.com/Sumatoshi-tech/relnotes/pkg/version.date=2026-08-22'"
	return BuildInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)
