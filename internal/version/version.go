// Package version carries build-time identity for the cyroid binary.
package version

// Set via -ldflags at release time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
	// PackageManager is set when the binary was built for a package manager
	// distribution (e.g. "brew", "nix").
	PackageManager = ""
)

// String returns a human-readable version line.
func String() string {
	return Version + " (" + Commit + ", " + Date + ")"
}
