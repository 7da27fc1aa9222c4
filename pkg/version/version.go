package version

import (
	"github.com/Masterminds/semver/v3"
)

// Set with -ldflags at build time.
var (
	Version   = "v0.0.0-dev"
	GitCommit = "unknown"
)

// Compatible reports whether a client and a helper of the given versions can
// talk to each other. Versions that do not parse, such as development
// builds, are only compatible when they are identical.
func Compatible(a, b string) bool {
	if a == b {
		return true
	}
	va, err := semver.NewVersion(a)
	if err != nil {
		return false
	}
	vb, err := semver.NewVersion(b)
	if err != nil {
		return false
	}
	if va.Major() != vb.Major() {
		return false
	}
	// Before 1.0 every minor release may change the helper API.
	if va.Major() == 0 {
		return va.Minor() == vb.Minor()
	}
	return true
}
