// Package osver reports the running macOS version.
package osver

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/sirupsen/logrus"
)

var (
	cachedVersion Version
	initOnce      sync.Once

	// productVersion returns the output of `sw_vers -productVersion`.
	productVersion = func(ctx context.Context) (string, error) {
		out, err := exec.CommandContext(ctx, "/usr/bin/sw_vers", "-productVersion").Output()
		return string(out), err
	}
)

// Version is a macOS version such as 14.4.1.
type Version struct {
	Major int
	Minor int
	Patch int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Known reports whether the version could be detected.
func (v Version) Known() bool {
	return v != Version{}
}

// Get returns the running macOS version, or the zero Version when it cannot
// be detected. The result is cached.
func Get() Version {
	initOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		out, err := productVersion(ctx)
		if err != nil {
			logrus.Debugf("failed to run sw_vers: %v", err)
			return
		}
		v, err := Parse(strings.TrimSpace(out))
		if err != nil {
			logrus.Debugf("failed to parse macOS version %q: %v", out, err)
			return
		}
		cachedVersion = v
	})
	return cachedVersion
}

// Parse converts "major.minor" or "major.minor.patch" into a Version.
func Parse(version string) (Version, error) {
	if strings.Count(version, ".") < 1 {
		return Version{}, fmt.Errorf("invalid version format: %s", version)
	}
	sv, err := semver.NewVersion(version)
	if err != nil {
		return Version{}, fmt.Errorf("invalid version format: %s: %w", version, err)
	}
	return Version{Major: int(sv.Major()), Minor: int(sv.Minor()), Patch: int(sv.Patch())}, nil
}

// Compare returns -1, 0 or 1 when v is older than, the same as or newer
// than other.
func (v Version) Compare(other Version) int {
	switch {
	case v.Major != other.Major:
		return cmp(v.Major, other.Major)
	case v.Minor != other.Minor:
		return cmp(v.Minor, other.Minor)
	default:
		return cmp(v.Patch, other.Patch)
	}
}

func cmp(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// AtLeast returns true if this version is greater than or equal to other.
func (v Version) AtLeast(other Version) bool {
	return v.Compare(other) >= 0
}

// IsAtLeast checks if the running system is at least the given version.
// An undetectable version never is.
func IsAtLeast(major, minor, patch int) bool {
	current := Get()
	if !current.Known() {
		return false
	}
	return current.AtLeast(Version{Major: major, Minor: minor, Patch: patch})
}
