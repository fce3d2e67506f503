// Package version reports the airsensor build, also used as the accessory
// firmware revision.
package version

import "regexp"

// These variables are set via ldflags during build
//
//nolint:gochecknoglobals // These are intentionally global for ldflags injection
var (
	version = "dev"
	buildID = "dev"
)

var semverPrefix = regexp.MustCompile(`^v?(\d+\.\d+\.\d+)`)

// GetVersion returns the current version
func GetVersion() string {
	return version
}

// GetBuildID returns the current build ID
func GetBuildID() string {
	return buildID
}

// GetFullVersion returns version with build ID
func GetFullVersion() string {
	return version + " (build: " + buildID + ")"
}

// FirmwareRevision returns the version in the dotted numeric form accessory
// hosts expect, falling back to 0.0.0 for development builds.
func FirmwareRevision() string {
	if m := semverPrefix.FindStringSubmatch(version); m != nil {
		return m[1]
	}

	return "0.0.0"
}
