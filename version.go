package pgreset

import (
	"github.com/maloquacious/semver"
)

var (
	version = semver.Version{
		Major: 1,
		Minor: 2,
		Patch: 0,
		Build: semver.Commit(),
	}
)

// Version is the release of pgreset.
func Version() semver.Version {
	return version
}
