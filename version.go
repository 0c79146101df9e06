// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package sqliteboot

import (
	"github.com/maloquacious/semver"
)

var (
	version = semver.Version{
		Major: 0,
		Minor: 1,
		Patch: 0,
		Build: semver.Commit(),
	}
)

// Version returns the library version, with the VCS commit as build metadata.
func Version() semver.Version {
	return version
}
