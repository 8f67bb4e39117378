//go:build !windows

// Package osutils reports process properties that affect input injection.
package osutils

import "os"

// IsElevated reports whether the process runs as root.
func IsElevated() bool {
	return os.Geteuid() == 0
}

// ElevationHint describes what is needed for input injection.
const ElevationHint = "input injection may require accessibility permission for this process"
