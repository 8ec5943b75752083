//go:build unix

// Package privilege answers whether the current process runs with the
// elevation required to create or release a session.
package privilege

import "golang.org/x/sys/unix"

// IsElevated reports whether the effective user is root.
func IsElevated() bool {
	return unix.Geteuid() == 0
}
