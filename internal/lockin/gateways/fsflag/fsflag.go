// Package fsflag manages the OS-level immutability attribute on a file.
// While the attribute is set, writes, renames and unlinks fail even for
// root until the attribute is cleared again.
package fsflag

import "errors"

// ErrUnsupported is returned when the platform or the file system holding
// the file has no immutability attribute.
var ErrUnsupported = errors.New("immutability flag not supported")

// Flagger reads and toggles the immutability attribute of a path.
type Flagger interface {
	IsImmutable(path string) (bool, error)
	SetImmutable(path string) error
	ClearImmutable(path string) error
}

// OS returns the Flagger for the running platform.
func OS() Flagger { return osFlagger{} }

type osFlagger struct{}

var _ Flagger = osFlagger{}
