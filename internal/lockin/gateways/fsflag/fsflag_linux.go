//go:build linux

package fsflag

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// fsImmutableFL is FS_IMMUTABLE_FL from linux/fs.h.
const fsImmutableFL = 0x00000010

func (osFlagger) IsImmutable(path string) (bool, error) {
	flags, err := getFlags(path)
	if err != nil {
		return false, err
	}
	return flags&fsImmutableFL != 0, nil
}

func (osFlagger) SetImmutable(path string) error {
	return updateFlags(path, func(f int) int { return f | fsImmutableFL })
}

func (osFlagger) ClearImmutable(path string) error {
	return updateFlags(path, func(f int) int { return f &^ fsImmutableFL })
}

func getFlags(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	v, err := unix.IoctlGetInt(int(f.Fd()), unix.FS_IOC_GETFLAGS)
	if err != nil {
		return 0, translate(path, err)
	}
	return v, nil
}

func updateFlags(path string, fn func(int) int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	fd := int(f.Fd())
	cur, err := unix.IoctlGetInt(fd, unix.FS_IOC_GETFLAGS)
	if err != nil {
		return translate(path, err)
	}
	next := fn(cur)
	if next == cur {
		return nil
	}
	if err := unix.IoctlSetPointerInt(fd, unix.FS_IOC_SETFLAGS, next); err != nil {
		return translate(path, err)
	}
	return nil
}

// translate maps "this file system has no attribute flags" errnos to
// ErrUnsupported; tmpfs and overlay mounts answer ENOTTY or EOPNOTSUPP.
func translate(path string, err error) error {
	if errors.Is(err, unix.ENOTTY) || errors.Is(err, unix.EOPNOTSUPP) || errors.Is(err, unix.ENOSYS) {
		return fmt.Errorf("%s: %w", path, ErrUnsupported)
	}
	return fmt.Errorf("%s: %w", path, err)
}
