//go:build darwin

package fsflag

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// sfImmutable is SF_IMMUTABLE from sys/stat.h: the "schg" flag, which only
// root can clear and only outside secure level 1.
const sfImmutable = 0x00020000

func (osFlagger) IsImmutable(path string) (bool, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	return st.Flags&sfImmutable != 0, nil
}

func (osFlagger) SetImmutable(path string) error {
	return update(path, func(f uint32) uint32 { return f | sfImmutable })
}

func (osFlagger) ClearImmutable(path string) error {
	return update(path, func(f uint32) uint32 { return f &^ sfImmutable })
}

func update(path string, fn func(uint32) uint32) error {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	next := fn(st.Flags)
	if next == st.Flags {
		return nil
	}
	if err := unix.Chflags(path, int(next)); err != nil {
		if errors.Is(err, unix.EOPNOTSUPP) {
			return fmt.Errorf("%s: %w", path, ErrUnsupported)
		}
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
