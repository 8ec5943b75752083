package fsflag

import (
	"errors"
	"io/fs"

	"go.uber.org/multierr"

	"github.com/haukened/lockin/internal/lockin/domain"
)

// Guard pins a fixed set of files with the immutability attribute. Missing
// paths and file systems without the attribute are skipped.
type Guard struct {
	flag  Flagger
	paths []string
}

// NewGuard returns a Guard over paths. Empty paths are dropped.
func NewGuard(flag Flagger, paths ...string) *Guard {
	g := &Guard{flag: flag}
	for _, p := range paths {
		if p != "" {
			g.paths = append(g.paths, p)
		}
	}
	return g
}

func skippable(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, ErrUnsupported)
}

// Protect sets the attribute wherever it is missing and reports whether
// any path had to be repaired.
func (g *Guard) Protect() (bool, error) {
	var (
		repaired bool
		errs     error
	)
	for _, p := range g.paths {
		on, err := g.flag.IsImmutable(p)
		switch {
		case skippable(err):
			continue
		case err != nil:
			errs = multierr.Append(errs, domain.Enforcement("package flag read", err))
			continue
		case on:
			continue
		}
		if err := g.flag.SetImmutable(p); err != nil {
			if !skippable(err) {
				errs = multierr.Append(errs, domain.Enforcement("package flag set", err))
			}
			continue
		}
		repaired = true
	}
	return repaired, errs
}

// Release clears the attribute on every path.
func (g *Guard) Release() error {
	var errs error
	for _, p := range g.paths {
		if err := g.flag.ClearImmutable(p); err != nil && !skippable(err) {
			errs = multierr.Append(errs, domain.Enforcement("package flag clear", err))
		}
	}
	return errs
}
