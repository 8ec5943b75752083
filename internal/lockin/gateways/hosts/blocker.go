package hosts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"

	"github.com/haukened/lockin/internal/lockin/common/atomicfile"
	"github.com/haukened/lockin/internal/lockin/common/log"
	"github.com/haukened/lockin/internal/lockin/domain"
	"github.com/haukened/lockin/internal/lockin/gateways/fsflag"
)

// DefaultPath is the system hosts file on every supported platform.
const DefaultPath = "/etc/hosts"

// Options configures a Blocker.
type Options struct {
	Path    string
	Flag    fsflag.Flagger
	Flusher Flusher
	Logger  log.Logger
}

// Blocker applies, repairs and releases the managed region.
type Blocker struct {
	path    string
	flag    fsflag.Flagger
	flusher Flusher
	logger  log.Logger
}

// New returns a Blocker for opts, defaulting to the system hosts file.
func New(opts Options) *Blocker {
	b := &Blocker{path: opts.Path, flag: opts.Flag, flusher: opts.Flusher, logger: opts.Logger}
	if b.path == "" {
		b.path = DefaultPath
	}
	if b.flag == nil {
		b.flag = fsflag.OS()
	}
	if b.flusher == nil {
		b.flusher = DefaultFlusher()
	}
	if b.logger == nil {
		b.logger = log.NewNoopLogger()
	}
	return b
}

// Path returns the hosts file the blocker manages.
func (b *Blocker) Path() string { return b.path }

// Current returns the region presently written in the hosts file.
func (b *Blocker) Current() (domain.ManagedRegion, error) {
	doc, _, err := b.read()
	if err != nil {
		return domain.ManagedRegion{}, err
	}
	return doc.Region, nil
}

// Apply rewrites the managed region to exactly region, sets the
// immutability flag and flushes the resolver cache. An empty region
// behaves as Release.
func (b *Blocker) Apply(ctx context.Context, region domain.ManagedRegion) error {
	if region.IsEmpty() {
		return b.Release(ctx)
	}
	doc, _, err := b.read()
	if err != nil {
		return err
	}
	if err := b.write(ctx, Render(doc.Foreign, region)); err != nil {
		return err
	}
	if err := b.protect(); err != nil {
		return err
	}
	b.logger.Info(map[string]any{
		"session": len(region.Session),
		"always":  len(region.Always),
	}, "hosts_region_applied")
	return nil
}

// ReapplyIfNeeded compares the file with region and rewrites it only when
// they differ, then restores the immutability flag if it was cleared. It
// reports whether anything had to be repaired. Shadowing foreign entries
// are reported as an EnforcementError after any repair.
func (b *Blocker) ReapplyIfNeeded(ctx context.Context, region domain.ManagedRegion) (bool, error) {
	doc, content, err := b.read()
	if err != nil {
		return false, err
	}

	if region.IsEmpty() && doc.Regions == 0 {
		return false, nil
	}
	repaired := false
	if want := Render(doc.Foreign, region); want != content {
		b.logger.Warn(map[string]any{
			"path":      b.path,
			"malformed": doc.Malformed,
			"regions":   doc.Regions,
		}, "hosts_region_repaired")
		if err := b.write(ctx, want); err != nil {
			return false, err
		}
		repaired = true
	}

	if !region.IsEmpty() {
		on, err := b.flag.IsImmutable(b.path)
		switch {
		case errors.Is(err, fsflag.ErrUnsupported):
		case err != nil:
			return repaired, domain.Enforcement("hosts flag read", err)
		case !on:
			b.logger.Warn(map[string]any{"path": b.path}, "hosts_flag_restored")
			if err := b.protect(); err != nil {
				return repaired, err
			}
			repaired = true
		}
	}

	if shadows := FindShadows(doc.Foreign, region.Domains()); len(shadows) > 0 {
		return repaired, domain.Enforcement("hosts shadow check", &ShadowError{Shadows: shadows})
	}
	return repaired, nil
}

// Release clears the immutability flag and removes the managed region,
// leaving every foreign line in place.
func (b *Blocker) Release(ctx context.Context) error {
	doc, content, err := b.read()
	if err != nil {
		return err
	}
	if doc.Regions == 0 {
		return b.unprotect()
	}
	if want := Render(doc.Foreign, domain.ManagedRegion{}); want != content {
		if err := b.write(ctx, want); err != nil {
			return err
		}
	}
	b.logger.Info(map[string]any{"path": b.path}, "hosts_region_released")
	return nil
}

func (b *Blocker) read() (Document, string, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Document{}, "", nil
	}
	if err != nil {
		return Document{}, "", domain.Enforcement("hosts read", err)
	}
	content := string(data)
	return Parse(content), content, nil
}

// write clears the flag, replaces the file and flushes the resolver
// cache. The flag is left cleared.
func (b *Blocker) write(ctx context.Context, content string) error {
	if err := b.unprotect(); err != nil {
		return err
	}
	mode := atomicfile.ModeOr(b.path, 0o644)
	err := atomicfile.Write(b.path, []byte(content), mode)
	if errors.Is(err, syscall.EBUSY) || errors.Is(err, syscall.EXDEV) {
		// bind-mounted hosts files (containers) cannot be renamed over
		err = os.WriteFile(b.path, []byte(content), mode)
	}
	if err != nil {
		return domain.Enforcement("hosts write", err)
	}
	if err := b.flusher.Flush(ctx); err != nil {
		b.logger.Debug(map[string]any{"error": err}, "dns_flush_failed")
	}
	return nil
}

func (b *Blocker) protect() error {
	err := b.flag.SetImmutable(b.path)
	if err == nil || errors.Is(err, fsflag.ErrUnsupported) {
		return nil
	}
	return domain.Enforcement("hosts flag set", err)
}

func (b *Blocker) unprotect() error {
	err := b.flag.ClearImmutable(b.path)
	if err == nil || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fsflag.ErrUnsupported) {
		return nil
	}
	return domain.Enforcement("hosts flag clear", fmt.Errorf("%s: %w", b.path, err))
}
