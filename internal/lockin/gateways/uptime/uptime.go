// Package uptime reads the boot clock: time since boot including sleep,
// tagged with an identifier of the current boot. Unlike the wall clock it
// cannot be set, so it backs the watchdog's clock-skew guard.
package uptime

import (
	"errors"
	"sync"
	"time"

	"github.com/haukened/lockin/internal/lockin/domain"
)

// ErrUnsupported is returned on platforms without a boot clock.
var ErrUnsupported = errors.New("boot clock not supported")

// Source reads the boot clock.
type Source interface {
	Read() (domain.Uptime, error)
}

// System returns the Source for the running platform.
func System() Source { return systemSource{} }

type systemSource struct{}

func (systemSource) Read() (domain.Uptime, error) {
	id, err := bootID()
	if err != nil {
		return domain.Uptime{}, err
	}
	elapsed, err := sinceBoot()
	if err != nil {
		return domain.Uptime{}, err
	}
	return domain.Uptime{BootID: id, Elapsed: elapsed}, nil
}

// Fake is a settable Source for tests. It is safe for concurrent use.
type Fake struct {
	mu  sync.Mutex
	now domain.Uptime
	err error
}

// NewFake starts a fake boot with the given id at zero uptime.
func NewFake(bootID string) *Fake {
	return &Fake{now: domain.Uptime{BootID: bootID}}
}

func (f *Fake) Read() (domain.Uptime, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.Uptime{}, f.err
	}
	return f.now, nil
}

// Advance moves the boot clock forward.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now.Elapsed += d
	f.mu.Unlock()
}

// Reboot starts a new boot that has been up for d.
func (f *Fake) Reboot(bootID string, d time.Duration) {
	f.mu.Lock()
	f.now = domain.Uptime{BootID: bootID, Elapsed: d}
	f.mu.Unlock()
}

// SetErr makes every Read fail with err until cleared with nil.
func (f *Fake) SetErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

var (
	_ Source = systemSource{}
	_ Source = (*Fake)(nil)
)
