package watchdog

import (
	"context"
	"time"

	"github.com/haukened/lockin/internal/lockin/domain"
)

// SessionLoader reads the active session record.
type SessionLoader interface {
	// Load returns false for a missing, undecodable or mis-signed record.
	Load() (domain.Session, bool, error)
}

type SessionStore interface {
	SessionLoader
	Delete() error
	// Protect re-asserts the immutability flag on the record.
	Protect() (bool, error)
}

type Blocker interface {
	Current() (domain.ManagedRegion, error)
	Apply(ctx context.Context, region domain.ManagedRegion) error
	ReapplyIfNeeded(ctx context.Context, region domain.ManagedRegion) (bool, error)
	Release(ctx context.Context) error
}

type Enforcer interface {
	Enforce(ctx context.Context, rules []domain.AppRule) (domain.ProcessReport, error)
}

// CycleCounter is the persistent per-session counter behind the clock-skew
// guard. It ages a session only by boot-clock progress.
type CycleCounter interface {
	Tick(key string, now time.Time, up domain.Uptime) (domain.CycleTick, error)
	Reset() error
}

// BootClock reads time since boot, which no user can set.
type BootClock interface {
	Read() (domain.Uptime, error)
}

// Guard pins files that must survive while a session runs, such as the
// lockin executable itself.
type Guard interface {
	// Protect reports whether any protection had to be restored.
	Protect() (bool, error)
	Release() error
}

// AlwaysSource yields the resolved always-blocked set. It is re-read every
// cycle so edits take effect without a restart.
type AlwaysSource interface {
	AlwaysBlocked() (domain.BlockSet, error)
}
