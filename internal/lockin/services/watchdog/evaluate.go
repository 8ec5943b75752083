package watchdog

import (
	"time"

	"github.com/haukened/lockin/internal/lockin/domain"
)

// State is the watchdog's view of the current session.
type State int

const (
	// Idle: no valid session. Only always-blocked entries are enforced.
	Idle State = iota
	// Enforcing: a valid session is running.
	Enforcing
	// Expiring: a valid session has ended and is being released.
	Expiring
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Enforcing:
		return "enforcing"
	case Expiring:
		return "expiring"
	default:
		return "unknown"
	}
}

// Verdict is the outcome of evaluating a valid session.
type Verdict struct {
	State State
	// WallTrusted is false when the wall clock ran behind the session start
	// or behind a time already observed by an earlier cycle.
	WallTrusted bool
	// Monotonic is the session age measured on the boot clock.
	Monotonic time.Duration
	Reason    string
}

// Evaluate decides whether a verified session is still in force.
//
// The boot clock is authoritative in one direction only: once the age it
// proves exceeds twice the duration the session has expired, whatever the
// wall clock says. A wall clock that moved backwards is not trusted at all
// and the session stays in force. Otherwise the wall clock decides.
func Evaluate(sess domain.Session, now time.Time, tick domain.CycleTick) Verdict {
	v := Verdict{WallTrusted: true, Monotonic: tick.Monotonic}

	// halving the age keeps the comparison clear of overflow
	if tick.Monotonic/2 > sess.Duration() {
		v.State, v.Reason = Expiring, "boot_clock"
		return v
	}
	elapsed := sess.Elapsed(now)
	if elapsed < 0 || tick.ClockRewound(now) {
		v.State, v.WallTrusted, v.Reason = Enforcing, false, "clock_rewound"
		return v
	}
	if elapsed > sess.Duration() {
		v.State, v.Reason = Expiring, "wall_clock"
		return v
	}
	v.State, v.Reason = Enforcing, "running"
	return v
}
