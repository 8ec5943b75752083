package domain

import (
	"fmt"
	"time"
)

// Status is the enforcement summary handed to presentation layers. An
// absent, corrupted or expired session all read as inactive; the reason is
// deliberately not exposed.
type Status struct {
	Active    bool          `json:"active"`
	Profile   string        `json:"profile,omitempty"`
	Remaining time.Duration `json:"remaining_ns,omitempty"`
	EndsAt    time.Time     `json:"ends_at,omitempty"`
	Domains   int           `json:"domains,omitempty"`
	Apps      int           `json:"apps,omitempty"`
}

// InactiveStatus is the status reported whenever no valid session exists.
func InactiveStatus() Status { return Status{} }

func (s Status) String() string {
	if !s.Active {
		return "no active session"
	}
	return fmt.Sprintf("profile %s, %s remaining", s.Profile, s.Remaining.Round(time.Second))
}

// CycleTick is what the persistent cycle counter reports for one watchdog
// cycle of a given session.
type CycleTick struct {
	// Cycles counts watchdog cycles observed for the session, this one included.
	Cycles uint64
	// HighWater is the latest wall-clock time any earlier cycle observed.
	HighWater time.Time
	// Monotonic is the session age proven by the boot clock across the
	// cycles observed so far. Cycles run back to back add nothing.
	Monotonic time.Duration
}

// ClockRewound reports whether now lies behind a previously observed time.
func (t CycleTick) ClockRewound(now time.Time) bool {
	return !t.HighWater.IsZero() && now.Before(t.HighWater)
}

// Uptime is a reading of the boot clock: time since boot, including sleep,
// which no user can set. The zero value means no reading was available.
type Uptime struct {
	BootID  string
	Elapsed time.Duration
}

// Valid reports whether u holds a reading.
func (u Uptime) Valid() bool { return u.BootID != "" }

// ElapsedFrom returns the boot-clock time that provably passed between prev
// and u. Across a reboot only the new boot's uptime counts; a missing
// reading counts nothing.
func (u Uptime) ElapsedFrom(prev Uptime) time.Duration {
	switch {
	case !u.Valid() || !prev.Valid():
		return 0
	case u.BootID != prev.BootID:
		return u.Elapsed
	case u.Elapsed > prev.Elapsed:
		return u.Elapsed - prev.Elapsed
	default:
		return 0
	}
}
