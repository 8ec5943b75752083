package domain

import "time"

// MaxSessionDuration caps a session. Longer records are refused at creation
// and unusable when loaded.
const MaxSessionDuration = 30 * 24 * time.Hour

// Session is the signed, time-boxed record activating a Resolved Block Set.
// It is never mutated in place; a legitimate update is a full replace and
// re-sign. The JSON shape is the on-disk record.
type Session struct {
	Profile         string    `json:"profile"`
	Domains         []string  `json:"resolved_domains"`
	Apps            []string  `json:"resolved_apps"`
	Start           time.Time `json:"start"`
	DurationSeconds int64     `json:"duration_seconds"`
	Signature       string    `json:"signature"`
}

// NewSession builds an unsigned session from a resolved set.
func NewSession(profile string, set BlockSet, start time.Time, duration time.Duration) Session {
	return Session{
		Profile:         profile,
		Domains:         append([]string{}, set.Domains...),
		Apps:            append([]string{}, set.Apps...),
		Start:           start.UTC(),
		DurationSeconds: int64(duration / time.Second),
	}
}

// Duration returns the declared session length.
func (s Session) Duration() time.Duration {
	return time.Duration(s.DurationSeconds) * time.Second
}

// HasValidDuration reports whether the declared length is positive and
// within MaxSessionDuration.
func (s Session) HasValidDuration() bool {
	return s.DurationSeconds > 0 && s.DurationSeconds <= int64(MaxSessionDuration/time.Second)
}

// EndsAt is the wall-clock instant the session is declared to end.
func (s Session) EndsAt() time.Time {
	return s.Start.Add(s.Duration())
}

// Elapsed is the wall-clock time since start. It is negative when the clock
// has been set before the start time.
func (s Session) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.Start)
}

// Remaining returns the time left on the wall clock, never negative.
func (s Session) Remaining(now time.Time) time.Duration {
	r := s.EndsAt().Sub(now)
	if r < 0 {
		return 0
	}
	return r
}

// BlockSet returns the embedded resolved set.
func (s Session) BlockSet() BlockSet {
	return BlockSet{Domains: s.Domains, Apps: s.Apps}
}
