package domain

import "slices"

// ManagedRegion is the content lockin owns inside the hosts file, split by
// scope. Session holds domains applied on behalf of a session (including
// blocks left behind by a session record that disappeared out of band);
// Always holds the always-blocked list. A domain present in both scopes is
// kept only under Session.
type ManagedRegion struct {
	Session []string
	Always  []string
}

// Normalize returns the canonical form: both scopes sorted and
// deduplicated, with Always excluding anything already under Session.
func (r ManagedRegion) Normalize() ManagedRegion {
	session := sortedDomains(r.Session)
	return ManagedRegion{
		Session: session,
		Always:  SubtractDomains(r.Always, session),
	}
}

// Domains returns every blocked domain in the region, sorted.
func (r ManagedRegion) Domains() []string {
	all := make([]string, 0, len(r.Session)+len(r.Always))
	all = append(append(all, r.Session...), r.Always...)
	return sortedDomains(all)
}

// IsEmpty reports whether the region blocks nothing.
func (r ManagedRegion) IsEmpty() bool {
	return len(r.Session) == 0 && len(r.Always) == 0
}

// Equal compares the normalized forms of both regions.
func (r ManagedRegion) Equal(other ManagedRegion) bool {
	a, b := r.Normalize(), other.Normalize()
	return slices.Equal(a.Session, b.Session) && slices.Equal(a.Always, b.Always)
}
