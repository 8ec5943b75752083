package watchdog

import (
	"time"

	"github.com/haukened/lockin/internal/lockin/domain"
)

// CurrentStatus summarizes the session record for display. It needs no
// privileges. Missing, corrupted and expired records all read as inactive.
func CurrentStatus(store SessionLoader, now time.Time) domain.Status {
	sess, ok, _ := store.Load()
	if !ok || sess.Elapsed(now) > sess.Duration() {
		return domain.InactiveStatus()
	}
	return domain.Status{
		Active:    true,
		Profile:   sess.Profile,
		Remaining: sess.Remaining(now),
		EndsAt:    sess.EndsAt(),
		Domains:   len(sess.Domains),
		Apps:      len(sess.Apps),
	}
}
