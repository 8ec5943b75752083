package watchdog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/haukened/lockin/internal/lockin/domain"
)

type memSessions struct {
	sess     *domain.Session
	loadErr  error
	delErr   error
	deletes  int
	protects int
}

func (m *memSessions) Load() (domain.Session, bool, error) {
	if m.sess == nil {
		return domain.Session{}, false, m.loadErr
	}
	return *m.sess, true, nil
}

func (m *memSessions) Delete() error {
	if m.delErr != nil {
		return m.delErr
	}
	m.deletes++
	m.sess = nil
	return nil
}

func (m *memSessions) Protect() (bool, error) {
	m.protects++
	return false, nil
}

type memBlocker struct {
	region     domain.ManagedRegion
	applies    int
	releases   int
	repairs    int
	applyErr   error
	releaseErr error
	currentErr error
}

func (b *memBlocker) Current() (domain.ManagedRegion, error) {
	if b.currentErr != nil {
		return domain.ManagedRegion{}, b.currentErr
	}
	return b.region.Normalize(), nil
}

func (b *memBlocker) Apply(_ context.Context, r domain.ManagedRegion) error {
	if b.applyErr != nil {
		return b.applyErr
	}
	b.applies++
	b.region = r.Normalize()
	return nil
}

func (b *memBlocker) ReapplyIfNeeded(_ context.Context, r domain.ManagedRegion) (bool, error) {
	if b.region.Equal(r) {
		return false, nil
	}
	b.repairs++
	b.region = r.Normalize()
	return true, nil
}

func (b *memBlocker) Release(context.Context) error {
	if b.releaseErr != nil {
		return b.releaseErr
	}
	b.releases++
	b.region = domain.ManagedRegion{}
	return nil
}

type recEnforcer struct {
	mu    sync.Mutex
	calls [][]string
}

func (e *recEnforcer) Enforce(_ context.Context, rules []domain.AppRule) (domain.ProcessReport, error) {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.String()
	}
	e.mu.Lock()
	e.calls = append(e.calls, names)
	e.mu.Unlock()
	return domain.ProcessReport{}, nil
}

func (e *recEnforcer) last() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.calls) == 0 {
		return nil
	}
	return e.calls[len(e.calls)-1]
}

type memCycles struct {
	key       string
	count     uint64
	monotonic time.Duration
	last      domain.Uptime
	high      time.Time
	resets    int
}

func (c *memCycles) Tick(key string, now time.Time, up domain.Uptime) (domain.CycleTick, error) {
	if key != c.key {
		c.key, c.count, c.monotonic, c.last = key, 0, 0, domain.Uptime{}
	}
	tick := domain.CycleTick{HighWater: c.high}
	c.count++
	c.monotonic += up.ElapsedFrom(c.last)
	if up.Valid() {
		c.last = up
	}
	tick.Cycles, tick.Monotonic = c.count, c.monotonic
	if now.After(c.high) {
		c.high = now
	}
	return tick, nil
}

func (c *memCycles) Reset() error {
	c.key, c.count, c.monotonic, c.last, c.high = "", 0, 0, domain.Uptime{}, time.Time{}
	c.resets++
	return nil
}

type staticAlways struct {
	set domain.BlockSet
	err error
}

func (a *staticAlways) AlwaysBlocked() (domain.BlockSet, error) { return a.set, a.err }

var errBoom = errors.New("boom")
