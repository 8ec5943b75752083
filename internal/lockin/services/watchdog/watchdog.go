// Package watchdog runs the enforcement cycle: it reads the signed session,
// decides Idle, Enforcing or Expiring, and drives the hosts blocker and the
// process enforcer accordingly. Every step is bounded and independent; one
// failing step never prevents the others from running.
package watchdog

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"github.com/haukened/lockin/internal/lockin/common/clock"
	"github.com/haukened/lockin/internal/lockin/common/log"
	"github.com/haukened/lockin/internal/lockin/domain"
)

const (
	DefaultInterval    = 3 * time.Second
	DefaultStepTimeout = 2 * time.Second
)

type Options struct {
	Sessions SessionStore
	Blocker  Blocker
	Enforcer Enforcer
	Cycles   CycleCounter
	Always   AlwaysSource
	Clock    clock.Clock
	// BootClock ages sessions for the clock-skew guard. Without it only the
	// wall clock can expire a session.
	BootClock BootClock
	// Package, if set, is protected while a session runs.
	Package Guard
	Logger  log.Logger
	// Privileged reports whether the process runs elevated.
	Privileged  func() bool
	Interval    time.Duration
	StepTimeout time.Duration
}

// Watchdog is not safe for concurrent RunCycle calls; Run serializes them.
type Watchdog struct {
	sessions    SessionStore
	blocker     Blocker
	enforcer    Enforcer
	cycles      CycleCounter
	always      AlwaysSource
	clock       clock.Clock
	boot        BootClock
	pkg         Guard
	logger      log.Logger
	privileged  func() bool
	interval    time.Duration
	stepTimeout time.Duration

	last   State
	active atomic.Bool
}

// Report describes what one cycle observed and did.
type Report struct {
	State       State
	Profile     string
	Cycles      uint64
	WallTrusted bool
	Reason      string
	// HostsRepaired is set when the region or its flag had to be restored.
	HostsRepaired bool
	// SessionRepaired is set when the session record's flag was restored.
	SessionRepaired bool
	// PackageRepaired is set when the executable's protection was restored.
	PackageRepaired bool
	// Released is set when an expired session was released and deleted.
	Released  bool
	Processes domain.ProcessReport
}

func New(opts Options) *Watchdog {
	w := &Watchdog{
		sessions:    opts.Sessions,
		blocker:     opts.Blocker,
		enforcer:    opts.Enforcer,
		cycles:      opts.Cycles,
		always:      opts.Always,
		clock:       opts.Clock,
		boot:        opts.BootClock,
		pkg:         opts.Package,
		logger:      opts.Logger,
		privileged:  opts.Privileged,
		interval:    opts.Interval,
		stepTimeout: opts.StepTimeout,
	}
	if w.clock == nil {
		w.clock = clock.RealClock{}
	}
	if w.logger == nil {
		w.logger = log.NewNoopLogger()
	}
	if w.privileged == nil {
		w.privileged = func() bool { return false }
	}
	if w.interval <= 0 {
		w.interval = DefaultInterval
	}
	if w.stepTimeout <= 0 {
		w.stepTimeout = DefaultStepTimeout
	}
	return w
}

// Active reports whether the last cycle found a session in force.
func (w *Watchdog) Active() bool { return w.active.Load() }

// Interval is the time between cycles.
func (w *Watchdog) Interval() time.Duration { return w.interval }

// Run executes a cycle immediately and then every interval until ctx is
// done. Cycle errors are logged and retried next cycle; only a missing
// privilege stops the loop.
func (w *Watchdog) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if _, err := w.RunCycle(ctx); err != nil {
			if errors.Is(err, domain.ErrPrivilege) {
				return err
			}
			w.logger.Error(map[string]any{"error": err}, "watchdog_cycle_failed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// cycleInputs is what every state handler needs.
type cycleInputs struct {
	now time.Time
	// current is the applied region; currentOK is false when it could not
	// be read, and every hosts step is skipped for the cycle.
	current       domain.ManagedRegion
	currentOK     bool
	alwaysDomains []string
	alwaysApps    []domain.AppRule
}

// RunCycle performs one evaluate-and-enforce pass. The returned error
// aggregates every failed step.
func (w *Watchdog) RunCycle(ctx context.Context) (Report, error) {
	if !w.privileged() {
		return Report{}, &domain.PrivilegeError{Op: "watchdog cycle"}
	}

	var errs error
	in := cycleInputs{now: w.clock.Now()}

	cur, err := w.blocker.Current()
	if err != nil {
		errs = multierr.Append(errs, domain.Enforcement("hosts read", err))
	}
	in.current, in.currentOK = cur, err == nil

	always, err := w.always.AlwaysBlocked()
	if err != nil {
		// keep whatever is applied rather than lifting it on a bad edit
		w.logger.Warn(map[string]any{"error": err}, "always_blocked_unavailable")
		errs = multierr.Append(errs, err)
		in.alwaysDomains = cur.Always
	} else {
		in.alwaysDomains = always.Domains
		in.alwaysApps = always.AppRules()
	}

	sess, ok, err := w.sessions.Load()
	if err != nil {
		w.logger.Warn(map[string]any{"error": err}, "session_unusable")
	}

	var rep Report
	if !ok {
		rep, err = w.idle(ctx, in)
	} else {
		rep, err = w.withSession(ctx, in, sess)
	}
	errs = multierr.Append(errs, err)

	w.active.Store(rep.State == Enforcing)
	if rep.State != w.last {
		w.logger.Info(map[string]any{
			"from":    w.last.String(),
			"to":      rep.State.String(),
			"profile": rep.Profile,
			"reason":  rep.Reason,
		}, "watchdog_state")
		w.last = rep.State
	}
	w.logger.Debug(map[string]any{
		"state":          rep.State.String(),
		"cycles":         rep.Cycles,
		"wall_trusted":   rep.WallTrusted,
		"hosts_repaired": rep.HostsRepaired,
		"matched":        rep.Processes.Matched,
		"errors":         len(multierr.Errors(errs)),
	}, "watchdog_cycle")
	return rep, errs
}

// idle keeps always-blocked entries enforced. Session-scope entries found
// in the hosts file stay: a session record that vanished without passing
// through expiry must not lift its blocks.
func (w *Watchdog) idle(ctx context.Context, in cycleInputs) (Report, error) {
	rep := Report{State: Idle, WallTrusted: true, Reason: "no_session"}
	var errs error

	errs = multierr.Append(errs, w.step(ctx, "cycle reset", func(context.Context) error {
		return w.cycles.Reset()
	}))

	if in.currentOK {
		if len(in.current.Session) > 0 {
			w.logger.Warn(map[string]any{"domains": len(in.current.Session)}, "orphaned_session_blocks")
		}
		want := domain.ManagedRegion{Session: in.current.Session, Always: in.alwaysDomains}
		errs = multierr.Append(errs, w.step(ctx, "hosts", func(ctx context.Context) error {
			if want.IsEmpty() && !in.current.IsEmpty() {
				return w.blocker.Release(ctx)
			}
			repaired, err := w.blocker.ReapplyIfNeeded(ctx, want)
			rep.HostsRepaired = repaired
			return err
		}))
		// the executable stays pinned while orphaned session blocks remain
		if len(in.current.Session) == 0 {
			errs = multierr.Append(errs, w.releasePackage(ctx))
		}
	}

	errs = multierr.Append(errs, w.enforce(ctx, in.alwaysApps, &rep))
	return rep, errs
}

func (w *Watchdog) withSession(ctx context.Context, in cycleInputs, sess domain.Session) (Report, error) {
	up := w.readBootClock()
	tick, err := w.cycles.Tick(sess.Signature, in.now, up)
	if err != nil {
		// without a counter the wall clock is the only evidence left
		w.logger.Warn(map[string]any{"error": err}, "cycle_counter_unavailable")
	}
	v := Evaluate(sess, in.now, tick)
	rep := Report{
		State:       v.State,
		Profile:     sess.Profile,
		Cycles:      tick.Cycles,
		WallTrusted: v.WallTrusted,
		Reason:      v.Reason,
	}
	if !v.WallTrusted {
		w.logger.Warn(map[string]any{
			"profile": sess.Profile,
			"start":   sess.Start,
			"now":     in.now,
		}, "wall_clock_untrusted")
	}

	if v.State == Expiring {
		errs := multierr.Append(err, w.expire(ctx, in, sess, &rep))
		return rep, errs
	}

	errs := err
	if in.currentOK {
		want := domain.ManagedRegion{
			Session: append(append([]string{}, sess.Domains...), in.current.Session...),
			Always:  in.alwaysDomains,
		}
		errs = multierr.Append(errs, w.step(ctx, "hosts", func(ctx context.Context) error {
			repaired, err := w.blocker.ReapplyIfNeeded(ctx, want)
			rep.HostsRepaired = repaired
			return err
		}))
	}
	errs = multierr.Append(errs, w.step(ctx, "session flag", func(context.Context) error {
		repaired, err := w.sessions.Protect()
		rep.SessionRepaired = repaired
		return err
	}))
	if w.pkg != nil {
		errs = multierr.Append(errs, w.step(ctx, "package flag", func(context.Context) error {
			repaired, err := w.pkg.Protect()
			rep.PackageRepaired = repaired
			return err
		}))
	}

	rules := sess.BlockSet().AppRules()
	rules = append(rules, in.alwaysApps...)
	errs = multierr.Append(errs, w.enforce(ctx, rules, &rep))
	return rep, errs
}

// expire releases exactly the session's own domains, keeps always-blocked
// entries, and deletes the record only once the hosts file is released.
func (w *Watchdog) expire(ctx context.Context, in cycleInputs, sess domain.Session, rep *Report) error {
	var errs error
	errs = multierr.Append(errs, w.enforce(ctx, in.alwaysApps, rep))
	if !in.currentOK {
		// releasing from an unknown region could drop blocks; retry next cycle
		return errs
	}

	want := domain.ManagedRegion{
		Session: domain.SubtractDomains(in.current.Session, sess.Domains),
		Always:  in.alwaysDomains,
	}
	hostsErr := w.step(ctx, "hosts release", func(ctx context.Context) error {
		if want.IsEmpty() {
			return w.blocker.Release(ctx)
		}
		return w.blocker.Apply(ctx, want)
	})
	if hostsErr != nil {
		return multierr.Append(errs, hostsErr)
	}

	if err := w.step(ctx, "session delete", func(context.Context) error {
		return w.sessions.Delete()
	}); err != nil {
		return multierr.Append(errs, err)
	}
	errs = multierr.Append(errs, w.step(ctx, "cycle reset", func(context.Context) error {
		return w.cycles.Reset()
	}))
	errs = multierr.Append(errs, w.releasePackage(ctx))

	rep.Released = true
	rep.State = Idle
	w.logger.Info(map[string]any{
		"profile": sess.Profile,
		"reason":  rep.Reason,
		"domains": len(sess.Domains),
	}, "session_expired")
	return errs
}

func (w *Watchdog) releasePackage(ctx context.Context) error {
	if w.pkg == nil {
		return nil
	}
	return w.step(ctx, "package release", func(context.Context) error {
		return w.pkg.Release()
	})
}

// readBootClock returns the zero reading when the boot clock is missing or
// unreadable, which ages nothing.
func (w *Watchdog) readBootClock() domain.Uptime {
	if w.boot == nil {
		return domain.Uptime{}
	}
	up, err := w.boot.Read()
	if err != nil {
		w.logger.Warn(map[string]any{"error": err}, "boot_clock_unavailable")
		return domain.Uptime{}
	}
	return up
}

func (w *Watchdog) enforce(ctx context.Context, rules []domain.AppRule, rep *Report) error {
	if len(rules) == 0 {
		return nil
	}
	return w.step(ctx, "processes", func(ctx context.Context) error {
		res, err := w.enforcer.Enforce(ctx, rules)
		rep.Processes = res
		return err
	})
}

// step runs fn with a context bounded by the step timeout; fn must honour
// it. A failed or overrunning step is reported and later steps still run.
func (w *Watchdog) step(ctx context.Context, name string, fn func(context.Context) error) error {
	sctx, cancel := context.WithTimeout(ctx, w.stepTimeout)
	defer cancel()

	if err := fn(sctx); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := sctx.Err(); err != nil {
		return domain.Enforcement(name, err)
	}
	return nil
}
