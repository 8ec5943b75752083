// Package process terminates running processes whose names match blocked
// app rules: a graceful terminate first, a kill after the grace window.
package process

import (
	"context"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/haukened/lockin/internal/lockin/common/log"
	"github.com/haukened/lockin/internal/lockin/domain"
)

// DefaultGrace is how long a terminated process gets to exit.
const DefaultGrace = 500 * time.Millisecond

// Options configures an Enforcer.
type Options struct {
	Table     Table
	Grace     time.Duration
	CacheSize int
	Logger    log.Logger
	// SelfPID is never signalled; defaults to the current process.
	SelfPID int32
}

type (
	Result = domain.ProcessReport
	Skip   = domain.SkippedProcess
)

// Enforcer matches the process table against app rules.
type Enforcer struct {
	table       Table
	grace       time.Duration
	logger      log.Logger
	self        int32
	cache       matchCache
	fingerprint string
	wait        func(ctx context.Context, d time.Duration) error
}

// New returns an Enforcer for opts.
func New(opts Options) (*Enforcer, error) {
	cache, err := newMatchCache(opts.CacheSize)
	if err != nil {
		return nil, err
	}
	e := &Enforcer{
		table:  opts.Table,
		grace:  opts.Grace,
		logger: opts.Logger,
		self:   opts.SelfPID,
		cache:  cache,
		wait:   sleepCtx,
	}
	if e.table == nil {
		e.table = SystemTable{}
	}
	if e.grace <= 0 {
		e.grace = DefaultGrace
	}
	if e.logger == nil {
		e.logger = log.NewNoopLogger()
	}
	if e.self == 0 {
		e.self = int32(os.Getpid())
	}
	return e, nil
}

type target struct {
	proc Process
	name string
	rule string
}

// Enforce terminates every process matched by rules. Processes that exit
// on their own before being signalled count as vanished; processes that
// refuse signals are logged and reported in Result.Skipped. Only a failure
// to list processes is returned as an error.
func (e *Enforcer) Enforce(ctx context.Context, rules []domain.AppRule) (Result, error) {
	var res Result
	if len(rules) == 0 {
		return res, nil
	}
	e.resetCacheFor(rules)

	procs, err := e.table.List(ctx)
	if err != nil {
		return res, domain.Enforcement("process list", err)
	}

	var signalled []target
	for _, p := range procs {
		if p.PID() == e.self || p.PID() <= 1 {
			continue
		}
		name, err := p.Name(ctx)
		if err != nil || name == "" {
			continue
		}
		rule := e.match(name, rules)
		if rule == "" {
			continue
		}
		res.Matched++
		t := target{proc: p, name: name, rule: rule}
		if err := p.Terminate(ctx); err != nil {
			e.unsignalled(ctx, t, err, &res)
			continue
		}
		res.Terminated++
		signalled = append(signalled, t)
		e.logger.Info(map[string]any{"pid": p.PID(), "name": name, "rule": rule}, "process_terminated")
	}
	if len(signalled) == 0 {
		return res, nil
	}

	if err := e.wait(ctx, e.grace); err != nil {
		return res, err
	}
	for _, t := range signalled {
		running, err := t.proc.IsRunning(ctx)
		if err != nil || !running {
			continue
		}
		if err := t.proc.Kill(ctx); err != nil {
			e.unsignalled(ctx, t, err, &res)
			continue
		}
		res.Killed++
		e.logger.Warn(map[string]any{"pid": t.proc.PID(), "name": t.name, "rule": t.rule}, "process_force_killed")
	}
	return res, nil
}

// unsignalled classifies a failed signal: a process that is gone is fine,
// one that is still there is skipped.
func (e *Enforcer) unsignalled(ctx context.Context, t target, err error, res *Result) {
	if running, rerr := t.proc.IsRunning(ctx); rerr == nil && !running {
		res.Vanished++
		return
	}
	res.Skipped = append(res.Skipped, Skip{PID: t.proc.PID(), Name: t.name, Err: err})
	e.logger.Warn(map[string]any{"pid": t.proc.PID(), "name": t.name, "error": err}, "process_signal_failed")
}

func (e *Enforcer) match(name string, rules []domain.AppRule) string {
	key := strings.ToLower(name)
	if rule, ok := e.cache.Get(key); ok {
		return rule
	}
	rule := ""
	for _, r := range rules {
		if r.Matches(name) {
			rule = r.String()
			break
		}
	}
	e.cache.Put(key, rule)
	return rule
}

// resetCacheFor drops cached decisions when the rule set changes.
func (e *Enforcer) resetCacheFor(rules []domain.AppRule) {
	keys := make([]string, len(rules))
	for i, r := range rules {
		keys[i] = r.Key()
	}
	sort.Strings(keys)
	fp := strings.Join(keys, "\x00")
	if fp != e.fingerprint {
		e.cache.Purge()
		e.fingerprint = fp
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
