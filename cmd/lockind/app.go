package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/haukened/lockin/internal/lockin/common/clock"
	"github.com/haukened/lockin/internal/lockin/common/log"
	"github.com/haukened/lockin/internal/lockin/common/privilege"
	"github.com/haukened/lockin/internal/lockin/config"
	"github.com/haukened/lockin/internal/lockin/domain"
	"github.com/haukened/lockin/internal/lockin/gateways/fsflag"
	"github.com/haukened/lockin/internal/lockin/gateways/hosts"
	"github.com/haukened/lockin/internal/lockin/gateways/process"
	"github.com/haukened/lockin/internal/lockin/gateways/uptime"
	"github.com/haukened/lockin/internal/lockin/repos/catalog"
	"github.com/haukened/lockin/internal/lockin/repos/cyclestate"
	"github.com/haukened/lockin/internal/lockin/repos/profiles"
	"github.com/haukened/lockin/internal/lockin/repos/session"
	"github.com/haukened/lockin/internal/lockin/services/resolver"
	"github.com/haukened/lockin/internal/lockin/services/signer"
	"github.com/haukened/lockin/internal/lockin/services/watchdog"
)

// machineKeyTimeout bounds the hardware identifier lookup.
const machineKeyTimeout = 5 * time.Second

// platform holds the operating-system seams. Tests swap them for fakes.
type platform struct {
	Flag      fsflag.Flagger
	Flusher   hosts.Flusher
	Table     process.Table
	IDSource  signer.HardwareIDSource
	Clock     clock.Clock
	BootClock uptime.Source
	// Package lists the installed files pinned while a session runs.
	Package    []string
	Privileged func() bool
}

func systemPlatform(cfg *config.AppConfig) platform {
	return platform{
		Flag:       fsflag.OS(),
		Flusher:    hosts.DefaultFlusher(),
		Table:      process.SystemTable{},
		IDSource:   signer.DefaultSource(cfg.MachineIDFiles),
		Clock:      clock.RealClock{},
		BootClock:  uptime.System(),
		Package:    installedExecutable(),
		Privileged: privilege.IsElevated,
	}
}

// installedExecutable resolves the running binary. A binary that cannot be
// located is simply not pinned.
func installedExecutable() []string {
	exe, err := os.Executable()
	if err != nil {
		return nil
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return []string{exe}
}

// Application holds every component the commands need. The cycle state
// database is opened only by the watchdog command.
type Application struct {
	config   *config.AppConfig
	platform platform
	logger   log.Logger

	catalog  *domain.Catalog
	profiles *profiles.Repository
	resolver *resolver.Resolver
	sessions *session.Store
	blocker  *hosts.Blocker
	enforcer *process.Enforcer
}

// buildApplication constructs all components and wires them together.
func buildApplication(ctx context.Context, cfg *config.AppConfig, p platform) (*Application, error) {
	logger := log.GetLogger()

	cat, err := catalog.Builtin()
	if err != nil {
		return nil, fmt.Errorf("loading preset catalog: %w", err)
	}

	// A missing machine key leaves the store without a signer: records
	// cannot be created and existing ones read as absent.
	var sg session.Signer
	keyCtx, cancel := context.WithTimeout(ctx, machineKeyTimeout)
	key, err := signer.MachineKey(keyCtx, p.IDSource)
	cancel()
	if err != nil {
		logger.Warn(map[string]any{"error": err}, "machine_key_unavailable")
	} else {
		sg = signer.New(key)
	}

	enforcer, err := process.New(process.Options{
		Table:     p.Table,
		Grace:     cfg.GraceWindow,
		CacheSize: cfg.MatchCacheSize,
		Logger:    logger.Named("process"),
		SelfPID:   int32(os.Getpid()),
	})
	if err != nil {
		return nil, fmt.Errorf("building process enforcer: %w", err)
	}

	return &Application{
		config:   cfg,
		platform: p,
		logger:   logger,
		catalog:  cat,
		profiles: profiles.New(cfg.ProfilesFile, logger.Named("profiles")),
		resolver: resolver.New(cat),
		sessions: session.New(session.Options{
			Path:       cfg.SessionFile,
			Signer:     sg,
			Clock:      p.Clock,
			Logger:     logger.Named("session"),
			Flag:       p.Flag,
			Privileged: p.Privileged,
		}),
		blocker: hosts.New(hosts.Options{
			Path:    cfg.HostsFile,
			Flag:    p.Flag,
			Flusher: p.Flusher,
			Logger:  logger.Named("hosts"),
		}),
		enforcer: enforcer,
	}, nil
}

// alwaysSource resolves the always-blocked list from the profile file on
// every call, so edits apply on the next cycle.
type alwaysSource struct {
	profiles *profiles.Repository
	resolver *resolver.Resolver
}

func (a alwaysSource) AlwaysBlocked() (domain.BlockSet, error) {
	ab, err := a.profiles.AlwaysBlocked()
	if err != nil {
		return domain.BlockSet{}, err
	}
	return a.resolver.ResolveAlways(ab)
}

// newWatchdog opens the cycle state database and builds the watchdog. The
// returned closer releases the database lock.
func (a *Application) newWatchdog() (*watchdog.Watchdog, func() error, error) {
	if !a.platform.Privileged() {
		return nil, nil, &domain.PrivilegeError{Op: "run the watchdog"}
	}
	cycles, err := cyclestate.Open(a.config.StateDB)
	if err != nil {
		return nil, nil, err
	}
	w := watchdog.New(watchdog.Options{
		Sessions:    a.sessions,
		Blocker:     a.blocker,
		Enforcer:    a.enforcer,
		Cycles:      cycles,
		Always:      alwaysSource{profiles: a.profiles, resolver: a.resolver},
		Clock:       a.platform.Clock,
		BootClock:   a.platform.BootClock,
		Package:     fsflag.NewGuard(a.platform.Flag, a.platform.Package...),
		Logger:      a.logger.Named("watchdog"),
		Privileged:  a.platform.Privileged,
		Interval:    a.config.Interval,
		StepTimeout: a.config.StepTimeout,
	})
	return w, cycles.Close, nil
}

// startResult is what a successful start reports back to the user.
type startResult struct {
	Session   domain.Session
	Processes domain.ProcessReport
}

// Start resolves the named profile, records a signed session and enforces
// it once. The watchdog takes over from the next cycle.
func (a *Application) Start(ctx context.Context, name string, duration time.Duration) (startResult, error) {
	if !a.platform.Privileged() {
		return startResult{}, &domain.PrivilegeError{Op: "start a session"}
	}
	cfg, err := a.profiles.Load()
	if err != nil {
		return startResult{}, err
	}
	prof, ok := cfg.Profile(name)
	if !ok {
		return startResult{}, domain.Configf("unknown profile %q", name)
	}
	if prof.IsEmpty() {
		return startResult{}, domain.Configf("profile %q blocks nothing", name)
	}
	set, err := a.resolver.Resolve(prof)
	if err != nil {
		return startResult{}, err
	}

	// A broken always-blocked list must not prevent a session.
	always, err := alwaysSource{profiles: a.profiles, resolver: a.resolver}.AlwaysBlocked()
	if err != nil {
		a.logger.Warn(map[string]any{"error": err}, "always_blocked_unusable")
		always = domain.BlockSet{}
	}

	sess, err := a.sessions.Create(name, set, duration)
	if err != nil {
		return startResult{}, err
	}
	res := startResult{Session: sess}

	cur, err := a.blocker.Current()
	if err != nil {
		return res, err
	}
	region := domain.ManagedRegion{
		Session: append(append([]string(nil), cur.Session...), sess.Domains...),
		Always:  always.Domains,
	}.Normalize()
	if err := a.blocker.Apply(ctx, region); err != nil {
		return res, err
	}

	res.Processes, err = a.enforcer.Enforce(ctx, sess.BlockSet().Union(always).AppRules())
	return res, err
}

// Status summarizes the session record. It needs no privilege.
func (a *Application) Status() domain.Status {
	return watchdog.CurrentStatus(a.sessions, a.platform.Clock.Now())
}
