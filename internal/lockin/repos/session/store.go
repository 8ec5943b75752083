// Package session persists the single active Session record. The record is
// signed with the machine key, replaced atomically, and pinned with the
// file system immutability flag while it exists.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/haukened/lockin/internal/lockin/common/atomicfile"
	"github.com/haukened/lockin/internal/lockin/common/clock"
	"github.com/haukened/lockin/internal/lockin/common/log"
	"github.com/haukened/lockin/internal/lockin/domain"
	"github.com/haukened/lockin/internal/lockin/gateways/fsflag"
)

const (
	fileMode = 0o644
	dirMode  = 0o755
)

// Signer signs and verifies session records.
type Signer interface {
	Sign(domain.Session) string
	Verify(domain.Session) bool
}

// Options configures a Store.
type Options struct {
	Path   string
	Signer Signer // nil when no machine key could be derived
	Clock  clock.Clock
	Logger log.Logger
	Flag   fsflag.Flagger
	// Privileged reports whether the process may write the record.
	Privileged func() bool
}

// Store reads and writes the session record at a fixed path.
type Store struct {
	path       string
	signer     Signer
	clock      clock.Clock
	logger     log.Logger
	flag       fsflag.Flagger
	privileged func() bool
}

// ErrNoMachineKey is reported when no signer is configured.
var ErrNoMachineKey = errors.New("machine key unavailable")

// New returns a Store for opts.
func New(opts Options) *Store {
	s := &Store{
		path:       opts.Path,
		signer:     opts.Signer,
		clock:      opts.Clock,
		logger:     opts.Logger,
		flag:       opts.Flag,
		privileged: opts.Privileged,
	}
	if s.clock == nil {
		s.clock = clock.RealClock{}
	}
	if s.logger == nil {
		s.logger = log.NewNoopLogger()
	}
	if s.flag == nil {
		s.flag = fsflag.OS()
	}
	if s.privileged == nil {
		s.privileged = func() bool { return false }
	}
	return s
}

// Path returns the location of the session record.
func (s *Store) Path() string { return s.path }

// Create starts a session for profile now. It requires elevation, refuses
// while another valid session is running, and returns the signed record as
// written.
func (s *Store) Create(profile string, set domain.BlockSet, duration time.Duration) (domain.Session, error) {
	if !s.privileged() {
		return domain.Session{}, &domain.PrivilegeError{Op: "session start"}
	}
	if duration < time.Second {
		return domain.Session{}, domain.Configf("session duration must be at least one second, got %s", duration)
	}
	if duration > domain.MaxSessionDuration {
		return domain.Session{}, domain.Configf("session duration must be at most %s, got %s", domain.MaxSessionDuration, duration)
	}
	if s.signer == nil {
		return domain.Session{}, &domain.IntegrityError{Msg: "cannot sign session", Err: ErrNoMachineKey}
	}

	now := s.clock.Now()
	if cur, ok, _ := s.Load(); ok && stillRunning(cur, now) {
		return domain.Session{}, fmt.Errorf("%w: profile %s until %s", domain.ErrSessionActive,
			cur.Profile, cur.EndsAt().Local().Format(time.Kitchen))
	}

	sess := domain.NewSession(profile, set, now, duration)
	sess.Signature = s.signer.Sign(sess)
	if err := s.write(sess); err != nil {
		return domain.Session{}, err
	}
	s.logger.Info(map[string]any{
		"profile":  sess.Profile,
		"domains":  len(sess.Domains),
		"apps":     len(sess.Apps),
		"duration": duration.String(),
	}, "session_created")
	return sess, nil
}

// A session whose wall clock runs behind its start is still running.
func stillRunning(sess domain.Session, now time.Time) bool {
	e := sess.Elapsed(now)
	return e < 0 || e <= sess.Duration()
}

func (s *Store) write(sess domain.Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(s.path), dirMode); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	if err := s.clearFlag(); err != nil {
		return err
	}
	if err := atomicfile.Write(s.path, data, fileMode); err != nil {
		return err
	}
	if _, err := s.Protect(); err != nil {
		s.logger.Warn(map[string]any{"path": s.path, "error": err}, "session_flag_failed")
	}
	return nil
}

// Load reads and verifies the record. The boolean is false whenever there
// is no usable session: missing, undecodable or mis-signed. The error
// explains why for logging; callers must not branch on it beyond that.
func (s *Store) Load() (domain.Session, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("reading session: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return domain.Session{}, false, &domain.IntegrityError{Msg: "decoding session", Err: err}
	}
	if s.signer == nil {
		return domain.Session{}, false, &domain.IntegrityError{Msg: "cannot verify session", Err: ErrNoMachineKey}
	}
	if !s.signer.Verify(sess) {
		return domain.Session{}, false, &domain.IntegrityError{Msg: "session signature mismatch"}
	}
	if !sess.HasValidDuration() {
		return domain.Session{}, false, &domain.IntegrityError{
			Msg: fmt.Sprintf("session duration out of range: %ds", sess.DurationSeconds),
		}
	}
	return sess, true, nil
}

// Delete removes the record. Only the watchdog calls it, on verified expiry.
func (s *Store) Delete() error {
	if !s.privileged() {
		return &domain.PrivilegeError{Op: "session delete"}
	}
	if err := s.clearFlag(); err != nil {
		return err
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing session: %w", err)
	}
	s.logger.Info(map[string]any{"path": s.path}, "session_deleted")
	return nil
}

// Protect sets the immutability flag on the record if it is missing. It
// reports whether the flag had to be restored. A file system without the
// flag is not an error.
func (s *Store) Protect() (bool, error) {
	on, err := s.flag.IsImmutable(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fsflag.ErrUnsupported):
		return false, nil
	case err != nil:
		return false, domain.Enforcement("session flag read", err)
	case on:
		return false, nil
	}
	if err := s.flag.SetImmutable(s.path); err != nil {
		if errors.Is(err, fsflag.ErrUnsupported) {
			return false, nil
		}
		return false, domain.Enforcement("session flag set", err)
	}
	return true, nil
}

func (s *Store) clearFlag() error {
	err := s.flag.ClearImmutable(s.path)
	if err == nil || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fsflag.ErrUnsupported) {
		return nil
	}
	return fmt.Errorf("clearing session flag: %w", err)
}
