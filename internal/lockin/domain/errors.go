package domain

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Every typed error below matches exactly one of these
// through errors.Is, so callers can branch on the kind without caring
// about the concrete type.
var (
	ErrConfig      = errors.New("config error")
	ErrIntegrity   = errors.New("integrity error")
	ErrEnforcement = errors.New("enforcement error")
	ErrPrivilege   = errors.New("privilege error")
)

// ErrSessionActive is returned when a session start is attempted while a
// valid, unexpired session exists.
var ErrSessionActive = errors.New("a session is already active")

// ConfigError reports an unknown preset, a malformed profile or an invalid
// setting. It is raised at resolve time and never downgraded to a warning.
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string     { return joinMsg("config", e.Msg, e.Err) }
func (e *ConfigError) Unwrap() error     { return e.Err }
func (e *ConfigError) Is(err error) bool { return err == ErrConfig }

// IntegrityError reports a session record whose signature does not verify
// or which cannot be decoded.
type IntegrityError struct {
	Msg string
	Err error
}

func (e *IntegrityError) Error() string     { return joinMsg("integrity", e.Msg, e.Err) }
func (e *IntegrityError) Unwrap() error     { return e.Err }
func (e *IntegrityError) Is(err error) bool { return err == ErrIntegrity }

// EnforcementError reports a single failed enforcement action for this
// cycle. It is logged and retried on the next cycle.
type EnforcementError struct {
	Op  string
	Err error
}

func (e *EnforcementError) Error() string     { return joinMsg("enforcement", e.Op, e.Err) }
func (e *EnforcementError) Unwrap() error     { return e.Err }
func (e *EnforcementError) Is(err error) bool { return err == ErrEnforcement }

// PrivilegeError reports an operation that requires elevation attempted
// without it. No state is written when it is returned.
type PrivilegeError struct {
	Op string
}

func (e *PrivilegeError) Error() string {
	return fmt.Sprintf("privilege: %s requires elevated privileges", e.Op)
}
func (e *PrivilegeError) Is(err error) bool { return err == ErrPrivilege }

// Configf builds a ConfigError from a format string.
func Configf(format string, args ...any) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// Enforcement wraps err as an EnforcementError for op. A nil err yields nil.
func Enforcement(op string, err error) error {
	if err == nil {
		return nil
	}
	return &EnforcementError{Op: op, Err: err}
}

func joinMsg(kind, msg string, err error) string {
	switch {
	case msg != "" && err != nil:
		return fmt.Sprintf("%s: %s: %v", kind, msg, err)
	case err != nil:
		return fmt.Sprintf("%s: %v", kind, err)
	default:
		return fmt.Sprintf("%s: %s", kind, msg)
	}
}
