package fsflag

import (
	"os"
	"sync"
)

// Memory is an in-process Flagger. It tracks the attribute per path and
// refuses to flag paths that do not exist, mirroring the OS behaviour. It
// backs tests and unprivileged dry runs.
type Memory struct {
	mu    sync.Mutex
	flags map[string]bool
	// SetErr, when non-nil, is returned by SetImmutable.
	SetErr error
}

// NewMemory returns an empty Memory flagger.
func NewMemory() *Memory {
	return &Memory{flags: make(map[string]bool)}
}

func (m *Memory) IsImmutable(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flags[path], nil
}

func (m *Memory) SetImmutable(path string) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	if _, err := os.Stat(path); err != nil {
		return err
	}
	m.mu.Lock()
	m.flags[path] = true
	m.mu.Unlock()
	return nil
}

func (m *Memory) ClearImmutable(path string) error {
	m.mu.Lock()
	delete(m.flags, path)
	m.mu.Unlock()
	return nil
}

var _ Flagger = (*Memory)(nil)
