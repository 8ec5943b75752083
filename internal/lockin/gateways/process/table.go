package process

import (
	"context"

	gopsprocess "github.com/shirou/gopsutil/v4/process"
)

// Process is the view of a running process the enforcer needs.
type Process interface {
	PID() int32
	Name(ctx context.Context) (string, error)
	Terminate(ctx context.Context) error
	Kill(ctx context.Context) error
	IsRunning(ctx context.Context) (bool, error)
}

// Table lists running processes.
type Table interface {
	List(ctx context.Context) ([]Process, error)
}

// SystemTable reads the live process table through gopsutil.
type SystemTable struct{}

func (SystemTable) List(ctx context.Context) ([]Process, error) {
	procs, err := gopsprocess.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Process, len(procs))
	for i, p := range procs {
		out[i] = systemProcess{p}
	}
	return out, nil
}

type systemProcess struct {
	p *gopsprocess.Process
}

func (s systemProcess) PID() int32 { return s.p.Pid }

func (s systemProcess) Name(ctx context.Context) (string, error) { return s.p.NameWithContext(ctx) }

func (s systemProcess) Terminate(ctx context.Context) error { return s.p.TerminateWithContext(ctx) }

func (s systemProcess) Kill(ctx context.Context) error { return s.p.KillWithContext(ctx) }

func (s systemProcess) IsRunning(ctx context.Context) (bool, error) {
	return s.p.IsRunningWithContext(ctx)
}

var _ Table = SystemTable{}
