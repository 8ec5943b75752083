package hosts

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"go.uber.org/multierr"
)

// Flusher drops the platform's resolver cache after a hosts rewrite.
type Flusher interface {
	Flush(ctx context.Context) error
}

// CommandFlusher runs each command in turn and reports every failure.
type CommandFlusher struct {
	Commands [][]string
	run      func(ctx context.Context, argv []string) error
}

// DefaultFlusher returns the cache flush for the running platform.
func DefaultFlusher() *CommandFlusher {
	switch runtime.GOOS {
	case "darwin":
		return &CommandFlusher{Commands: [][]string{
			{"dscacheutil", "-flushcache"},
			{"killall", "-HUP", "mDNSResponder"},
		}}
	case "linux":
		return &CommandFlusher{Commands: [][]string{
			{"resolvectl", "flush-caches"},
		}}
	default:
		return &CommandFlusher{}
	}
}

func (f *CommandFlusher) Flush(ctx context.Context) error {
	run := f.run
	if run == nil {
		run = runCommand
	}
	var errs error
	for _, argv := range f.Commands {
		if len(argv) == 0 {
			continue
		}
		errs = multierr.Append(errs, run(ctx, argv))
	}
	return errs
}

func runCommand(ctx context.Context, argv []string) error {
	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w (%s)", argv[0], err, out)
	}
	return nil
}

type nopFlusher struct{}

func (nopFlusher) Flush(context.Context) error { return nil }

// NopFlusher returns a Flusher that does nothing.
func NopFlusher() Flusher { return nopFlusher{} }
