package signer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"regexp"
	"strings"
)

// HardwareIDSource yields a stable identifier for the machine.
type HardwareIDSource interface {
	HardwareID(ctx context.Context) (string, error)
}

// FileSource reads the first non-empty file of Paths. It covers
// /etc/machine-id and the DMI product UUID on Linux.
type FileSource struct {
	Paths []string
}

// DefaultLinuxPaths are consulted in order by the Linux source.
var DefaultLinuxPaths = []string{
	"/etc/machine-id",
	"/var/lib/dbus/machine-id",
	"/sys/class/dmi/id/product_uuid",
}

func (s FileSource) HardwareID(_ context.Context) (string, error) {
	for _, p := range s.Paths {
		data, err := os.ReadFile(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
				continue
			}
			return "", fmt.Errorf("reading %s: %w", p, err)
		}
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	}
	return "", ErrNoHardwareID
}

var platformUUID = regexp.MustCompile(`"IOPlatformUUID"\s*=\s*"([^"]+)"`)

// IORegSource asks ioreg for the IOPlatformUUID on macOS.
type IORegSource struct {
	// Command overrides the ioreg invocation in tests.
	Command []string
}

func (s IORegSource) HardwareID(ctx context.Context) (string, error) {
	argv := s.Command
	if len(argv) == 0 {
		argv = []string{"ioreg", "-rd1", "-c", "IOPlatformExpertDevice"}
	}
	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).Output()
	if err != nil {
		return "", fmt.Errorf("running %s: %w", argv[0], err)
	}
	return parseIOReg(string(out))
}

func parseIOReg(out string) (string, error) {
	m := platformUUID.FindStringSubmatch(out)
	if m == nil {
		return "", ErrNoHardwareID
	}
	return m[1], nil
}

// MachineKey derives the Machine Key from src.
func MachineKey(ctx context.Context, src HardwareIDSource) ([]byte, error) {
	id, err := src.HardwareID(ctx)
	if err != nil {
		return nil, err
	}
	return DeriveKey(id)
}
