//go:build darwin

package uptime

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// sinceBoot reads CLOCK_MONOTONIC, which on Darwin is backed by
// mach_continuous_time and keeps counting while asleep.
func sinceBoot() (time.Duration, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0, fmt.Errorf("reading boot clock: %w", err)
	}
	return time.Duration(ts.Nano()), nil
}

func bootID() (string, error) {
	id, err := unix.Sysctl("kern.bootsessionuuid")
	if err != nil {
		return "", fmt.Errorf("reading boot id: %w", err)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("empty kern.bootsessionuuid")
	}
	return id, nil
}
