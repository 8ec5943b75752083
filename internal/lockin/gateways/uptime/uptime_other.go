//go:build !linux && !darwin

package uptime

import "time"

func sinceBoot() (time.Duration, error) { return 0, ErrUnsupported }

func bootID() (string, error) { return "", ErrUnsupported }
