//go:build darwin

package signer

// DefaultSource returns the platform hardware identifier source. The
// paths argument is ignored on macOS.
func DefaultSource(_ []string) HardwareIDSource { return IORegSource{} }
