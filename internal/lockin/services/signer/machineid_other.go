//go:build !darwin

package signer

// DefaultSource returns the platform hardware identifier source, reading
// paths in order or DefaultLinuxPaths when paths is empty.
func DefaultSource(paths []string) HardwareIDSource {
	if len(paths) == 0 {
		paths = DefaultLinuxPaths
	}
	return FileSource{Paths: paths}
}
