//go:build !unix

package privilege

// IsElevated always reports false where no elevation model is implemented.
func IsElevated() bool {
	return false
}
