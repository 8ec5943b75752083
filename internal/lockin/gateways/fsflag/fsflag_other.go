//go:build !linux && !darwin

package fsflag

func (osFlagger) IsImmutable(path string) (bool, error) { return false, ErrUnsupported }
func (osFlagger) SetImmutable(path string) error        { return ErrUnsupported }
func (osFlagger) ClearImmutable(path string) error      { return ErrUnsupported }
