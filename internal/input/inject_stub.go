//go:build !windows && !darwin

package input

import "autoinput/internal/keys"

// Injector is a stub on platforms without input injection.
type Injector struct{}

// NewInjector creates a new stub injector.
func NewInjector() *Injector {
	return &Injector{}
}

// KeyPress is unsupported on this platform.
func (i *Injector) KeyPress(k keys.Key) error { return ErrUnsupported }

// MouseClick is unsupported on this platform.
func (i *Injector) MouseClick(b keys.Key) error { return ErrUnsupported }

// Hold is unsupported on this platform.
func (i *Injector) Hold(k keys.Key, down bool) error { return ErrUnsupported }
