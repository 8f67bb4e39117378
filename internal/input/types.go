// Package input emits synthetic keyboard and mouse input.
package input

import (
	"errors"

	"autoinput/internal/keys"
)

// ErrUnsupported is returned by injectors on platforms without input injection.
var ErrUnsupported = errors.New("input injection not supported on this platform")

// Sink emits one unit of automated input. Calls are fire-and-forget from the
// caller's point of view; errors are only logged.
type Sink interface {
	// KeyPress presses and releases a keyboard key.
	KeyPress(k keys.Key) error

	// MouseClick presses and releases a mouse button.
	MouseClick(b keys.Key) error

	// Hold presses (down=true) or releases (down=false) a key or mouse button.
	Hold(k keys.Key, down bool) error
}

// Emit sends k through s as a click for mouse buttons and a key press
// otherwise.
func Emit(s Sink, k keys.Key) error {
	if k.IsMouse() {
		return s.MouseClick(k)
	}
	return s.KeyPress(k)
}
