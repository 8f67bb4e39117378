//go:build darwin

package input

import (
	"fmt"
	"strings"

	"github.com/go-vgo/robotgo"

	"autoinput/internal/keys"
)

// robotgoNames maps key names that differ from robotgo's vocabulary.
var robotgoNames = map[keys.Key]string{
	"Back":        "backspace",
	"Enter":       "enter",
	"ShiftKey":    "shift",
	"ControlKey":  "ctrl",
	"Menu":        "alt",
	"CapsLock":    "capslock",
	"Escape":      "esc",
	"PageUp":      "pageup",
	"PageDown":    "pagedown",
	"PrintScreen": "printscreen",
	"Multiply":    "num*",
	"Add":         "num+",
	"Subtract":    "num-",
	"Decimal":     "num.",
	"Divide":      "num/",
}

// Injector sends input through robotgo (CoreGraphics events).
type Injector struct{}

// NewInjector creates a robotgo injector.
func NewInjector() *Injector {
	return &Injector{}
}

// KeyPress taps a keyboard key.
func (i *Injector) KeyPress(k keys.Key) error {
	name, err := robotgoKey(k)
	if err != nil {
		return err
	}
	return robotgo.KeyTap(name)
}

// MouseClick clicks a mouse button at the current cursor position.
func (i *Injector) MouseClick(b keys.Key) error {
	name, err := robotgoButton(b)
	if err != nil {
		return err
	}
	robotgo.Click(name, false)
	return nil
}

// Hold presses or releases a key or mouse button.
func (i *Injector) Hold(k keys.Key, down bool) error {
	state := "up"
	if down {
		state = "down"
	}
	if k.IsMouse() {
		name, err := robotgoButton(k)
		if err != nil {
			return err
		}
		return robotgo.Toggle(name, state)
	}
	name, err := robotgoKey(k)
	if err != nil {
		return err
	}
	return robotgo.KeyToggle(name, state)
}

func robotgoButton(b keys.Key) (string, error) {
	switch b {
	case keys.LButton:
		return "left", nil
	case keys.RButton:
		return "right", nil
	case keys.MButton:
		return "center", nil
	}
	return "", fmt.Errorf("mouse click %s: not a mouse button", b)
}

func robotgoKey(k keys.Key) (string, error) {
	if !k.Valid() || k.IsMouse() {
		return "", fmt.Errorf("key press %s: %w", k, keys.ErrUnknownKey)
	}
	if name, ok := robotgoNames[k]; ok {
		return name, nil
	}
	s := string(k)
	switch {
	case len(s) == 2 && s[0] == 'D' && s[1] >= '0' && s[1] <= '9':
		return s[1:], nil
	case strings.HasPrefix(s, "NumPad"):
		return "num" + strings.TrimPrefix(s, "NumPad"), nil
	}
	return strings.ToLower(s), nil
}
