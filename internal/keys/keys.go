// Package keys names the keyboard keys and mouse buttons that can be bound
// as the start/stop hotkey or emitted as automated input.
package keys

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Key is the canonical name of a key or mouse button (e.g. "F8", "LButton").
type Key string

// Well-known keys.
const (
	None    Key = "None"
	LButton Key = "LButton"
	RButton Key = "RButton"
	MButton Key = "MButton"
	F8      Key = "F8"
)

// ErrUnknownKey is returned by Parse for names that do not map to a key.
var ErrUnknownKey = errors.New("unknown key")

// vkCodes maps canonical names to Windows virtual-key codes.
var vkCodes = map[Key]uint16{
	None:          0x00,
	LButton:       0x01,
	RButton:       0x02,
	MButton:       0x04,
	"Back":        0x08,
	"Tab":         0x09,
	"Enter":       0x0D,
	"ShiftKey":    0x10,
	"ControlKey":  0x11,
	"Menu":        0x12,
	"Pause":       0x13,
	"CapsLock":    0x14,
	"Escape":      0x1B,
	"Space":       0x20,
	"PageUp":      0x21,
	"PageDown":    0x22,
	"End":         0x23,
	"Home":        0x24,
	"Left":        0x25,
	"Up":          0x26,
	"Right":       0x27,
	"Down":        0x28,
	"PrintScreen": 0x2C,
	"Insert":      0x2D,
	"Delete":      0x2E,
	"Multiply":    0x6A,
	"Add":         0x6B,
	"Subtract":    0x6D,
	"Decimal":     0x6E,
	"Divide":      0x6F,
	"Scroll":      0x91,
}

// aliases maps upper-cased alternative spellings to canonical names.
var aliases = map[string]Key{
	"MOUSE1":     LButton,
	"MOUSE2":     MButton,
	"MOUSE3":     RButton,
	"BACKSPACE":  "Back",
	"RETURN":     "Enter",
	"ESC":        "Escape",
	"SHIFT":      "ShiftKey",
	"CTRL":       "ControlKey",
	"CONTROL":    "ControlKey",
	"ALT":        "Menu",
	"CAPITAL":    "CapsLock",
	"PRIOR":      "PageUp",
	"NEXT":       "PageDown",
	"SNAPSHOT":   "PrintScreen",
	"SCROLLLOCK": "Scroll",
}

var (
	byUpper map[string]Key
	byVK    map[uint16]Key
)

func init() {
	for c := 'A'; c <= 'Z'; c++ {
		vkCodes[Key(string(c))] = uint16(c)
	}
	for d := 0; d <= 9; d++ {
		vkCodes[Key(fmt.Sprintf("D%d", d))] = uint16(0x30 + d)
		vkCodes[Key(fmt.Sprintf("NumPad%d", d))] = uint16(0x60 + d)
		aliases[fmt.Sprint(d)] = Key(fmt.Sprintf("D%d", d))
	}
	for f := 1; f <= 24; f++ {
		vkCodes[Key(fmt.Sprintf("F%d", f))] = uint16(0x6F + f)
	}

	byUpper = make(map[string]Key, len(vkCodes)+len(aliases))
	byVK = make(map[uint16]Key, len(vkCodes))
	for k, vk := range vkCodes {
		byUpper[strings.ToUpper(string(k))] = k
		byVK[vk] = k
	}
	for alias, k := range aliases {
		byUpper[alias] = k
	}
}

// Parse resolves a key name case-insensitively, accepting common aliases
// ("Esc", "Mouse1", "5").
func Parse(name string) (Key, error) {
	k, ok := byUpper[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return None, fmt.Errorf("%w: %q", ErrUnknownKey, name)
	}
	return k, nil
}

// MustParse is like Parse but panics on unknown names.
func MustParse(name string) Key {
	k, err := Parse(name)
	if err != nil {
		panic(err)
	}
	return k
}

// FromVK returns the key for a Windows virtual-key code, or None.
func FromVK(vk uint16) Key {
	if k, ok := byVK[vk]; ok {
		return k
	}
	return None
}

// VK returns the Windows virtual-key code of k (0 for unknown keys).
func (k Key) VK() uint16 {
	return vkCodes[k]
}

// Valid reports whether k is a known key other than None.
func (k Key) Valid() bool {
	_, ok := vkCodes[k]
	return ok && k != None
}

// IsMouse reports whether k is a mouse button.
func (k Key) IsMouse() bool {
	return k == LButton || k == RButton || k == MButton
}

// Equal compares two keys by canonical identity.
func (k Key) Equal(other Key) bool {
	return strings.EqualFold(string(k), string(other))
}

func (k Key) String() string {
	return string(k)
}

// All returns every known key except None, sorted by name.
func All() []Key {
	out := make([]Key, 0, len(vkCodes))
	for k := range vkCodes {
		if k != None {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
