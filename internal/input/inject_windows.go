//go:build windows

package input

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"autoinput/internal/keys"
)

var (
	user32        = windows.NewLazySystemDLL("user32.dll")
	procSendInput = user32.NewProc("SendInput")
)

const (
	inputMouse    = 0
	inputKeyboard = 1

	keyEventFKeyUp = 0x0002

	mouseEventFLeftDown   = 0x0002
	mouseEventFLeftUp     = 0x0004
	mouseEventFRightDown  = 0x0008
	mouseEventFRightUp    = 0x0010
	mouseEventFMiddleDown = 0x0020
	mouseEventFMiddleUp   = 0x0040
)

// mouseInput mirrors MOUSEINPUT, the largest member of the INPUT union.
type mouseInput struct {
	dx          int32
	dy          int32
	mouseData   uint32
	dwFlags     uint32
	time        uint32
	dwExtraInfo uintptr
}

// keyboardInput mirrors KEYBDINPUT, padded to the size of mouseInput.
type keyboardInput struct {
	wVk         uint16
	wScan       uint16
	dwFlags     uint32
	time        uint32
	dwExtraInfo uintptr
	_           [8]byte
}

type mouseEvent struct {
	typ uint32
	mi  mouseInput
}

type keyboardEvent struct {
	typ uint32
	ki  keyboardInput
}

// Injector sends input with the Win32 SendInput API.
type Injector struct{}

// NewInjector creates a SendInput injector.
func NewInjector() *Injector {
	return &Injector{}
}

// KeyPress sends a key down and key up.
func (i *Injector) KeyPress(k keys.Key) error {
	vk := k.VK()
	if vk == 0 || k.IsMouse() {
		return fmt.Errorf("key press %s: %w", k, keys.ErrUnknownKey)
	}
	events := []keyboardEvent{
		{typ: inputKeyboard, ki: keyboardInput{wVk: vk}},
		{typ: inputKeyboard, ki: keyboardInput{wVk: vk, dwFlags: keyEventFKeyUp}},
	}
	return sendKeyboard(events)
}

// MouseClick sends a button down and button up.
func (i *Injector) MouseClick(b keys.Key) error {
	down, up, err := mouseFlags(b)
	if err != nil {
		return err
	}
	events := []mouseEvent{
		{typ: inputMouse, mi: mouseInput{dwFlags: down}},
		{typ: inputMouse, mi: mouseInput{dwFlags: up}},
	}
	return sendMouse(events)
}

// Hold sends only the down or the up half of a press.
func (i *Injector) Hold(k keys.Key, down bool) error {
	if k.IsMouse() {
		d, u, err := mouseFlags(k)
		if err != nil {
			return err
		}
		flags := u
		if down {
			flags = d
		}
		return sendMouse([]mouseEvent{{typ: inputMouse, mi: mouseInput{dwFlags: flags}}})
	}

	var flags uint32
	if !down {
		flags = keyEventFKeyUp
	}
	return sendKeyboard([]keyboardEvent{{typ: inputKeyboard, ki: keyboardInput{wVk: k.VK(), dwFlags: flags}}})
}

func mouseFlags(b keys.Key) (down, up uint32, err error) {
	switch b {
	case keys.LButton:
		return mouseEventFLeftDown, mouseEventFLeftUp, nil
	case keys.RButton:
		return mouseEventFRightDown, mouseEventFRightUp, nil
	case keys.MButton:
		return mouseEventFMiddleDown, mouseEventFMiddleUp, nil
	}
	return 0, 0, fmt.Errorf("mouse click %s: not a mouse button", b)
}

func sendKeyboard(events []keyboardEvent) error {
	n, _, err := procSendInput.Call(
		uintptr(len(events)),
		uintptr(unsafe.Pointer(&events[0])),
		unsafe.Sizeof(events[0]),
	)
	if int(n) != len(events) {
		return fmt.Errorf("SendInput: %w", err)
	}
	return nil
}

func sendMouse(events []mouseEvent) error {
	n, _, err := procSendInput.Call(
		uintptr(len(events)),
		uintptr(unsafe.Pointer(&events[0])),
		unsafe.Sizeof(events[0]),
	)
	if int(n) != len(events) {
		return fmt.Errorf("SendInput: %w", err)
	}
	return nil
}
