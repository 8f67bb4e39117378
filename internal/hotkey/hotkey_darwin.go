//go:build darwin

package hotkey

/*
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation -framework ApplicationServices
#include <CoreGraphics/CoreGraphics.h>
#include <CoreFoundation/CoreFoundation.h>
#include <stdint.h>

CGEventRef eventCallback(CGEventTapProxy proxy, CGEventType type, CGEventRef event, void *refcon);

// startEventTap blocks running the tap's run loop. It returns 0 when the
// tap cannot be created, usually because Accessibility access is missing.
static inline int startEventTap(uintptr_t refcon) {
    CGEventMask mask = CGEventMaskBit(kCGEventKeyDown) |
                       CGEventMaskBit(kCGEventKeyUp) |
                       CGEventMaskBit(kCGEventFlagsChanged);
    CFMachPortRef tap = CGEventTapCreate(
        kCGSessionEventTap,
        kCGHeadInsertEventTap,
        kCGEventTapOptionListenOnly,
        mask,
        eventCallback,
        (void*)refcon
    );
    if (!tap) {
        return 0;
    }

    CFRunLoopSourceRef source = CFMachPortCreateRunLoopSource(kCFAllocatorDefault, tap, 0);
    CFRunLoopAddSource(CFRunLoopGetCurrent(), source, kCFRunLoopCommonModes);
    CGEventTapEnable(tap, true);
    CFRunLoopRun();
    return 1;
}
*/
import "C"
import (
	"runtime/cgo"
	"unsafe"

	"autoinput/internal/keys"
)

//export eventCallback
func eventCallback(proxy C.CGEventTapProxy, eventType C.CGEventType, event C.CGEventRef, refcon unsafe.Pointer) C.CGEventRef {
	h := cgo.Handle(uintptr(refcon))
	m := h.Value().(*Manager)

	keyCode := uint16(C.CGEventGetIntegerValueField(event, C.kCGKeyboardEventKeycode))

	switch eventType {
	case C.kCGEventKeyDown, C.kCGEventKeyUp:
		if k, ok := macKeyCodes[keyCode]; ok {
			m.UpdateState(k, eventType == C.kCGEventKeyDown)
		}

	case C.kCGEventFlagsChanged:
		flags := C.CGEventGetFlags(event)
		switch keyCode {
		case 56, 60:
			m.UpdateState("ShiftKey", (flags&C.kCGEventFlagMaskShift) != 0)
		case 58, 61:
			m.UpdateState("Menu", (flags&C.kCGEventFlagMaskAlternate) != 0)
		case 59, 62:
			m.UpdateState("ControlKey", (flags&C.kCGEventFlagMaskControl) != 0)
		case 57:
			m.UpdateState("CapsLock", (flags&C.kCGEventFlagMaskAlphaShift) != 0)
		}
	}

	return event
}

func (m *Manager) startPlatform() error {
	handle := cgo.NewHandle(m)
	go func() {
		m.logger.Info().Str("event", "hotkey.started").Msg("macOS event tap starting")
		if C.startEventTap(C.uintptr_t(handle)) == 0 {
			m.logger.Error().Str("event", "hotkey.hook_failed").Msg("failed to create event tap, check Accessibility permissions")
		}
		handle.Delete()
	}()
	return nil
}

// macKeyCodes maps macOS virtual key codes to key names.
var macKeyCodes = map[uint16]keys.Key{
	0: "A", 11: "B", 8: "C", 2: "D", 14: "E", 3: "F", 5: "G", 4: "H",
	34: "I", 38: "J", 40: "K", 37: "L", 46: "M", 45: "N", 31: "O", 35: "P",
	12: "Q", 15: "R", 1: "S", 17: "T", 32: "U", 9: "V", 13: "W", 7: "X",
	16: "Y", 6: "Z",

	29: "D0", 18: "D1", 19: "D2", 20: "D3", 21: "D4",
	23: "D5", 22: "D6", 26: "D7", 28: "D8", 25: "D9",

	82: "NumPad0", 83: "NumPad1", 84: "NumPad2", 85: "NumPad3", 86: "NumPad4",
	87: "NumPad5", 88: "NumPad6", 89: "NumPad7", 91: "NumPad8", 92: "NumPad9",
	67: "Multiply", 69: "Add", 78: "Subtract", 65: "Decimal", 75: "Divide",

	122: "F1", 120: "F2", 99: "F3", 118: "F4", 96: "F5", 97: "F6",
	98: "F7", 100: "F8", 101: "F9", 109: "F10", 103: "F11", 111: "F12",
	105: "F13", 107: "F14", 113: "F15", 106: "F16", 64: "F17", 79: "F18",
	80: "F19", 90: "F20",

	49: "Space", 36: "Enter", 53: "Escape", 48: "Tab", 51: "Back",
	117: "Delete", 115: "Home", 119: "End", 116: "PageUp", 121: "PageDown",
	123: "Left", 124: "Right", 125: "Down", 126: "Up",
}
