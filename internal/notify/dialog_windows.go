//go:build windows

package notify

import (
	"golang.org/x/sys/windows"

	xlog "autoinput/internal/log"
)

const (
	mbOK           = 0x00000000
	mbYesNoCancel  = 0x00000003
	mbIconWarning  = 0x00000030
	mbIconQuestion = 0x00000020
	mbTopmost      = 0x00040000

	idYes = 6
	idNo  = 7
)

// Dialog shows native message boxes.
type Dialog struct {
	title string
}

// NewDialog returns a dialog notifier whose boxes carry title.
func NewDialog(title string) *Dialog {
	return &Dialog{title: title}
}

// Warn shows a modal warning box.
func (d *Dialog) Warn(msg string) {
	d.show(msg, mbOK|mbIconWarning)
}

// Confirm shows a modal Yes/No/Cancel box.
func (d *Dialog) Confirm(msg string) Answer {
	switch d.show(msg, mbYesNoCancel|mbIconQuestion) {
	case idYes:
		return Yes
	case idNo:
		return No
	}
	return Cancel
}

func (d *Dialog) show(msg string, style uint32) int32 {
	text, err := windows.UTF16PtrFromString(msg)
	if err != nil {
		return 0
	}
	caption, err := windows.UTF16PtrFromString(d.title)
	if err != nil {
		return 0
	}
	ret, err := windows.MessageBox(0, text, caption, style|mbTopmost)
	if ret == 0 {
		logger := xlog.WithComponent("notify")
		logger.Error().Err(err).Str("event", "notify.dialog_failed").Msg(msg)
	}
	return ret
}
