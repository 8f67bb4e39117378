//go:build darwin

package notify

import (
	"fmt"
	"os/exec"
	"strings"

	xlog "autoinput/internal/log"
)

// Dialog shows AppleScript dialogs through osascript.
type Dialog struct {
	title string
}

// NewDialog returns a dialog notifier whose dialogs carry title.
func NewDialog(title string) *Dialog {
	return &Dialog{title: title}
}

// Warn shows a modal alert.
func (d *Dialog) Warn(msg string) {
	script := fmt.Sprintf(`display alert %s message %s as warning`, quote(d.title), quote(msg))
	if _, err := exec.Command("osascript", "-e", script).Output(); err != nil {
		logger := xlog.WithComponent("notify")
		logger.Error().Err(err).Str("event", "notify.dialog_failed").Msg(msg)
	}
}

// Confirm shows a modal Yes/No/Cancel dialog. Closing or failing to show
// the dialog counts as Cancel.
func (d *Dialog) Confirm(msg string) Answer {
	script := fmt.Sprintf(`display dialog %s with title %s buttons {"Cancel", "No", "Yes"} default button "Yes" cancel button "Cancel"`,
		quote(msg), quote(d.title))
	out, err := exec.Command("osascript", "-e", script).Output()
	if err != nil {
		return Cancel
	}
	return parseButton(string(out))
}

func parseButton(out string) Answer {
	switch strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(out), "button returned:")) {
	case "Yes":
		return Yes
	case "No":
		return No
	}
	return Cancel
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
