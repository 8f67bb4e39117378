package tray

import (
	"strings"

	"autoinput/internal/notify"
	"autoinput/internal/runner"
	"autoinput/internal/view"
)

// Display is what the tray shows for one controller status.
type Display struct {
	Title   string
	Tooltip string
	Button  string
	State   runner.State

	// Editable enables the Reset and Save entries.
	Editable bool
}

// Describe renders st for a tray titled title.
func Describe(title string, st runner.Status) Display {
	avail := view.Availability(st.State)
	button := view.ButtonLabel(st.State)

	lines := []string{
		title + " - " + st.State.String(),
		view.TimeLabel(st.Counters.ActiveSeconds),
		view.InputCountLabel(st.Counters.InputCount),
	}
	if st.Dirty {
		lines = append(lines, "Unsaved changes")
	}
	if button == "Scheduled" {
		button = "Cancel scheduled start"
	}
	return Display{
		Title:    title,
		Tooltip:  strings.Join(lines, "\n"),
		Button:   button,
		State:    st.State,
		Editable: avail[view.Reset] && avail[view.SaveConfig],
	}
}

// ConfirmQuit asks whether unsaved changes should be saved before quitting.
// It reports whether the application should quit: Yes saves first and
// stays open if the save fails, No quits without saving, Cancel stays.
func ConfirmQuit(dirty bool, n notify.Notifier, save func() error) bool {
	if !dirty {
		return true
	}
	switch n.Confirm("Save changes to the configuration before quitting?") {
	case notify.Yes:
		if err := save(); err != nil {
			n.Warn("Could not save the configuration: " + err.Error())
			return false
		}
		return true
	case notify.No:
		return true
	}
	return false
}

// ConfirmReset asks before counters and settings are reset.
func ConfirmReset(n notify.Notifier) bool {
	return n.Confirm("Reset counters and all settings to their defaults?") == notify.Yes
}
