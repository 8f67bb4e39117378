// Package view derives what the user interface shows from controller state:
// which controls are enabled and the text of status labels.
package view

import (
	"fmt"
	"math"

	"autoinput/internal/config"
	"autoinput/internal/runner"
)

// Control identifies a user-facing control.
type Control string

const (
	StartStop     Control = "startStop"
	Reset         Control = "reset"
	Interval      Control = "interval"
	ScheduleStart Control = "scheduleStart"
	ScheduleStop  Control = "scheduleStop"
	RunMode       Control = "runMode"
	RunCount      Control = "runCount"
	SequenceEdit  Control = "sequenceEdit"
	SequenceMode  Control = "sequenceMode"
	HoldTarget    Control = "holdTarget"
	Hotkey        Control = "hotkey"
	Target        Control = "target"
	SaveConfig    Control = "saveConfig"
	LoadConfig    Control = "loadConfig"
	ConfigFolder  Control = "configFolder"
)

// Controls lists every control in display order.
var Controls = []Control{
	StartStop, Reset, Interval, ScheduleStart, ScheduleStop, RunMode, RunCount,
	SequenceEdit, SequenceMode, HoldTarget, Hotkey, Target, SaveConfig,
	LoadConfig, ConfigFolder,
}

// availability holds the enabled flag of every control per run state.
// Only the start/stop button stays usable outside Idle.
var availability = func() map[runner.State]map[Control]bool {
	table := make(map[runner.State]map[Control]bool, 3)
	for _, s := range []runner.State{runner.Idle, runner.Running, runner.Scheduled} {
		row := make(map[Control]bool, len(Controls))
		for _, c := range Controls {
			row[c] = s == runner.Idle || c == StartStop
		}
		table[s] = row
	}
	return table
}()

// Availability returns which controls are enabled in state s. The returned
// map is a copy.
func Availability(s runner.State) map[Control]bool {
	row := availability[s]
	out := make(map[Control]bool, len(row))
	for c, on := range row {
		out[c] = on
	}
	return out
}

// Refine narrows Availability for the settings in cfg: the run count is
// only editable in run-for-count mode, and hold-target mode locks the
// interval and the run mode.
func Refine(avail map[Control]bool, cfg config.Config) map[Control]bool {
	if !cfg.RunUntilSetCountActive {
		avail[RunCount] = false
	}
	if cfg.HoldTargetActive {
		avail[Interval] = false
		avail[RunMode] = false
		avail[RunCount] = false
	}
	return avail
}

// ButtonLabel is the text of the start/stop button.
func ButtonLabel(s runner.State) string {
	switch s {
	case runner.Running:
		return "Stop"
	case runner.Scheduled:
		return "Scheduled"
	}
	return "Start"
}

// FormatElapsed renders seconds as HH:MM:SS. Hours are not wrapped.
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds%3600/60, seconds%60)
}

func TimeLabel(seconds int) string {
	return "Active Time: " + FormatElapsed(seconds)
}

func InputCountLabel(count int) string {
	return fmt.Sprintf("Input Count: %d", count)
}

// IntervalHint describes the accepted interval range.
func IntervalHint(minMs, maxMs int) string {
	return fmt.Sprintf("Range: %d – %d ms \n1 second = 1000 milliseconds", minMs, maxMs)
}

// ConfigFolderLabel shows the config folder or a placeholder.
func ConfigFolderLabel(path string) string {
	if path == "" {
		return "<not set>"
	}
	return path
}

// ShellText is the window and tray title for version.
func ShellText(version string) string {
	return "AutoInput_v" + version
}

// Seconds converts milliseconds to seconds.
func Seconds(ms int) float64 {
	return float64(ms) / 1000
}

// Milliseconds converts seconds to milliseconds, rounded to the nearest
// integer.
func Milliseconds(seconds float64) int {
	return int(math.Round(seconds * 1000))
}
