// Package config provides the persisted configuration document and its
// validation, encoding and file management.
package config

import (
	"time"

	"autoinput/internal/keys"
	"autoinput/internal/sequence"
)

const (
	// DefaultInterval is the default delay between inputs, in milliseconds.
	DefaultInterval = 500

	// IntervalMinimum and IntervalMaximum bound the input interval and every
	// sequence step delay, in milliseconds.
	IntervalMinimum = 100
	IntervalMaximum = 600000

	// DefaultRunCount is the default target for run-for-count mode.
	DefaultRunCount = 100

	// RunCountMinimum and RunCountMaximum bound run-for-count mode.
	RunCountMinimum = 1
	RunCountMaximum = 1000000

	// DefaultHotkey toggles start/stop.
	DefaultHotkey = keys.F8

	// DefaultTarget is the input emitted in single mode.
	DefaultTarget = keys.LButton

	// FileName is the default configuration file name.
	FileName = "AutoInput_Config.json"
)

// StepBounds are the delay bounds applied to sequence steps.
var StepBounds = sequence.Bounds{MinMs: IntervalMinimum, MaxMs: IntervalMaximum}

// Config is the persisted application configuration.
type Config struct {
	// IntervalMilliseconds is the delay between inputs in single mode.
	IntervalMilliseconds int `json:"intervalMilliseconds"`

	// RunUntilStopActive and RunUntilSetCountActive select the run mode.
	// Exactly one of them is true.
	RunUntilStopActive     bool `json:"runUntilStopActive"`
	RunUntilSetCountActive bool `json:"runUntilSetCountActive"`

	// StopInputCount is the number of input units after which a
	// run-for-count run stops.
	StopInputCount int `json:"stopInputCount"`

	// StartStopKeybind is the global start/stop hotkey.
	StartStopKeybind keys.Key `json:"startStopKeybind"`

	// TargetInputKey is the key or mouse button emitted in single mode.
	TargetInputKey keys.Key `json:"targetInputKey"`

	ScheduleStartEnabled bool      `json:"scheduleStartEnabled"`
	ScheduleStartTime    time.Time `json:"scheduleStartTime"`
	ScheduleStopEnabled  bool      `json:"scheduleStopEnabled"`
	ScheduleStopTime     time.Time `json:"scheduleStopTime"`

	// ConfigFolderPath is the folder configuration files are saved to and
	// loaded from on startup.
	ConfigFolderPath string `json:"configFolderPath"`

	SelectedSequenceIndex int                 `json:"selectedSequenceIndex"`
	Sequences             []sequence.Sequence `json:"sequences"`

	// SequenceModeActive plays the selected sequence instead of the target.
	SequenceModeActive bool `json:"sequenceModeActive"`

	// HoldTargetActive holds the target down for the whole run.
	HoldTargetActive bool `json:"holdTargetActive"`
}

// RunMode is either "until stopped" (Count == 0) or "until count" (Count >= 1).
type RunMode struct {
	Count int
}

// UntilStopped runs until the user or the schedule stops it.
func UntilStopped() RunMode { return RunMode{} }

// UntilCount stops after n input units.
func UntilCount(n int) RunMode { return RunMode{Count: n} }

// Limited reports whether the mode stops after a count.
func (m RunMode) Limited() bool { return m.Count > 0 }

// Schedule is the optional start/stop time pair.
type Schedule struct {
	StartEnabled bool
	Start        time.Time
	StopEnabled  bool
	Stop         time.Time
}

// Default returns a new Config with the application defaults.
func Default() Config {
	return Config{
		IntervalMilliseconds: DefaultInterval,
		RunUntilStopActive:   true,
		StopInputCount:       DefaultRunCount,
		StartStopKeybind:     DefaultHotkey,
		TargetInputKey:       DefaultTarget,
		Sequences:            []sequence.Sequence{sequence.New()},
	}
}

// Interval returns the input interval as a duration.
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalMilliseconds) * time.Millisecond
}

// Mode returns the configured run mode.
func (c Config) Mode() RunMode {
	if c.RunUntilSetCountActive {
		return UntilCount(c.StopInputCount)
	}
	return UntilStopped()
}

// SetMode stores m, keeping the last count when switching to until-stopped.
func (c *Config) SetMode(m RunMode) {
	c.RunUntilStopActive = !m.Limited()
	c.RunUntilSetCountActive = m.Limited()
	if m.Limited() {
		c.StopInputCount = m.Count
	}
}

// Schedule returns the schedule fields.
func (c Config) Schedule() Schedule {
	return Schedule{
		StartEnabled: c.ScheduleStartEnabled,
		Start:        c.ScheduleStartTime,
		StopEnabled:  c.ScheduleStopEnabled,
		Stop:         c.ScheduleStopTime,
	}
}

// SetSchedule stores s.
func (c *Config) SetSchedule(s Schedule) {
	c.ScheduleStartEnabled = s.StartEnabled
	c.ScheduleStartTime = s.Start
	c.ScheduleStopEnabled = s.StopEnabled
	c.ScheduleStopTime = s.Stop
}
