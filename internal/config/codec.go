package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"autoinput/internal/keys"
	"autoinput/internal/sequence"
)

// ParseError reports a document that is not well-formed JSON or does not
// match the schema's field types.
type ParseError struct {
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	if e.Offset > 0 {
		return fmt.Sprintf("parse config at byte %d: %v", e.Offset, e.Err)
	}
	return fmt.Sprintf("parse config: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError lists every out-of-range or conflicting value of a
// well-formed document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid config: " + strings.Join(e.Problems, "; ")
}

// Encode serializes cfg as indented JSON.
func Encode(cfg Config) ([]byte, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses and validates a document. Missing fields take their default
// values; unknown fields are ignored. On error no partial result is returned.
func Decode(data []byte) (Config, error) {
	cfg := Default()
	cfg.Sequences = nil // absent lists are synthesized by Validate
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, newParseError(err)
	}

	// Only one of the two run-mode flags may be given; the other follows.
	var mode struct {
		Stop  *bool `json:"runUntilStopActive"`
		Count *bool `json:"runUntilSetCountActive"`
	}
	if err := json.Unmarshal(data, &mode); err != nil {
		return Config{}, newParseError(err)
	}
	switch {
	case mode.Stop == nil && mode.Count != nil:
		cfg.RunUntilStopActive = !*mode.Count
	case mode.Stop != nil && mode.Count == nil:
		cfg.RunUntilSetCountActive = !*mode.Stop
	}

	return Validate(cfg)
}

func newParseError(err error) *ParseError {
	pe := &ParseError{Err: err}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		pe.Offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		pe.Offset = typeErr.Offset
	}
	return pe
}

// Validate range-checks cfg and returns a normalized copy: key names are
// canonical, sequences are sanitized and hold mode forces until-stopped.
func Validate(cfg Config) (Config, error) {
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if cfg.IntervalMilliseconds < IntervalMinimum || cfg.IntervalMilliseconds > IntervalMaximum {
		addf("intervalMilliseconds %d outside [%d, %d]", cfg.IntervalMilliseconds, IntervalMinimum, IntervalMaximum)
	}
	if cfg.StopInputCount < RunCountMinimum || cfg.StopInputCount > RunCountMaximum {
		addf("stopInputCount %d outside [%d, %d]", cfg.StopInputCount, RunCountMinimum, RunCountMaximum)
	}
	if cfg.RunUntilStopActive == cfg.RunUntilSetCountActive {
		if cfg.RunUntilStopActive {
			addf("runUntilStopActive and runUntilSetCountActive are mutually exclusive")
		} else {
			cfg.RunUntilStopActive = true
		}
	}

	hotkey, err := keys.Parse(string(cfg.StartStopKeybind))
	if err != nil || hotkey == keys.None {
		addf("startStopKeybind %q is not a valid key", cfg.StartStopKeybind)
	} else if hotkey.IsMouse() {
		addf("startStopKeybind %q cannot be a mouse button", hotkey)
	}
	target, err := keys.Parse(string(cfg.TargetInputKey))
	if err != nil || target == keys.None {
		addf("targetInputKey %q is not a valid key", cfg.TargetInputKey)
	}
	if hotkey != keys.None && hotkey == target {
		addf("targetInputKey %q must differ from startStopKeybind", target)
	}
	cfg.StartStopKeybind = hotkey
	cfg.TargetInputKey = target

	if cfg.ScheduleStartEnabled && cfg.ScheduleStartTime.IsZero() {
		addf("scheduleStartEnabled requires scheduleStartTime")
	}
	if cfg.ScheduleStopEnabled && cfg.ScheduleStopTime.IsZero() {
		addf("scheduleStopEnabled requires scheduleStopTime")
	}

	cfg.Sequences = sequence.Sanitize(cfg.Sequences, StepBounds)
	if cfg.SelectedSequenceIndex < 0 || cfg.SelectedSequenceIndex >= len(cfg.Sequences) {
		addf("selectedSequenceIndex %d outside [0, %d]", cfg.SelectedSequenceIndex, len(cfg.Sequences)-1)
	}

	if cfg.HoldTargetActive {
		cfg.SetMode(UntilStopped())
	}

	if len(problems) > 0 {
		return Config{}, &ValidationError{Problems: problems}
	}
	return cfg, nil
}
