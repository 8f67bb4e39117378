package runner

import (
	"fmt"
	"time"

	"autoinput/internal/config"
)

// State is the run state of the controller.
type State int

const (
	Idle State = iota
	Running
	Scheduled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Scheduled:
		return "scheduled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Counters are the run statistics shown to the user.
type Counters struct {
	// ActiveSeconds counts elapsed seconds while running or scheduled.
	ActiveSeconds int `json:"activeSeconds"`

	// InputCount counts emitted input units: one per single input, one per
	// full sequence pass, one per hold.
	InputCount int `json:"inputCount"`

	// ForcedInputCount is the progress toward a run-for-count limit.
	ForcedInputCount int `json:"forcedInputCount"`
}

// Status is a read-only view of the controller.
type Status struct {
	State    State    `json:"state"`
	RunID    string   `json:"runId,omitempty"`
	Counters Counters `json:"counters"`

	// Cursor is the index of the next sequence step.
	Cursor int `json:"cursor"`

	// PendingStart and PendingStop are the schedule snapshot of the current run.
	PendingStart *time.Time `json:"pendingStart,omitempty"`
	PendingStop  *time.Time `json:"pendingStop,omitempty"`

	Holding bool          `json:"holding"`
	Dirty   bool          `json:"dirty"`
	Config  config.Config `json:"config"`
}
