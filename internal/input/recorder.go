package input

import (
	"sync"

	"github.com/rs/zerolog"

	"autoinput/internal/keys"
)

// Event is one emission recorded by a Recorder.
type Event struct {
	Kind string // "key", "click", "down", "up"
	Key  keys.Key
}

// Recorder is a Sink that records emissions instead of injecting them.
// It backs dry runs and tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	logger *zerolog.Logger
}

// NewRecorder returns a recorder. A non-nil logger logs every emission.
func NewRecorder(logger *zerolog.Logger) *Recorder {
	return &Recorder{logger: logger}
}

// KeyPress records a key press.
func (r *Recorder) KeyPress(k keys.Key) error {
	r.record(Event{Kind: "key", Key: k})
	return nil
}

// MouseClick records a mouse click.
func (r *Recorder) MouseClick(b keys.Key) error {
	r.record(Event{Kind: "click", Key: b})
	return nil
}

// Hold records a press or release.
func (r *Recorder) Hold(k keys.Key, down bool) error {
	kind := "up"
	if down {
		kind = "down"
	}
	r.record(Event{Kind: kind, Key: k})
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Keys returns the keys of the recorded events in order.
func (r *Recorder) Keys() []keys.Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]keys.Key, len(r.events))
	for i, e := range r.events {
		out[i] = e.Key
	}
	return out
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *Recorder) record(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	if r.logger != nil {
		r.logger.Debug().Str("event", "input.recorded").Str("kind", e.Kind).Str("key", e.Key.String()).Msg("dry-run input")
	}
}
