package runner

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"autoinput/internal/config"
	"autoinput/internal/input"
	"autoinput/internal/keys"
	"autoinput/internal/notify"
)

var epoch = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

// fakeTimer is driven by fakeTimers.advance against the fake clock.
type fakeTimer struct {
	name   string
	fire   func()
	clock  *fakeClock
	period time.Duration
	next   time.Time
	active bool
	gen    int
}

func (t *fakeTimer) Start(period time.Duration) {
	t.period = period
	t.next = t.clock.now.Add(period)
	t.active = true
	t.gen++
}

func (t *fakeTimer) Stop() {
	t.active = false
	t.gen++
}

func (t *fakeTimer) Active() bool { return t.active }

type fakeTimers struct {
	clock *fakeClock
	order []*fakeTimer
	byKey map[string]*fakeTimer
}

func newFakeTimers(clock *fakeClock) *fakeTimers {
	return &fakeTimers{clock: clock, byKey: make(map[string]*fakeTimer)}
}

func (f *fakeTimers) NewTimer(name string, fire func()) Timer {
	t := &fakeTimer{name: name, fire: fire, clock: f.clock}
	f.order = append(f.order, t)
	f.byKey[name] = t
	return t
}

// advance moves the clock forward by d, firing due timers in time order.
// Timers due at the same instant fire in creation order.
func (f *fakeTimers) advance(d time.Duration) {
	target := f.clock.now.Add(d)
	for {
		var due *fakeTimer
		for _, t := range f.order {
			if t.active && !t.next.After(target) && (due == nil || t.next.Before(due.next)) {
				due = t
			}
		}
		if due == nil {
			break
		}
		f.clock.now = due.next
		gen := due.gen
		due.fire()
		if due.active && due.gen == gen {
			due.next = due.next.Add(due.period)
		}
	}
	f.clock.now = target
}

type fakeHotkeys struct {
	registered keys.Key
	fail       map[keys.Key]bool
}

func (h *fakeHotkeys) Register(k keys.Key) error {
	if h.fail[k] || k.IsMouse() {
		return fmt.Errorf("register %s: denied", k)
	}
	h.registered = k
	return nil
}

func (h *fakeHotkeys) Unregister() { h.registered = keys.None }

type fakeNotifier struct {
	warnings []string
}

func (n *fakeNotifier) Warn(msg string) { n.warnings = append(n.warnings, msg) }

func (n *fakeNotifier) Confirm(string) notify.Answer { return notify.Yes }

type harness struct {
	c       *Controller
	clock   *fakeClock
	timers  *fakeTimers
	sink    *input.Recorder
	hotkeys *fakeHotkeys
	notes   *fakeNotifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := &fakeClock{now: epoch}
	h := &harness{
		clock:   clock,
		timers:  newFakeTimers(clock),
		sink:    input.NewRecorder(nil),
		hotkeys: &fakeHotkeys{fail: make(map[keys.Key]bool)},
		notes:   &fakeNotifier{},
	}
	h.c = New(Deps{
		Clock:    h.clock,
		Timers:   h.timers,
		Sink:     h.sink,
		Hotkeys:  h.hotkeys,
		Notifier: h.notes,
	})
	require.NoError(t, h.c.Apply(config.Default()))
	h.c.MarkSaved()
	return h
}

func (h *harness) timer(name string) *fakeTimer {
	return h.timers.byKey[name]
}

func (h *harness) advance(d time.Duration) {
	h.timers.advance(d)
}
