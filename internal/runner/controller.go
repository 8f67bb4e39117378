// Package runner implements the run/schedule/sequence state machine that
// decides when automated input is emitted.
package runner

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"autoinput/internal/config"
	"autoinput/internal/input"
	"autoinput/internal/keys"
	xlog "autoinput/internal/log"
	"autoinput/internal/metrics"
	"autoinput/internal/notify"
	"autoinput/internal/sequence"
)

const (
	// ElapsedPeriod is the period of the active-time counter.
	ElapsedPeriod = time.Second

	// SchedulePollPeriod is how often a pending start time is checked.
	SchedulePollPeriod = 200 * time.Millisecond
)

var (
	// ErrBusy is returned by operations that are only allowed while idle.
	ErrBusy = errors.New("not allowed while running or scheduled")

	// ErrKeyConflict is returned when the hotkey and the target would be equal.
	ErrKeyConflict = errors.New("hotkey and target input must differ")

	// ErrEmptySequence is returned when starting sequence mode with no steps.
	ErrEmptySequence = errors.New("selected sequence has no steps")

	// ErrOutOfRange is returned for setting values outside their bounds.
	ErrOutOfRange = errors.New("value out of range")

	// ErrHoldMode is returned when selecting a count limit while the target
	// is held for the whole run.
	ErrHoldMode = errors.New("hold target mode runs until stopped")

	// ErrMouseHotkey is returned when a mouse button is chosen as the hotkey.
	ErrMouseHotkey = errors.New("mouse buttons cannot be the start/stop hotkey")

	// ErrHotkeyUnavailable is returned when neither the requested hotkey nor
	// any fallback could be registered.
	ErrHotkeyUnavailable = errors.New("no start/stop hotkey could be registered")
)

// HotkeyRegistrar registers the global start/stop hotkey.
type HotkeyRegistrar interface {
	Register(k keys.Key) error
	Unregister()
}

// Deps are the collaborators of a Controller. Clock defaults to the system
// clock.
type Deps struct {
	Clock    Clock
	Timers   TimerSource
	Sink     input.Sink
	Hotkeys  HotkeyRegistrar
	Notifier notify.Notifier
}

// Controller owns the run state, counters and settings. It is not safe for
// concurrent use: every method must be called from the goroutine that
// delivers its timer fires.
type Controller struct {
	clock    Clock
	sink     input.Sink
	hotkeys  HotkeyRegistrar
	notifier notify.Notifier
	logger   zerolog.Logger

	cfg   config.Config
	store *sequence.Store

	state    State
	counters Counters
	cursor   int
	runID    string
	startAt  *time.Time
	stopAt   *time.Time
	holding  bool
	dirty    bool

	elapsed Timer
	input   Timer
	poll    Timer
}

// New creates an idle controller with default settings. The hotkey is not
// registered until Apply is called.
func New(d Deps) *Controller {
	if d.Clock == nil {
		d.Clock = SystemClock{}
	}
	cfg := config.Default()
	cfg.Sequences = nil

	c := &Controller{
		clock:    d.Clock,
		sink:     d.Sink,
		hotkeys:  d.Hotkeys,
		notifier: d.Notifier,
		logger:   xlog.WithComponent("runner"),
		cfg:      cfg,
		store:    sequence.NewStore(config.StepBounds),
	}
	c.elapsed = d.Timers.NewTimer("elapsed", c.ElapsedTick)
	c.input = d.Timers.NewTimer("input", c.InputTick)
	c.poll = d.Timers.NewTimer("schedule", c.SchedulePoll)
	metrics.SetRunState(c.state.String())
	return c
}

// State returns the current run state.
func (c *Controller) State() State { return c.state }

// Counters returns the run counters.
func (c *Controller) Counters() Counters { return c.counters }

// Cursor returns the index of the next sequence step.
func (c *Controller) Cursor() int { return c.cursor }

// Dirty reports whether settings changed since the last MarkSaved.
func (c *Controller) Dirty() bool { return c.dirty }

// MarkSaved clears the dirty flag.
func (c *Controller) MarkSaved() { c.dirty = false }

// Snapshot returns the current settings as a config document.
func (c *Controller) Snapshot() config.Config {
	cfg := c.cfg
	cfg.Sequences = c.store.Sequences()
	cfg.SelectedSequenceIndex = c.store.Selected()
	return cfg
}

// Status returns a read-only view of the controller.
func (c *Controller) Status() Status {
	return Status{
		State:        c.state,
		RunID:        c.runID,
		Counters:     c.counters,
		Cursor:       c.cursor,
		PendingStart: copyTime(c.startAt),
		PendingStop:  copyTime(c.stopAt),
		Holding:      c.holding,
		Dirty:        c.dirty,
		Config:       c.Snapshot(),
	}
}

// Toggle starts, stops or cancels a run depending on the current state.
func (c *Controller) Toggle() error {
	switch c.state {
	case Scheduled:
		c.halt("cancel")
		return nil
	case Running:
		c.halt("user")
		return nil
	}

	if c.sequenceMode() && len(c.store.Current().Steps) == 0 {
		c.notifier.Warn("The selected sequence has no steps. Add a step or turn off sequence mode.")
		return ErrEmptySequence
	}

	c.counters.ForcedInputCount = 0
	c.runID = uuid.NewString()

	now := c.clock.Now()
	s := c.cfg.Schedule()
	c.startAt, c.stopAt = nil, nil
	if s.StopEnabled {
		if s.Stop.After(now) {
			stop := s.Stop
			c.stopAt = &stop
		} else {
			// A stop time that already passed never blocks a start.
			c.cfg.ScheduleStopEnabled = false
			c.dirty = true
			c.logger.Info().Str("event", "schedule.stop_discarded").Time("stop", s.Stop).Msg("stop time already passed")
		}
	}

	c.elapsed.Start(ElapsedPeriod)
	if s.StartEnabled && s.Start.After(now) {
		start := s.Start
		c.startAt = &start
		c.setState(Scheduled)
		c.poll.Start(SchedulePollPeriod)
		c.logger.Info().Str("event", "run.scheduled").Str("run_id", c.runID).Time("start", start).Msg("run scheduled")
		return nil
	}
	c.enterRunning("direct")
	return nil
}

// Stop halts a run or pending start and releases a held target. It does
// nothing when idle.
func (c *Controller) Stop(reason string) {
	if c.state != Idle {
		c.halt(reason)
	}
}

// SchedulePoll starts the pending run once its start time is reached.
func (c *Controller) SchedulePoll() {
	if c.state != Scheduled || c.startAt == nil {
		c.poll.Stop()
		return
	}
	if c.clock.Now().Before(*c.startAt) {
		return
	}
	c.poll.Stop()
	c.startAt = nil
	c.enterRunning("scheduled")
}

// ElapsedTick advances the active-time counter or stops the run once the
// stop time is reached.
func (c *Controller) ElapsedTick() {
	if c.state == Idle {
		c.elapsed.Stop()
		return
	}
	if c.stopDue() {
		c.scheduledStop()
		return
	}
	c.counters.ActiveSeconds++
	metrics.ActiveSeconds.Set(float64(c.counters.ActiveSeconds))
}

// InputTick emits the next input unit.
func (c *Controller) InputTick() {
	if c.state != Running {
		c.input.Stop()
		return
	}
	if c.stopDue() {
		c.scheduledStop()
		return
	}

	completed := false
	if c.sequenceMode() {
		steps := c.store.Current().Steps
		if len(steps) == 0 {
			c.halt("empty")
			return
		}
		if c.cursor >= len(steps) {
			c.cursor = 0
		}
		step := steps[c.cursor]
		c.emit(step.Key, "sequence")
		c.cursor++
		if c.cursor >= len(steps) {
			c.cursor = 0
			c.counters.InputCount++
			completed = true
		}
		c.input.Start(time.Duration(step.DelayMs) * time.Millisecond)
	} else {
		c.emit(c.cfg.TargetInputKey, "single")
		c.counters.InputCount++
		completed = true
	}

	if completed {
		c.countUnit()
	}
}

func (c *Controller) countUnit() {
	mode := c.cfg.Mode()
	if !mode.Limited() {
		return
	}
	c.counters.ForcedInputCount++
	if c.counters.ForcedInputCount >= mode.Count {
		c.halt("count")
		c.counters.ForcedInputCount = 0
	}
}

func (c *Controller) emit(k keys.Key, mode string) {
	err := input.Emit(c.sink, k)
	metrics.IncInput(mode, err)
	if err != nil {
		c.logger.Warn().Err(err).Str("event", "input.failed").Str("key", k.String()).Msg("input emission failed")
	}
}

func (c *Controller) enterRunning(path string) {
	c.cursor = 0
	c.setState(Running)
	metrics.RunsStartedTotal.WithLabelValues(path).Inc()
	c.logger.Info().
		Str("event", "run.started").
		Str("run_id", c.runID).
		Str("path", path).
		Bool("sequence", c.sequenceMode()).
		Bool("hold", c.cfg.HoldTargetActive).
		Int("count_limit", c.cfg.Mode().Count).
		Msg("run started")

	if c.cfg.HoldTargetActive {
		err := c.sink.Hold(c.cfg.TargetInputKey, true)
		metrics.IncInput("hold", err)
		if err != nil {
			c.logger.Warn().Err(err).Str("event", "input.failed").Msg("hold target failed")
		}
		c.holding = true
		c.counters.InputCount++
		return
	}
	c.input.Start(c.cfg.Interval())
}

// halt returns to Idle, stopping every timer. Counters are kept.
func (c *Controller) halt(reason string) {
	c.input.Stop()
	c.elapsed.Stop()
	c.poll.Stop()
	if c.holding {
		if err := c.sink.Hold(c.cfg.TargetInputKey, false); err != nil {
			c.logger.Warn().Err(err).Str("event", "input.failed").Msg("release target failed")
		}
		c.holding = false
	}
	c.startAt, c.stopAt = nil, nil
	c.setState(Idle)
	metrics.RunsStoppedTotal.WithLabelValues(reason).Inc()
	c.logger.Info().
		Str("event", "run.stopped").
		Str("run_id", c.runID).
		Str("reason", reason).
		Int("active_seconds", c.counters.ActiveSeconds).
		Int("input_count", c.counters.InputCount).
		Msg("run stopped")
}

func (c *Controller) scheduledStop() {
	c.halt("schedule")
	c.cfg.ScheduleStopEnabled = false
	c.dirty = true
}

func (c *Controller) stopDue() bool {
	return c.stopAt != nil && !c.clock.Now().Before(*c.stopAt)
}

func (c *Controller) setState(s State) {
	c.state = s
	metrics.SetRunState(s.String())
}

// sequenceMode reports whether the selected sequence drives emission. Hold
// mode takes precedence.
func (c *Controller) sequenceMode() bool {
	return c.cfg.SequenceModeActive && !c.cfg.HoldTargetActive
}

// Reset restores counters and settings to their defaults. The config folder
// is kept.
func (c *Controller) Reset() error {
	if c.state != Idle {
		return ErrBusy
	}
	folder := c.cfg.ConfigFolderPath
	prevHotkey := c.cfg.StartStopKeybind

	c.counters = Counters{}
	c.cursor = 0
	c.runID = ""
	cfg := config.Default()
	cfg.Sequences = nil
	cfg.ConfigFolderPath = folder
	c.cfg = cfg
	c.store.Reset()
	c.dirty = true
	metrics.ActiveSeconds.Set(0)

	c.cfg.StartStopKeybind = prevHotkey
	if err := c.registerHotkey(config.DefaultHotkey); err != nil {
		c.logger.Warn().Err(err).Str("event", "hotkey.reset_fallback").Msg("default hotkey unavailable")
	}
	c.logger.Info().Str("event", "run.reset").Msg("counters and settings reset")
	return nil
}

// SetInterval sets the single-mode input interval in milliseconds.
func (c *Controller) SetInterval(ms int) error {
	if c.state != Idle {
		return ErrBusy
	}
	if ms < config.IntervalMinimum || ms > config.IntervalMaximum {
		return fmt.Errorf("interval %d ms: %w", ms, ErrOutOfRange)
	}
	c.cfg.IntervalMilliseconds = ms
	c.dirty = true
	return nil
}

// SetRunMode selects until-stopped or run-for-count.
func (c *Controller) SetRunMode(m config.RunMode) error {
	if c.state != Idle {
		return ErrBusy
	}
	if m.Limited() {
		if m.Count < config.RunCountMinimum || m.Count > config.RunCountMaximum {
			return fmt.Errorf("run count %d: %w", m.Count, ErrOutOfRange)
		}
		if c.cfg.HoldTargetActive {
			return ErrHoldMode
		}
	}
	c.cfg.SetMode(m)
	c.dirty = true
	return nil
}

// SetSchedule replaces the start/stop schedule used by the next run.
func (c *Controller) SetSchedule(s config.Schedule) error {
	if c.state != Idle {
		return ErrBusy
	}
	if (s.StartEnabled && s.Start.IsZero()) || (s.StopEnabled && s.Stop.IsZero()) {
		return fmt.Errorf("enabled schedule time is missing: %w", ErrOutOfRange)
	}
	c.cfg.SetSchedule(s)
	c.dirty = true
	return nil
}

// SetTarget sets the input target. A target equal to the hotkey is
// rejected and the previous target is kept.
func (c *Controller) SetTarget(k keys.Key) error {
	if c.state != Idle {
		return ErrBusy
	}
	k, err := parseKey(k)
	if err != nil {
		return fmt.Errorf("target: %w", err)
	}
	if k.Equal(c.cfg.StartStopKeybind) {
		c.notifier.Warn(fmt.Sprintf("%s is the start/stop hotkey and cannot also be the target input.", k))
		return ErrKeyConflict
	}
	c.cfg.TargetInputKey = k
	c.dirty = true
	return nil
}

// SetHotkey registers k as the start/stop hotkey. A mouse button or a
// hotkey equal to the target is rejected and the previous hotkey is kept.
// If registration fails a fallback is used and no error is returned.
func (c *Controller) SetHotkey(k keys.Key) error {
	if c.state != Idle {
		return ErrBusy
	}
	k, err := parseKey(k)
	if err != nil {
		return fmt.Errorf("hotkey: %w", err)
	}
	if k.IsMouse() {
		return fmt.Errorf("hotkey %s: %w", k, ErrMouseHotkey)
	}
	if k.Equal(c.cfg.TargetInputKey) {
		c.notifier.Warn(fmt.Sprintf("%s is the target input and cannot also be the start/stop hotkey.", k))
		return ErrKeyConflict
	}
	c.dirty = true
	return c.registerHotkey(k)
}

// registerHotkey replaces the registered hotkey with k. On failure the
// first registrable candidate of the default, the previous hotkey and
// F9-F12 that differs from the target is used instead. When nothing
// registers, k is stored unregistered so it still differs from the target.
func (c *Controller) registerHotkey(k keys.Key) error {
	prev := c.cfg.StartStopKeybind
	c.hotkeys.Unregister()
	err := c.hotkeys.Register(k)
	if err == nil {
		c.cfg.StartStopKeybind = k
		return nil
	}
	c.logger.Warn().Err(err).Str("event", "hotkey.register_failed").Str("key", k.String()).Msg("hotkey registration failed")

	fallback := keys.None
	for _, candidate := range []keys.Key{config.DefaultHotkey, prev, "F9", "F10", "F11", "F12"} {
		if candidate == keys.None || candidate.Equal(k) || candidate.Equal(c.cfg.TargetInputKey) {
			continue
		}
		if c.hotkeys.Register(candidate) == nil {
			fallback = candidate
			break
		}
	}
	if fallback == keys.None {
		c.logger.Error().Str("event", "hotkey.unavailable").Msg("no hotkey could be registered")
		c.cfg.StartStopKeybind = k
		c.notifier.Warn(fmt.Sprintf("Could not register %s as the start/stop hotkey.", k))
		return fmt.Errorf("register hotkey %s: %w: %v", k, ErrHotkeyUnavailable, err)
	}
	c.cfg.StartStopKeybind = fallback
	c.logger.Info().Str("event", "hotkey.fallback").Str("key", fallback.String()).Msg("using fallback hotkey")
	c.notifier.Warn(fmt.Sprintf("Could not register %s as the start/stop hotkey. Using %s instead.", k, fallback))
	return nil
}

// Update runs fn as a single change. If fn fails, every setting and
// sequence it changed is restored along with the dirty flag.
func (c *Controller) Update(fn func(*Controller) error) error {
	if c.state != Idle {
		return ErrBusy
	}
	saved, dirty := c.cfg, c.dirty
	seqs, selected := c.store.Sequences(), c.store.Selected()

	err := fn(c)
	if err == nil {
		return nil
	}

	hotkey := c.cfg.StartStopKeybind
	c.cfg, c.dirty = saved, dirty
	if lerr := c.store.Load(seqs, selected); lerr != nil {
		c.logger.Error().Err(lerr).Str("event", "settings.restore_failed").Msg("restoring sequences failed")
	}
	if !hotkey.Equal(saved.StartStopKeybind) {
		c.hotkeys.Unregister()
		if rerr := c.hotkeys.Register(saved.StartStopKeybind); rerr != nil {
			c.logger.Warn().Err(rerr).Str("event", "hotkey.restore_failed").Str("key", saved.StartStopKeybind.String()).Msg("previous hotkey unavailable")
		}
	}
	c.logger.Debug().Err(err).Str("event", "settings.rolled_back").Msg("settings update rolled back")
	return err
}

// SetSequenceMode switches between single-target and sequence emission.
func (c *Controller) SetSequenceMode(on bool) error {
	if c.state != Idle {
		return ErrBusy
	}
	c.cfg.SequenceModeActive = on
	c.dirty = true
	return nil
}

// SetHoldTarget turns hold-target mode on or off. Turning it on selects
// until-stopped.
func (c *Controller) SetHoldTarget(on bool) error {
	if c.state != Idle {
		return ErrBusy
	}
	c.cfg.HoldTargetActive = on
	if on {
		c.cfg.SetMode(config.UntilStopped())
	}
	c.dirty = true
	return nil
}

// SetConfigFolder sets the folder configuration is saved to and loaded from.
func (c *Controller) SetConfigFolder(path string) error {
	if c.state != Idle {
		return ErrBusy
	}
	c.cfg.ConfigFolderPath = path
	c.dirty = true
	return nil
}

// EditSequences runs fn against the sequence store.
func (c *Controller) EditSequences(fn func(*sequence.Store) error) error {
	if c.state != Idle {
		return ErrBusy
	}
	if err := fn(c.store); err != nil {
		return err
	}
	c.dirty = true
	return nil
}

// Sequences returns a copy of the sequences and the selected index.
func (c *Controller) Sequences() ([]sequence.Sequence, int) {
	return c.store.Sequences(), c.store.Selected()
}

// Apply validates cfg and replaces every setting with it. On error nothing
// changes. A hotkey that cannot be registered falls back to the default
// without failing the load.
func (c *Controller) Apply(cfg config.Config) error {
	if c.state != Idle {
		return ErrBusy
	}
	valid, err := config.Validate(cfg)
	if err != nil {
		return err
	}
	if err := c.store.Load(valid.Sequences, valid.SelectedSequenceIndex); err != nil {
		return err
	}

	hotkey := valid.StartStopKeybind
	valid.StartStopKeybind = c.cfg.StartStopKeybind
	valid.Sequences = nil
	c.cfg = valid
	c.dirty = true

	if err := c.registerHotkey(hotkey); err != nil {
		c.logger.Warn().Err(err).Str("event", "config.hotkey_fallback").Msg("loaded hotkey unavailable")
	}
	c.logger.Info().Str("event", "config.applied").Msg("configuration applied")
	return nil
}

// parseKey canonicalizes k and rejects None.
func parseKey(k keys.Key) (keys.Key, error) {
	parsed, err := keys.Parse(string(k))
	if err != nil {
		return keys.None, err
	}
	if parsed == keys.None {
		return keys.None, fmt.Errorf("%w: %q", keys.ErrUnknownKey, k)
	}
	return parsed, nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
