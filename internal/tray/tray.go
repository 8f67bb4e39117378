// Package tray provides the system tray menu using getlantern/systray.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
	"github.com/rs/zerolog"

	xlog "autoinput/internal/log"
	"autoinput/internal/runner"
)

// Actions are invoked from the tray menu. They run on tray goroutines and
// must hand work to the controller goroutine themselves.
type Actions struct {
	Toggle func()
	Reset  func()
	Save   func()
	Quit   func()
}

// Tray manages the tray icon and menu.
type Tray struct {
	title   string
	actions Actions
	logger  zerolog.Logger

	mu      sync.Mutex
	ready   bool
	pending Display
	toggle  *systray.MenuItem
	reset   *systray.MenuItem
	save    *systray.MenuItem
	icon    runner.State
	iconSet bool
	quitCh  chan struct{}
}

// New creates a tray titled title.
func New(title string, actions Actions) *Tray {
	return &Tray{
		title:   title,
		actions: actions,
		logger:  xlog.WithComponent("tray"),
		pending: Display{Title: title, Tooltip: title, Button: "Start", Editable: true},
		quitCh:  make(chan struct{}),
	}
}

// Run starts the tray event loop. It blocks until Stop and must be called
// from the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.setupMenu, func() { close(t.quitCh) })
}

// Stop quits the tray event loop.
func (t *Tray) Stop() {
	systray.Quit()
}

// Update shows d. It may be called from any goroutine, also before Run.
func (t *Tray) Update(d Display) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = d
	if t.ready {
		t.apply(d)
	}
}

func (t *Tray) setupMenu() {
	t.mu.Lock()
	t.toggle = systray.AddMenuItem("Start", "Start or stop automated input")
	t.reset = systray.AddMenuItem("Reset", "Reset counters and settings")
	t.save = systray.AddMenuItem("Save config", "Save settings to the config file")
	systray.AddSeparator()
	quit := systray.AddMenuItem("Quit", "Quit AutoInput")
	t.ready = true
	t.apply(t.pending)
	t.mu.Unlock()

	t.handle(t.toggle, t.actions.Toggle)
	t.handle(t.reset, t.actions.Reset)
	t.handle(t.save, t.actions.Save)
	t.handle(quit, t.actions.Quit)
	t.logger.Debug().Str("event", "tray.ready").Msg("tray menu ready")
}

func (t *Tray) handle(item *systray.MenuItem, fn func()) {
	if fn == nil {
		item.Disable()
		return
	}
	go func() {
		for {
			select {
			case <-item.ClickedCh:
				fn()
			case <-t.quitCh:
				return
			}
		}
	}()
}

// apply must be called with t.mu held after the menu exists.
func (t *Tray) apply(d Display) {
	if !t.iconSet || d.State != t.icon {
		systray.SetIcon(iconFor(d.State))
		t.icon, t.iconSet = d.State, true
	}
	systray.SetTitle(d.Title)
	systray.SetTooltip(d.Tooltip)
	t.toggle.SetTitle(d.Button)
	for _, item := range []*systray.MenuItem{t.reset, t.save} {
		if d.Editable {
			item.Enable()
		} else {
			item.Disable()
		}
	}
}
