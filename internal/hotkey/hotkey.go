// Package hotkey provides the global start/stop hotkey.
package hotkey

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"autoinput/internal/keys"
	xlog "autoinput/internal/log"
)

// ErrUnsupportedKey is returned when registering a key that cannot act as
// a global hotkey.
var ErrUnsupportedKey = errors.New("key cannot be used as a hotkey")

// repeatGuard suppresses triggers that follow a previous one too closely.
const repeatGuard = 250 * time.Millisecond

// Manager watches global key state and calls onTrigger when the registered
// key goes down. At most one key is registered at a time.
type Manager struct {
	mu        sync.Mutex
	key       keys.Key
	down      map[keys.Key]bool
	onTrigger func()
	guard     rate.Sometimes
	logger    zerolog.Logger
}

// NewManager creates a manager. onTrigger runs on the hook goroutine and
// must not block.
func NewManager(onTrigger func()) *Manager {
	return &Manager{
		key:       keys.None,
		down:      make(map[keys.Key]bool),
		onTrigger: onTrigger,
		guard:     rate.Sometimes{Interval: repeatGuard},
		logger:    xlog.WithComponent("hotkey"),
	}
}

// Register replaces the registered key with k.
func (m *Manager) Register(k keys.Key) error {
	if !k.Valid() || k.IsMouse() {
		return fmt.Errorf("register %q: %w", k, ErrUnsupportedKey)
	}
	m.mu.Lock()
	m.key = k
	m.mu.Unlock()
	m.logger.Info().Str("event", "hotkey.registered").Str("key", k.String()).Msg("hotkey registered")
	return nil
}

// Unregister removes the registered key.
func (m *Manager) Unregister() {
	m.mu.Lock()
	prev := m.key
	m.key = keys.None
	m.mu.Unlock()
	if prev != keys.None {
		m.logger.Info().Str("event", "hotkey.unregistered").Str("key", prev.String()).Msg("hotkey unregistered")
	}
}

// Registered returns the registered key, or keys.None.
func (m *Manager) Registered() keys.Key {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.key
}

// UpdateState records a key transition reported by the platform hook.
// Auto-repeated key-down events do not trigger again.
func (m *Manager) UpdateState(k keys.Key, isDown bool) {
	m.mu.Lock()
	wasDown := m.down[k]
	if isDown {
		m.down[k] = true
	} else {
		delete(m.down, k)
	}
	fire := isDown && !wasDown && m.key != keys.None && k == m.key
	m.mu.Unlock()

	if fire {
		m.guard.Do(func() {
			m.logger.Debug().Str("event", "hotkey.triggered").Str("key", k.String()).Msg("hotkey triggered")
			m.onTrigger()
		})
	}
}

// Start installs the platform-specific global hooks.
func (m *Manager) Start() error {
	return m.startPlatform()
}
