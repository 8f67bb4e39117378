//go:build !windows && !darwin

package hotkey

func (m *Manager) startPlatform() error {
	m.logger.Warn().Str("event", "hotkey.unsupported").Msg("global hotkeys not supported on this platform")
	return nil
}
