package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	xlog "autoinput/internal/log"
)

// Manager loads and saves the configuration file.
type Manager struct {
	mu     sync.Mutex
	path   string
	logger zerolog.Logger
}

// NewManager creates a manager for path. An empty path selects the
// per-user default location.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return &Manager{
		path:   path,
		logger: xlog.WithComponent("config"),
	}, nil
}

// DefaultPath returns the per-user configuration file path, creating its
// directory if needed.
func DefaultPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "autoinput")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, "autoinput")
	default:
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(dir, "autoinput")
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return filepath.Join(configDir, FileName), nil
}

// StartupPath returns the file inside cfg.ConfigFolderPath that is loaded
// on startup, or "" when no folder is set.
func StartupPath(cfg Config) string {
	if cfg.ConfigFolderPath == "" {
		return ""
	}
	return filepath.Join(cfg.ConfigFolderPath, FileName)
}

// Path returns the managed file path.
func (m *Manager) Path() string {
	return m.path
}

// Load reads and validates the configuration file. A missing file yields
// the defaults.
func (m *Manager) Load() (Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, err := ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		m.logger.Info().Str("event", "config.defaults").Str("path", m.path).Msg("no config file, using defaults")
		return Default(), nil
	}
	if err != nil {
		return Config{}, err
	}
	m.logger.Info().Str("event", "config.loaded").Str("path", m.path).Msg("configuration loaded")
	return cfg, nil
}

// Save atomically replaces the configuration file with cfg.
func (m *Manager) Save(cfg Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return WriteFile(m.path, cfg)
}

// Persist saves cfg to the managed file and, when cfg names a config
// folder, to the file inside that folder as well. It returns the written
// paths.
func (m *Manager) Persist(cfg Config) ([]string, error) {
	if err := m.Save(cfg); err != nil {
		return nil, err
	}
	paths := []string{m.path}
	if extra := StartupPath(cfg); extra != "" && filepath.Clean(extra) != filepath.Clean(m.path) {
		if err := WriteFile(extra, cfg); err != nil {
			return paths, err
		}
		paths = append(paths, extra)
	}
	return paths, nil
}

// ReadFile reads and decodes the configuration at path.
func ReadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Decode(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// WriteFile encodes cfg and writes it to path with an atomic rename.
func WriteFile(path string, cfg Config) error {
	data, err := Encode(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	logger := xlog.WithComponent("config")
	logger.Info().
		Str("event", "config.saved").
		Str("path", path).
		Int("bytes", len(data)).
		Msg("configuration saved")
	return nil
}
