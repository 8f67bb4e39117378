// Package log configures the process-wide zerolog logger.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LevelEnv overrides the default level when no level is given explicitly.
const LevelEnv = "AUTOINPUT_LOG_LEVEL"

// Config captures options for configuring the global logger.
type Config struct {
	Level   string    // "debug", "info", "warn", "error"; empty reads LevelEnv
	Output  io.Writer // defaults to os.Stderr
	Pretty  bool      // console output for interactive runs
	Version string    // attached to every entry when set
}

var (
	once sync.Once
	base zerolog.Logger
)

// ParseLevel resolves a level name. An empty name falls back to LevelEnv and
// then to info.
func ParseLevel(name string) (zerolog.Level, error) {
	if name == "" {
		name = os.Getenv(LevelEnv)
	}
	if name == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}

// Configure initialises the global logger. Only the first call has an
// effect; an invalid level leaves info in place.
func Configure(cfg Config) {
	once.Do(func() {
		level, _ := ParseLevel(cfg.Level)
		zerolog.SetGlobalLevel(level)
		zerolog.TimeFieldFormat = time.RFC3339

		writer := cfg.Output
		if writer == nil {
			writer = os.Stderr
		}
		if cfg.Pretty {
			writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.Kitchen}
		}

		ctx := zerolog.New(writer).With().Timestamp().Str("service", "autoinput")
		if cfg.Version != "" {
			ctx = ctx.Str("version", cfg.Version)
		}
		base = ctx.Logger()
	})
}

func logger() zerolog.Logger {
	Configure(Config{})
	return base
}

// Base returns the configured base logger instance.
func Base() zerolog.Logger {
	return logger()
}

// WithComponent returns a child logger annotated with the given component name.
func WithComponent(component string) zerolog.Logger {
	return logger().With().Str("component", component).Logger()
}
