// Package notify shows warnings and yes/no/cancel questions to the user.
package notify

import (
	"github.com/rs/zerolog"

	xlog "autoinput/internal/log"
)

// Answer is the user's reply to a confirmation.
type Answer int

const (
	Cancel Answer = iota
	Yes
	No
)

func (a Answer) String() string {
	switch a {
	case Yes:
		return "yes"
	case No:
		return "no"
	}
	return "cancel"
}

// Notifier presents messages to the user.
type Notifier interface {
	// Warn shows a warning and returns once it is acknowledged.
	Warn(msg string)

	// Confirm asks a yes/no/cancel question.
	Confirm(msg string) Answer
}

// Log is a Notifier for headless operation. Warnings are logged and every
// question receives the same fixed answer.
type Log struct {
	answer Answer
	logger zerolog.Logger
}

// NewLog returns a log notifier that answers every question with answer.
func NewLog(answer Answer) *Log {
	return &Log{answer: answer, logger: xlog.WithComponent("notify")}
}

// Warn logs msg at warn level.
func (l *Log) Warn(msg string) {
	l.logger.Warn().Str("event", "notify.warning").Msg(msg)
}

// Confirm logs msg and returns the fixed answer.
func (l *Log) Confirm(msg string) Answer {
	l.logger.Info().Str("event", "notify.confirm").Str("answer", l.answer.String()).Msg(msg)
	return l.answer
}
