package runner

import "time"

// Clock returns the current wall-clock time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Timer is a periodic callback handle owned by the controller.
type Timer interface {
	// Start (re)arms the timer with period. Fires scheduled under a previous
	// period are discarded.
	Start(period time.Duration)

	// Stop disarms the timer. No fire is delivered after Stop returns.
	Stop()

	// Active reports whether the timer is armed.
	Active() bool
}

// TimerSource creates timers whose fire function runs on the controller's
// goroutine.
type TimerSource interface {
	NewTimer(name string, fire func()) Timer
}
