package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	xlog "autoinput/internal/log"
)

// ErrLoopStopped is returned by Call once the loop has exited.
var ErrLoopStopped = errors.New("event loop stopped")

// Loop runs posted closures one at a time on a single goroutine. Timers
// created by the loop deliver their fires through it, so every controller
// method runs on the loop goroutine.
type Loop struct {
	events    chan func()
	done      chan struct{}
	afterEach []func()
	logger    zerolog.Logger

	mu     sync.Mutex
	timers []*loopTimer
	closed bool
	wg     sync.WaitGroup
}

// NewLoop creates a loop. Closures may be posted before Run starts.
func NewLoop() *Loop {
	return &Loop{
		events: make(chan func(), 64),
		done:   make(chan struct{}),
		logger: xlog.WithComponent("loop"),
	}
}

// AfterEach registers fn to run after every dispatched closure. It must be
// called before Run.
func (l *Loop) AfterEach(fn func()) {
	l.afterEach = append(l.afterEach, fn)
}

// Do posts fn without waiting. It reports false if the loop has exited.
func (l *Loop) Do(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.events <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Call posts fn and waits for its result.
func (l *Loop) Call(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	if !l.Do(func() { result <- fn() }) {
		return ErrLoopStopped
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		// The closure may have run just before exit.
		select {
		case err := <-result:
			return err
		default:
			return ErrLoopStopped
		}
	}
}

// Run dispatches closures until ctx is cancelled. On return every timer is
// stopped and its goroutine has exited. Run may only be called once.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Debug().Str("event", "loop.started").Msg("event loop started")
	defer l.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.events:
			l.dispatch(fn)
		}
	}
}

func (l *Loop) dispatch(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error().Str("event", "loop.panic").Str("panic", fmt.Sprint(r)).Msg("recovered panic in event loop")
		}
	}()
	fn()
	for _, after := range l.afterEach {
		after()
	}
}

func (l *Loop) shutdown() {
	l.mu.Lock()
	l.closed = true
	timers := l.timers
	l.mu.Unlock()

	for _, t := range timers {
		t.Stop()
	}
	close(l.done)
	l.wg.Wait()
	l.logger.Debug().Str("event", "loop.stopped").Msg("event loop stopped")
}

// NewTimer implements TimerSource.
func (l *Loop) NewTimer(name string, fire func()) Timer {
	t := &loopTimer{loop: l, name: name, fire: fire}
	l.mu.Lock()
	l.timers = append(l.timers, t)
	l.mu.Unlock()
	return t
}

type loopTimer struct {
	loop *Loop
	name string
	fire func()

	mu     sync.Mutex
	gen    uint64
	stop   chan struct{}
	active bool
}

func (t *loopTimer) Start(period time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()

	t.loop.mu.Lock()
	closed := t.loop.closed
	if !closed {
		t.loop.wg.Add(1)
	}
	t.loop.mu.Unlock()
	if closed {
		return
	}

	t.gen++
	t.stop = make(chan struct{})
	t.active = true
	go t.run(period, t.gen, t.stop)
}

func (t *loopTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *loopTimer) stopLocked() {
	if !t.active {
		return
	}
	t.gen++
	close(t.stop)
	t.active = false
}

func (t *loopTimer) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

func (t *loopTimer) current(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active && t.gen == gen
}

func (t *loopTimer) run(period time.Duration, gen uint64, stop <-chan struct{}) {
	defer t.loop.wg.Done()
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	fire := func() {
		// A fire queued before Stop or a restart is dropped here.
		if t.current(gen) {
			t.fire()
		}
	}
	for {
		select {
		case <-stop:
			return
		case <-t.loop.done:
			return
		case <-ticker.C:
			select {
			case t.loop.events <- fire:
			case <-stop:
				return
			case <-t.loop.done:
				return
			}
		}
	}
}
