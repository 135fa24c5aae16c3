package scheduler

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kingwingfly/cradle-system/internal/shared"
)

// Signal is an asynchronous control instruction for the timer goroutine.
type Signal int

const (
	// SignalStart begins the tick loop; only the first Start matters.
	SignalStart Signal = iota
	// SignalReset sets elapsed back to 0.
	SignalReset
	// SignalForceFire invokes every trigger immediately at the current
	// elapsed value, outside the tick cadence.
	SignalForceFire
	// SignalStop terminates the tick loop.
	SignalStop
)

// String returns the signal name for logs.
func (s Signal) String() string {
	switch s {
	case SignalStart:
		return "start"
	case SignalReset:
		return "reset"
	case SignalForceFire:
		return "force-fire"
	case SignalStop:
		return "stop"
	default:
		return "unknown"
	}
}

// State is the coarse scheduler lifecycle: NotStarted -> Running -> Stopped.
// Reset and ForceFire are intra-Running operations and do not change it.
type State int32

const (
	StateNotStarted State = iota
	StateRunning
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Hooks contains optional observability callbacks. They run on the timer
// goroutine and must return quickly.
type Hooks struct {
	// OnTick fires after each completed evaluation pass, with the elapsed
	// value that pass observed.
	OnTick func(elapsed uint64)
	// OnAbort fires once if a trigger error terminates the loop.
	OnAbort func(err error)
}

// Config holds scheduler configuration.
type Config struct {
	Logger *slog.Logger
	// Tick is the duration of one elapsed unit. Zero means one second, the
	// scheduler's native cadence; tests shrink it to compress time.
	Tick  time.Duration
	Hooks Hooks
}

// signalBuffer bounds pending control signals. Callers only block on a send
// if they burst past this while the loop is mid-sleep.
const signalBuffer = 16

// Scheduler owns a set of triggers and a single timer goroutine that
// evaluates them once per tick after Start. Control signals may be sent from
// any goroutine; the timer goroutine is the only consumer.
type Scheduler struct {
	log   *slog.Logger
	tick  time.Duration
	hooks Hooks

	mu       sync.Mutex
	triggers []Trigger

	signals chan Signal
	done    chan struct{}
	runErr  error

	state   atomic.Int32
	elapsed atomic.Uint64
}

// New creates a Scheduler pre-loaded with the given triggers and spawns the
// timer goroutine. The goroutine blocks until the first signal arrives and
// proceeds only if it is Start; any other first signal terminates it without
// ever evaluating a trigger.
func New(cfg Config, triggers ...Trigger) *Scheduler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	tick := cfg.Tick
	if tick <= 0 {
		tick = time.Second
	}

	s := &Scheduler{
		log:      log,
		tick:     tick,
		hooks:    cfg.Hooks,
		triggers: append([]Trigger(nil), triggers...),
		signals:  make(chan Signal, signalBuffer),
		done:     make(chan struct{}),
	}

	go func() {
		err := s.run()
		s.runErr = err
		s.state.Store(int32(StateStopped))
		close(s.done)
	}()

	return s
}

// Register adds a trigger to the live set. Safe before and after Start; the
// timer goroutine picks it up on its next evaluation pass.
func (s *Scheduler) Register(t Trigger) {
	s.mu.Lock()
	s.triggers = append(s.triggers, t)
	n := len(s.triggers)
	s.mu.Unlock()
	s.log.Debug("trigger registered", "name", Name(t), "total", n)
}

// Start sends the Start signal. Duplicate Starts after the first are ignored
// by the loop.
func (s *Scheduler) Start() { s.send(SignalStart) }

// Reset sends the Reset signal; elapsed becomes 0 at the next loop iteration
// that observes it.
func (s *Scheduler) Reset() { s.send(SignalReset) }

// ForceFire sends the ForceFire signal; every trigger is invoked immediately
// with the current elapsed value, without advancing elapsed.
func (s *Scheduler) ForceFire() { s.send(SignalForceFire) }

// Stop sends the Stop signal. The loop observes it before starting another
// evaluation pass, so at most the pass already in flight completes.
func (s *Scheduler) Stop() { s.send(SignalStop) }

// Join blocks until the timer goroutine has terminated and returns the error
// that aborted the loop, if any.
func (s *Scheduler) Join() error {
	<-s.done
	return s.runErr
}

// State returns the coarse lifecycle state.
func (s *Scheduler) State() State { return State(s.state.Load()) }

// IsRunning reports whether the loop is between Start and Stop.
func (s *Scheduler) IsRunning() bool { return s.State() == StateRunning }

// Elapsed returns the ticks counted since Start or the last Reset.
func (s *Scheduler) Elapsed() uint64 { return s.elapsed.Load() }

// TriggerCount returns the current size of the trigger set.
func (s *Scheduler) TriggerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.triggers)
}

// send delivers a signal unless the timer goroutine has already terminated,
// in which case the signal is dropped so callers never block on a dead loop.
func (s *Scheduler) send(sig Signal) {
	select {
	case s.signals <- sig:
	case <-s.done:
		s.log.Debug("signal dropped, scheduler stopped", "signal", sig.String())
	}
}

// run is the timer goroutine body.
func (s *Scheduler) run() error {
	// Blocking receive for exactly the first signal. Anything but Start is
	// the no-op termination path.
	first := <-s.signals
	if first != SignalStart {
		s.log.Warn("scheduler terminated before start", "signal", first.String())
		return nil
	}
	s.state.Store(int32(StateRunning))
	s.log.Info("scheduler started", "tick", s.tick)

	var elapsed uint64
	for {
		select {
		case sig := <-s.signals:
			switch sig {
			case SignalReset:
				elapsed = 0
				s.elapsed.Store(0)
				s.log.Info("elapsed reset")
			case SignalForceFire:
				s.log.Info("force firing all triggers", "elapsed", elapsed)
				if err := s.firePass(elapsed); err != nil {
					return s.abort(err)
				}
			case SignalStop:
				s.log.Info("scheduler stopped", "elapsed", elapsed)
				return nil
			default:
				// Duplicate Start while running.
				s.log.Debug("signal ignored", "signal", sig.String())
			}
		default:
			if err := s.firePass(elapsed); err != nil {
				return s.abort(err)
			}
			if s.hooks.OnTick != nil {
				s.hooks.OnTick(elapsed)
			}
			time.Sleep(s.tick)
			elapsed++
			s.elapsed.Store(elapsed)
		}
	}
}

// firePass invokes every trigger's Act in registration order. The first
// error aborts the pass; remaining triggers do not run. The lock is dropped
// before any Act call so trigger actions may call Register.
func (s *Scheduler) firePass(elapsed uint64) error {
	s.mu.Lock()
	triggers := append([]Trigger(nil), s.triggers...)
	s.mu.Unlock()

	for i, t := range triggers {
		if err := t.Act(elapsed); err != nil {
			name := Name(t)
			if name == "" {
				name = fmt.Sprintf("trigger-%d", i)
			}
			return shared.MarkKind(shared.Wrapf(err, "trigger %s at tick %d", name, elapsed), shared.KindActionFailed)
		}
	}
	return nil
}

func (s *Scheduler) abort(err error) error {
	s.log.Error("scheduler aborted", "error", err)
	if s.hooks.OnAbort != nil {
		s.hooks.OnAbort(err)
	}
	return err
}
