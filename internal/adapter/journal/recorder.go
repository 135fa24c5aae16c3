package journal

import (
	"context"
	"log/slog"
	"time"
)

// Recorder decorates trigger actions so every fire lands in the Store. A
// journal write failure is logged but never propagated: persistence problems
// must not abort the timer loop.
type Recorder struct {
	store Store
	log   *slog.Logger
	// timeout bounds each journal write so a stuck store cannot stall ticks
	timeout time.Duration
}

// NewRecorder creates a Recorder writing to store.
func NewRecorder(store Store, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{store: store, log: log, timeout: 2 * time.Second}
}

// Action wraps an action so each invocation is journaled under name with the
// given elapsed value. The wrapped action's own error passes through intact.
func (r *Recorder) Action(name string, elapsed func() uint64, action func() error) func() error {
	return func() error {
		err := action()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		entry := Entry{Trigger: name, Elapsed: elapsed(), FiredAt: time.Now()}
		if recErr := r.store.Record(ctx, entry); recErr != nil {
			r.log.Warn("failed to journal trigger fire", "trigger", name, "error", recErr)
		}

		return err
	}
}
