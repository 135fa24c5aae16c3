// Package scheduler provides a deadline-callback scheduler: a single timer
// goroutine advancing an elapsed counter once per tick, and a set of
// registered triggers evaluated on every tick.
//
// Features:
//   - Deadline triggers firing once elapsed reaches a fixed threshold
//   - Stateful triggers (e.g. Limited) deciding internally when to act
//   - Asynchronous control signals: Start, Reset, ForceFire, Stop
//   - Dynamic registration before and after Start, mutex-mediated
//   - Fail-fast error policy: the first trigger error terminates the loop
//     and surfaces through Join
//   - Structured logging with slog and optional observability hooks
//
// Basic usage:
//
//	s := scheduler.New(scheduler.Config{Logger: logger},
//		scheduler.Deadline(30, func() error {
//			logger.Warn("thirty seconds elapsed")
//			return nil
//		}),
//	)
//	s.Register(scheduler.Limited(5, 2, notifyOnce))
//	s.Start()
//	// ... later, from any goroutine:
//	s.Reset()     // elapsed back to 0
//	s.ForceFire() // invoke every trigger right now
//	s.Stop()
//	if err := s.Join(); err != nil {
//		// a trigger action failed and aborted the loop
//	}
//
// Semantics worth knowing:
//   - A Deadline trigger re-fires on every tick past its threshold until a
//     Reset drops elapsed below it again. Fire-once behavior belongs inside
//     stateful triggers such as Limited.
//   - No trigger runs before Start. The timer goroutine blocks for the first
//     signal only; a first signal other than Start terminates it cleanly.
//   - Signals are serviced ahead of the tick-and-sleep branch, so Stop and
//     Reset take effect with at most one tick of latency.
//   - Triggers run sequentially on the timer goroutine, in registration
//     order; there is no worker pool and no parallel evaluation.
package scheduler
