package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingwingfly/cradle-system/internal/shared"
)

func waitForAtLeast(t *testing.T, counter *int64, expected int64, timeout time.Duration) {
	t.Helper()

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(counter) >= expected
	}, timeout, 5*time.Millisecond, "counter did not reach the expected value")
}

func ensureNoIncrement(t *testing.T, counter *int64, baseline int64, duration time.Duration) {
	t.Helper()

	assert.Never(t, func() bool {
		return atomic.LoadInt64(counter) > baseline
	}, duration, 5*time.Millisecond, "counter increased while it should have stayed flat")
}

func countingTrigger(counter *int64) Trigger {
	return TriggerFunc(func(elapsed uint64) error {
		atomic.AddInt64(counter, 1)
		return nil
	})
}

func TestScheduler_New(t *testing.T) {
	s := New(Config{})
	defer func() { s.Stop(); _ = s.Join() }()

	assert.NotNil(t, s)
	assert.Equal(t, StateNotStarted, s.State())
	assert.False(t, s.IsRunning())
	assert.Equal(t, uint64(0), s.Elapsed())
}

func TestScheduler_NoFireBeforeStart(t *testing.T) {
	var counter int64
	s := New(Config{Tick: 10 * time.Millisecond}, Deadline(0, func() error {
		atomic.AddInt64(&counter, 1)
		return nil
	}))

	ensureNoIncrement(t, &counter, 0, 150*time.Millisecond)
	assert.Equal(t, StateNotStarted, s.State())

	s.Stop()
	require.NoError(t, s.Join())
}

func TestScheduler_DeadlineRefiresUntilReset(t *testing.T) {
	var counter int64
	s := New(Config{Tick: 20 * time.Millisecond}, Deadline(2, func() error {
		atomic.AddInt64(&counter, 1)
		return nil
	}))
	defer func() { s.Stop(); _ = s.Join() }()

	s.Start()

	// A deadline trigger keeps firing on every tick past its threshold.
	waitForAtLeast(t, &counter, 3, 2*time.Second)
}

func TestScheduler_ThresholdStaircase(t *testing.T) {
	var c1, c2, c3 int64
	s := New(Config{Tick: 20 * time.Millisecond},
		Deadline(1, func() error { atomic.AddInt64(&c1, 1); return nil }),
		Deadline(2, func() error { atomic.AddInt64(&c2, 1); return nil }),
		Deadline(3, func() error { atomic.AddInt64(&c3, 1); return nil }),
	)
	defer func() { s.Stop(); _ = s.Join() }()

	s.Start()

	waitForAtLeast(t, &c1, 1, 2*time.Second)
	waitForAtLeast(t, &c2, 1, 2*time.Second)
	waitForAtLeast(t, &c3, 1, 2*time.Second)

	// Fire order within a tick is registration order, so by the time the
	// last threshold fires the earlier ones fired at least as often.
	assert.GreaterOrEqual(t, atomic.LoadInt64(&c1), atomic.LoadInt64(&c3))

	s.Reset()
	require.Eventually(t, func() bool {
		return s.Elapsed() < 1
	}, time.Second, 5*time.Millisecond, "reset did not bring elapsed back down")

	// After reset the staircase climbs again.
	before := atomic.LoadInt64(&c3)
	waitForAtLeast(t, &c3, before+1, 2*time.Second)
}

func TestScheduler_ResetSuppressesFires(t *testing.T) {
	var counter int64
	s := New(Config{Tick: 50 * time.Millisecond}, Deadline(5, func() error {
		atomic.AddInt64(&counter, 1)
		return nil
	}))
	defer func() { s.Stop(); _ = s.Join() }()

	s.Start()
	waitForAtLeast(t, &counter, 1, 3*time.Second)

	s.Reset()
	require.Eventually(t, func() bool {
		return s.Elapsed() < 5
	}, time.Second, 5*time.Millisecond, "reset did not bring elapsed back down")

	// Elapsed restarts from 0 and needs 5 ticks to reach the threshold
	// again, so the counter must stay flat for a while.
	baseline := atomic.LoadInt64(&counter)
	ensureNoIncrement(t, &counter, baseline, 150*time.Millisecond)

	waitForAtLeast(t, &counter, baseline+1, 3*time.Second)
}

func TestScheduler_ForceFire(t *testing.T) {
	var counter int64
	s := New(Config{Tick: 250 * time.Millisecond}, countingTrigger(&counter))
	defer func() { s.Stop(); _ = s.Join() }()

	s.Start()
	waitForAtLeast(t, &counter, 1, time.Second)

	// Three forced passes queue up during the first sleep and are serviced
	// back to back, well ahead of the natural cadence.
	s.ForceFire()
	s.ForceFire()
	s.ForceFire()

	waitForAtLeast(t, &counter, 4, time.Second)
	// Forced passes do not advance elapsed.
	assert.LessOrEqual(t, s.Elapsed(), uint64(3))
}

func TestScheduler_ForceFireRespectsDeadlineGate(t *testing.T) {
	var gated, free int64
	s := New(Config{Tick: 30 * time.Millisecond},
		Deadline(1000, func() error { atomic.AddInt64(&gated, 1); return nil }),
		countingTrigger(&free),
	)
	defer func() { s.Stop(); _ = s.Join() }()

	s.Start()
	waitForAtLeast(t, &free, 1, time.Second)

	s.ForceFire()
	waitForAtLeast(t, &free, 2, time.Second)

	// Act is invoked regardless of elapsed, but a deadline trigger's gate
	// still holds below its threshold.
	assert.Equal(t, int64(0), atomic.LoadInt64(&gated))
}

func TestScheduler_LimitedNeverExceedsBudget(t *testing.T) {
	var counter int64
	s := New(Config{Tick: 5 * time.Millisecond}, Limited(1, 2, func() error {
		atomic.AddInt64(&counter, 1)
		return nil
	}))
	defer func() { s.Stop(); _ = s.Join() }()

	s.Start()

	waitForAtLeast(t, &counter, 2, 2*time.Second)
	// Let the scheduler run on for many more ticks; the budget holds.
	ensureNoIncrement(t, &counter, 2, 300*time.Millisecond)
}

func TestScheduler_Stop(t *testing.T) {
	var counter int64
	s := New(Config{Tick: 20 * time.Millisecond}, countingTrigger(&counter))

	s.Start()
	waitForAtLeast(t, &counter, 1, time.Second)

	s.Stop()
	require.NoError(t, s.Join())
	assert.Equal(t, StateStopped, s.State())
	assert.False(t, s.IsRunning())

	baseline := atomic.LoadInt64(&counter)
	ensureNoIncrement(t, &counter, baseline, 150*time.Millisecond)
}

func TestScheduler_TriggerErrorAbortsLoop(t *testing.T) {
	boom := errors.New("boom")
	var failing, innocent int64
	s := New(Config{Tick: 20 * time.Millisecond},
		Named("flaky", TriggerFunc(func(elapsed uint64) error {
			atomic.AddInt64(&failing, 1)
			if elapsed == 2 {
				return boom
			}
			return nil
		})),
		countingTrigger(&innocent),
	)

	err := func() error { s.Start(); return s.Join() }()
	require.Error(t, err)
	require.ErrorIs(t, err, boom)
	assert.True(t, shared.IsActionFailed(err))
	assert.Contains(t, err.Error(), "flaky")

	// The failing trigger ran on ticks 0, 1 and 2 and never again; the
	// trigger after it in registration order missed the aborted pass.
	assert.Equal(t, int64(3), atomic.LoadInt64(&failing))
	assert.Equal(t, int64(2), atomic.LoadInt64(&innocent))

	baselineA := atomic.LoadInt64(&failing)
	baselineB := atomic.LoadInt64(&innocent)
	ensureNoIncrement(t, &failing, baselineA, 150*time.Millisecond)
	ensureNoIncrement(t, &innocent, baselineB, 150*time.Millisecond)
}

func TestScheduler_RegisterAfterStart(t *testing.T) {
	var counter int64
	s := New(Config{Tick: 20 * time.Millisecond})
	defer func() { s.Stop(); _ = s.Join() }()

	s.Start()
	require.Eventually(t, func() bool {
		return s.IsRunning()
	}, time.Second, 5*time.Millisecond, "scheduler did not start")

	s.Register(Deadline(0, func() error {
		atomic.AddInt64(&counter, 1)
		return nil
	}))
	assert.Equal(t, 1, s.TriggerCount())

	waitForAtLeast(t, &counter, 1, 2*time.Second)
}

func TestScheduler_FirstSignalNotStart(t *testing.T) {
	var counter int64
	s := New(Config{Tick: 10 * time.Millisecond}, countingTrigger(&counter))

	// A first signal other than Start is the no-op termination path.
	s.Reset()
	require.NoError(t, s.Join())
	assert.Equal(t, StateStopped, s.State())
	assert.Equal(t, int64(0), atomic.LoadInt64(&counter))

	// Late signals are dropped instead of blocking the caller.
	done := make(chan struct{})
	go func() { s.Start(); s.Stop(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("signal send blocked after termination")
	}
}

func TestScheduler_DuplicateStartsIgnored(t *testing.T) {
	var counter int64
	s := New(Config{Tick: 20 * time.Millisecond}, countingTrigger(&counter))
	defer func() { s.Stop(); _ = s.Join() }()

	s.Start()
	s.Start()
	s.Start()

	waitForAtLeast(t, &counter, 2, 2*time.Second)
	assert.True(t, s.IsRunning())
}

func TestScheduler_OnTickHook(t *testing.T) {
	var ticks int64
	s := New(Config{
		Tick:  20 * time.Millisecond,
		Hooks: Hooks{OnTick: func(elapsed uint64) { atomic.AddInt64(&ticks, 1) }},
	})
	defer func() { s.Stop(); _ = s.Join() }()

	s.Start()
	waitForAtLeast(t, &ticks, 3, 2*time.Second)
}

func TestScheduler_OnAbortHook(t *testing.T) {
	var aborted atomic.Bool
	s := New(Config{
		Tick:  10 * time.Millisecond,
		Hooks: Hooks{OnAbort: func(err error) { aborted.Store(true) }},
	}, TriggerFunc(func(elapsed uint64) error {
		return errors.New("bad action")
	}))

	s.Start()
	require.Error(t, s.Join())
	assert.True(t, aborted.Load())
}

func TestScheduler_ElapsedAdvances(t *testing.T) {
	s := New(Config{Tick: 15 * time.Millisecond})
	defer func() { s.Stop(); _ = s.Join() }()

	s.Start()
	require.Eventually(t, func() bool {
		return s.Elapsed() >= 3
	}, 2*time.Second, 5*time.Millisecond, "elapsed did not advance")
}
