package scheduler

// Trigger is a unit of delayed or conditional behavior evaluated on every
// tick. Act receives the scheduler's current elapsed tick count and decides
// internally whether to do anything. Act is only ever called from the timer
// goroutine, strictly sequentially, so implementations need no locking for
// their own state.
type Trigger interface {
	Act(elapsed uint64) error
}

// TriggerFunc adapts a plain function to the Trigger interface.
type TriggerFunc func(elapsed uint64) error

// Act implements Trigger.
func (f TriggerFunc) Act(elapsed uint64) error { return f(elapsed) }

// Deadline returns a trigger that invokes action on every tick where
// elapsed >= threshold. It keeps firing each tick past the threshold until a
// Reset brings elapsed back below it; encode any fire-once semantics with
// Limited or a custom stateful trigger instead.
func Deadline(threshold uint64, action func() error) Trigger {
	return &deadlineTrigger{threshold: threshold, action: action}
}

type deadlineTrigger struct {
	threshold uint64
	action    func() error
}

func (d *deadlineTrigger) Act(elapsed uint64) error {
	if elapsed < d.threshold {
		return nil
	}
	return d.action()
}

// Limited returns a stateful trigger that invokes action at most fires times
// once elapsed reaches threshold. The remaining-fire budget is internal
// mutable state; it is touched only from Act, which the scheduler calls from
// a single goroutine.
func Limited(threshold uint64, fires int, action func() error) Trigger {
	return &limitedTrigger{threshold: threshold, remaining: fires, action: action}
}

type limitedTrigger struct {
	threshold uint64
	remaining int
	action    func() error
}

func (l *limitedTrigger) Act(elapsed uint64) error {
	if elapsed < l.threshold || l.remaining <= 0 {
		return nil
	}
	l.remaining--
	return l.action()
}

// Named attaches a label to a trigger for logs and journal entries. Triggers
// are behaviorally identified; the name is optional and only decorative.
func Named(name string, t Trigger) Trigger {
	return &namedTrigger{name: name, Trigger: t}
}

type namedTrigger struct {
	name string
	Trigger
}

func (n *namedTrigger) Name() string { return n.name }

// Name returns the label attached with Named, or "" for anonymous triggers.
func Name(t Trigger) string {
	if n, ok := t.(interface{ Name() string }); ok {
		return n.Name()
	}
	return ""
}
