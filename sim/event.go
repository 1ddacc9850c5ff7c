package sim

import "fmt"

// EventState is the lifecycle stage of an Event.
type EventState int

const (
	// EventPending events have not been triggered yet.
	EventPending EventState = iota
	// EventTriggered events carry a value or error and sit in the event heap
	// until the environment processes their callbacks.
	EventTriggered
	// EventProcessed events have had their callbacks run.
	EventProcessed
)

func (s EventState) String() string {
	switch s {
	case EventPending:
		return "pending"
	case EventTriggered:
		return "triggered"
	case EventProcessed:
		return "processed"
	default:
		return fmt.Sprintf("EventState(%d)", int(s))
	}
}

// Callback is invoked by the environment when the event it is attached to is processed.
type Callback func(*Event)

type callbackEntry struct {
	id uint64
	fn Callback
}

// Event is a single-use occurrence at a point in logical time.
// An event is shared by reference with all of its waiters; it is owned by no one.
// Succeed or Fail triggers it exactly once, and the environment later runs its
// callbacks in registration order.
type Event struct {
	env       *Environment
	name      string
	state     EventState
	value     any
	err       error
	callbacks []callbackEntry
	nextCB    uint64
}

// NewEvent creates a pending event owned by env.
func (env *Environment) NewEvent(name string) *Event {
	return &Event{env: env, name: name}
}

// Name returns the debug name of the event.
func (e *Event) Name() string { return e.name }

// State returns the lifecycle stage of the event.
func (e *Event) State() EventState { return e.state }

// Triggered reports whether Succeed or Fail has been called.
func (e *Event) Triggered() bool { return e.state != EventPending }

// Processed reports whether the environment has run the event's callbacks.
func (e *Event) Processed() bool { return e.state == EventProcessed }

// OK reports whether the event was triggered successfully.
func (e *Event) OK() bool { return e.state != EventPending && e.err == nil }

// Value returns the value passed to Succeed (nil until triggered).
func (e *Event) Value() any { return e.value }

// Err returns the error passed to Fail.
func (e *Event) Err() error { return e.err }

// Succeed triggers the event with value and schedules it at the current time.
func (e *Event) Succeed(value any) error {
	if e.state != EventPending {
		return fmt.Errorf("succeed %q: %w", e.name, ErrEventTriggered)
	}
	e.state = EventTriggered
	e.value = value
	e.env.schedule(e, 0)
	return nil
}

// Fail triggers the event with err and schedules it at the current time.
func (e *Event) Fail(err error) error {
	if e.state != EventPending {
		return fmt.Errorf("fail %q: %w", e.name, ErrEventTriggered)
	}
	if err == nil {
		panic("Event.Fail: err must not be nil")
	}
	e.state = EventTriggered
	e.err = err
	e.env.schedule(e, 0)
	return nil
}

// AddCallback registers fn to run when the event is processed and returns a
// handle for RemoveCallback. Adding a callback to a processed event is a bug.
func (e *Event) AddCallback(fn Callback) uint64 {
	if e.state == EventProcessed {
		panic(fmt.Sprintf("Event.AddCallback: %q already processed", e.name))
	}
	e.nextCB++
	e.callbacks = append(e.callbacks, callbackEntry{id: e.nextCB, fn: fn})
	return e.nextCB
}

// RemoveCallback deregisters a callback. Unknown handles are ignored.
func (e *Event) RemoveCallback(id uint64) {
	for i, cb := range e.callbacks {
		if cb.id == id {
			e.callbacks = append(e.callbacks[:i], e.callbacks[i+1:]...)
			return
		}
	}
}

// HasWaiters reports whether any callback is registered.
func (e *Event) HasWaiters() bool { return len(e.callbacks) > 0 }

// process runs the callbacks. Called only by the environment loop.
func (e *Event) process() {
	e.state = EventProcessed
	callbacks := e.callbacks
	e.callbacks = nil
	for _, cb := range callbacks {
		cb.fn(e)
	}
}

func (e *Event) String() string {
	return fmt.Sprintf("Event(%s, %s)", e.name, e.state)
}
