// sim/environment.go
package sim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/factorysim/sim/trace"
)

// Environment is the core object that holds simulation time, the event heap
// and the cooperative process loop. It is also the simulation context handed
// to every component: randomness and the item trace hang off it, so nothing
// persists between runs.
//
// Processes are goroutines, but exactly one of them (or the loop itself) runs
// at any moment; control is handed over explicitly through channels. Runs are
// therefore reproducible for a fixed seed.
type Environment struct {
	now   float64
	queue *EventHeap
	seq   uint64

	handoff chan struct{}
	active  *Process
	procs   []*Process
	nextPID uint64

	err    error
	closed bool

	// RNG partitions randomness per component so adding a component does not
	// perturb the streams of the others.
	RNG *PartitionedRNG
	// Trace records item lifecycle events. Nil disables tracing.
	Trace *trace.ItemTrace
}

// NewEnvironment creates an environment at time 0 whose randomness derives from seed.
func NewEnvironment(seed int64) *Environment {
	return &Environment{
		queue:   NewEventHeap(),
		handoff: make(chan struct{}),
		RNG:     NewPartitionedRNG(NewSimulationKey(seed)),
	}
}

// Now returns the current logical time.
func (env *Environment) Now() float64 { return env.now }

// Pending returns the number of scheduled events.
func (env *Environment) Pending() int { return env.queue.Len() }

// Err returns the fatal error that aborted the run, if any.
func (env *Environment) Err() error { return env.err }

// schedule pushes a triggered event into the heap, delay time units from now.
func (env *Environment) schedule(ev *Event, delay float64) {
	env.scheduleAt(ev, env.now+delay)
}

func (env *Environment) scheduleAt(ev *Event, at float64) {
	env.seq++
	env.queue.schedule(at, env.seq, ev)
}

// Timeout returns an event that is processed delay time units from now.
func (env *Environment) Timeout(delay float64) *Event {
	if delay < 0 || math.IsNaN(delay) || math.IsInf(delay, 0) {
		panic(fmt.Sprintf("Environment.Timeout: invalid delay %v", delay))
	}
	ev := &Event{env: env, name: "timeout", state: EventTriggered}
	env.schedule(ev, delay)
	return ev
}

// TimeoutAt returns an event processed at the absolute time at. Times in the
// past are clamped to now. Stores use it for wake-ups computed from stored
// timestamps, where now+(at-now) could round away from at.
func (env *Environment) TimeoutAt(at float64) *Event {
	if math.IsNaN(at) || math.IsInf(at, 0) {
		panic(fmt.Sprintf("Environment.TimeoutAt: invalid time %v", at))
	}
	if at < env.now {
		at = env.now
	}
	ev := &Event{env: env, name: "timeout", state: EventTriggered}
	env.scheduleAt(ev, at)
	return ev
}

// Step processes the next event. It returns false when the heap is empty.
func (env *Environment) Step() bool {
	entry, ok := env.queue.popNext()
	if !ok {
		return false
	}
	env.now = entry.time
	entry.ev.process()
	return true
}

// Run advances the simulation, processing every event scheduled strictly
// before until, then moves the clock to until. Pending events at or after
// until stay in the heap; call Close to discard them.
// Returns the first fatal error raised by a process.
func (env *Environment) Run(until float64) error {
	if env.closed {
		return ErrEnvironmentClosed
	}
	if until < env.now {
		return fmt.Errorf("run until %g: before current time %g", until, env.now)
	}
	logrus.Debugf("[t=%.3f] run until %g (%d pending events)", env.now, until, env.queue.Len())
	for env.err == nil {
		t, ok := env.queue.PeekTime()
		if !ok || t >= until {
			break
		}
		env.Step()
	}
	if env.err != nil {
		logrus.Errorf("[t=%.3f] simulation aborted: %v", env.now, env.err)
		return env.err
	}
	if !math.IsInf(until, 1) {
		env.now = until
	}
	return nil
}

// Close terminates every live process and drops all pending events.
// The environment cannot be run again afterwards.
func (env *Environment) Close() {
	if env.closed {
		return
	}
	env.closed = true
	env.queue.clear()
	for _, p := range env.procs {
		if !p.alive {
			continue
		}
		env.active = p
		p.resume <- wakeup{kill: true}
		<-env.handoff
	}
	env.active = nil
	env.procs = nil
}

// abort records the first fatal error; the run loop stops before the next event.
func (env *Environment) abort(err error) {
	if env.err == nil {
		env.err = err
	}
}

// Record appends an item lifecycle record when tracing is enabled.
func (env *Environment) Record(kind trace.Kind, item *Item, component string) {
	if env.Trace == nil || item == nil {
		return
	}
	env.Trace.Record(trace.ItemRecord{
		Time:      env.now,
		ItemID:    item.ID,
		Component: component,
		Kind:      kind,
	})
}
