package sim

import (
	"fmt"
	"runtime"
)

type wakeup struct {
	ev   *Event
	kill bool
}

// Process is a cooperative task. Its function runs on a dedicated goroutine
// that only executes while the environment has handed it control; it gives
// control back whenever it waits on an event, and when it returns.
//
// A non-nil error returned by the function aborts the run.
type Process struct {
	env    *Environment
	id     uint64
	name   string
	fn     func(*Process) error
	resume chan wakeup
	done   *Event
	alive  bool

	waitingOn *Event
}

// Process spawns fn as a new process. It starts at the current time, after
// the events already scheduled for this instant.
func (env *Environment) Process(name string, fn func(*Process) error) *Process {
	env.nextPID++
	p := &Process{
		env:    env,
		id:     env.nextPID,
		name:   name,
		fn:     fn,
		resume: make(chan wakeup),
		alive:  true,
	}
	p.done = env.NewEvent(name + ":done")
	env.procs = append(env.procs, p)
	go p.run()

	start := env.NewEvent(name + ":start")
	start.AddCallback(func(e *Event) { env.resume(p, e) })
	_ = start.Succeed(nil)
	return p
}

func (p *Process) run() {
	defer func() {
		if r := recover(); r != nil {
			p.env.abort(fmt.Errorf("process %s: panic: %v", p.name, r))
		}
		p.alive = false
		p.waitingOn = nil
		p.env.handoff <- struct{}{}
	}()
	w := <-p.resume
	if w.kill {
		return
	}
	if err := p.fn(p); err != nil {
		p.env.abort(fmt.Errorf("process %s: %w", p.name, err))
		_ = p.done.Fail(err)
		return
	}
	_ = p.done.Succeed(nil)
}

// resume hands control to p until it waits again or finishes.
func (env *Environment) resume(p *Process, ev *Event) {
	if !p.alive || env.closed {
		return
	}
	prev := env.active
	env.active = p
	p.resume <- wakeup{ev: ev}
	<-env.handoff
	env.active = prev
}

// Name returns the process name.
func (p *Process) Name() string { return p.name }

// Env returns the owning environment.
func (p *Process) Env() *Environment { return p.env }

// Now is shorthand for p.Env().Now().
func (p *Process) Now() float64 { return p.env.now }

// Alive reports whether the process function has not returned yet.
func (p *Process) Alive() bool { return p.alive }

// Done returns an event triggered when the process function returns.
func (p *Process) Done() *Event { return p.done }

// WaitingOn returns the event the process is suspended on, or nil.
func (p *Process) WaitingOn() *Event { return p.waitingOn }

// Wait suspends the process until ev is processed and returns its value and
// error. An already processed event returns immediately without yielding.
// Wait must only be called from p's own function.
func (p *Process) Wait(ev *Event) (any, error) {
	if p.env.active != p {
		panic(fmt.Sprintf("Process.Wait: %s is not the running process", p.name))
	}
	if ev.state == EventProcessed {
		return ev.value, ev.err
	}
	id := ev.AddCallback(func(e *Event) { p.env.resume(p, e) })
	p.waitingOn = ev
	p.env.handoff <- struct{}{}
	w := <-p.resume
	p.waitingOn = nil
	if w.kill {
		ev.RemoveCallback(id)
		runtime.Goexit()
	}
	return w.ev.value, w.ev.err
}

// Hold suspends the process for delay time units.
func (p *Process) Hold(delay float64) error {
	_, err := p.Wait(p.env.Timeout(delay))
	return err
}
