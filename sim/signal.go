package sim

// Signal is a re-armable notification. Waiters take the current event with
// Wait; Fire triggers it and arms a fresh one. Firing with no waiters is a
// no-op, so idle components do not flood the event heap.
type Signal struct {
	env  *Environment
	name string
	ev   *Event
}

// NewSignal creates an armed signal.
func (env *Environment) NewSignal(name string) *Signal {
	return &Signal{env: env, name: name, ev: env.NewEvent(name)}
}

// Wait returns the event the next Fire will trigger.
func (s *Signal) Wait() *Event { return s.ev }

// Fire triggers the current event (if anyone waits on it) and re-arms.
func (s *Signal) Fire(value any) {
	if !s.ev.HasWaiters() {
		return
	}
	ev := s.ev
	s.ev = s.env.NewEvent(s.name)
	_ = ev.Succeed(value)
}
