package sim

// ConditionValue is the value of a processed AnyOf/AllOf event: the
// sub-events that had been processed when the condition fired, in firing order.
type ConditionValue struct {
	Events []*Event
}

// Contains reports whether ev is among the fired sub-events.
func (cv *ConditionValue) Contains(ev *Event) bool {
	for _, e := range cv.Events {
		if e == ev {
			return true
		}
	}
	return false
}

// AnyOf returns an event that succeeds as soon as one of events is processed.
func (env *Environment) AnyOf(events ...*Event) *Event {
	return env.condition("any_of", events, func(fired, _ int) bool { return fired >= 1 })
}

// AllOf returns an event that succeeds once every one of events is processed.
func (env *Environment) AllOf(events ...*Event) *Event {
	return env.condition("all_of", events, func(fired, total int) bool { return fired == total })
}

// condition fails with the first failing sub-event's error. When it fires it
// deregisters itself from the sub-events that have not been processed.
func (env *Environment) condition(name string, events []*Event, satisfied func(fired, total int) bool) *Event {
	cond := env.NewEvent(name)
	if len(events) == 0 {
		_ = cond.Succeed(&ConditionValue{})
		return cond
	}

	type registration struct {
		ev *Event
		id uint64
	}
	var regs []registration
	fired := make([]*Event, 0, len(events))

	detach := func() {
		for _, r := range regs {
			r.ev.RemoveCallback(r.id)
		}
		regs = nil
	}
	check := func(e *Event) {
		if cond.Triggered() {
			return
		}
		if e.err != nil {
			detach()
			_ = cond.Fail(e.err)
			return
		}
		fired = append(fired, e)
		if satisfied(len(fired), len(events)) {
			detach()
			_ = cond.Succeed(&ConditionValue{Events: fired})
		}
	}

	for _, ev := range events {
		if ev.Processed() {
			check(ev)
		}
	}
	if cond.Triggered() {
		return cond
	}
	for _, ev := range events {
		if !ev.Processed() {
			regs = append(regs, registration{ev: ev, id: ev.AddCallback(check)})
		}
	}
	return cond
}
