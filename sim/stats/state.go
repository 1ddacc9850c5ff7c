// Package stats holds the per-component statistics collectors: time spent in
// observational states, time-weighted occupancy and scalar samples.
// Collectors are passive; components push updates with the current time.
package stats

import (
	"fmt"
	"sort"
)

// StateTimer accumulates the time spent in each named state.
type StateTimer struct {
	state  string
	since  float64
	totals map[string]float64
}

// NewStateTimer starts timing in initial at now.
func NewStateTimer(initial string, now float64) *StateTimer {
	return &StateTimer{state: initial, since: now, totals: map[string]float64{initial: 0}}
}

// State returns the current state.
func (st *StateTimer) State() string { return st.state }

// Set switches to state at now. Setting the current state is a no-op.
func (st *StateTimer) Set(state string, now float64) {
	if state == st.state {
		return
	}
	if now < st.since {
		panic(fmt.Sprintf("StateTimer.Set: time went backwards (%g < %g)", now, st.since))
	}
	st.totals[st.state] += now - st.since
	st.state = state
	st.since = now
	if _, ok := st.totals[state]; !ok {
		st.totals[state] = 0
	}
}

// Totals returns time per state up to now, including the ongoing stay.
func (st *StateTimer) Totals(now float64) map[string]float64 {
	out := make(map[string]float64, len(st.totals))
	for k, v := range st.totals {
		out[k] = v
	}
	if now > st.since {
		out[st.state] += now - st.since
	}
	return out
}

// Fractions returns the share of elapsed time per state. Elapsed time is
// measured from start.
func (st *StateTimer) Fractions(start, now float64) map[string]float64 {
	totals := st.Totals(now)
	elapsed := now - start
	out := make(map[string]float64, len(totals))
	for k, v := range totals {
		if elapsed > 0 {
			out[k] = v / elapsed
		} else {
			out[k] = 0
		}
	}
	return out
}

// States returns the names of every state seen so far, sorted.
func (st *StateTimer) States() []string {
	names := make([]string, 0, len(st.totals))
	for k := range st.totals {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
