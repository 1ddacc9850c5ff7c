package topology

import (
	"fmt"

	"github.com/inference-sim/factorysim/sim/trace"
)

// Compose merges several netlists into one, e.g. a line description and a
// separate file for its packaging cell. Components and connections are
// concatenated in order; a later netlist may connect to components declared
// by an earlier one. The seed comes from the first netlist, until is the
// largest one, and tracing is on if any netlist asks for it.
func Compose(netlists []*Netlist) (*Netlist, error) {
	if len(netlists) == 0 {
		return nil, fmt.Errorf("at least one netlist required")
	}
	merged := &Netlist{Seed: netlists[0].Seed}
	seen := make(map[string]int)
	for i, n := range netlists {
		if n.Until > merged.Until {
			merged.Until = n.Until
		}
		if n.Trace == string(trace.TraceLevelItems) || merged.Trace == "" {
			merged.Trace = n.Trace
		}
		for _, c := range n.Components {
			if j, dup := seen[c.ID]; dup {
				return nil, fmt.Errorf("netlist %d: component %q already declared by netlist %d", i, c.ID, j)
			}
			seen[c.ID] = i
			merged.Components = append(merged.Components, c)
		}
		merged.Connections = append(merged.Connections, n.Connections...)
	}
	return merged, nil
}
