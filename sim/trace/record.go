// Package trace provides item lifecycle recording for flow analysis.
// This package has no dependencies on sim/; it stores plain data types.
package trace

import "fmt"

// Kind classifies an item lifecycle record.
type Kind string

const (
	// KindCreate marks an item born at a source.
	KindCreate Kind = "create"
	// KindEnter marks an item committed into a component.
	KindEnter Kind = "enter"
	// KindExit marks an item leaving a component.
	KindExit Kind = "exit"
	// KindDiscard marks an item destroyed by a non-blocking push that found its edge full.
	KindDiscard Kind = "discard"
	// KindAbsorb marks an item destroyed at a sink.
	KindAbsorb Kind = "absorb"
	// KindSplit marks a sub-item released from its carrier.
	KindSplit Kind = "split"
	// KindCombine marks an item loaded onto a carrier.
	KindCombine Kind = "combine"
)

// ItemRecord captures a single item lifecycle event.
type ItemRecord struct {
	Time      float64
	ItemID    string
	Component string
	Kind      Kind
}

func (r ItemRecord) String() string {
	return fmt.Sprintf("%.3f\t%s\t%s\t%s", r.Time, r.ItemID, r.Kind, r.Component)
}
