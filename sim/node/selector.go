package node

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/inference-sim/factorysim/sim"
	"github.com/inference-sim/factorysim/sim/edge"
)

// Direction tells a Selector whether it picks an input or an output edge.
type Direction int

const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == In {
		return "in"
	}
	return "out"
}

// ready reports whether e can serve the direction without waiting.
func (d Direction) ready(e edge.Edge) bool {
	if d == In {
		return e.CanGet()
	}
	return e.CanPut()
}

// AnyEdge is returned by a Selector that has no preference: the node races
// reservations on every candidate edge and takes the first granted.
const AnyEdge = -1

// Selector picks one of a node's candidate edges. It runs inside the calling
// worker's process and may suspend it through p.
type Selector interface {
	Select(p *sim.Process, edges []edge.Edge, dir Direction) (int, error)
}

// Selection policy names accepted in netlists.
const (
	PolicyFirstAvailable = "FIRST_AVAILABLE"
	PolicyRoundRobin     = "ROUND_ROBIN"
	PolicyRandom         = "RANDOM"
)

// validPolicies lists the built-in selection policies.
var validPolicies = map[string]bool{
	"":                   true,
	PolicyFirstAvailable: true,
	PolicyRoundRobin:     true,
	PolicyRandom:         true,
}

// IsValidPolicy returns true if name is a recognized built-in policy.
func IsValidPolicy(name string) bool { return validPolicies[name] }

// ValidPolicyNames returns the built-in policy names, sorted, excluding the empty string.
func ValidPolicyNames() []string {
	names := make([]string, 0, len(validPolicies))
	for n := range validPolicies {
		if n != "" {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// NewSelector creates a built-in policy. Empty name defaults to FIRST_AVAILABLE.
// rng feeds RANDOM and should be the node's own partition.
// Panics on unknown names; callers validate with IsValidPolicy first.
func NewSelector(name string, rng *rand.Rand) Selector {
	if !IsValidPolicy(name) {
		panic(fmt.Sprintf("unknown selection policy %q", name))
	}
	switch name {
	case "", PolicyFirstAvailable:
		return &FirstAvailable{}
	case PolicyRoundRobin:
		return &RoundRobin{}
	case PolicyRandom:
		return NewRandom(rng)
	default:
		panic(fmt.Sprintf("unhandled selection policy %q", name))
	}
}

// FirstAvailable picks the first ready edge in declared order. When none is
// ready it returns AnyEdge so the node waits on all of them.
type FirstAvailable struct{}

// Select implements Selector.
func (FirstAvailable) Select(_ *sim.Process, edges []edge.Edge, dir Direction) (int, error) {
	for i, e := range edges {
		if dir.ready(e) {
			return i, nil
		}
	}
	return AnyEdge, nil
}

// RoundRobin cycles through the edges regardless of readiness.
type RoundRobin struct {
	counter int
}

// Select implements Selector.
func (rr *RoundRobin) Select(_ *sim.Process, edges []edge.Edge, _ Direction) (int, error) {
	if len(edges) == 0 {
		panic("RoundRobin.Select: no edges")
	}
	idx := rr.counter % len(edges)
	rr.counter++
	return idx, nil
}

// Random picks uniformly.
type Random struct {
	rng *rand.Rand
}

// NewRandom creates a Random selector drawing from rng.
func NewRandom(rng *rand.Rand) *Random {
	if rng == nil {
		panic("NewRandom: rng must not be nil")
	}
	return &Random{rng: rng}
}

// Select implements Selector.
func (r *Random) Select(_ *sim.Process, edges []edge.Edge, _ Direction) (int, error) {
	return r.rng.IntN(len(edges)), nil
}

// Sequence replays a fixed list of indices, wrapping around.
type Sequence struct {
	indices []int
	next    int
}

// NewSequence creates a Sequence. Panics on an empty list.
func NewSequence(indices ...int) *Sequence {
	if len(indices) == 0 {
		panic("NewSequence: indices must not be empty")
	}
	return &Sequence{indices: append([]int(nil), indices...)}
}

// Select implements Selector.
func (s *Sequence) Select(_ *sim.Process, _ []edge.Edge, _ Direction) (int, error) {
	idx := s.indices[s.next]
	s.next = (s.next + 1) % len(s.indices)
	return idx, nil
}

// Custom adapts a function to Selector. The function may suspend the worker
// through p, for example to wait for a shift change.
type Custom func(p *sim.Process, edges []edge.Edge, dir Direction) (int, error)

// Select implements Selector.
func (c Custom) Select(p *sim.Process, edges []edge.Edge, dir Direction) (int, error) {
	return c(p, edges, dir)
}
