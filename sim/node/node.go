// Package node implements the active components of a production network:
// Source, Machine, Splitter, Combiner and Sink. Each runs one or more worker
// processes that pull items from in-edges and push them to out-edges through
// the edges' reservation contract.
package node

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/factorysim/sim"
	"github.com/inference-sim/factorysim/sim/edge"
	"github.com/inference-sim/factorysim/sim/stats"
	"github.com/inference-sim/factorysim/sim/store"
	"github.com/inference-sim/factorysim/sim/trace"
)

// Node is what the topology and the report see of a node.
type Node interface {
	ID() string
	Snapshot(now float64) stats.Snapshot
}

// Arity bounds the number of edges on one side of a node. Max < 0 means unbounded.
type Arity struct {
	Min, Max int
}

func (a Arity) ok(n int) bool { return n >= a.Min && (a.Max < 0 || n <= a.Max) }

func (a Arity) String() string {
	switch {
	case a.Min == a.Max:
		return fmt.Sprintf("exactly %d", a.Min)
	case a.Max < 0:
		return fmt.Sprintf("at least %d", a.Min)
	default:
		return fmt.Sprintf("%d to %d", a.Min, a.Max)
	}
}

// Arities holds the edge arity contract of every node type.
var Arities = map[string]struct{ In, Out Arity }{
	"Source":   {In: Arity{0, 0}, Out: Arity{1, -1}},
	"Sink":     {In: Arity{1, -1}, Out: Arity{0, 0}},
	"Machine":  {In: Arity{1, -1}, Out: Arity{1, -1}},
	"Splitter": {In: Arity{1, 1}, Out: Arity{2, 2}},
	"Combiner": {In: Arity{2, 2}, Out: Arity{1, 1}},
}

// CheckArity returns a *sim.TopologyError when in/out counts violate the
// contract of kind.
func CheckArity(id, kind string, in, out int) error {
	a, ok := Arities[kind]
	if !ok {
		return sim.NewTopologyError(id, "unknown node type %q", kind)
	}
	if !a.In.ok(in) {
		return sim.NewTopologyError(id, "%s needs %s in-edge(s), has %d", kind, a.In, in)
	}
	if !a.Out.ok(out) {
		return sim.NewTopologyError(id, "%s needs %s out-edge(s), has %d", kind, a.Out, out)
	}
	return nil
}

// base carries what every node shares: identity, edges, worker statistics and
// the pull/push helpers.
type base struct {
	id    string
	kind  string
	env   *sim.Environment
	in    []edge.Edge
	out   []edge.Edge
	log   *logrus.Entry
	start float64

	workers   []*stats.WorkerStats
	processed int
	discarded int
}

func newBase(env *sim.Environment, id, kind string, in, out []edge.Edge) (base, error) {
	if err := CheckArity(id, kind, len(in), len(out)); err != nil {
		return base{}, err
	}
	return base{
		id:    id,
		kind:  kind,
		env:   env,
		in:    in,
		out:   out,
		log:   logrus.WithFields(logrus.Fields{"component": id, "type": kind}),
		start: env.Now(),
	}, nil
}

// ID returns the node ID.
func (n *base) ID() string { return n.id }

// Discarded returns the number of items dropped on non-blocking overflow.
func (n *base) Discarded() int { return n.discarded }

// Processed returns the number of items the workers finished.
func (n *base) Processed() int { return n.processed }

func (n *base) newWorker() *stats.WorkerStats {
	w := stats.NewWorkerStats(len(n.workers), n.env.Now())
	n.workers = append(n.workers, w)
	return w
}

func (n *base) spawn(w *stats.WorkerStats, loop func(p *sim.Process, w *stats.WorkerStats) error) {
	n.env.Process(fmt.Sprintf("%s:worker-%d", n.id, w.ID), func(p *sim.Process) error {
		return loop(p, w)
	})
}

func (n *base) snapshot(now float64, counters map[string]int) stats.Snapshot {
	if counters == nil {
		counters = make(map[string]int)
	}
	counters["processed"] = n.processed
	counters["discarded"] = n.discarded
	snap := stats.Snapshot{ID: n.id, Type: n.kind, Counters: counters}
	for _, w := range n.workers {
		snap.Workers = append(snap.Workers, w.Snapshot(n.start, now))
	}
	return snap
}

// pull selects an in-edge with sel and takes one item from it, waiting as
// long as needed.
func (n *base) pull(p *sim.Process, sel Selector) (*sim.Item, error) {
	return n.pullFrom(p, n.in, sel)
}

func (n *base) pullFrom(p *sim.Process, edges []edge.Edge, sel Selector) (*sim.Item, error) {
	idx, err := sel.Select(p, edges, In)
	if err != nil {
		return nil, err
	}
	e, r, err := n.reserve(p, edges, idx, In, nil)
	if err != nil {
		return nil, err
	}
	return e.Get(r)
}

// push hands item to an out-edge chosen by sel. A blocking node waits for
// room; a non-blocking one discards the item when the chosen edge cannot take
// it right now. Returns false when the item was discarded.
func (n *base) push(p *sim.Process, w *stats.WorkerStats, item *sim.Item, sel Selector, blocking bool) (bool, error) {
	idx, err := sel.Select(p, n.out, Out)
	if err != nil {
		return false, err
	}
	if !blocking {
		if idx == AnyEdge || !n.out[n.checkIndex(idx, n.out)].CanPut() {
			n.discard(item)
			return false, nil
		}
	}
	onWait := func() {
		if w != nil {
			w.Blocked(p.Now())
		}
	}
	e, r, err := n.reserve(p, n.out, idx, Out, onWait)
	if err != nil {
		return false, err
	}
	if err := e.Put(r, item); err != nil {
		return false, err
	}
	return true, nil
}

func (n *base) checkIndex(idx int, edges []edge.Edge) int {
	if idx < 0 || idx >= len(edges) {
		panic(fmt.Sprintf("%s: selector returned edge index %d, have %d edges", n.id, idx, len(edges)))
	}
	return idx
}

func reserveOn(e edge.Edge, dir Direction) *store.Reservation {
	if dir == In {
		return e.ReserveGet()
	}
	return e.ReservePut()
}

// reserve obtains a granted reservation on edges[idx], or on whichever edge
// grants first when idx is AnyEdge. Losing reservations are canceled; among
// reservations granted at the same instant the lowest index wins.
// onWait runs before the process suspends.
func (n *base) reserve(p *sim.Process, edges []edge.Edge, idx int, dir Direction, onWait func()) (edge.Edge, *store.Reservation, error) {
	if idx != AnyEdge {
		e := edges[n.checkIndex(idx, edges)]
		r := reserveOn(e, dir)
		if !r.Granted() {
			if onWait != nil {
				onWait()
			}
			if _, err := p.Wait(r.Event()); err != nil {
				return nil, nil, err
			}
		}
		return e, r, nil
	}

	toks := make([]*store.Reservation, len(edges))
	events := make([]*sim.Event, len(edges))
	granted := false
	for i, e := range edges {
		toks[i] = reserveOn(e, dir)
		events[i] = toks[i].Event()
		granted = granted || toks[i].Granted()
	}
	if !granted {
		if onWait != nil {
			onWait()
		}
		if _, err := p.Wait(n.env.AnyOf(events...)); err != nil {
			return nil, nil, err
		}
	}
	winner := -1
	for i, tok := range toks {
		if winner < 0 && tok.Granted() {
			winner = i
			continue
		}
		if err := edges[i].Cancel(tok); err != nil {
			return nil, nil, err
		}
	}
	if winner < 0 {
		return nil, nil, fmt.Errorf("%s: %s race woke without a grant", n.id, dir)
	}
	return edges[winner], toks[winner], nil
}

// discard drops item on non-blocking overflow.
func (n *base) discard(item *sim.Item) {
	now := n.env.Now()
	n.discarded++
	n.env.Record(trace.KindDiscard, item, n.id)
	item.Destroy(now)
	if n.discarded == 1 {
		n.log.Warnf("[t=%.3f] out-edges full, discarding %s (further discards are only counted)", now, item.ID)
	} else {
		n.log.Debugf("[t=%.3f] discarding %s", now, item.ID)
	}
}
