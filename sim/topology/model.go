// Package topology turns a netlist into a runnable model: it validates the
// wiring, instantiates every edge and node against one environment and runs
// the simulation.
package topology

import (
	"fmt"
	"math/rand/v2"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/factorysim/sim"
	"github.com/inference-sim/factorysim/sim/dist"
	"github.com/inference-sim/factorysim/sim/edge"
	"github.com/inference-sim/factorysim/sim/node"
	"github.com/inference-sim/factorysim/sim/stats"
	"github.com/inference-sim/factorysim/sim/store"
	"github.com/inference-sim/factorysim/sim/trace"
)

// Component is what every node and edge exposes to the model.
type Component interface {
	ID() string
	Snapshot(now float64) stats.Snapshot
}

// Options supplies what a netlist can only refer to by name.
type Options struct {
	// Generators resolves {ref: name} delay parameters, e.g. fitted
	// distributions.
	Generators map[string]dist.Delay
	// Selectors resolves {ref: name} selection policies. The factory runs
	// once per node and direction so stateful selectors are not shared.
	Selectors map[string]func() node.Selector
	// TraceComponents restricts item tracing to these IDs (empty = all).
	TraceComponents []string
}

// Model is a built network. Components are stored in an arena indexed by
// their position in the netlist; connections are kept as ID pairs.
type Model struct {
	Env     *sim.Environment
	Netlist *Netlist

	components []Component
	index      map[string]int
}

// Build validates n and instantiates it. Nothing is scheduled unless the
// whole netlist is valid.
func Build(n *Netlist, opts Options) (*Model, error) {
	w, err := n.wire()
	if err != nil {
		return nil, err
	}
	env := sim.NewEnvironment(n.Seed)
	if trace.TraceLevel(n.Trace) == trace.TraceLevelItems {
		env.Trace = trace.NewItemTrace(trace.TraceConfig{Level: trace.TraceLevelItems, Components: opts.TraceComponents})
	}
	m := &Model{
		Env:        env,
		Netlist:    n,
		components: make([]Component, len(n.Components)),
		index:      w.index,
	}
	b := builder{env: env, opts: opts, w: w, m: m}

	// Edges first: nodes need them at construction.
	for i := range n.Components {
		c := &n.Components[i]
		if !IsEdgeType(c.Type) {
			continue
		}
		e, err := b.edge(c)
		if err != nil {
			env.Close()
			return nil, fmt.Errorf("components[%d] (%s): %w", i, c.ID, err)
		}
		m.components[i] = e
	}
	for i := range n.Components {
		c := &n.Components[i]
		if IsEdgeType(c.Type) {
			continue
		}
		nd, err := b.node(c)
		if err != nil {
			env.Close()
			return nil, fmt.Errorf("components[%d] (%s): %w", i, c.ID, err)
		}
		m.components[i] = nd
	}
	logrus.Debugf("built model: %d components, %d connections, seed %d", len(n.Components), len(n.Connections), n.Seed)
	return m, nil
}

// defaultSampleInterval is the occupancy sampling period of edges that do not
// set sample_interval.
const defaultSampleInterval = 1.0

type builder struct {
	env  *sim.Environment
	opts Options
	w    *wiring
	m    *Model
}

func (b *builder) delay(id, param string, s *dist.Spec) (dist.Delay, error) {
	if s == nil {
		return nil, nil
	}
	var src rand.Source = b.env.RNG.ForSubsystem(sim.SubsystemDelay(id, param))
	d, err := s.Build(src, b.opts.Generators)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", param, err)
	}
	return d, nil
}

func (b *builder) selector(id string, dir node.Direction, s SelectionSpec) (node.Selector, error) {
	switch {
	case s.Ref != "":
		f, ok := b.opts.Selectors[s.Ref]
		if !ok {
			return nil, fmt.Errorf("%s_edge_selection: unknown selector reference %q", dir, s.Ref)
		}
		return f(), nil
	case len(s.Sequence) > 0:
		return node.NewSequence(s.Sequence...), nil
	}
	return node.NewSelector(s.Policy, b.env.RNG.ForSubsystem(sim.SubsystemSelect(id, dir.String()))), nil
}

func (b *builder) edges(ids []string) []edge.Edge {
	out := make([]edge.Edge, len(ids))
	for i, id := range ids {
		out[i] = b.m.components[b.w.index[id]].(edge.Edge)
	}
	return out
}

func (b *builder) edge(c *ComponentSpec) (edge.Edge, error) {
	capacity := c.StoreCapacity
	if capacity == 0 {
		capacity = 1
	}
	mode, _ := store.ParseMode(c.Mode)
	interval := defaultSampleInterval
	if c.SampleInterval != nil {
		interval = *c.SampleInterval
	}
	switch c.Type {
	case TypeBuffer:
		d, err := b.delay(c.ID, "delay", c.Delay)
		if err != nil {
			return nil, err
		}
		return edge.NewBuffer(b.env, c.ID, edge.BufferConfig{
			Capacity: capacity, Mode: mode, Delay: d, SampleInterval: interval,
		}), nil
	case TypeConveyorBelt:
		return edge.NewConveyorBelt(b.env, c.ID, edge.ConveyorConfig{
			Capacity: capacity, SlotDelay: *c.Delay.Constant,
			Accumulating: c.Accumulating, SampleInterval: interval,
		}), nil
	case TypeFleet:
		d, err := b.delay(c.ID, "delay", c.Delay)
		if err != nil {
			return nil, err
		}
		ret, err := b.delay(c.ID, "return_delay", c.ReturnDelay)
		if err != nil {
			return nil, err
		}
		transporters, load := c.NumTransporters, c.LoadCapacity
		if transporters == 0 {
			transporters = 1
		}
		if load == 0 {
			load = 1
		}
		return edge.NewFleet(b.env, c.ID, edge.FleetConfig{
			Capacity: capacity, Mode: mode, Transporters: transporters, LoadCapacity: load,
			Delay: d, ReturnDelay: ret, SampleInterval: interval,
		}), nil
	}
	return nil, fmt.Errorf("unhandled edge type %q", c.Type)
}

func (b *builder) node(c *ComponentSpec) (Component, error) {
	in, out := b.edges(b.w.in[c.ID]), b.edges(b.w.out[c.ID])
	blocking := c.Blocking == nil || *c.Blocking

	var inSel, outSel node.Selector
	var err error
	if len(in) > 0 {
		if inSel, err = b.selector(c.ID, node.In, c.InEdgeSelection); err != nil {
			return nil, err
		}
	}
	if len(out) > 0 {
		if outSel, err = b.selector(c.ID, node.Out, c.OutEdgeSelection); err != nil {
			return nil, err
		}
	}
	proc, err := b.delay(c.ID, "processing_delay", c.ProcessingDelay)
	if err != nil {
		return nil, err
	}

	switch c.Type {
	case TypeSource:
		iat, err := b.delay(c.ID, "inter_arrival_time", c.InterArrivalTime)
		if err != nil {
			return nil, err
		}
		return node.NewSource(b.env, c.ID, out, node.SourceConfig{
			InterArrival: iat, OutSelector: outSel, Blocking: blocking,
			MaxItems: c.MaxItems, PayloadSize: c.PayloadSize,
		})
	case TypeSink:
		return node.NewSink(b.env, c.ID, in, node.SinkConfig{InSelector: inSel, KeepHistory: b.env.Trace != nil})
	case TypeMachine:
		return node.NewMachine(b.env, c.ID, in, out, node.MachineConfig{
			WorkCapacity: c.WorkCapacity, SlotCapacity: c.SlotCapacity, ProcessingDelay: proc,
			InSelector: inSel, OutSelector: outSel, Blocking: blocking,
		})
	case TypeSplitter:
		return node.NewSplitter(b.env, c.ID, in, out, node.SplitterConfig{
			WorkCapacity: c.WorkCapacity, ProcessingDelay: proc, OutSelector: outSel, Blocking: blocking,
		})
	case TypeCombiner:
		return node.NewCombiner(b.env, c.ID, in, out, node.CombinerConfig{
			WorkCapacity: c.WorkCapacity, PayloadCount: c.PayloadCount, ProcessingDelay: proc,
			OutSelector: outSel, Blocking: blocking,
		})
	}
	return nil, fmt.Errorf("unhandled node type %q", c.Type)
}

// Component returns the component with the given ID, or nil.
func (m *Model) Component(id string) Component {
	i, ok := m.index[id]
	if !ok {
		return nil
	}
	return m.components[i]
}

// Components returns all components in netlist order.
func (m *Model) Components() []Component {
	return append([]Component(nil), m.components...)
}

// Run advances the model to until and discards whatever is still pending.
// The model cannot be run again afterwards.
func (m *Model) Run(until float64) error {
	logrus.Infof("running %d components until t=%g (seed %d)", len(m.components), until, m.Netlist.Seed)
	err := m.Env.Run(until)
	m.Env.Close()
	if err != nil {
		return fmt.Errorf("simulation aborted at t=%.3f: %w", m.Env.Now(), err)
	}
	logrus.Infof("simulation finished at t=%g", m.Env.Now())
	return nil
}

// Snapshots collects the statistics of every component in netlist order.
func (m *Model) Snapshots() []stats.Snapshot {
	now := m.Env.Now()
	out := make([]stats.Snapshot, len(m.components))
	for i, c := range m.components {
		out[i] = c.Snapshot(now)
	}
	return out
}
