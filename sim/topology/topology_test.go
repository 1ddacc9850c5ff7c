package topology

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/factorysim/sim"
	"github.com/inference-sim/factorysim/sim/dist"
	"github.com/inference-sim/factorysim/sim/edge"
	"github.com/inference-sim/factorysim/sim/internal/testutil"
	"github.com/inference-sim/factorysim/sim/node"
	"github.com/inference-sim/factorysim/sim/trace"
)

func mustParse(t *testing.T, doc string) *Netlist {
	t.Helper()
	n, err := Parse([]byte(doc))
	require.NoError(t, err)
	return n
}

func TestLoad_Line_EndToEnd(t *testing.T) {
	// GIVEN the Source -> Buffer(cap 2) -> Machine(delay 2) -> Sink line
	n, err := Load(testutil.NetlistPath(t, "line"))
	require.NoError(t, err)
	n.Trace = "items"
	m, err := Build(n, Options{})
	require.NoError(t, err)

	// WHEN run until 10
	require.NoError(t, m.Run(n.Until))

	// THEN the sink received exactly four items, at 3, 5, 7 and 9
	sink := m.Component("sink").(*node.Sink)
	assert.Equal(t, 4, sink.Received())
	assert.Equal(t, []float64{3, 5, 7, 9}, sink.Arrivals())
	b1 := m.Component("b1").(*edge.Buffer)
	assert.LessOrEqual(t, b1.MaxOccupancy(), 2)

	var entered []float64
	for _, it := range sink.Items() {
		require.NotEmpty(t, it.Visits)
		assert.Equal(t, "b1", it.Visits[0].Component)
		entered = append(entered, it.Visits[0].Entered)
	}
	assert.Equal(t, []float64{1, 2, 3, 4}, entered)

	snaps := m.Snapshots()
	require.Len(t, snaps, 5)
	assert.Equal(t, "src", snaps[0].ID)
	assert.Equal(t, 4, snaps[4].Counters["received"])
}

func TestBuild_Trace_Golden(t *testing.T) {
	// GIVEN a two-item line with item tracing on
	n := mustParse(t, string(testutil.LoadNetlist(t, "line")))
	n.Trace = "items"
	n.Components[0].MaxItems = 2
	m, err := Build(n, Options{})
	require.NoError(t, err)

	// WHEN run
	require.NoError(t, m.Run(10))

	// THEN the lifecycle trace matches the recorded one
	require.NotNil(t, m.Env.Trace)
	var buf bytes.Buffer
	_, err = m.Env.Trace.WriteTo(&buf)
	require.NoError(t, err)
	testutil.AssertGolden(t, "line_trace", buf.Bytes())

	sum := trace.Summarize(m.Env.Trace)
	assert.Equal(t, 2, sum.Created)
	assert.Equal(t, 2, sum.Absorbed)
	testutil.AssertFloat64Equal(t, "cycle time mean", 2.5, sum.CycleTimeMean, 1e-9)
}

func TestBuild_SameSeed_SameResult(t *testing.T) {
	run := func() []float64 {
		n, err := Load(testutil.NetlistPath(t, "assembly"))
		require.NoError(t, err)
		m, err := Build(n, Options{})
		require.NoError(t, err)
		require.NoError(t, m.Run(n.Until))
		return m.Component("stock").(*node.Sink).Arrivals()
	}
	first := run()
	assert.NotEmpty(t, first)
	assert.Equal(t, first, run())
}

func TestBuild_Assembly_ConservesItems(t *testing.T) {
	// GIVEN the pallet assembly network
	n, err := Load(testutil.NetlistPath(t, "assembly"))
	require.NoError(t, err)
	m, err := Build(n, Options{})
	require.NoError(t, err)

	// WHEN run
	require.NoError(t, m.Run(n.Until))

	// THEN every pallet absorbed as a carrier at returns pairs with parts at stock
	stock := m.Component("stock").(*node.Sink)
	returns := m.Component("returns").(*node.Sink)
	assert.Positive(t, stock.Received())
	assert.Positive(t, returns.Received())
	loader := m.Component("loader").(*node.Combiner)
	assert.LessOrEqual(t, stock.Received()+returns.Received(), 3*loader.Processed())

	parts := m.Component("parts").(*node.Source)
	assert.Equal(t, parts.Generated(), parts.Processed()+parts.Discarded())
	for _, s := range m.Snapshots() {
		if s.Occupancy != nil {
			assert.LessOrEqual(t, s.Occupancy.Max, float64(s.Occupancy.Capacity), s.ID)
		}
	}
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("seed: 1\ncomponents:\n  - id: a\n    type: Sink\n    colour: red\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "colour")
}

func TestValidate_Errors(t *testing.T) {
	const line = `
components:
  - {id: src, type: Source, inter_arrival_time: 1}
  - {id: b, type: Buffer}
  - {id: sink, type: Sink}
connections: [[src, b], [b, sink]]
`
	tests := []struct {
		name     string
		doc      string
		topology bool
		contains string
	}{
		{"node to node", `
components:
  - {id: src, type: Source, inter_arrival_time: 1}
  - {id: sink, type: Sink}
connections: [[src, sink]]
`, true, "nodes and edges must alternate"},
		{"edge to edge", `
components:
  - {id: src, type: Source, inter_arrival_time: 1}
  - {id: a, type: Buffer}
  - {id: b, type: Buffer}
  - {id: sink, type: Sink}
connections: [[src, a], [a, b], [b, sink]]
`, true, "nodes and edges must alternate"},
		{"dangling edge", `
components:
  - {id: src, type: Source, inter_arrival_time: 1}
  - {id: a, type: Buffer}
connections: [[src, a]]
`, true, "exactly one upstream and one downstream"},
		{"splitter arity", `
components:
  - {id: src, type: Source, inter_arrival_time: 1}
  - {id: a, type: Buffer}
  - {id: sp, type: Splitter}
  - {id: b, type: Buffer}
  - {id: sink, type: Sink}
connections: [[src, a], [a, sp], [sp, b], [b, sink]]
`, true, "Splitter needs exactly 2 out-edge"},
		{"unknown component", `
components:
  - {id: src, type: Source, inter_arrival_time: 1}
connections: [[src, ghost]]
`, true, "unknown component"},
		{"unknown type", `
components:
  - {id: x, type: Robot}
`, false, "unknown type"},
		{"duplicate id", `
components:
  - {id: x, type: Sink}
  - {id: x, type: Sink}
`, false, "duplicate id"},
		{"source without inter-arrival", strings.Replace(line, ", inter_arrival_time: 1", "", 1), false, "inter_arrival_time required"},
		{"bad mode", strings.Replace(line, "type: Buffer}", "type: Buffer, mode: fifo}", 1), false, "unknown store mode"},
		{"bad policy", strings.Replace(line, "type: Sink}", "type: Sink, in_edge_selection: SHORTEST}", 1), false, "unknown policy"},
		{"sequence out of range", strings.Replace(line, "inter_arrival_time: 1}", "inter_arrival_time: 1, out_edge_selection: [0, 1]}", 1), false, "out of range"},
		{"bad distribution", strings.Replace(line, "inter_arrival_time: 1", "inter_arrival_time: {dist: cauchy}", 1), false, "unknown distribution"},
		{"negative capacity", strings.Replace(line, "type: Buffer}", "type: Buffer, store_capacity: -1}", 1), false, "store_capacity"},
		{"stochastic belt delay", strings.Replace(line, "type: Buffer}", "type: ConveyorBelt, delay: {dist: exponential, mean: 1}}", 1), false, "constant slot delay"},
		{"zero inter-arrival", strings.Replace(line, "inter_arrival_time: 1", "inter_arrival_time: 0", 1), false, "inter_arrival_time: must be positive"},
		{"all-zero inter-arrival stream", strings.Replace(line, "inter_arrival_time: 1", "inter_arrival_time: [0, 0]", 1), false, "inter_arrival_time: must be positive"},
		{"combiner in-edge selection", `
components:
  - {id: pallets, type: Source, inter_arrival_time: 1}
  - {id: parts, type: Source, inter_arrival_time: 1}
  - {id: pq, type: Buffer}
  - {id: rq, type: Buffer}
  - {id: cb, type: Combiner, in_edge_selection: ROUND_ROBIN}
  - {id: out, type: Buffer}
  - {id: sink, type: Sink}
connections: [[pallets, pq], [parts, rq], [pq, cb], [rq, cb], [cb, out], [out, sink]]
`, false, "in_edge_selection: not used by a Combiner"},
		{"sink out-edge selection", strings.Replace(line, "type: Sink}", "type: Sink, out_edge_selection: ROUND_ROBIN}", 1), false, "out_edge_selection: not used by a Sink"},
		{"bad trace level", "trace: verbose\n" + line, false, "unknown trace level"},
		{"no components", "seed: 1\n", false, "at least one component"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := mustParse(t, tt.doc)

			err := n.Validate()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
			assert.Equal(t, tt.topology, sim.IsTopologyError(err), "got %v", err)
		})
	}
}

func TestBuild_InvalidNetlist_SchedulesNothing(t *testing.T) {
	n := mustParse(t, `
components:
  - {id: src, type: Source, inter_arrival_time: 1}
  - {id: belt, type: ConveyorBelt, delay: 1}
  - {id: cb, type: Combiner}
  - {id: out, type: Buffer}
  - {id: sink, type: Sink}
connections: [[src, belt], [belt, cb], [cb, out], [out, sink]]
`)
	m, err := Build(n, Options{})
	assert.Nil(t, m)
	var te *sim.TopologyError
	require.True(t, errors.As(err, &te), "got %v", err)
	assert.Equal(t, "cb", te.Component)
}

func TestBuild_Refs(t *testing.T) {
	// GIVEN a netlist naming a fitted delay and a custom selector
	n := mustParse(t, `
seed: 3
trace: items
components:
  - {id: src, type: Source, inter_arrival_time: {ref: fitted}, max_items: 4}
  - {id: a, type: Buffer, store_capacity: 10}
  - {id: b, type: Buffer, store_capacity: 10}
  - {id: sa, type: Sink}
  - {id: sb, type: Sink}
connections: [[src, a], [src, b], [a, sa], [b, sb]]
`)
	n.Components[0].OutEdgeSelection = SelectionSpec{Ref: "always_b"}
	opts := Options{
		Generators: map[string]dist.Delay{"fitted": dist.Constant(0.5)},
		Selectors: map[string]func() node.Selector{
			"always_b": func() node.Selector { return node.NewSequence(1) },
		},
	}

	// WHEN built and run
	m, err := Build(n, opts)
	require.NoError(t, err)
	require.NoError(t, m.Run(10))

	// THEN the registered generator and selector were used
	assert.Equal(t, []float64{0.5, 1, 1.5, 2}, m.Component("sb").(*node.Sink).Arrivals())
	assert.Zero(t, m.Component("sa").(*node.Sink).Received())

	// AND a missing ref fails the build
	_, err = Build(n, Options{})
	assert.Error(t, err)
}

func TestModel_RunTwice_Fails(t *testing.T) {
	n := mustParse(t, string(testutil.LoadNetlist(t, "line")))
	m, err := Build(n, Options{})
	require.NoError(t, err)
	require.NoError(t, m.Run(5))

	err = m.Run(10)
	assert.ErrorIs(t, err, sim.ErrEnvironmentClosed)
}

func TestSelectionSpec_YAML(t *testing.T) {
	type holder struct {
		S SelectionSpec `yaml:"s"`
	}
	tests := []struct {
		doc  string
		want SelectionSpec
	}{
		{"s: RANDOM", SelectionSpec{Policy: "RANDOM"}},
		{"s: [1, 0]", SelectionSpec{Sequence: []int{1, 0}}},
		{"s: {ref: nearest}", SelectionSpec{Ref: "nearest"}},
	}
	for _, tt := range tests {
		var h holder
		require.NoError(t, yaml.Unmarshal([]byte(tt.doc), &h))
		assert.Equal(t, tt.want, h.S, tt.doc)
	}
}

func TestParse_NormalizesIDs(t *testing.T) {
	// GIVEN a component declared with a precomposed "é" and referenced with
	// "e" + combining acute
	doc := "components:\n" +
		"  - {id: \"pr\u00e9p\", type: Source, inter_arrival_time: 1}\n" +
		"  - {id: b, type: Buffer}\n" +
		"  - {id: sink, type: Sink}\n" +
		"connections: [[\"pre\u0301p\", b], [b, sink]]\n"

	// WHEN parsed and validated
	n := mustParse(t, doc)

	// THEN both spellings name the same component
	assert.NoError(t, n.Validate())
	assert.Equal(t, n.Components[0].ID, n.Connections[0][0])
}

func TestCompose(t *testing.T) {
	upstream := mustParse(t, `
seed: 5
until: 20
components:
  - {id: src, type: Source, inter_arrival_time: 1}
  - {id: b, type: Buffer}
connections: [[src, b]]
`)
	downstream := mustParse(t, `
seed: 9
until: 50
trace: items
components:
  - {id: sink, type: Sink}
connections: [[b, sink]]
`)

	merged, err := Compose([]*Netlist{upstream, downstream})
	require.NoError(t, err)

	assert.Equal(t, int64(5), merged.Seed)
	assert.Equal(t, 50.0, merged.Until)
	assert.Equal(t, "items", merged.Trace)
	assert.Len(t, merged.Components, 3)
	assert.NoError(t, merged.Validate())

	_, err = Compose([]*Netlist{upstream, upstream})
	assert.ErrorContains(t, err, "already declared")
	_, err = Compose(nil)
	assert.Error(t, err)
}
