package topology

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/factorysim/sim"
	"github.com/inference-sim/factorysim/sim/dist"
	"github.com/inference-sim/factorysim/sim/node"
	"github.com/inference-sim/factorysim/sim/store"
	"github.com/inference-sim/factorysim/sim/trace"
)

// Component types.
const (
	TypeSource       = "Source"
	TypeSink         = "Sink"
	TypeMachine      = "Machine"
	TypeSplitter     = "Splitter"
	TypeCombiner     = "Combiner"
	TypeBuffer       = "Buffer"
	TypeConveyorBelt = "ConveyorBelt"
	TypeFleet        = "Fleet"
)

// validTypes maps each component type to whether it is an edge.
var validTypes = map[string]bool{
	TypeSource:       false,
	TypeSink:         false,
	TypeMachine:      false,
	TypeSplitter:     false,
	TypeCombiner:     false,
	TypeBuffer:       true,
	TypeConveyorBelt: true,
	TypeFleet:        true,
}

// IsValidType returns true if t is a known component type.
func IsValidType(t string) bool {
	_, ok := validTypes[t]
	return ok
}

// IsEdgeType returns true for Buffer, ConveyorBelt and Fleet.
func IsEdgeType(t string) bool { return validTypes[t] }

// ValidTypeNames returns the component types, sorted.
func ValidTypeNames() []string {
	names := make([]string, 0, len(validTypes))
	for n := range validTypes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Netlist is the YAML description of a production network.
// Loaded via Load(path) or Parse(data).
type Netlist struct {
	Seed  int64   `yaml:"seed"`
	Until float64 `yaml:"until,omitempty"`
	// Trace is "none" (default) or "items".
	Trace       string          `yaml:"trace,omitempty"`
	Components  []ComponentSpec `yaml:"components"`
	Connections [][2]string     `yaml:"connections"`
}

// ComponentSpec is one node or edge. Parameters that do not apply to the
// component's type are ignored, except edge selections: Validate rejects a
// selection on a side the component never chooses from.
type ComponentSpec struct {
	ID   string `yaml:"id"`
	Type string `yaml:"type"`

	// nodes
	WorkCapacity     int           `yaml:"work_capacity,omitempty"`
	SlotCapacity     int           `yaml:"slot_capacity,omitempty"`
	ProcessingDelay  *dist.Spec    `yaml:"processing_delay,omitempty"`
	InterArrivalTime *dist.Spec    `yaml:"inter_arrival_time,omitempty"`
	Blocking         *bool         `yaml:"blocking,omitempty"` // default true
	InEdgeSelection  SelectionSpec `yaml:"in_edge_selection,omitempty"`
	OutEdgeSelection SelectionSpec `yaml:"out_edge_selection,omitempty"`
	PayloadCount     int           `yaml:"payload_count,omitempty"`
	PayloadSize      int           `yaml:"payload_size,omitempty"`
	MaxItems         int           `yaml:"max_items,omitempty"` // 0 = unlimited

	// edges
	StoreCapacity   int        `yaml:"store_capacity,omitempty"` // default 1
	Delay           *dist.Spec `yaml:"delay,omitempty"`
	Mode            string     `yaml:"mode,omitempty"`
	Accumulating    bool       `yaml:"accumulating,omitempty"`
	NumTransporters int        `yaml:"num_transporters,omitempty"`
	LoadCapacity    int        `yaml:"load_capacity,omitempty"`
	ReturnDelay     *dist.Spec `yaml:"return_delay,omitempty"`
	SampleInterval  *float64   `yaml:"sample_interval,omitempty"`
}

// Load reads and strictly decodes a netlist file. Unknown keys are errors.
func Load(path string) (*Netlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading netlist: %w", err)
	}
	return Parse(data)
}

// Parse strictly decodes a netlist document.
func Parse(data []byte) (*Netlist, error) {
	var n Netlist
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&n); err != nil {
		return nil, fmt.Errorf("parsing netlist: %w", err)
	}
	n.normalizeIDs()
	return &n, nil
}

// normalizeIDs puts IDs in NFC form so that IDs typed with composed and
// decomposed accents refer to the same component.
func (n *Netlist) normalizeIDs() {
	for i := range n.Components {
		n.Components[i].ID = norm.NFC.String(n.Components[i].ID)
	}
	for i := range n.Connections {
		n.Connections[i][0] = norm.NFC.String(n.Connections[i][0])
		n.Connections[i][1] = norm.NFC.String(n.Connections[i][1])
	}
}

// wiring is the resolved connection structure of a netlist.
type wiring struct {
	index map[string]int      // component ID -> position in Components
	in    map[string][]string // component ID -> upstream IDs, in declaration order
	out   map[string][]string
}

// Validate checks the whole netlist. Field errors are plain errors carrying
// the component path; wiring and arity errors are *sim.TopologyError.
func (n *Netlist) Validate() error {
	_, err := n.wire()
	return err
}

func (n *Netlist) wire() (*wiring, error) {
	if !trace.IsValidTraceLevel(n.Trace) {
		return nil, fmt.Errorf("unknown trace level %q; valid: none, items", n.Trace)
	}
	if n.Until < 0 {
		return nil, fmt.Errorf("until must be non-negative, got %g", n.Until)
	}
	if len(n.Components) == 0 {
		return nil, fmt.Errorf("at least one component required")
	}
	w := &wiring{
		index: make(map[string]int, len(n.Components)),
		in:    make(map[string][]string),
		out:   make(map[string][]string),
	}
	for i, c := range n.Components {
		if c.ID == "" {
			return nil, fmt.Errorf("components[%d]: id required", i)
		}
		if _, dup := w.index[c.ID]; dup {
			return nil, fmt.Errorf("components[%d]: duplicate id %q", i, c.ID)
		}
		if !IsValidType(c.Type) {
			return nil, fmt.Errorf("components[%d] (%s): unknown type %q; valid options: %v", i, c.ID, c.Type, ValidTypeNames())
		}
		w.index[c.ID] = i
	}

	for i, conn := range n.Connections {
		from, to := conn[0], conn[1]
		for _, id := range conn {
			if _, ok := w.index[id]; !ok {
				return nil, sim.NewTopologyError(id, "connections[%d] names an unknown component", i)
			}
		}
		fromEdge := IsEdgeType(n.Components[w.index[from]].Type)
		toEdge := IsEdgeType(n.Components[w.index[to]].Type)
		if fromEdge == toEdge {
			kind := "node"
			if fromEdge {
				kind = "edge"
			}
			return nil, sim.NewTopologyError(from, "connections[%d]: %s -> %s joins %s to %s; nodes and edges must alternate", i, from, to, kind, kind)
		}
		w.out[from] = append(w.out[from], to)
		w.in[to] = append(w.in[to], from)
	}

	for i := range n.Components {
		c := &n.Components[i]
		nin, nout := len(w.in[c.ID]), len(w.out[c.ID])
		if IsEdgeType(c.Type) {
			if nin != 1 || nout != 1 {
				return nil, sim.NewTopologyError(c.ID, "%s must link exactly one upstream and one downstream node, has %d in and %d out", c.Type, nin, nout)
			}
		} else if err := node.CheckArity(c.ID, c.Type, nin, nout); err != nil {
			return nil, err
		}
		if err := validateComponent(c, nin, nout); err != nil {
			return nil, fmt.Errorf("components[%d] (%s): %w", i, c.ID, err)
		}
	}
	return w, nil
}

func validateDelay(name string, d *dist.Spec) error {
	if d == nil {
		return nil
	}
	if err := d.Validate(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func validateComponent(c *ComponentSpec, nin, nout int) error {
	for _, f := range []struct {
		name string
		val  int
	}{
		{"work_capacity", c.WorkCapacity}, {"slot_capacity", c.SlotCapacity},
		{"payload_count", c.PayloadCount}, {"payload_size", c.PayloadSize},
		{"max_items", c.MaxItems}, {"store_capacity", c.StoreCapacity},
		{"num_transporters", c.NumTransporters}, {"load_capacity", c.LoadCapacity},
	} {
		if f.val < 0 {
			return fmt.Errorf("%s must be non-negative, got %d", f.name, f.val)
		}
	}
	if c.SampleInterval != nil && *c.SampleInterval < 0 {
		return fmt.Errorf("sample_interval must be non-negative, got %g", *c.SampleInterval)
	}
	for _, d := range []struct {
		name string
		spec *dist.Spec
	}{
		{"processing_delay", c.ProcessingDelay}, {"inter_arrival_time", c.InterArrivalTime},
		{"delay", c.Delay}, {"return_delay", c.ReturnDelay},
	} {
		if err := validateDelay(d.name, d.spec); err != nil {
			return err
		}
	}
	if _, err := store.ParseMode(c.Mode); err != nil {
		return err
	}
	if nin > 0 {
		if err := c.InEdgeSelection.validate(nin); err != nil {
			return fmt.Errorf("in_edge_selection: %w", err)
		}
	}
	if nout > 0 {
		if err := c.OutEdgeSelection.validate(nout); err != nil {
			return fmt.Errorf("out_edge_selection: %w", err)
		}
	}
	if !c.InEdgeSelection.IsZero() && (nin == 0 || c.Type == TypeSplitter || c.Type == TypeCombiner) {
		return fmt.Errorf("in_edge_selection: not used by a %s", c.Type)
	}
	if !c.OutEdgeSelection.IsZero() && nout == 0 {
		return fmt.Errorf("out_edge_selection: not used by a %s", c.Type)
	}

	switch c.Type {
	case TypeSource:
		if c.InterArrivalTime == nil {
			return fmt.Errorf("inter_arrival_time required")
		}
		if c.InterArrivalTime.AlwaysZero() {
			return fmt.Errorf("inter_arrival_time: must be positive for at least one draw; an all-zero schedule never advances the clock")
		}
	case TypeConveyorBelt:
		if c.Delay == nil || c.Delay.Constant == nil {
			return fmt.Errorf("delay must be a constant slot delay for a conveyor belt")
		}
	}
	return nil
}
