package topology

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/factorysim/sim/node"
)

// SelectionSpec is the netlist form of an edge-selection policy:
//
//	out_edge_selection: ROUND_ROBIN      # built-in policy
//	out_edge_selection: [0, 0, 1]        # fixed index sequence, cycled
//	out_edge_selection: {ref: by_color}  # selector registered by the caller
type SelectionSpec struct {
	Policy   string
	Sequence []int
	Ref      string
}

// IsZero reports whether no policy was given.
func (s SelectionSpec) IsZero() bool {
	return s.Policy == "" && len(s.Sequence) == 0 && s.Ref == ""
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *SelectionSpec) UnmarshalYAML(n *yaml.Node) error {
	*s = SelectionSpec{}
	switch n.Kind {
	case yaml.ScalarNode:
		return n.Decode(&s.Policy)
	case yaml.SequenceNode:
		if err := n.Decode(&s.Sequence); err != nil {
			return fmt.Errorf("line %d: selection sequence: %w", n.Line, err)
		}
		return nil
	case yaml.MappingNode:
		var m struct {
			Ref string `yaml:"ref"`
		}
		if err := n.Decode(&m); err != nil {
			return fmt.Errorf("line %d: selection: %w", n.Line, err)
		}
		s.Ref = m.Ref
		return nil
	}
	return fmt.Errorf("line %d: selection must be a policy name, an index list or {ref: name}", n.Line)
}

// MarshalYAML implements yaml.Marshaler.
func (s SelectionSpec) MarshalYAML() (any, error) {
	switch {
	case len(s.Sequence) > 0:
		return s.Sequence, nil
	case s.Ref != "":
		return map[string]string{"ref": s.Ref}, nil
	}
	return s.Policy, nil
}

// validate checks the spec against the number of candidate edges.
func (s SelectionSpec) validate(edges int) error {
	switch {
	case s.Ref != "":
		if s.Policy != "" || len(s.Sequence) > 0 {
			return fmt.Errorf("ref cannot be combined with a policy")
		}
	case len(s.Sequence) > 0:
		for i, idx := range s.Sequence {
			if idx < 0 || idx >= edges {
				return fmt.Errorf("sequence[%d] = %d is out of range for %d edge(s)", i, idx, edges)
			}
		}
	case !node.IsValidPolicy(s.Policy):
		return fmt.Errorf("unknown policy %q; valid options: %v", s.Policy, node.ValidPolicyNames())
	}
	return nil
}
