package dist

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"
	"gopkg.in/yaml.v3"
)

// validDists lists the parametric and empirical generators a Spec may name.
var validDists = map[string]bool{
	"constant":    true,
	"exponential": true,
	"normal":      true,
	"lognormal":   true,
	"gamma":       true,
	"weibull":     true,
	"uniform":     true,
	"triangular":  true,
	"empirical":   true,
}

// IsValidDist returns true if name is a recognized distribution.
func IsValidDist(name string) bool { return validDists[name] }

// ValidDistNames returns the recognized distribution names, sorted.
func ValidDistNames() []string {
	names := make([]string, 0, len(validDists))
	for n := range validDists {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Spec is the netlist form of a delay parameter. In YAML it is one of:
//
//	processing_delay: 2.5                          # constant
//	processing_delay: [1, 2, 3]                    # stream, cycled
//	processing_delay: {dist: exponential, mean: 2} # parametric
//	processing_delay: {dist: empirical, values: [1, 2], weights: [3, 1]}
//	processing_delay: {ref: fitted_cycle_time}     # generator registered by the caller
type Spec struct {
	Constant *float64
	Stream   []float64
	Dist     string
	Params   map[string]float64
	Values   []float64
	Weights  []float64
	Ref      string
}

// IsZero reports whether the spec was left empty.
func (s Spec) IsZero() bool {
	return s.Constant == nil && len(s.Stream) == 0 && s.Dist == "" && s.Ref == ""
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Spec) UnmarshalYAML(node *yaml.Node) error {
	*s = Spec{}
	switch node.Kind {
	case yaml.ScalarNode:
		var v float64
		if err := node.Decode(&v); err != nil {
			return fmt.Errorf("line %d: delay must be a number, list, or mapping: %w", node.Line, err)
		}
		s.Constant = &v
		return nil
	case yaml.SequenceNode:
		if err := node.Decode(&s.Stream); err != nil {
			return fmt.Errorf("line %d: delay stream: %w", node.Line, err)
		}
		return nil
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, val := node.Content[i].Value, node.Content[i+1]
			var err error
			switch key {
			case "dist":
				err = val.Decode(&s.Dist)
			case "ref":
				err = val.Decode(&s.Ref)
			case "values":
				err = val.Decode(&s.Values)
			case "weights":
				err = val.Decode(&s.Weights)
			default:
				var f float64
				if err = val.Decode(&f); err == nil {
					if s.Params == nil {
						s.Params = make(map[string]float64)
					}
					s.Params[key] = f
				}
			}
			if err != nil {
				return fmt.Errorf("line %d: delay field %q: %w", val.Line, key, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("line %d: delay must be a number, list, or mapping", node.Line)
	}
}

// MarshalYAML implements yaml.Marshaler, emitting the shortest form.
func (s Spec) MarshalYAML() (any, error) {
	switch {
	case s.Constant != nil:
		return *s.Constant, nil
	case len(s.Stream) > 0:
		return s.Stream, nil
	case s.Ref != "":
		return map[string]string{"ref": s.Ref}, nil
	}
	m := map[string]any{"dist": s.Dist}
	for k, v := range s.Params {
		m[k] = v
	}
	if len(s.Values) > 0 {
		m["values"] = s.Values
	}
	if len(s.Weights) > 0 {
		m["weights"] = s.Weights
	}
	return m, nil
}

// AlwaysZero reports whether every value the spec can produce is zero.
// Refs are resolved at build time and never count as zero here.
func (s Spec) AlwaysZero() bool {
	switch {
	case s.Constant != nil:
		return *s.Constant == 0
	case len(s.Stream) > 0:
		return allZero(s.Stream)
	case s.Dist == "constant":
		return s.Params["value"] == 0
	case s.Dist == "uniform":
		return s.Params["min"] == 0 && s.Params["max"] == 0
	case s.Dist == "empirical":
		return allZero(s.Values)
	}
	return false
}

func allZero(xs []float64) bool {
	for _, x := range xs {
		if x != 0 {
			return false
		}
	}
	return true
}

// requireParam checks that all required keys exist in a params map.
func requireParam(params map[string]float64, keys ...string) error {
	for _, k := range keys {
		if _, ok := params[k]; !ok {
			return fmt.Errorf("distribution requires parameter %q", k)
		}
	}
	return nil
}

func requirePositive(params map[string]float64, keys ...string) error {
	for _, k := range keys {
		if v, ok := params[k]; ok && !(v > 0) {
			return fmt.Errorf("parameter %q must be positive, got %g", k, v)
		}
	}
	return nil
}

// Validate checks the spec without building it. Refs are only checked for a
// non-empty name; resolution happens in Build.
func (s Spec) Validate() error {
	if s.IsZero() {
		return fmt.Errorf("delay is empty")
	}
	if s.Constant != nil {
		if *s.Constant < 0 || math.IsNaN(*s.Constant) || math.IsInf(*s.Constant, 0) {
			return fmt.Errorf("delay must be a finite non-negative number, got %g", *s.Constant)
		}
		return nil
	}
	if len(s.Stream) > 0 {
		for i, v := range s.Stream {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("delay stream[%d] must be finite and non-negative, got %g", i, v)
			}
		}
		return nil
	}
	if s.Ref != "" {
		if s.Dist != "" {
			return fmt.Errorf("delay cannot set both ref and dist")
		}
		return nil
	}
	if !IsValidDist(s.Dist) {
		return fmt.Errorf("unknown distribution %q; valid options: %v", s.Dist, ValidDistNames())
	}
	p := s.Params
	switch s.Dist {
	case "constant":
		return requireParam(p, "value")
	case "exponential":
		if _, ok := p["rate"]; ok {
			return requirePositive(p, "rate")
		}
		if err := requireParam(p, "mean"); err != nil {
			return err
		}
		return requirePositive(p, "mean")
	case "normal":
		if err := requireParam(p, "mean", "std_dev"); err != nil {
			return err
		}
		return requirePositive(p, "std_dev")
	case "lognormal":
		if err := requireParam(p, "mu", "sigma"); err != nil {
			return err
		}
		return requirePositive(p, "sigma")
	case "gamma", "weibull":
		if _, ok := p["cv"]; ok {
			if err := requireParam(p, "mean"); err != nil {
				return err
			}
			return requirePositive(p, "mean", "cv")
		}
		if err := requireParam(p, "shape", "scale"); err != nil {
			return err
		}
		return requirePositive(p, "shape", "scale")
	case "uniform":
		if err := requireParam(p, "min", "max"); err != nil {
			return err
		}
		if p["min"] > p["max"] {
			return fmt.Errorf("uniform min %g > max %g", p["min"], p["max"])
		}
	case "triangular":
		if err := requireParam(p, "min", "max", "mode"); err != nil {
			return err
		}
		if !(p["min"] <= p["mode"] && p["mode"] <= p["max"] && p["min"] < p["max"]) {
			return fmt.Errorf("triangular requires min <= mode <= max and min < max")
		}
	case "empirical":
		if len(s.Values) == 0 {
			return fmt.Errorf("empirical distribution requires values")
		}
		if len(s.Weights) > 0 && len(s.Weights) != len(s.Values) {
			return fmt.Errorf("empirical distribution has %d values but %d weights", len(s.Values), len(s.Weights))
		}
		for _, w := range s.Weights {
			if w < 0 {
				return fmt.Errorf("empirical weights must be non-negative")
			}
		}
	}
	return nil
}

// Build creates the generator. src feeds parametric distributions and should
// be the component's own RNG partition. refs resolves {ref: name} specs.
func (s Spec) Build(src rand.Source, refs map[string]Delay) (Delay, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	switch {
	case s.Constant != nil:
		return Constant(*s.Constant), nil
	case len(s.Stream) > 0:
		return NewStream(s.Stream...), nil
	case s.Ref != "":
		d, ok := refs[s.Ref]
		if !ok {
			return nil, fmt.Errorf("unknown delay generator reference %q", s.Ref)
		}
		return d, nil
	}

	p := s.Params
	switch s.Dist {
	case "constant":
		return Constant(p["value"]), nil
	case "exponential":
		rate := p["rate"]
		if rate == 0 {
			rate = 1 / p["mean"]
		}
		return NewSampler(fmt.Sprintf("exponential(rate=%g)", rate), distuv.Exponential{Rate: rate, Src: src}), nil
	case "normal":
		return NewSampler(fmt.Sprintf("normal(%g, %g)", p["mean"], p["std_dev"]),
			distuv.Normal{Mu: p["mean"], Sigma: p["std_dev"], Src: src}), nil
	case "lognormal":
		return NewSampler(fmt.Sprintf("lognormal(%g, %g)", p["mu"], p["sigma"]),
			distuv.LogNormal{Mu: p["mu"], Sigma: p["sigma"], Src: src}), nil
	case "gamma":
		shape, scale := p["shape"], p["scale"]
		if cv, ok := p["cv"]; ok {
			// shape = 1/CV², scale = mean * CV²
			shape = 1.0 / (cv * cv)
			scale = p["mean"] * cv * cv
			if shape < 0.01 {
				logrus.Warnf("Gamma shape %.4f (CV=%.1f) is very small; falling back to exponential", shape, cv)
				return NewSampler(fmt.Sprintf("exponential(rate=%g)", 1/p["mean"]),
					distuv.Exponential{Rate: 1 / p["mean"], Src: src}), nil
			}
		}
		return NewSampler(fmt.Sprintf("gamma(%g, %g)", shape, scale),
			distuv.Gamma{Alpha: shape, Beta: 1 / scale, Src: src}), nil
	case "weibull":
		shape, scale := p["shape"], p["scale"]
		if cv, ok := p["cv"]; ok {
			shape = weibullShapeFromCV(cv)
			// scale = mean / Γ(1 + 1/k)
			scale = p["mean"] / math.Gamma(1.0+1.0/shape)
		}
		return NewSampler(fmt.Sprintf("weibull(%g, %g)", shape, scale),
			distuv.Weibull{K: shape, Lambda: scale, Src: src}), nil
	case "uniform":
		return NewSampler(fmt.Sprintf("uniform(%g, %g)", p["min"], p["max"]),
			distuv.Uniform{Min: p["min"], Max: p["max"], Src: src}), nil
	case "triangular":
		return NewSampler(fmt.Sprintf("triangular(%g, %g, %g)", p["min"], p["mode"], p["max"]),
			distuv.NewTriangle(p["min"], p["max"], p["mode"], src)), nil
	case "empirical":
		weights := s.Weights
		if len(weights) == 0 {
			weights = make([]float64, len(s.Values))
			for i := range weights {
				weights[i] = 1
			}
		}
		return &Empirical{
			values: append([]float64(nil), s.Values...),
			cat:    distuv.NewCategorical(weights, src),
		}, nil
	}
	return nil, fmt.Errorf("unknown distribution %q", s.Dist)
}
