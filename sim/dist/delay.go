// Package dist provides delay generators: the "next value" streams that
// drive processing times, inter-arrival times and transport delays.
package dist

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Delay produces successive delay values. Implementations are not safe for
// concurrent use; the environment only runs one process at a time.
type Delay interface {
	// Next returns the next delay, always >= 0.
	Next() float64
}

// Constant always returns the same value.
type Constant float64

func (c Constant) Next() float64 { return float64(c) }

func (c Constant) String() string { return fmt.Sprintf("constant(%g)", float64(c)) }

// Stream replays a fixed list of values, wrapping around at the end.
type Stream struct {
	values []float64
	next   int
}

// NewStream creates a cycling stream. Panics on an empty list.
func NewStream(values ...float64) *Stream {
	if len(values) == 0 {
		panic("dist.NewStream: values must not be empty")
	}
	return &Stream{values: append([]float64(nil), values...)}
}

func (s *Stream) Next() float64 {
	v := s.values[s.next]
	s.next = (s.next + 1) % len(s.values)
	return clamp(v)
}

// Func adapts a plain function (a callable generator) to Delay.
type Func func() float64

func (f Func) Next() float64 { return clamp(f()) }

// Sampler draws from a gonum distribution, clamping negative draws to 0.
type Sampler struct {
	name string
	dist distuv.Rander
}

// NewSampler wraps a gonum distribution.
func NewSampler(name string, d distuv.Rander) *Sampler {
	return &Sampler{name: name, dist: d}
}

func (s *Sampler) Next() float64 { return clamp(s.dist.Rand()) }

func (s *Sampler) String() string { return s.name }

// Empirical draws from a finite set of observed values with given weights.
type Empirical struct {
	values []float64
	cat    distuv.Categorical
}

func (e *Empirical) Next() float64 {
	return clamp(e.values[int(e.cat.Rand())])
}

func clamp(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if math.IsInf(v, 1) {
		return math.MaxFloat64
	}
	return v
}
