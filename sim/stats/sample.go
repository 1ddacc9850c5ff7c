package stats

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Sample collects scalar observations such as cycle times or periodic
// occupancy readings.
type Sample struct {
	values []float64
	sorted bool
}

// Add records one observation.
func (s *Sample) Add(v float64) {
	s.values = append(s.values, v)
	s.sorted = false
}

// Len returns the number of observations.
func (s *Sample) Len() int { return len(s.values) }

// Values returns the observations in insertion order unless a quantile has
// been computed since the last Add, in which case they are sorted.
func (s *Sample) Values() []float64 { return s.values }

// Mean returns the arithmetic mean, or 0 when empty.
func (s *Sample) Mean() float64 {
	if len(s.values) == 0 {
		return 0
	}
	return stat.Mean(s.values, nil)
}

// StdDev returns the sample standard deviation, or 0 with fewer than two observations.
func (s *Sample) StdDev() float64 {
	if len(s.values) < 2 {
		return 0
	}
	return stat.StdDev(s.values, nil)
}

// Max returns the largest observation, or 0 when empty.
func (s *Sample) Max() float64 {
	if len(s.values) == 0 {
		return 0
	}
	return floats.Max(s.values)
}

// Min returns the smallest observation, or 0 when empty.
func (s *Sample) Min() float64 {
	if len(s.values) == 0 {
		return 0
	}
	return floats.Min(s.values)
}

// Quantile returns the empirical p-quantile (p in [0, 1]), or 0 when empty.
func (s *Sample) Quantile(p float64) float64 {
	if len(s.values) == 0 {
		return 0
	}
	if !s.sorted {
		sort.Float64s(s.values)
		s.sorted = true
	}
	return stat.Quantile(p, stat.Empirical, s.values, nil)
}
