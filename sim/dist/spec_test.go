package dist

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"
)

func TestSpec_UnmarshalYAML_Forms(t *testing.T) {
	type holder struct {
		D Spec `yaml:"d"`
	}
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, s Spec)
	}{
		{"constant", "d: 2.5", func(t *testing.T, s Spec) {
			require.NotNil(t, s.Constant)
			assert.Equal(t, 2.5, *s.Constant)
		}},
		{"stream", "d: [1, 2, 3]", func(t *testing.T, s Spec) {
			assert.Equal(t, []float64{1, 2, 3}, s.Stream)
		}},
		{"dist", "d: {dist: exponential, mean: 2}", func(t *testing.T, s Spec) {
			assert.Equal(t, "exponential", s.Dist)
			assert.Equal(t, 2.0, s.Params["mean"])
		}},
		{"empirical", "d: {dist: empirical, values: [1, 4], weights: [3, 1]}", func(t *testing.T, s Spec) {
			assert.Equal(t, []float64{1, 4}, s.Values)
			assert.Equal(t, []float64{3, 1}, s.Weights)
		}},
		{"ref", "d: {ref: fitted}", func(t *testing.T, s Spec) {
			assert.Equal(t, "fitted", s.Ref)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h holder
			require.NoError(t, yaml.Unmarshal([]byte(tt.input), &h))
			tt.check(t, h.D)
			require.NoError(t, h.D.Validate())
		})
	}
}

func TestSpec_UnmarshalYAML_RejectsNonNumericParam(t *testing.T) {
	var s Spec
	err := yaml.Unmarshal([]byte("{dist: normal, mean: fast}"), &s)
	assert.Error(t, err)
}

func TestSpec_Validate_Errors(t *testing.T) {
	neg := -1.0
	tests := []struct {
		name string
		spec Spec
	}{
		{"empty", Spec{}},
		{"negative constant", Spec{Constant: &neg}},
		{"negative in stream", Spec{Stream: []float64{1, -2}}},
		{"unknown dist", Spec{Dist: "cauchy"}},
		{"exponential without mean", Spec{Dist: "exponential", Params: map[string]float64{}}},
		{"normal zero sigma", Spec{Dist: "normal", Params: map[string]float64{"mean": 1, "std_dev": 0}}},
		{"uniform reversed", Spec{Dist: "uniform", Params: map[string]float64{"min": 3, "max": 1}}},
		{"triangular mode outside", Spec{Dist: "triangular", Params: map[string]float64{"min": 0, "max": 1, "mode": 2}}},
		{"empirical weights mismatch", Spec{Dist: "empirical", Values: []float64{1, 2}, Weights: []float64{1}}},
		{"ref and dist", Spec{Ref: "x", Dist: "normal"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.spec.Validate())
		})
	}
}

func TestSpec_AlwaysZero(t *testing.T) {
	zero, one := 0.0, 1.0
	tests := []struct {
		name string
		spec Spec
		want bool
	}{
		{"zero constant", Spec{Constant: &zero}, true},
		{"positive constant", Spec{Constant: &one}, false},
		{"all-zero stream", Spec{Stream: []float64{0, 0}}, true},
		{"stream with a gap", Spec{Stream: []float64{0, 2}}, false},
		{"constant dist", Spec{Dist: "constant", Params: map[string]float64{"value": 0}}, true},
		{"degenerate uniform", Spec{Dist: "uniform", Params: map[string]float64{"min": 0, "max": 0}}, true},
		{"all-zero empirical", Spec{Dist: "empirical", Values: []float64{0}}, true},
		{"exponential", Spec{Dist: "exponential", Params: map[string]float64{"mean": 1}}, false},
		{"ref", Spec{Ref: "fitted"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.spec.AlwaysZero())
		})
	}
}

func TestSpec_Build_StreamCycles(t *testing.T) {
	d, err := Spec{Stream: []float64{1, 2}}.Build(nil, nil)
	require.NoError(t, err)
	got := []float64{d.Next(), d.Next(), d.Next()}
	assert.Equal(t, []float64{1, 2, 1}, got)
}

func TestSpec_Build_Ref(t *testing.T) {
	calls := 0
	refs := map[string]Delay{"fitted": Func(func() float64 { calls++; return 4 })}

	d, err := Spec{Ref: "fitted"}.Build(nil, refs)
	require.NoError(t, err)
	assert.Equal(t, 4.0, d.Next())
	assert.Equal(t, 1, calls)

	_, err = Spec{Ref: "missing"}.Build(nil, refs)
	assert.Error(t, err)
}

func TestSpec_Build_ParametricMeans(t *testing.T) {
	// GIVEN each parametric distribution with a known mean
	tests := []struct {
		name string
		spec Spec
		mean float64
	}{
		{"exponential", Spec{Dist: "exponential", Params: map[string]float64{"mean": 2}}, 2},
		{"normal", Spec{Dist: "normal", Params: map[string]float64{"mean": 5, "std_dev": 0.5}}, 5},
		{"gamma shape/scale", Spec{Dist: "gamma", Params: map[string]float64{"shape": 2, "scale": 1.5}}, 3},
		{"gamma mean/cv", Spec{Dist: "gamma", Params: map[string]float64{"mean": 4, "cv": 2}}, 4},
		{"weibull mean/cv", Spec{Dist: "weibull", Params: map[string]float64{"mean": 3, "cv": 0.5}}, 3},
		{"uniform", Spec{Dist: "uniform", Params: map[string]float64{"min": 1, "max": 3}}, 2},
		{"triangular", Spec{Dist: "triangular", Params: map[string]float64{"min": 0, "max": 3, "mode": 3}}, 2},
		{"empirical", Spec{Dist: "empirical", Values: []float64{1, 5}, Weights: []float64{3, 1}}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := tt.spec.Build(rand.New(rand.NewPCG(42, 7)), nil)
			require.NoError(t, err)

			// WHEN 20000 values are drawn
			xs := make([]float64, 20000)
			for i := range xs {
				xs[i] = d.Next()
				require.GreaterOrEqual(t, xs[i], 0.0)
			}

			// THEN the sample mean is within 5% of the theoretical mean
			got := stat.Mean(xs, nil)
			assert.InDelta(t, tt.mean, got, 0.05*tt.mean, "mean of %s", tt.name)
		})
	}
}

func TestSpec_Build_SameSeed_SameSequence(t *testing.T) {
	spec := Spec{Dist: "lognormal", Params: map[string]float64{"mu": 0, "sigma": 1}}
	a, err := spec.Build(rand.New(rand.NewPCG(1, 2)), nil)
	require.NoError(t, err)
	b, err := spec.Build(rand.New(rand.NewPCG(1, 2)), nil)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Next(), b.Next())
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Func(func() float64 { return -3 }).Next())
	assert.Equal(t, 0.0, Func(func() float64 { return math.NaN() }).Next())
	assert.Equal(t, 1.5, Func(func() float64 { return 1.5 }).Next())
}

func TestWeibullShapeFromCV_CVOne_IsExponential(t *testing.T) {
	// Weibull with k=1 is the exponential distribution, whose CV is 1.
	k := weibullShapeFromCV(1.0)
	assert.InDelta(t, 1.0, k, 0.01)
}
