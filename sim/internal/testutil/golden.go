// Package testutil provides shared test infrastructure for the factorysim
// packages: netlist fixtures, golden-file assertions and float comparisons.
package testutil

import (
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// NetlistPath returns the path of testdata/netlists/<name>.yaml at the repo root.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func NetlistPath(t *testing.T, name string) string {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "netlists", name+".yaml")
}

// LoadNetlist reads a netlist fixture.
func LoadNetlist(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(NetlistPath(t, name))
	if err != nil {
		t.Fatalf("Failed to read netlist fixture %s: %v", name, err)
	}
	return data
}

// AssertGolden compares got with testdata/golden/<name>.golden of the calling
// package. Run the tests with -update to rewrite the file.
func AssertGolden(t *testing.T, name string, got []byte) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, got)
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
