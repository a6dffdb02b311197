// Package testutil provides shared test infrastructure for the halo simulator.
// It holds the golden dataset types and assertion helpers used across
// sim/ and sim/cluster/ test packages.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
)

// GoldenDataset represents the structure of testdata/goldendataset.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase is one small run with its expected final field. The values
// were produced independently of this module's kernel.
type GoldenTestCase struct {
	Name      string    `json:"name"`
	N         int       `json:"n"`
	Workers   int       `json:"workers"`
	Steps     int       `json:"steps"`
	Alpha     float64   `json:"alpha"`
	SeedCell  int       `json:"seed_cell"`
	SeedValue float64   `json:"seed_value"`
	Values    []float64 `json:"values"`
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "goldendataset.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}
	if len(dataset.Tests) == 0 {
		t.Fatal("Golden dataset has no test cases")
	}
	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
// Values whose magnitudes are both below 1e-12 are treated as equal.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if maxVal < 1e-12 {
		return
	}
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertFieldEqual compares two fields element-wise with AssertFloat64Equal.
func AssertFieldEqual(t *testing.T, name string, want, got []float64, relTol float64) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("%s: got %d cells, want %d", name, len(got), len(want))
	}
	for i := range want {
		AssertFloat64Equal(t, name+"["+strconv.Itoa(i)+"]", want[i], got[i], relTol)
	}
}
