// Package testutil provides shared test infrastructure for the episim packages.
// It holds the golden trajectory dataset types and assertion helpers.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset represents the structure of testdata/goldendataset.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase is one constant-rate compartmental run and its expected outcome.
type GoldenTestCase struct {
	Name              string             `json:"name"`
	Initial           GoldenCompartments `json:"initial"`
	Rates             GoldenRates        `json:"rates"`
	Steps             int                `json:"steps"`
	Dt                float64            `json:"dt"`
	AdaptiveBirthRate bool               `json:"adaptive_birth_rate"`
	Metrics           GoldenMetrics      `json:"metrics"`
}

// GoldenCompartments mirrors the seven SIRXD compartments.
type GoldenCompartments struct {
	S  float64 `json:"S"`
	I  float64 `json:"I"`
	R  float64 `json:"R"`
	Xs float64 `json:"Xs"`
	Xi float64 `json:"Xi"`
	Dn float64 `json:"Dn"`
	Di float64 `json:"Di"`
}

// GoldenRates mirrors the Euler step coefficients.
type GoldenRates struct {
	Beta   float64 `json:"beta"`
	Gamma  float64 `json:"gamma"`
	Delta  float64 `json:"delta"`
	KappaS float64 `json:"kappa_s"`
	KappaI float64 `json:"kappa_i"`
	KappaE float64 `json:"kappa_e"`
	V      float64 `json:"v"`
	Mu     float64 `json:"mu"`
}

// GoldenMetrics represents the expected outcome of a golden test case.
type GoldenMetrics struct {
	Final GoldenCompartments `json:"final"`

	// Exact match: index into the series
	PeakTick int `json:"peak_tick"`

	PeakInfectious float64 `json:"peak_infectious"`
	MeanInfectious float64 `json:"mean_infectious"`
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
// Values whose magnitudes are both below 1e-12 compare equal.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if math.Abs(want) < 1e-12 && math.Abs(got) < 1e-12 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
