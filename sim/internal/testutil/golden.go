// Package testutil provides shared test infrastructure for the event-passing
// engine. It holds the golden scenario types and assertion helpers used
// across sim/ sub-package tests. It must not import sim, so in-package sim
// tests can use it too.
package testutil

import (
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/sugawarayuuta/sonnet"
)

// GoldenDataset represents the structure of testdata/goldendataset.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase is one deployment whose counts can be derived by hand.
type GoldenTestCase struct {
	Name          string        `json:"name"`
	Ranks         int           `json:"ranks"`
	Seed          int64         `json:"seed"`
	Groups        int           `json:"groups"`
	MinDelay      int64         `json:"min_delay"`
	SimTime       int64         `json:"sim_time"`
	EventsPerStep int           `json:"events_per_step"`
	Protocol      string        `json:"protocol"`
	Queue         string        `json:"queue"`
	EventsPerTick int           `json:"events_per_tick"`
	PercentSpike  int           `json:"percent_spike"`
	PercentITE    int           `json:"percent_ite"`
	NumOut        int           `json:"nout"`
	NumIn         int           `json:"nin"`
	NetconsPer    int           `json:"netcons_per"`
	Metrics       GoldenMetrics `json:"metrics"`
}

// GoldenMetrics are the expected totals over all ranks.
type GoldenMetrics struct {
	SpikesSent      int `json:"spikes_sent"`
	ITESent         int `json:"ite_sent"`
	LocalSent       int `json:"local_sent"`
	SpikesReceived  int `json:"spikes_received"`
	RelevantSpikes  int `json:"relevant_spikes"`
	SpikesForwarded int `json:"spikes_forwarded"`
	Delivered       int `json:"delivered"`
	Remaining       int `json:"remaining"`

	// share of received spike records that had a local input presyn
	RelevantFrac float64 `json:"relevant_frac"`
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
	if err := sonnet.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}

	return &dataset
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
