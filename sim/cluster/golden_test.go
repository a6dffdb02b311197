package cluster

import (
	"testing"

	"github.com/halo-sim/halo-sim/sim"
	"github.com/halo-sim/halo-sim/sim/internal/testutil"
)

// TestGolden_AllStrategies runs each golden case on every strategy and
// compares the gathered field with the recorded values.
func TestGolden_AllStrategies(t *testing.T) {
	dataset := testutil.LoadGoldenDataset(t)
	for _, tc := range dataset.Tests {
		for _, s := range allStrategies() {
			t.Run(tc.Name+"/"+string(s), func(t *testing.T) {
				cfg := testConfig(tc.N, tc.Workers, tc.Steps, s)
				cfg.Physics.Alpha = tc.Alpha
				cfg.Seed = sim.SeedConfig{Cell: tc.SeedCell, Value: tc.SeedValue}

				res := runCluster(t, cfg)
				testutil.AssertFieldEqual(t, "u", tc.Values, res.Metrics.Values, 1e-12)
			})
		}
	}
}
