package cluster

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halo-sim/halo-sim/sim"
)

func TestVerify_AllStrategiesPass(t *testing.T) {
	// GIVEN a run that exercises interior, edge and overlap paths
	cfg := testConfig(20, 4, 120, sim.StrategyBlocking)
	cfg.Seed.Cell = 9

	// WHEN every strategy is verified against the sequential reference
	v, err := Verify(context.Background(), cfg, 0)

	// THEN each matches exactly and keeps every ghost invariant
	require.NoError(t, err)
	require.Len(t, v.Checks, len(sim.ValidStrategies))
	for _, c := range v.Checks {
		assert.Zero(t, c.MaxDeviation, string(c.Strategy))
		assert.True(t, c.Trace.Clean(), string(c.Strategy))
		assert.Equal(t, 120*4, c.Trace.Records)
	}
	assert.True(t, v.Passed())

	var buf bytes.Buffer
	v.Print(&buf)
	out := buf.String()
	assert.Contains(t, out, "=== Strategy Verification ===")
	for name := range sim.ValidStrategies {
		assert.Contains(t, out, string(name))
	}
	assert.NotContains(t, out, "FAIL")
}

func TestVerify_InvalidConfig(t *testing.T) {
	cfg := testConfig(0, 1, 1, sim.StrategyBlocking)
	_, err := Verify(context.Background(), cfg, 0)
	assert.True(t, sim.IsConfigurationError(err))
}

func TestVerification_Passed_ToleranceExceeded(t *testing.T) {
	cfg := testConfig(8, 2, 2, sim.StrategyBlocking)
	v, err := Verify(context.Background(), cfg, 0)
	require.NoError(t, err)

	v.Checks[0].MaxDeviation = 1e-3
	assert.False(t, v.Passed())

	v.Tolerance = 1e-2
	assert.True(t, v.Passed())
}
