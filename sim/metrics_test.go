package sim

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewMetrics_Aggregates(t *testing.T) {
	// GIVEN a gathered field
	cfg := smallConfig(4, 2, 3)
	values := []float64{1, 4, 2, 3}

	// WHEN metrics are built
	m := NewMetrics("run-1", cfg, values, 2*time.Second, 12)

	// THEN totals and extrema are derived from the field
	assert.Equal(t, "run-1", m.RunID)
	assert.Equal(t, StrategyBlocking, m.Strategy)
	assert.Equal(t, 10.0, m.Total)
	assert.Equal(t, 1.0, m.Min)
	assert.Equal(t, 4.0, m.Max)
	assert.Equal(t, int64(12), m.Messages)
	assert.Equal(t, 0.1, m.Alpha)
}

func TestNewMetrics_EmptyField(t *testing.T) {
	m := NewMetrics("", smallConfig(4, 2, 3), nil, 0, 0)
	assert.Zero(t, m.Total)
	assert.Zero(t, m.Min)
}

func TestMaxDeviation(t *testing.T) {
	assert.Equal(t, 0.0, MaxDeviation([]float64{1, 2}, []float64{1, 2}))
	assert.Equal(t, 0.5, MaxDeviation([]float64{1, 2, 3}, []float64{1, 2.5, 2.75}))
	assert.Equal(t, 0.0, MaxDeviation(nil, nil))
	assert.True(t, math.IsInf(MaxDeviation([]float64{1}, nil), 1))
}

func TestMetrics_Print(t *testing.T) {
	m := NewMetrics("abc", smallConfig(2, 1, 1), []float64{900, 100}, 1500*time.Millisecond, 0)

	var without, with bytes.Buffer
	m.Print(&without, false)
	m.Print(&with, true)

	assert.Contains(t, without.String(), "=== Simulation Metrics ===")
	assert.Contains(t, without.String(), "Run ID               : abc")
	assert.Contains(t, without.String(), "Stepping time        : 1.500000 s")
	assert.NotContains(t, without.String(), "u[0]")
	assert.Contains(t, with.String(), "  u[0] = 900.00\n  u[1] = 100.00\n")
}
