// Tracks run-wide results such as stepping wall time and heat totals.

package sim

import (
	"fmt"
	"io"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Metrics aggregates the outcome of one run for final reporting.
type Metrics struct {
	RunID    string
	Strategy Strategy
	N        int
	Workers  int
	Steps    int
	Alpha    float64

	Elapsed  time.Duration // slowest worker's stepping wall time
	Messages int64         // halo values delivered across all links

	Total float64 // sum of all cells (conserved under the reflective rule)
	Min   float64
	Max   float64

	Values []float64 // final global field, in cell order
}

// NewMetrics builds Metrics for cfg and the gathered global field.
func NewMetrics(runID string, cfg Config, values []float64, elapsed time.Duration, messages int64) *Metrics {
	m := &Metrics{
		RunID:    runID,
		Strategy: cfg.Exchange.Strategy,
		N:        cfg.Domain.N,
		Workers:  cfg.Domain.Workers,
		Steps:    cfg.Domain.Steps,
		Alpha:    cfg.Physics.EffectiveAlpha(),
		Elapsed:  elapsed,
		Messages: messages,
		Values:   values,
	}
	if len(values) > 0 {
		m.Total = floats.Sum(values)
		m.Min = floats.Min(values)
		m.Max = floats.Max(values)
	}
	return m
}

// MaxDeviation returns the largest absolute element-wise difference of a and b.
// Slices of different lengths deviate by +Inf.
func MaxDeviation(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	if len(a) == 0 {
		return 0
	}
	return floats.Distance(a, b, math.Inf(1))
}

// Print writes the report. With values set, every final cell is listed.
func (m *Metrics) Print(w io.Writer, values bool) {
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	fmt.Fprintf(w, "Run ID               : %s\n", m.RunID)
	fmt.Fprintf(w, "Strategy             : %s\n", m.Strategy)
	fmt.Fprintf(w, "Bar size / workers   : %d / %d\n", m.N, m.Workers)
	fmt.Fprintf(w, "Steps                : %d\n", m.Steps)
	fmt.Fprintf(w, "Alpha                : %g\n", m.Alpha)
	fmt.Fprintf(w, "Stepping time        : %f s\n", m.Elapsed.Seconds())
	fmt.Fprintf(w, "Halo messages        : %d\n", m.Messages)
	fmt.Fprintf(w, "Total heat           : %.6f\n", m.Total)
	fmt.Fprintf(w, "Min / Max            : %.6f / %.6f\n", m.Min, m.Max)
	if values {
		for i, v := range m.Values {
			fmt.Fprintf(w, "  u[%d] = %.2f\n", i, v)
		}
	}
}
