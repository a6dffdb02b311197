package cluster

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/halo-sim/halo-sim/sim"
	"github.com/halo-sim/halo-sim/sim/trace"
)

// StrategyCheck is the outcome of one strategy in a verification.
type StrategyCheck struct {
	Strategy     sim.Strategy
	Metrics      *sim.Metrics
	MaxDeviation float64             // against the sequential reference
	Trace        *trace.TraceSummary // ghost invariant checks
}

// Verification compares every strategy with the sequential reference.
type Verification struct {
	Reference []float64
	Checks    []StrategyCheck
	Tolerance float64
}

// Passed reports whether every strategy matched the reference within tolerance
// and kept every ghost invariant.
func (v *Verification) Passed() bool {
	for _, c := range v.Checks {
		if c.MaxDeviation > v.Tolerance || !c.Trace.Clean() {
			return false
		}
	}
	return true
}

// Verify runs cfg once per strategy with ghost tracing on and compares each
// final field with sim.Sequential. cfg's own strategy is ignored.
func Verify(ctx context.Context, cfg sim.Config, tolerance float64) (*Verification, error) {
	ref, err := sim.Sequential(cfg)
	if err != nil {
		return nil, err
	}
	v := &Verification{Reference: ref, Tolerance: tolerance}
	for _, name := range sim.StrategyNames() {
		run := cfg
		run.Exchange.Strategy = sim.Strategy(name)
		res, err := Run(ctx, run, WithTrace(trace.TraceLevelGhosts))
		if err != nil {
			return nil, fmt.Errorf("verify %s: %w", name, err)
		}
		check := StrategyCheck{
			Strategy:     run.Exchange.Strategy,
			Metrics:      res.Metrics,
			MaxDeviation: sim.MaxDeviation(ref, res.Metrics.Values),
			Trace:        trace.Summarize(res.Trace),
		}
		logrus.Debugf("verify %s: max deviation %g", name, check.MaxDeviation)
		v.Checks = append(v.Checks, check)
	}
	return v, nil
}

// Print writes one line per strategy.
func (v *Verification) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Strategy Verification ===")
	for _, c := range v.Checks {
		status := "ok"
		if c.MaxDeviation > v.Tolerance || !c.Trace.Clean() {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%-20s : max deviation %.3e, ghost violations %d, time %f s [%s]\n",
			c.Strategy, c.MaxDeviation, c.Trace.BoundaryViolations+c.Trace.InteriorViolations,
			c.Metrics.Elapsed.Seconds(), status)
	}
}
