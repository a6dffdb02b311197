package trace

import (
	"fmt"
	"io"
	"math"
)

// TraceSummary aggregates invariant checks over a SimulationTrace.
type TraceSummary struct {
	Records            int
	Steps              int
	BoundaryViolations int     // edge ghosts that do not mirror their own boundary cell
	InteriorViolations int     // ghosts that differ from the neighbour's boundary of the same step
	MissingNeighbours  int     // ghosts whose neighbour record is absent from the trace
	MaxGhostError      float64 // largest absolute ghost mismatch seen
}

// Clean reports whether every checked ghost satisfied its invariant.
func (s *TraceSummary) Clean() bool {
	return s.BoundaryViolations == 0 && s.InteriorViolations == 0 && s.MissingNeighbours == 0
}

// Print writes the summary as a report section.
func (s *TraceSummary) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Ghost Trace Summary ===")
	fmt.Fprintf(w, "Records / steps      : %d / %d\n", s.Records, s.Steps)
	fmt.Fprintf(w, "Boundary violations  : %d\n", s.BoundaryViolations)
	fmt.Fprintf(w, "Interior violations  : %d\n", s.InteriorViolations)
	fmt.Fprintf(w, "Missing neighbours   : %d\n", s.MissingNeighbours)
	fmt.Fprintf(w, "Max ghost error      : %g\n", s.MaxGhostError)
}

type stepRank struct{ step, rank int }

// Summarize checks every record against the exchange invariants:
// rank 0's left ghost equals its first cell, rank W-1's right ghost equals its
// last cell, and every other ghost equals the adjacent boundary cell of the
// neighbour in the same step. Safe for nil or empty traces.
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{}
	if st == nil {
		return summary
	}
	records := st.Ghosts()
	summary.Records = len(records)

	byKey := make(map[stepRank]GhostRecord, len(records))
	steps := make(map[int]bool)
	for _, r := range records {
		byKey[stepRank{r.Step, r.Rank}] = r
		steps[r.Step] = true
	}
	summary.Steps = len(steps)

	check := func(got, want float64, violations *int) {
		diff := math.Abs(got - want)
		if diff > summary.MaxGhostError {
			summary.MaxGhostError = diff
		}
		if got != want {
			*violations++
		}
	}

	for _, r := range records {
		if r.Rank == 0 {
			check(r.LeftGhost, r.First, &summary.BoundaryViolations)
		} else if left, ok := byKey[stepRank{r.Step, r.Rank - 1}]; ok {
			check(r.LeftGhost, left.Last, &summary.InteriorViolations)
		} else {
			summary.MissingNeighbours++
		}

		if r.Rank == r.Workers-1 {
			check(r.RightGhost, r.Last, &summary.BoundaryViolations)
		} else if right, ok := byKey[stepRank{r.Step, r.Rank + 1}]; ok {
			check(r.RightGhost, right.First, &summary.InteriorViolations)
		} else {
			summary.MissingNeighbours++
		}
	}
	return summary
}
