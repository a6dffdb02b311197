// Package trace provides per-step halo trace recording for auditing the
// exchange invariants of a run.
// This package has no dependencies on sim/ or sim/cluster/ — it stores pure data types.
package trace

// GhostRecord captures one worker's segment edges right after a step's exchange
// resolved and before the update was committed.
type GhostRecord struct {
	Step       int
	Rank       int
	Workers    int
	LeftGhost  float64
	First      float64 // first real cell (pre-update value of the step)
	Last       float64 // last real cell (pre-update value of the step)
	RightGhost float64
}
