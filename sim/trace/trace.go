package trace

import (
	"sort"
	"sync"
)

// TraceLevel controls the verbosity of halo tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelGhosts records every worker's ghost and boundary cells every step.
	TraceLevelGhosts TraceLevel = "ghosts"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:   true,
	TraceLevelGhosts: true,
	"":               true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// Enabled reports whether records should be collected.
func (c TraceConfig) Enabled() bool {
	return c.Level == TraceLevelGhosts
}

// SimulationTrace collects ghost records during a run. Workers record
// concurrently, so recording is synchronized.
type SimulationTrace struct {
	Config TraceConfig

	mu     sync.Mutex
	ghosts []GhostRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config: config,
		ghosts: make([]GhostRecord, 0),
	}
}

// RecordGhosts appends a ghost record. It is a no-op when tracing is disabled.
func (st *SimulationTrace) RecordGhosts(record GhostRecord) {
	if !st.Config.Enabled() {
		return
	}
	st.mu.Lock()
	st.ghosts = append(st.ghosts, record)
	st.mu.Unlock()
}

// Ghosts returns a copy of the records ordered by step, then rank.
func (st *SimulationTrace) Ghosts() []GhostRecord {
	st.mu.Lock()
	out := make([]GhostRecord, len(st.ghosts))
	copy(out, st.ghosts)
	st.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Step != out[j].Step {
			return out[i].Step < out[j].Step
		}
		return out[i].Rank < out[j].Rank
	})
	return out
}
