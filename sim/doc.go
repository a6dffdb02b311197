// Package sim provides the core of the distributed 1-D diffusion solver.
//
// # Reading Guide
//
// Start with these three files to understand one worker's step:
//   - partition.go: how N cells are split across W workers and who neighbours whom
//   - segment.go: the ghost-padded buffer each worker owns (index 0 and LocalN+1 are ghosts)
//   - worker.go: the Init → Stepping → Done loop (exchange + update, then commit)
//
// # Architecture
//
// The sim package defines the model, the kernel and the Exchanger interface;
// implementations and orchestration live in sub-packages:
//   - sim/comm/: in-process message fabric (per-link channels, blocking and non-blocking requests)
//   - sim/halo/: the three halo exchange strategies
//   - sim/cluster/: runs every worker of a configuration and gathers the global field
//   - sim/trace/: per-step ghost recording and invariant checks
//
// sim/halo registers its constructor via an init() function that sets the
// package-level factory variable NewExchangerFunc.
//
// # Key Interfaces
//
// The extension points are small:
//   - Exchanger: refresh ghosts and apply the stencil for one step
//   - StepObserver: inspect ghosts after every exchange (used for tracing)
//   - comm.Comm: point-to-point transport between ranks
//
// Sequential in reference.go runs the same problem on one segment; every
// strategy must reproduce it exactly.
package sim
