// Package cluster runs a full distributed simulation in one process.
//
// This package wraps the single-worker driver (sim.Worker) to launch one
// goroutine per rank over a shared comm.Fabric via ClusterSimulator, gathers
// their final segments into the global field and compares strategies against
// the sequential reference.
package cluster

import (
	"context"
	"fmt"

	"github.com/halo-sim/halo-sim/sim"
	"github.com/halo-sim/halo-sim/sim/comm"
	_ "github.com/halo-sim/halo-sim/sim/halo" // registers sim.NewExchangerFunc
	"github.com/halo-sim/halo-sim/sim/trace"
)

// InstanceID identifies one worker instance within a cluster run.
type InstanceID string

// InstanceSimulator wraps a sim.Worker bound to one rank of a fabric.
//
// Thread-safety: NOT thread-safe. Run must be called from a single goroutine.
type InstanceSimulator struct {
	id     InstanceID
	worker *sim.Worker
	hasRun bool
}

// NewInstanceSimulator creates the worker of rank over fabric f.
// A non-nil st receives the worker's ghost records.
func NewInstanceSimulator(cfg sim.Config, f *comm.Fabric, rank int, st *trace.SimulationTrace) (*InstanceSimulator, error) {
	ep, err := f.Endpoint(rank)
	if err != nil {
		return nil, err
	}
	var opts []sim.WorkerOption
	if st != nil && st.Config.Enabled() {
		opts = append(opts, sim.WithObserver(traceObserver{st: st}))
	}
	w, err := sim.NewWorker(cfg, ep, opts...)
	if err != nil {
		return nil, err
	}
	return &InstanceSimulator{id: InstanceID(fmt.Sprintf("rank_%d", rank)), worker: w}, nil
}

// ID returns the instance identifier.
func (i *InstanceSimulator) ID() InstanceID { return i.id }

// Worker returns the wrapped worker.
func (i *InstanceSimulator) Worker() *sim.Worker { return i.worker }

// HasRun reports whether Run was called.
func (i *InstanceSimulator) HasRun() bool { return i.hasRun }

// Run steps the worker to completion. It may only be called once.
func (i *InstanceSimulator) Run(ctx context.Context) (*sim.RunResult, error) {
	if i.hasRun {
		return nil, fmt.Errorf("instance %s: %w", i.id, sim.ErrDone)
	}
	i.hasRun = true
	return i.worker.Run(ctx)
}

// traceObserver forwards each step's post-exchange edges into a SimulationTrace.
type traceObserver struct {
	st *trace.SimulationTrace
}

func (o traceObserver) OnExchanged(step int, p sim.Partition, cur *sim.Segment) {
	o.st.RecordGhosts(trace.GhostRecord{
		Step:       step,
		Rank:       p.Rank,
		Workers:    p.Workers,
		LeftGhost:  cur.LeftGhost(),
		First:      cur.First(),
		Last:       cur.Last(),
		RightGhost: cur.RightGhost(),
	})
}
