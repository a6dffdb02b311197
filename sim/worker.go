// sim/worker.go
package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/halo-sim/halo-sim/sim/comm"
)

// State is a worker's position in its Init -> Stepping -> Done lifecycle.
type State int

const (
	StateInit State = iota
	StateStepping
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateStepping:
		return "stepping"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StepObserver is notified after each step's exchange has resolved and before
// the new values are committed. cur's ghosts hold the exchanged values and its
// real cells still hold the pre-update values of that step. Observers must not
// modify cur.
type StepObserver interface {
	OnExchanged(step int, p Partition, cur *Segment)
}

// RunResult is what a worker reports once it reaches Done.
type RunResult struct {
	Rank    int
	Offset  int           // global index of Values[0]
	Values  []float64     // final real cells
	Elapsed time.Duration // wall time of the stepping phase
}

// Worker drives one partition through a fixed number of steps. It owns two
// segments (current and next) and is not safe for concurrent use.
type Worker struct {
	cfg       Config
	partition Partition
	exchanger Exchanger
	cur, next *Segment
	state     State
	observer  StepObserver
	log       *logrus.Entry
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithObserver installs a StepObserver.
func WithObserver(o StepObserver) WorkerOption {
	return func(w *Worker) { w.observer = o }
}

// NewWorker validates cfg, derives the partition of c.Rank(), allocates both
// segments and applies the initial perturbation.
func NewWorker(cfg Config, c comm.Comm, opts ...WorkerOption) (*Worker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("new worker: nil comm")
	}
	if c.Size() != cfg.Domain.Workers {
		return nil, &ConfigurationError{Field: "workers", Value: cfg.Domain.Workers,
			Reason: fmt.Sprintf("comm has %d ranks", c.Size())}
	}
	part, err := NewPartition(cfg.Domain.N, cfg.Domain.Workers, c.Rank())
	if err != nil {
		return nil, err
	}
	ex, err := NewExchanger(cfg.Exchange.Strategy, ExchangeParams{
		Partition: part,
		Comm:      c,
		Kernel:    Kernel{Alpha: cfg.Physics.EffectiveAlpha()},
		PollLimit: cfg.Exchange.PollLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("rank %d: %w", part.Rank, err)
	}

	w := &Worker{
		cfg:       cfg,
		partition: part,
		exchanger: ex,
		cur:       NewSegment(part.LocalN),
		next:      NewSegment(part.LocalN),
		state:     StateInit,
		log: logrus.WithFields(logrus.Fields{
			"rank":     part.Rank,
			"strategy": string(cfg.Exchange.Strategy),
		}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if part.Owns(cfg.Seed.Cell) {
		w.cur.Set(part.LocalIndex(cfg.Seed.Cell), cfg.Seed.Value)
		w.log.Debugf("seeded global cell %d with %g", cfg.Seed.Cell, cfg.Seed.Value)
	}
	return w, nil
}

// Partition returns the worker's partition.
func (w *Worker) Partition() Partition { return w.partition }

// State returns the current lifecycle state.
func (w *Worker) State() State { return w.state }

// Current returns the current segment.
func (w *Worker) Current() *Segment { return w.cur }

// Exchanger returns the strategy in use.
func (w *Worker) Exchanger() Exchanger { return w.exchanger }

// Run performs every step and moves the worker to Done. Each step exchanges
// halos and updates (via the Exchanger), then copies next's real cells into
// current. There is no early exit on convergence. A finished worker returns ErrDone.
func (w *Worker) Run(ctx context.Context) (*RunResult, error) {
	if w.state != StateInit {
		return nil, ErrDone
	}
	w.state = StateStepping
	defer func() { w.state = StateDone }()

	steps := w.cfg.Domain.Steps
	timeout := w.cfg.Exchange.Timeout
	w.log.Debugf("stepping %s for %d steps", w.partition, steps)

	start := time.Now()
	for step := 0; step < steps; step++ {
		if err := w.advance(ctx, step, timeout); err != nil {
			w.log.Errorf("step %d failed: %v", step, err)
			return nil, fmt.Errorf("rank %d step %d: %w", w.partition.Rank, step, err)
		}
		if w.observer != nil {
			w.observer.OnExchanged(step, w.partition, w.cur)
		}
		w.cur.CopyRealFrom(w.next)
		if logrus.IsLevelEnabled(logrus.TraceLevel) {
			w.log.Tracef("step %d ghosts=(%g, %g)", step, w.cur.LeftGhost(), w.cur.RightGhost())
		}
	}
	elapsed := time.Since(start)
	w.log.Debugf("done in %v", elapsed)

	return &RunResult{
		Rank:    w.partition.Rank,
		Offset:  w.partition.Offset,
		Values:  w.cur.Snapshot(),
		Elapsed: elapsed,
	}, nil
}

func (w *Worker) advance(ctx context.Context, step int, timeout time.Duration) error {
	if timeout <= 0 {
		return w.exchanger.Advance(ctx, step, w.cur, w.next)
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return w.exchanger.Advance(stepCtx, step, w.cur, w.next)
}
