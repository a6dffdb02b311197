package halo

import (
	"context"
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/halo-sim/halo-sim/sim"
	"github.com/halo-sim/halo-sim/sim/comm"
)

// Overlapped issues every transfer, updates the interior cells that do not read
// a ghost while the transfers are in flight, polls until all resolve, and only
// then updates the two ghost-dependent edge cells.
//
// Polling never blocks: each sweep tests the still-pending requests once, drops
// the resolved ones and yields the processor before the next sweep. It ends when
// nothing is pending, ctx ends, or the optional poll limit is reached.
type Overlapped struct {
	base
	pollLimit int
	buf       [4]*comm.Request
	last      sim.OverlapStats
}

// NewOverlapped builds the overlapping exchanger.
func NewOverlapped(p sim.ExchangeParams) *Overlapped {
	return &Overlapped{base: newBase(p), pollLimit: p.PollLimit}
}

func (o *Overlapped) Strategy() sim.Strategy { return sim.StrategyNonblockingOverlap }

// LastOverlap reports what the previous Advance overlapped.
func (o *Overlapped) LastOverlap() sim.OverlapStats { return o.last }

func (o *Overlapped) Advance(ctx context.Context, step int, cur, next *sim.Segment) error {
	o.last = sim.OverlapStats{}
	f, err := o.issue(ctx, step, cur, true, o.buf[:])
	if err != nil {
		return err
	}

	// Cells 2..LocalN-1 only read real cells, which no transfer writes.
	o.last.EarlyCells = o.kernel.ApplyInterior(cur, next)

	sweeps, err := o.poll(ctx, step, f.all)
	o.last.PollSweeps = sweeps
	if err != nil {
		return err
	}

	f.fillGhosts(cur)
	o.kernel.ApplyEdges(cur, next)
	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		logrus.Tracef("rank %d step %d: %d early cells, %d poll sweeps",
			o.part.Rank, step, o.last.EarlyCells, sweeps)
	}
	return nil
}

// poll tests pending requests until none remain. pending is filtered in place.
func (o *Overlapped) poll(ctx context.Context, step int, pending []*comm.Request) (int, error) {
	sweeps := 0
	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			return sweeps, o.stalled(step, pending[0], err)
		}
		if o.pollLimit > 0 && sweeps >= o.pollLimit {
			return sweeps, o.stalled(step, pending[0], ErrPollLimit)
		}
		sweeps++

		kept := pending[:0]
		for _, r := range pending {
			done, err := r.Test()
			if err != nil {
				return sweeps, err
			}
			if !done {
				kept = append(kept, r)
			}
		}
		pending = kept
		if len(pending) > 0 {
			runtime.Gosched()
		}
	}
	return sweeps, nil
}

func (o *Overlapped) stalled(step int, r *comm.Request, cause error) error {
	return &comm.ChannelError{Rank: o.part.Rank, Peer: r.Peer(), Op: r.Op(), Step: step, Err: cause}
}
