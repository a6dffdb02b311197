package halo

import (
	"context"

	"github.com/halo-sim/halo-sim/sim"
	"github.com/halo-sim/halo-sim/sim/comm"
)

// Waiting issues every transfer of the step without any inter-rank ordering,
// blocks until each one resolves, then runs the full stencil update.
type Waiting struct {
	base
	buf [4]*comm.Request
}

// NewWaiting builds the non-blocking issue, blocking wait exchanger.
func NewWaiting(p sim.ExchangeParams) *Waiting {
	return &Waiting{base: newBase(p)}
}

func (w *Waiting) Strategy() sim.Strategy { return sim.StrategyNonblockingWait }

func (w *Waiting) Advance(ctx context.Context, step int, cur, next *sim.Segment) error {
	f, err := w.issue(ctx, step, cur, false, w.buf[:])
	if err != nil {
		return err
	}
	for _, r := range f.all {
		if err := r.Wait(ctx); err != nil {
			return err
		}
	}
	f.fillGhosts(cur)
	w.kernel.ApplyAll(cur, next)
	return nil
}
