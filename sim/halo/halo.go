// Package halo implements the halo exchange strategies behind sim.Exchanger.
//
// All strategies share one contract (see sim.Exchanger) and one boundary rule:
// a side with no neighbour mirrors its own adjacent real cell into the ghost.
// They differ in how transfers are ordered and completed:
//   - Ordered (blocking): explicit two-phase protocol keyed on rank parity.
//   - Waiting (nonblocking-wait): issue all transfers, wait for each.
//   - Overlapped (nonblocking-overlap): issue all transfers, compute the
//     ghost-free interior, poll until resolved, then compute the edges.
package halo

import (
	"context"
	"errors"
	"fmt"

	"github.com/halo-sim/halo-sim/sim"
	"github.com/halo-sim/halo-sim/sim/comm"
)

// ErrPollLimit is the cause of a ChannelError raised when the overlap strategy
// exhausts its poll budget before every transfer resolves.
var ErrPollLimit = errors.New("poll limit exceeded")

// New builds the exchanger for strategy s. It is registered as sim.NewExchangerFunc.
func New(s sim.Strategy, p sim.ExchangeParams) (sim.Exchanger, error) {
	switch s {
	case sim.StrategyBlocking:
		return NewOrdered(p), nil
	case sim.StrategyNonblockingWait:
		return NewWaiting(p), nil
	case sim.StrategyNonblockingOverlap:
		return NewOverlapped(p), nil
	default:
		return nil, fmt.Errorf("unknown exchange strategy %q", s)
	}
}

// base holds what every strategy needs for one worker.
type base struct {
	part   sim.Partition
	comm   comm.Comm
	kernel sim.Kernel
}

func newBase(p sim.ExchangeParams) base {
	return base{part: p.Partition, comm: p.Comm, kernel: p.Kernel}
}

// inflight tracks the non-blocking transfers of one step.
type inflight struct {
	left, right *comm.Request   // receives into the left/right ghost, nil without a neighbour
	all         []*comm.Request // every issued request, in issue order
}

// issue starts up to four non-blocking transfers: per existing side, a send of
// the boundary value and a receive of the ghost. sendFirst selects which of the
// pair is issued first on each side. buf is reused to avoid per-step allocation.
func (b *base) issue(ctx context.Context, step int, cur *sim.Segment, sendFirst bool, buf []*comm.Request) (inflight, error) {
	f := inflight{all: buf[:0]}
	var err error
	if b.part.HasLeft() {
		f.left, err = b.issueSide(ctx, &f, step, b.part.Left, comm.TagLeftward, comm.TagRightward, cur.First(), sendFirst)
		if err != nil {
			return f, err
		}
	}
	if b.part.HasRight() {
		f.right, err = b.issueSide(ctx, &f, step, b.part.Right, comm.TagRightward, comm.TagLeftward, cur.Last(), sendFirst)
		if err != nil {
			return f, err
		}
	}
	return f, nil
}

// issueSide issues the send/receive pair with one neighbour and returns the receive.
func (b *base) issueSide(ctx context.Context, f *inflight, step, peer int, sendTag, recvTag comm.Tag, boundary float64, sendFirst bool) (*comm.Request, error) {
	send := func() error {
		r, err := b.comm.Isend(ctx, peer, sendTag, step, boundary)
		if err != nil {
			return err
		}
		f.all = append(f.all, r)
		return nil
	}
	var recv *comm.Request
	receive := func() error {
		r, err := b.comm.Irecv(ctx, peer, recvTag, step)
		if err != nil {
			return err
		}
		recv = r
		f.all = append(f.all, r)
		return nil
	}

	first, second := receive, send
	if sendFirst {
		first, second = send, receive
	}
	if err := first(); err != nil {
		return nil, err
	}
	if err := second(); err != nil {
		return nil, err
	}
	return recv, nil
}

// fillGhosts writes resolved receives into the ghosts and applies the boundary
// rule on sides without a neighbour.
func (f inflight) fillGhosts(cur *sim.Segment) {
	if f.left != nil {
		cur.SetLeftGhost(f.left.Value())
	} else {
		cur.ReflectLeft()
	}
	if f.right != nil {
		cur.SetRightGhost(f.right.Value())
	} else {
		cur.ReflectRight()
	}
}
