package halo

import (
	"context"

	"github.com/halo-sim/halo-sim/sim"
	"github.com/halo-sim/halo-sim/sim/comm"
)

// Role is a rank's position in the two-phase ordered exchange.
type Role int

const (
	// RoleSendFirst ranks (even) send both boundaries, then receive both ghosts.
	RoleSendFirst Role = iota
	// RoleReceiveFirst ranks (odd) receive both ghosts, then send both boundaries.
	RoleReceiveFirst
)

func (r Role) String() string {
	if r == RoleSendFirst {
		return "send-first"
	}
	return "receive-first"
}

// RoleFor assigns roles by rank parity. Adjacent ranks always get opposite
// roles, so every blocking send meets a receive that is already waiting or
// about to wait, even on a rendezvous link.
func RoleFor(rank int) Role {
	if rank%2 == 0 {
		return RoleSendFirst
	}
	return RoleReceiveFirst
}

type phase int

const (
	phaseSend phase = iota
	phaseReceive
)

// phases returns the role's phase order.
func (r Role) phases() [2]phase {
	if r == RoleSendFirst {
		return [2]phase{phaseSend, phaseReceive}
	}
	return [2]phase{phaseReceive, phaseSend}
}

// Ordered is the synchronous exchange: blocking sends and receives in a fixed
// per-role order, followed by the full stencil update.
type Ordered struct {
	base
	role Role
}

// NewOrdered builds the ordered synchronous exchanger for p's rank.
func NewOrdered(p sim.ExchangeParams) *Ordered {
	return &Ordered{base: newBase(p), role: RoleFor(p.Partition.Rank)}
}

func (o *Ordered) Strategy() sim.Strategy { return sim.StrategyBlocking }

func (o *Ordered) Advance(ctx context.Context, step int, cur, next *sim.Segment) error {
	for _, ph := range o.role.phases() {
		var err error
		switch ph {
		case phaseSend:
			err = o.sendBoundaries(ctx, step, cur)
		case phaseReceive:
			err = o.receiveGhosts(ctx, step, cur)
		}
		if err != nil {
			return err
		}
	}
	o.kernel.ApplyAll(cur, next)
	return nil
}

// sendBoundaries sends the first real cell left and the last real cell right.
func (o *Ordered) sendBoundaries(ctx context.Context, step int, cur *sim.Segment) error {
	if o.part.HasLeft() {
		if err := o.comm.Send(ctx, o.part.Left, comm.TagLeftward, step, cur.First()); err != nil {
			return err
		}
	}
	if o.part.HasRight() {
		if err := o.comm.Send(ctx, o.part.Right, comm.TagRightward, step, cur.Last()); err != nil {
			return err
		}
	}
	return nil
}

// receiveGhosts fills the left then the right ghost, from the neighbour or by
// the boundary rule.
func (o *Ordered) receiveGhosts(ctx context.Context, step int, cur *sim.Segment) error {
	if o.part.HasLeft() {
		v, err := o.comm.Recv(ctx, o.part.Left, comm.TagRightward, step)
		if err != nil {
			return err
		}
		cur.SetLeftGhost(v)
	} else {
		cur.ReflectLeft()
	}
	if o.part.HasRight() {
		v, err := o.comm.Recv(ctx, o.part.Right, comm.TagLeftward, step)
		if err != nil {
			return err
		}
		cur.SetRightGhost(v)
	} else {
		cur.ReflectRight()
	}
	return nil
}
