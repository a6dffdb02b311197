package halo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/halo-sim/halo-sim/sim"
	"github.com/halo-sim/halo-sim/sim/comm"
)

var allStrategies = []sim.Strategy{
	sim.StrategyBlocking,
	sim.StrategyNonblockingWait,
	sim.StrategyNonblockingOverlap,
}

// rig is one exchanger per rank over a shared fabric.
type rig struct {
	fabric     *comm.Fabric
	exchangers []sim.Exchanger
	cur, next  []*sim.Segment
}

// newRig builds a rig whose rank r starts with real cells init[r].
func newRig(t *testing.T, s sim.Strategy, alpha float64, buffer int, init [][]float64) *rig {
	t.Helper()
	w := len(init)
	f, err := comm.NewFabric(w, comm.WithBuffer(buffer))
	require.NoError(t, err)
	r := &rig{fabric: f}
	for rank := 0; rank < w; rank++ {
		part, err := sim.NewPartition(w*len(init[rank]), w, rank)
		require.NoError(t, err)
		ep, err := f.Endpoint(rank)
		require.NoError(t, err)
		ex, err := New(s, sim.ExchangeParams{Partition: part, Comm: ep, Kernel: sim.Kernel{Alpha: alpha}})
		require.NoError(t, err)
		cur, next := sim.NewSegment(part.LocalN), sim.NewSegment(part.LocalN)
		copy(cur.Real(), init[rank])
		r.exchangers = append(r.exchangers, ex)
		r.cur = append(r.cur, cur)
		r.next = append(r.next, next)
	}
	return r
}

// advance runs one step on every rank concurrently.
func (r *rig) advance(t *testing.T, step int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	for rank := range r.exchangers {
		rank := rank
		g.Go(func() error {
			return r.exchangers[rank].Advance(gctx, step, r.cur[rank], r.next[rank])
		})
	}
	require.NoError(t, g.Wait())
}

func TestNew_UnknownStrategy(t *testing.T) {
	_, err := New("broadcast", sim.ExchangeParams{})
	assert.Error(t, err)
}

func TestNew_StrategyNames(t *testing.T) {
	for _, s := range allStrategies {
		ex, err := New(s, sim.ExchangeParams{})
		require.NoError(t, err)
		assert.Equal(t, s, ex.Strategy())
	}
}

func TestRegister_SetsExchangerFunc(t *testing.T) {
	require.NotNil(t, sim.NewExchangerFunc)
	f, err := comm.NewFabric(1)
	require.NoError(t, err)
	ep, err := f.Endpoint(0)
	require.NoError(t, err)

	ex, err := sim.NewExchanger(sim.StrategyNonblockingOverlap, sim.ExchangeParams{Comm: ep})
	require.NoError(t, err)
	assert.IsType(t, &Overlapped{}, ex)
}

func TestRoleFor_AlternatesByParity(t *testing.T) {
	for rank := 0; rank < 6; rank++ {
		assert.NotEqual(t, RoleFor(rank), RoleFor(rank+1), "adjacent ranks %d and %d", rank, rank+1)
	}
	assert.Equal(t, RoleSendFirst, RoleFor(0))
	assert.Equal(t, RoleReceiveFirst, RoleFor(1))
	assert.Equal(t, [2]phase{phaseSend, phaseReceive}, RoleSendFirst.phases())
	assert.Equal(t, [2]phase{phaseReceive, phaseSend}, RoleReceiveFirst.phases())
	assert.Equal(t, "send-first", RoleSendFirst.String())
	assert.Equal(t, "receive-first", RoleReceiveFirst.String())
}

func TestAdvance_GhostsHoldNeighbourBoundaries(t *testing.T) {
	init := [][]float64{
		{1, 2, 3},
		{4, 5, 6},
		{7, 8, 9},
		{10, 11, 12},
	}
	for _, s := range allStrategies {
		for _, buffer := range []int{0, 1} {
			t.Run(string(s), func(t *testing.T) {
				// GIVEN four ranks with distinct boundary values
				r := newRig(t, s, 0.1, buffer, init)

				// WHEN one step is advanced
				r.advance(t, 0)

				// THEN interior ghosts mirror neighbours, edge ghosts mirror themselves
				assert.Equal(t, 1.0, r.cur[0].LeftGhost(), "rank 0 left ghost reflects its first cell")
				assert.Equal(t, 4.0, r.cur[0].RightGhost())
				assert.Equal(t, 3.0, r.cur[1].LeftGhost())
				assert.Equal(t, 7.0, r.cur[1].RightGhost())
				assert.Equal(t, 6.0, r.cur[2].LeftGhost())
				assert.Equal(t, 10.0, r.cur[2].RightGhost())
				assert.Equal(t, 9.0, r.cur[3].LeftGhost())
				assert.Equal(t, 12.0, r.cur[3].RightGhost(), "last rank right ghost reflects its last cell")

				// AND the real cells of cur are untouched by the exchange
				assert.Equal(t, []float64{4, 5, 6}, r.cur[1].Real())
			})
		}
	}
}

func TestAdvance_StrategiesProduceIdenticalUpdates(t *testing.T) {
	init := [][]float64{
		{1000, 0, 0, 5},
		{0, 3, 0, 0},
		{2, 0, 0, 0},
	}
	var want [][]float64
	for _, s := range allStrategies {
		r := newRig(t, s, 0.2, 0, init)
		r.advance(t, 0)
		got := make([][]float64, len(r.next))
		for rank, seg := range r.next {
			got[rank] = seg.Snapshot()
		}
		if want == nil {
			want = got
			continue
		}
		assert.Equal(t, want, got, "strategy %s", s)
	}
}

func TestOverlapped_ComputesInteriorEarly(t *testing.T) {
	// GIVEN two ranks with five real cells each
	init := [][]float64{{1, 2, 3, 4, 5}, {6, 7, 8, 9, 10}}
	r := newRig(t, sim.StrategyNonblockingOverlap, 0.1, 0, init)

	// WHEN a step is advanced
	r.advance(t, 0)

	// THEN cells 2..4 were computed while transfers were in flight
	for rank, ex := range r.exchangers {
		stats := ex.(sim.OverlapReporter).LastOverlap()
		assert.Equal(t, 3, stats.EarlyCells, "rank %d", rank)
		assert.GreaterOrEqual(t, stats.PollSweeps, 1, "rank %d", rank)
	}
}

func TestOverlapped_SingleCellHasNoEarlyPhase(t *testing.T) {
	// GIVEN local_n = 1 on every rank
	init := [][]float64{{100}, {0}, {50}}
	over := newRig(t, sim.StrategyNonblockingOverlap, 0.1, 0, init)
	wait := newRig(t, sim.StrategyNonblockingWait, 0.1, 0, init)

	// WHEN both strategies advance one step
	over.advance(t, 0)
	wait.advance(t, 0)

	// THEN no interior cell was computed early and results match exactly
	for rank := range init {
		stats := over.exchangers[rank].(sim.OverlapReporter).LastOverlap()
		assert.Zero(t, stats.EarlyCells, "rank %d", rank)
		assert.Equal(t, wait.next[rank].Snapshot(), over.next[rank].Snapshot(), "rank %d", rank)
	}
}

func TestAdvance_SingleWorkerAppliesBoundaryRuleOnly(t *testing.T) {
	for _, s := range allStrategies {
		r := newRig(t, s, 0.1, 0, [][]float64{{10, 0, 0}})
		r.advance(t, 0)
		assert.Equal(t, 10.0, r.cur[0].LeftGhost(), s)
		assert.Equal(t, 0.0, r.cur[0].RightGhost(), s)
		assert.InDeltaSlice(t, []float64{9, 1, 0}, r.next[0].Snapshot(), 1e-12, s)
		assert.Zero(t, r.fabric.Delivered(), s)
	}
}

func TestAdvance_MissingPeerIsChannelError(t *testing.T) {
	// GIVEN two ranks where only rank 0 advances
	for _, s := range allStrategies {
		t.Run(string(s), func(t *testing.T) {
			r := newRig(t, s, 0.1, 0, [][]float64{{1, 2}, {3, 4}})
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
			defer cancel()

			// WHEN the step deadline passes
			err := r.exchangers[0].Advance(ctx, 0, r.cur[0], r.next[0])

			// THEN rank 0 reports a ChannelError caused by the deadline
			var ce *comm.ChannelError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, 0, ce.Rank)
			assert.Equal(t, 1, ce.Peer)
			assert.ErrorIs(t, err, context.DeadlineExceeded)
		})
	}
}

func TestOverlapped_PollLimit(t *testing.T) {
	// GIVEN a poll budget and a neighbour that never sends
	f, err := comm.NewFabric(2, comm.WithBuffer(1))
	require.NoError(t, err)
	ep, err := f.Endpoint(0)
	require.NoError(t, err)
	part, err := sim.NewPartition(4, 2, 0)
	require.NoError(t, err)
	ex := NewOverlapped(sim.ExchangeParams{Partition: part, Comm: ep, Kernel: sim.Kernel{Alpha: 0.1}, PollLimit: 3})
	cur, next := sim.NewSegment(2), sim.NewSegment(2)

	// WHEN advancing
	err = ex.Advance(context.Background(), 0, cur, next)

	// THEN the exchange gives up after the budget with a ChannelError
	var ce *comm.ChannelError
	require.ErrorAs(t, err, &ce)
	assert.True(t, errors.Is(err, ErrPollLimit))
	assert.Equal(t, 3, ex.LastOverlap().PollSweeps)
	f.Close()
}

func TestAdvance_ClosedFabricCannotIssue(t *testing.T) {
	for _, s := range allStrategies {
		r := newRig(t, s, 0.1, 0, [][]float64{{1}, {2}})
		r.fabric.Close()
		err := r.exchangers[1].Advance(context.Background(), 0, r.cur[1], r.next[1])
		assert.ErrorIs(t, err, comm.ErrClosed, s)
	}
}

func TestAdvance_ManyStepsOnRendezvousLinks(t *testing.T) {
	// GIVEN five ranks (odd count, so both edges have the same role) on rendezvous links
	init := [][]float64{{1, 0}, {0, 0}, {0, 9}, {0, 0}, {4, 0}}
	for _, s := range allStrategies {
		r := newRig(t, s, 0.25, 0, init)
		// WHEN many steps run back to back, committing next into cur
		for step := 0; step < 50; step++ {
			r.advance(t, step)
			for rank := range r.cur {
				r.cur[rank].CopyRealFrom(r.next[rank])
			}
		}
		// THEN every transfer was delivered: 2*(W-1) per step
		assert.EqualValues(t, 50*2*4, r.fabric.Delivered(), s)
	}
}
