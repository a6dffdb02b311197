package sim

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/halo-sim/halo-sim/sim/comm"
)

// Strategy names one halo exchange implementation.
type Strategy string

const (
	// StrategyBlocking is the ordered synchronous exchange: even ranks send then
	// receive, odd ranks receive then send.
	StrategyBlocking Strategy = "blocking"
	// StrategyNonblockingWait issues every transfer without ordering and then waits for all.
	StrategyNonblockingWait Strategy = "nonblocking-wait"
	// StrategyNonblockingOverlap issues every transfer, computes the ghost-free
	// interior while they are in flight, polls until all resolve, then finishes the edges.
	StrategyNonblockingOverlap Strategy = "nonblocking-overlap"
)

// ValidStrategies is the set of recognized strategy names.
var ValidStrategies = map[Strategy]bool{
	StrategyBlocking:           true,
	StrategyNonblockingWait:    true,
	StrategyNonblockingOverlap: true,
}

// StrategyNames returns the recognized strategy names in sorted order.
func StrategyNames() []string {
	names := make([]string, 0, len(ValidStrategies))
	for s := range ValidStrategies {
		names = append(names, string(s))
	}
	sort.Strings(names)
	return names
}

// ParseStrategy converts a name into a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(name)
	if !ValidStrategies[s] {
		return "", &ConfigurationError{Field: "strategy", Value: name,
			Reason: fmt.Sprintf("must be one of %v", StrategyNames())}
	}
	return s, nil
}

// Exchanger advances one worker by one step: it refreshes cur's ghost cells and
// writes the stencil update of cur into next's real cells. Implementations
// differ only in how communication and computation are ordered.
//
// After Advance returns nil, cur's left ghost equals the left neighbour's last
// real cell of the same step (or cur's own first real cell at rank 0), cur's
// right ghost equals the right neighbour's first real cell (or cur's own last
// real cell at rank W-1), and next's real cells hold the update.
type Exchanger interface {
	Strategy() Strategy
	Advance(ctx context.Context, step int, cur, next *Segment) error
}

// ExchangeParams carries everything a strategy needs to serve one worker.
type ExchangeParams struct {
	Partition Partition
	Comm      comm.Comm
	Kernel    Kernel
	PollLimit int // max poll sweeps (overlap only); 0 = unbounded
}

// NewExchangerFunc builds an Exchanger for a strategy. It is registered by
// sim/halo's init(); production code imports sim/halo (directly or via
// sim/cluster) to wire it.
var NewExchangerFunc func(s Strategy, p ExchangeParams) (Exchanger, error)

// ErrNoExchanger is returned when no exchanger implementation has been registered.
var ErrNoExchanger = errors.New("no exchanger implementation registered (import sim/halo)")

// NewExchanger builds the Exchanger for s through the registered NewExchangerFunc.
func NewExchanger(s Strategy, p ExchangeParams) (Exchanger, error) {
	if !ValidStrategies[s] {
		return nil, &ConfigurationError{Field: "strategy", Value: string(s),
			Reason: fmt.Sprintf("must be one of %v", StrategyNames())}
	}
	if p.Comm == nil {
		return nil, fmt.Errorf("exchanger for rank %d: nil comm", p.Partition.Rank)
	}
	if NewExchangerFunc == nil {
		return nil, ErrNoExchanger
	}
	return NewExchangerFunc(s, p)
}

// OverlapStats describes the last Advance of an overlapping strategy.
type OverlapStats struct {
	EarlyCells int // interior cells computed while transfers were in flight
	PollSweeps int // passes over the pending requests until all resolved
}

// OverlapReporter is implemented by exchangers that overlap compute with communication.
type OverlapReporter interface {
	LastOverlap() OverlapStats
}
