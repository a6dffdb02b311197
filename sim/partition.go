package sim

import "fmt"

// NoNeighbor marks a missing neighbour at either end of the domain.
const NoNeighbor = -1

// Partition is one worker's immutable view of the domain decomposition:
// its rank, the worker count, the contiguous range of cells it owns and the
// ranks of its direct neighbours.
type Partition struct {
	Rank    int
	Workers int
	N       int // global number of cells
	LocalN  int // number of real cells owned by this worker
	Offset  int // global index of this worker's first real cell
	Left    int // rank of the left neighbour, or NoNeighbor
	Right   int // rank of the right neighbour, or NoNeighbor
}

// NewPartition splits n cells evenly across workers and returns the share of rank.
// Uneven splits are rejected, not repaired.
func NewPartition(n, workers, rank int) (Partition, error) {
	if n <= 0 {
		return Partition{}, &ConfigurationError{Field: "n", Value: n, Reason: "must be positive"}
	}
	if workers <= 0 {
		return Partition{}, &ConfigurationError{Field: "workers", Value: workers, Reason: "must be positive"}
	}
	if n%workers != 0 {
		return Partition{}, &ConfigurationError{Field: "n", Value: n,
			Reason: fmt.Sprintf("must be divisible by the number of workers (%d)", workers)}
	}
	if rank < 0 || rank >= workers {
		return Partition{}, &ConfigurationError{Field: "rank", Value: rank,
			Reason: fmt.Sprintf("must be in [0, %d)", workers)}
	}

	localN := n / workers
	p := Partition{
		Rank:    rank,
		Workers: workers,
		N:       n,
		LocalN:  localN,
		Offset:  rank * localN,
		Left:    NoNeighbor,
		Right:   NoNeighbor,
	}
	if rank > 0 {
		p.Left = rank - 1
	}
	if rank < workers-1 {
		p.Right = rank + 1
	}
	return p, nil
}

// HasLeft reports whether the worker has a left neighbour.
func (p Partition) HasLeft() bool { return p.Left != NoNeighbor }

// HasRight reports whether the worker has a right neighbour.
func (p Partition) HasRight() bool { return p.Right != NoNeighbor }

// Owns reports whether the global cell belongs to this worker.
func (p Partition) Owns(cell int) bool {
	return cell >= p.Offset && cell < p.Offset+p.LocalN
}

// LocalIndex maps an owned global cell to its segment index (1..LocalN).
func (p Partition) LocalIndex(cell int) int { return cell - p.Offset + 1 }

// GlobalIndex maps a segment index (1..LocalN) to its global cell.
func (p Partition) GlobalIndex(local int) int { return p.Offset + local - 1 }

func (p Partition) String() string {
	return fmt.Sprintf("rank %d/%d cells [%d,%d)", p.Rank, p.Workers, p.Offset, p.Offset+p.LocalN)
}
