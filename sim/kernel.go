package sim

// Kernel is the explicit three-point diffusion update
//
//	next[i] = cur[i] + Alpha*(cur[i-1] - 2*cur[i] + cur[i+1])
//
// It is identical for interior and edge workers: the ghost cells already encode
// either the neighbour value or the boundary rule. Kernel methods never allocate
// and never fail.
type Kernel struct {
	Alpha float64
}

// Apply updates next's cells lo..hi (inclusive, segment indices) from cur.
// Ranges outside 1..LocalN are clipped.
func (k Kernel) Apply(cur, next *Segment, lo, hi int) {
	if lo < 1 {
		lo = 1
	}
	if n := cur.Len(); hi > n {
		hi = n
	}
	u, v := cur.cells, next.cells
	a := k.Alpha
	for i := lo; i <= hi; i++ {
		v[i] = u[i] + a*(u[i-1]-2*u[i]+u[i+1])
	}
}

// ApplyAll updates every real cell. Both ghosts of cur must be valid.
func (k Kernel) ApplyAll(cur, next *Segment) {
	k.Apply(cur, next, 1, cur.Len())
}

// ApplyInterior updates the cells that do not read a ghost (2..LocalN-1) and
// returns how many it computed. It computes nothing when LocalN < 3.
func (k Kernel) ApplyInterior(cur, next *Segment) int {
	n := cur.Len()
	if n < 3 {
		return 0
	}
	k.Apply(cur, next, 2, n-1)
	return n - 2
}

// ApplyEdges updates the two ghost-dependent cells 1 and LocalN (once when they coincide).
func (k Kernel) ApplyEdges(cur, next *Segment) {
	n := cur.Len()
	if n < 1 {
		return
	}
	k.Apply(cur, next, 1, 1)
	if n > 1 {
		k.Apply(cur, next, n, n)
	}
}
