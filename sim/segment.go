package sim

// Segment is a worker's ghost-padded buffer: one owned slice of LocalN+2 cells.
// Index 0 is the left ghost, 1..LocalN are the real cells and LocalN+1 is the
// right ghost. Ghosts hold copies of neighbour boundary values (or the boundary
// rule value) and are only meaningful after a halo exchange.
type Segment struct {
	cells []float64
}

// NewSegment returns a zero-filled segment with localN real cells.
func NewSegment(localN int) *Segment {
	return &Segment{cells: make([]float64, localN+2)}
}

// Len returns the number of real cells.
func (s *Segment) Len() int { return len(s.cells) - 2 }

// Real returns the real cells. The slice aliases the segment.
func (s *Segment) Real() []float64 { return s.cells[1 : len(s.cells)-1] }

// Cells returns the whole buffer including both ghosts. The slice aliases the segment.
func (s *Segment) Cells() []float64 { return s.cells }

// At returns the cell at segment index i (0..LocalN+1).
func (s *Segment) At(i int) float64 { return s.cells[i] }

// Set stores v at segment index i.
func (s *Segment) Set(i int, v float64) { s.cells[i] = v }

// First returns the leftmost real cell.
func (s *Segment) First() float64 { return s.cells[1] }

// Last returns the rightmost real cell.
func (s *Segment) Last() float64 { return s.cells[len(s.cells)-2] }

// LeftGhost returns the left ghost cell.
func (s *Segment) LeftGhost() float64 { return s.cells[0] }

// RightGhost returns the right ghost cell.
func (s *Segment) RightGhost() float64 { return s.cells[len(s.cells)-1] }

// SetLeftGhost stores the left ghost cell.
func (s *Segment) SetLeftGhost(v float64) { s.cells[0] = v }

// SetRightGhost stores the right ghost cell.
func (s *Segment) SetRightGhost(v float64) { s.cells[len(s.cells)-1] = v }

// ReflectLeft applies the reflective boundary rule on the left edge.
func (s *Segment) ReflectLeft() { s.cells[0] = s.cells[1] }

// ReflectRight applies the reflective boundary rule on the right edge.
func (s *Segment) ReflectRight() { s.cells[len(s.cells)-1] = s.cells[len(s.cells)-2] }

// CopyRealFrom copies src's real cells into s. Ghosts are left untouched.
func (s *Segment) CopyRealFrom(src *Segment) {
	copy(s.Real(), src.Real())
}

// Snapshot returns a copy of the real cells.
func (s *Segment) Snapshot() []float64 {
	out := make([]float64, s.Len())
	copy(out, s.Real())
	return out
}
