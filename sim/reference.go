package sim

// Sequential runs the same simulation on the whole domain in a single process:
// one segment of N cells with reflective ghosts at both ends. The distributed
// run of any strategy must reproduce its result.
func Sequential(cfg Config) ([]float64, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := cfg.Domain.N
	cur, next := NewSegment(n), NewSegment(n)
	cur.Set(cfg.Seed.Cell+1, cfg.Seed.Value)

	k := Kernel{Alpha: cfg.Physics.EffectiveAlpha()}
	for step := 0; step < cfg.Domain.Steps; step++ {
		cur.ReflectLeft()
		cur.ReflectRight()
		k.ApplyAll(cur, next)
		cur.CopyRealFrom(next)
	}
	return cur.Snapshot(), nil
}
