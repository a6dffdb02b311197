package cluster

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/halo-sim/halo-sim/sim"
	"github.com/halo-sim/halo-sim/sim/comm"
	"github.com/halo-sim/halo-sim/sim/trace"
)

// ClusterSimulator runs every worker of a configuration concurrently.
type ClusterSimulator struct {
	RunID  string
	Config sim.Config
	Trace  *trace.SimulationTrace // nil unless tracing was requested

	hasRun bool
}

// Option configures a ClusterSimulator.
type Option func(*ClusterSimulator)

// WithTrace records every worker's ghosts at the given level.
func WithTrace(level trace.TraceLevel) Option {
	return func(c *ClusterSimulator) {
		c.Trace = trace.NewSimulationTrace(trace.TraceConfig{Level: level})
	}
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(c *ClusterSimulator) { c.RunID = id }
}

// NewClusterSimulator validates cfg and prepares a run.
func NewClusterSimulator(cfg sim.Config, opts ...Option) (*ClusterSimulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &ClusterSimulator{RunID: uuid.NewString(), Config: cfg}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Result is the outcome of a cluster run.
type Result struct {
	Metrics *sim.Metrics
	Workers []*sim.RunResult       // indexed by rank
	Trace   *trace.SimulationTrace // nil unless WithTrace was given
}

// Run creates all workers, steps them concurrently and gathers the global
// field. The first worker error cancels the others and is returned.
func (c *ClusterSimulator) Run(ctx context.Context) (*Result, error) {
	if c.hasRun {
		return nil, fmt.Errorf("cluster run %s: %w", c.RunID, sim.ErrDone)
	}
	c.hasRun = true

	cfg := c.Config
	log := logrus.WithField("run", c.RunID)
	if cfg.Unstable() {
		log.Warnf("alpha %g exceeds the stability limit %g; values will diverge",
			cfg.Physics.EffectiveAlpha(), sim.StabilityLimit)
	}

	w := cfg.Domain.Workers
	fabric, err := comm.NewFabric(w, comm.WithBuffer(cfg.Exchange.ChannelBuffer))
	if err != nil {
		return nil, err
	}
	defer fabric.Close()

	// All workers are built before any of them steps, so configuration
	// errors surface before communication starts.
	instances := make([]*InstanceSimulator, w)
	for rank := range instances {
		inst, err := NewInstanceSimulator(cfg, fabric, rank, c.Trace)
		if err != nil {
			return nil, err
		}
		instances[rank] = inst
	}

	log.Infof("starting %s run: N=%d workers=%d steps=%d alpha=%g link capacity=%d",
		cfg.Exchange.Strategy, cfg.Domain.N, w, cfg.Domain.Steps, cfg.Physics.EffectiveAlpha(), fabric.Capacity())

	results := make([]*sim.RunResult, w)
	g, gctx := errgroup.WithContext(ctx)
	for rank, inst := range instances {
		rank, inst := rank, inst
		g.Go(func() error {
			res, err := inst.Run(gctx)
			if err != nil {
				return err
			}
			results[rank] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	values, elapsed := gather(cfg.Domain.N, results)
	m := sim.NewMetrics(c.RunID, cfg, values, elapsed, fabric.Delivered())
	log.Infof("run complete in %v (%d halo messages)", elapsed, m.Messages)
	return &Result{Metrics: m, Workers: results, Trace: c.Trace}, nil
}

// gather assembles the global field and returns the slowest worker's stepping time.
func gather(n int, results []*sim.RunResult) ([]float64, time.Duration) {
	values := make([]float64, n)
	var elapsed time.Duration
	for _, r := range results {
		copy(values[r.Offset:], r.Values)
		elapsed = max(elapsed, r.Elapsed)
	}
	return values, elapsed
}

// Run is a convenience wrapper that builds and runs a ClusterSimulator.
func Run(ctx context.Context, cfg sim.Config, opts ...Option) (*Result, error) {
	c, err := NewClusterSimulator(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return c.Run(ctx)
}
