package sim

import (
	"fmt"
	"math"
	"time"
)

// Defaults follow the reference bar runs: a 300-cell bar, 100000 steps,
// alpha 0.1 and a 1000-unit perturbation in the first cell.
const (
	DefaultN          = 300
	DefaultWorkers    = 4
	DefaultSteps      = 100000
	DefaultAlpha      = 0.1
	DefaultSeedCell   = 0
	DefaultSeedValue  = 1000.0
	DefaultStrategy   = StrategyBlocking
	DefaultBufferSize = 0
)

// StabilityLimit is the largest alpha for which the explicit scheme is stable.
const StabilityLimit = 0.5

// DomainConfig groups the global shape of the run.
type DomainConfig struct {
	N       int // global number of cells (must be > 0 and divisible by Workers)
	Workers int // number of workers W (must be > 0)
	Steps   int // fixed number of time steps (must be > 0)
}

// PhysicsConfig groups the diffusion coefficient or the constants it derives from.
// A non-zero Alpha wins; otherwise alpha = Nu*Dt/Dx² when all three are set.
type PhysicsConfig struct {
	Alpha float64 // dimensionless diffusion coefficient
	Nu    float64 // diffusivity
	Dt    float64 // time step
	Dx    float64 // cell width
}

// ExchangeConfig groups halo exchange selection and channel limits.
type ExchangeConfig struct {
	Strategy      Strategy      // "blocking" (default), "nonblocking-wait", "nonblocking-overlap"
	ChannelBuffer int           // per-link capacity; 0 = rendezvous
	Timeout       time.Duration // per-step bound on exchange; 0 = wait forever
	PollLimit     int           // max poll sweeps for nonblocking-overlap; 0 = unbounded
}

// SeedConfig places the single initial perturbation.
type SeedConfig struct {
	Cell  int     // global cell index, in [0, N)
	Value float64 // initial value of that cell; every other cell starts at 0
}

// Config is the full run configuration shared by every worker.
type Config struct {
	Domain   DomainConfig
	Physics  PhysicsConfig
	Exchange ExchangeConfig
	Seed     SeedConfig
}

// DefaultConfig returns the configuration of the reference bar runs.
func DefaultConfig() Config {
	return Config{
		Domain:   DomainConfig{N: DefaultN, Workers: DefaultWorkers, Steps: DefaultSteps},
		Physics:  PhysicsConfig{Alpha: DefaultAlpha},
		Exchange: ExchangeConfig{Strategy: DefaultStrategy, ChannelBuffer: DefaultBufferSize},
		Seed:     SeedConfig{Cell: DefaultSeedCell, Value: DefaultSeedValue},
	}
}

// EffectiveAlpha returns the configured alpha, deriving it from Nu, Dt and Dx
// when Alpha is zero and all three are positive.
func (p PhysicsConfig) EffectiveAlpha() float64 {
	if p.Alpha != 0 {
		return p.Alpha
	}
	if p.Nu > 0 && p.Dt > 0 && p.Dx > 0 {
		return p.Nu * p.Dt / (p.Dx * p.Dx)
	}
	return 0
}

// Validate checks every field and returns the first *ConfigurationError found.
func (c Config) Validate() error {
	d := c.Domain
	if d.N <= 0 {
		return &ConfigurationError{Field: "n", Value: d.N, Reason: "must be positive"}
	}
	if d.Workers <= 0 {
		return &ConfigurationError{Field: "workers", Value: d.Workers, Reason: "must be positive"}
	}
	if d.N%d.Workers != 0 {
		return &ConfigurationError{Field: "n", Value: d.N,
			Reason: fmt.Sprintf("must be divisible by the number of workers (%d)", d.Workers)}
	}
	if d.Steps <= 0 {
		return &ConfigurationError{Field: "steps", Value: d.Steps, Reason: "must be positive"}
	}

	p := c.Physics
	for _, f := range []struct {
		name string
		v    float64
	}{{"nu", p.Nu}, {"dt", p.Dt}, {"dx", p.Dx}} {
		if f.v < 0 || math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &ConfigurationError{Field: f.name, Value: f.v, Reason: "must be finite and non-negative"}
		}
	}
	partial := (p.Nu != 0 || p.Dt != 0 || p.Dx != 0) && !(p.Nu > 0 && p.Dt > 0 && p.Dx > 0)
	if p.Alpha == 0 && partial {
		return &ConfigurationError{Field: "alpha", Value: p.Alpha, Reason: "set alpha or all of nu, dt, dx"}
	}
	alpha := p.EffectiveAlpha()
	if alpha < 0 || math.IsNaN(alpha) || math.IsInf(alpha, 0) {
		return &ConfigurationError{Field: "alpha", Value: alpha, Reason: "must be finite and non-negative"}
	}

	e := c.Exchange
	if !ValidStrategies[e.Strategy] {
		return &ConfigurationError{Field: "strategy", Value: string(e.Strategy),
			Reason: fmt.Sprintf("must be one of %v", StrategyNames())}
	}
	if e.ChannelBuffer < 0 {
		return &ConfigurationError{Field: "channel_buffer", Value: e.ChannelBuffer, Reason: "must be non-negative"}
	}
	if e.Timeout < 0 {
		return &ConfigurationError{Field: "exchange_timeout", Value: e.Timeout, Reason: "must be non-negative"}
	}
	if e.PollLimit < 0 {
		return &ConfigurationError{Field: "poll_limit", Value: e.PollLimit, Reason: "must be non-negative"}
	}

	if c.Seed.Cell < 0 || c.Seed.Cell >= d.N {
		return &ConfigurationError{Field: "seed_cell", Value: c.Seed.Cell,
			Reason: fmt.Sprintf("must be in [0, %d)", d.N)}
	}
	if math.IsNaN(c.Seed.Value) || math.IsInf(c.Seed.Value, 0) {
		return &ConfigurationError{Field: "seed_value", Value: c.Seed.Value, Reason: "must be finite"}
	}
	return nil
}

// Unstable reports whether alpha exceeds the explicit scheme's stability limit.
// Such runs are allowed but their values grow without bound.
func (c Config) Unstable() bool {
	return c.Physics.EffectiveAlpha() > StabilityLimit
}
