package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/halo-sim/halo-sim/sim"
	"github.com/halo-sim/halo-sim/sim/cluster"
	"github.com/halo-sim/halo-sim/sim/trace"
)

// runOptions holds the CLI flags shared by run and verify.
type runOptions struct {
	configPath string // YAML or TOML config file
	logLevel   string // Log verbosity level

	// Domain
	n       int // Number of cells in the bar
	workers int // Number of workers; must divide n
	steps   int // Number of time steps

	// Physics
	alpha float64 // Dimensionless diffusion coefficient
	nu    float64 // Diffusivity, used with dt and dx when alpha is not given
	dt    float64 // Time step
	dx    float64 // Cell width

	// Exchange
	strategy        string        // Halo exchange strategy
	channelBuffer   int           // Per-link channel capacity (0 = rendezvous)
	exchangeTimeout time.Duration // Per-step exchange bound (0 = none)
	pollLimit       int           // Max poll sweeps for nonblocking-overlap (0 = unbounded)

	// Seed
	seedCell  int     // Global index of the perturbed cell
	seedValue float64 // Initial value of the perturbed cell

	// Output
	printValues bool    // Print every final cell
	traceLevel  string  // Ghost trace level for run (none, ghosts)
	tolerance   float64 // Max allowed deviation in verify
}

var opts runOptions

// register binds every option to a flag of fs.
func (o *runOptions) register(fs *pflag.FlagSet) {
	fs.StringVar(&o.configPath, "config", "", "Path to a YAML (.yaml, .yml) or TOML (.toml) config file")
	fs.StringVar(&o.logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")

	fs.IntVar(&o.n, "n", sim.DefaultN, "Number of cells in the bar")
	fs.IntVar(&o.workers, "workers", sim.DefaultWorkers, "Number of workers (must divide n)")
	fs.IntVar(&o.steps, "steps", sim.DefaultSteps, "Number of time steps")

	fs.Float64Var(&o.alpha, "alpha", sim.DefaultAlpha, "Diffusion coefficient nu*dt/dx^2")
	fs.Float64Var(&o.nu, "nu", 0, "Diffusivity (alpha is derived from nu, dt, dx when --alpha is not set)")
	fs.Float64Var(&o.dt, "dt", 0, "Time step")
	fs.Float64Var(&o.dx, "dx", 0, "Cell width")

	fs.StringVar(&o.strategy, "strategy", string(sim.DefaultStrategy), fmt.Sprintf("Halo exchange strategy %v", sim.StrategyNames()))
	fs.IntVar(&o.channelBuffer, "channel-buffer", sim.DefaultBufferSize, "Per-link channel capacity (0 = rendezvous)")
	fs.DurationVar(&o.exchangeTimeout, "exchange-timeout", 0, "Per-step exchange timeout (0 = none)")
	fs.IntVar(&o.pollLimit, "poll-limit", 0, "Max poll sweeps per step for nonblocking-overlap (0 = unbounded)")

	fs.IntVar(&o.seedCell, "seed-cell", sim.DefaultSeedCell, "Global index of the initially perturbed cell")
	fs.Float64Var(&o.seedValue, "seed-value", sim.DefaultSeedValue, "Initial value of the perturbed cell")

	fs.BoolVar(&o.printValues, "print-values", false, "Print every final cell value")
	fs.StringVar(&o.traceLevel, "trace-level", string(trace.TraceLevelNone), "Ghost trace level for run (none, ghosts); ghosts prints an invariant summary")
	fs.Float64Var(&o.tolerance, "tolerance", 0, "Max deviation from the sequential reference accepted by verify")
}

// config builds the run configuration: defaults, then the config file, then
// every flag the user set explicitly.
func (o *runOptions) config(fs *pflag.FlagSet) (sim.Config, error) {
	cfg := sim.DefaultConfig()
	if o.configPath != "" {
		fc, err := LoadFileConfig(o.configPath)
		if err != nil {
			return cfg, err
		}
		if err := fc.Apply(&cfg); err != nil {
			return cfg, err
		}
		logrus.Debugf("loaded config file %s", o.configPath)
	}

	changed := func(name string) bool {
		f := fs.Lookup(name)
		return f != nil && f.Changed
	}
	if changed("n") {
		cfg.Domain.N = o.n
	}
	if changed("workers") {
		cfg.Domain.Workers = o.workers
	}
	if changed("steps") {
		cfg.Domain.Steps = o.steps
	}
	if !changed("alpha") && (changed("nu") || changed("dt") || changed("dx")) {
		cfg.Physics.Alpha = 0
	}
	if changed("alpha") {
		cfg.Physics.Alpha = o.alpha
	}
	if changed("nu") {
		cfg.Physics.Nu = o.nu
	}
	if changed("dt") {
		cfg.Physics.Dt = o.dt
	}
	if changed("dx") {
		cfg.Physics.Dx = o.dx
	}
	if changed("strategy") {
		s, err := sim.ParseStrategy(o.strategy)
		if err != nil {
			return cfg, err
		}
		cfg.Exchange.Strategy = s
	}
	if changed("channel-buffer") {
		cfg.Exchange.ChannelBuffer = o.channelBuffer
	}
	if changed("exchange-timeout") {
		cfg.Exchange.Timeout = o.exchangeTimeout
	}
	if changed("poll-limit") {
		cfg.Exchange.PollLimit = o.pollLimit
	}
	if changed("seed-cell") {
		cfg.Seed.Cell = o.seedCell
	}
	if changed("seed-value") {
		cfg.Seed.Value = o.seedValue
	}
	return cfg, cfg.Validate()
}

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:           "halo-sim",
	Short:         "Distributed 1-D diffusion solver with halo exchange between workers",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(opts.logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level: %s", opts.logLevel)
		}
		logrus.SetLevel(level)
		return nil
	},
}

// runCmd executes one simulation using parameters from the config file and CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the diffusion simulation",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return runSimulation(ctx, &opts, cmd.Flags(), cmd.OutOrStdout())
	},
}

// verifyCmd runs every strategy and compares each against the sequential reference
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run every exchange strategy and compare with the sequential reference",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return runVerify(ctx, &opts, cmd.Flags(), cmd.OutOrStdout())
	},
}

// runSimulation builds the configuration, runs one cluster simulation and
// prints its metrics, followed by the ghost trace summary when tracing is on.
func runSimulation(ctx context.Context, o *runOptions, fs *pflag.FlagSet, out io.Writer) error {
	if !trace.IsValidTraceLevel(o.traceLevel) {
		return &sim.ConfigurationError{Field: "trace_level", Value: o.traceLevel,
			Reason: fmt.Sprintf("must be %q or %q", trace.TraceLevelNone, trace.TraceLevelGhosts)}
	}
	cfg, err := o.config(fs)
	if err != nil {
		return err
	}
	res, err := cluster.Run(ctx, cfg, cluster.WithTrace(trace.TraceLevel(o.traceLevel)))
	if err != nil {
		return err
	}
	res.Metrics.Print(out, o.printValues)
	if res.Trace.Config.Enabled() {
		trace.Summarize(res.Trace).Print(out)
	}
	logrus.Info("Simulation complete.")
	return nil
}

// runVerify runs every strategy against the sequential reference, prints one
// line per strategy and fails when any of them deviates beyond the tolerance.
func runVerify(ctx context.Context, o *runOptions, fs *pflag.FlagSet, out io.Writer) error {
	cfg, err := o.config(fs)
	if err != nil {
		return err
	}
	v, err := cluster.Verify(ctx, cfg, o.tolerance)
	if err != nil {
		return err
	}
	v.Print(out)
	if !v.Passed() {
		return fmt.Errorf("verification failed: a strategy deviates from the sequential reference by more than %g", o.tolerance)
	}
	logrus.Info("All strategies match the sequential reference.")
	return nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		switch {
		case sim.IsConfigurationError(err):
			logrus.Errorf("configuration error: %v", err)
		case sim.IsChannelError(err):
			logrus.Errorf("communication failure: %v", err)
		default:
			logrus.Error(err)
		}
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	opts.register(rootCmd.PersistentFlags())

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(verifyCmd)
}
