package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/pprof"

	"github.com/spf13/cobra"

	"github.com/sarchlab/rv32tb/config"
	"github.com/sarchlab/rv32tb/emu"
	"github.com/sarchlab/rv32tb/loader"
	"github.com/sarchlab/rv32tb/log"
	"github.com/sarchlab/rv32tb/timing/core"
	"github.com/sarchlab/rv32tb/timing/pipeline"
	"github.com/sarchlab/rv32tb/trace"
)

type runOptions struct {
	configPath string
	trace      bool
	maxCycles  uint64
	logLevel   string
	noCosim    bool
	jsonLog    bool
	cpuProfile string
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	runCmd := &cobra.Command{
		Use:   "run <program.elf>",
		Short: "Run an RV32 ELF program on the reference pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolveConfig(cmd)
			if err != nil {
				return err
			}

			if err := opts.initLogging(); err != nil {
				return err
			}

			stopProfile, err := opts.startProfile()
			if err != nil {
				return err
			}

			c, err := runProgram(args[0], cfg, opts.noCosim, cmd.OutOrStdout())
			stopProfile()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Exit status %d\n", c.ExitCode())
			os.Exit(int(c.ExitCode()))
			return nil
		},
	}

	runCmd.Flags().StringVar(&opts.configPath, "config", "", "Path to configuration JSON file")
	runCmd.Flags().BoolVar(&opts.trace, "trace", false, "Print the pipeline state every cycle")
	runCmd.Flags().Uint64Var(&opts.maxCycles, "max-cycles", 0, "Cycle limit (overrides the configuration, 0 for none)")
	runCmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (trace, debug, info, warn, error)")
	runCmd.Flags().BoolVar(&opts.noCosim, "no-cosim", false, "Disable instruction co-simulation")
	runCmd.Flags().BoolVar(&opts.jsonLog, "json-log", false, "Write logs as JSON")
	runCmd.Flags().StringVar(&opts.cpuProfile, "cpuprofile", "", "Write a CPU profile of the run to this file")

	return runCmd
}

// resolveConfig loads the configuration file, if any, and applies the flags
// the user set on top of it.
func (o *runOptions) resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if o.configPath != "" {
		var err error
		cfg, err = config.LoadConfig(o.configPath)
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("trace") {
		cfg.Trace = o.trace
	}
	if cmd.Flags().Changed("max-cycles") {
		cfg.MaxCycles = o.maxCycles
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (o *runOptions) initLogging() error {
	level, err := log.ParseLogLevel(o.logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", o.logLevel, err)
	}

	logType := log.ConsoleLogger
	if o.jsonLog {
		logType = log.JSONLogger
	}
	log.Init(log.Options{LogLevel: level, Type: logType})

	return nil
}

// startProfile starts the CPU profiler when requested. The returned function
// stops it and has to run before the process exits.
func (o *runOptions) startProfile() (func(), error) {
	if o.cpuProfile == "" {
		return func() {}, nil
	}

	f, err := os.Create(o.cpuProfile)
	if err != nil {
		return nil, fmt.Errorf("failed to create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to start CPU profile: %w", err)
	}

	return func() {
		pprof.StopCPUProfile()
		_ = f.Close()
	}, nil
}

// runProgram loads the program at path and runs it until it exits. Program
// output and the trace go to out.
func runProgram(
	path string,
	cfg *config.Config,
	noCosim bool,
	out io.Writer,
) (*core.Core, error) {
	prog, err := loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading program: %w", err)
	}

	log.Harness.Info().
		Str("program", path).
		Uint32("entry", prog.Entry).
		Uint32("size", prog.MemSize).
		Msg("program loaded")

	memory := emu.NewMemory(prog.MemSize,
		emu.WithMMIO(cfg.ExitAddr, cfg.PrintAddr),
		emu.WithConsole(out),
	)
	memory.Load(0, prog.Image)

	opts := []core.Option{
		core.WithMaxCycles(cfg.MaxCycles),
		core.WithFrequency(cfg.ClockFreq),
	}

	if !noCosim {
		registry, err := cfg.Registry()
		if err != nil {
			return nil, err
		}
		opts = append(opts, core.WithRegistry(registry))
	}

	if cfg.Trace {
		opts = append(opts, core.WithTracer(trace.NewTracer(out)))
	}

	regFile := &emu.RegFile{}
	pipe := pipeline.NewPipeline(regFile, pipeline.WithEntry(prog.Entry))
	c := core.NewCore(pipe, memory, opts...)

	err = c.Run()
	reportStats(c.Stats())

	if err != nil {
		if errors.Is(err, core.ErrCycleLimit) {
			return c, fmt.Errorf("program did not exit: %w", err)
		}
		return c, err
	}

	return c, nil
}

func reportStats(stats core.Stats) {
	log.Harness.Info().
		Uint64("cycles", stats.Cycles).
		Uint64("instructions", stats.Instructions).
		Float64("cpi", stats.CPI()).
		Uint64("stalls", stats.Stalls).
		Uint64("flushes", stats.Flushes).
		Uint64("simulated_decodes", stats.DecodeSimulations).
		Uint64("simulated_executes", stats.ExecuteSimulations).
		Dur("simulated_time", stats.SimulatedTime).
		Msg("run finished")
}

