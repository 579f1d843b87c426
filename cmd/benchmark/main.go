// Command benchmark runs the rv32tb microbenchmark harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	--csv       Output results in CSV format (default: human-readable)
//	--json      Output results as a JSON report
//	--core      Run only the three core benchmarks
//	--no-cosim  Run without the co-simulation models
//	--trace     Print the pipeline trace of every run
//
// Example:
//
//	# Run all benchmarks with human-readable output
//	go run ./cmd/benchmark
//
//	# Output CSV for spreadsheet comparison
//	go run ./cmd/benchmark --csv > results.csv
//
// Every result is checked against the exit code and console output its
// program is expected to produce. The command fails if any check fails.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/rv32tb/benchmarks"
)

type options struct {
	csv     bool
	json    bool
	core    bool
	noCosim bool
	trace   bool
}

func main() {
	if err := newCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:           "benchmark",
		Short:         "Run the rv32tb microbenchmarks",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&opts.csv, "csv", false, "Output results in CSV format")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output results as a JSON report")
	cmd.Flags().BoolVar(&opts.core, "core", false, "Run only the core benchmarks")
	cmd.Flags().BoolVar(&opts.noCosim, "no-cosim", false, "Disable the co-simulation models")
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "Print the pipeline trace of every run")
	cmd.MarkFlagsMutuallyExclusive("csv", "json")

	return cmd
}

func run(opts options, out io.Writer) error {
	config := benchmarks.DefaultConfig()
	config.EnableCoSim = !opts.noCosim
	config.Trace = opts.trace
	config.Output = out

	suite := benchmarks.GetMicrobenchmarks()
	if opts.core {
		suite = benchmarks.GetCoreBenchmarks()
	}

	harness := benchmarks.NewHarness(config)
	harness.AddBenchmarks(suite)

	if !opts.csv && !opts.json {
		fmt.Fprintln(out, "rv32tb Benchmark Harness")
		fmt.Fprintln(out, "========================")
		fmt.Fprintf(out, "Co-simulation: %v %v\n", config.EnableCoSim, config.Models)
		fmt.Fprintf(out, "Clock: %.0f MHz\n", float64(config.ClockFreq)/1e6)
		fmt.Fprintln(out, "")
	}

	results := harness.RunAll()

	switch {
	case opts.csv:
		harness.PrintCSV(results)
	case opts.json:
		if err := harness.PrintJSON(results); err != nil {
			return err
		}
	default:
		harness.PrintResults(results)
	}

	failed := 0
	for i, r := range results {
		if err := benchmarks.Validate(suite[i], r); err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %v\n", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d benchmarks failed", failed, len(results))
	}

	return nil
}
