// Package benchmarks runs hand-encoded RV32 programs end to end through the
// harness and reports their pipeline statistics.
package benchmarks

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/rv32tb/cosim"
	"github.com/sarchlab/rv32tb/emu"
	"github.com/sarchlab/rv32tb/insts"
	"github.com/sarchlab/rv32tb/timing/core"
	"github.com/sarchlab/rv32tb/timing/pipeline"
	"github.com/sarchlab/rv32tb/trace"
)

// BenchmarkResult holds the results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// SimulatedCycles is the total cycle count, including the exit cycle
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired is the number of instructions written back
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// StallCycles is the number of load-use bubbles
	StallCycles uint64 `json:"stall_cycles"`

	// MemStalls is the number of cycles frozen on a data response
	MemStalls uint64 `json:"mem_stalls"`

	// DataHazards is the number of operands taken from a bypass
	DataHazards uint64 `json:"data_hazards"`

	// PipelineFlushes is the number of taken control transfers
	PipelineFlushes uint64 `json:"pipeline_flushes"`

	// SimulatedDecodes and SimulatedExecutes count co-simulation overrides
	SimulatedDecodes  uint64 `json:"simulated_decodes"`
	SimulatedExecutes uint64 `json:"simulated_executes"`

	// SimulatedTime is the cycle count at the harness clock
	SimulatedTime time.Duration `json:"simulated_time_ns"`

	// ExitCode is the value the program stored to the exit register
	ExitCode uint32 `json:"exit_code"`

	// Output is what the program printed
	Output string `json:"output,omitempty"`

	// Error is set when the program faulted or hit the cycle limit
	Error string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Setup prepares memory before the program is loaded
	Setup func(memory *emu.Memory)

	// Program is the RV32 machine code, loaded at address 0
	Program []byte

	// ExpectedExit is the expected exit code (for validation)
	ExpectedExit uint32

	// ExpectedOutput is the expected console output (for validation)
	ExpectedOutput string
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// EnableCoSim runs the programs with the co-simulation models loaded
	EnableCoSim bool

	// Models lists the co-simulation models in priority order
	Models []string

	// MaxCycles bounds every run
	MaxCycles uint64

	// MemorySize is the size of the memory model in bytes
	MemorySize uint32

	// ClockFreq is used to report simulated time
	ClockFreq sim.Freq

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Trace writes the pipeline trace of every run to Output
	Trace bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		EnableCoSim: true,
		Models:      cosim.DefaultModels,
		MaxCycles:   100_000,
		MemorySize:  0x10000,
		ClockFreq:   core.DefaultFrequency,
		Output:      os.Stdout,
		Trace:       false,
	}
}

// Harness runs benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		result := h.runBenchmark(bench)
		results = append(results, result)
	}

	return results
}

// runBenchmark executes a single benchmark.
func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	result := BenchmarkResult{
		Name:        bench.Name,
		Description: bench.Description,
	}

	console := &bytes.Buffer{}
	memory := emu.NewMemory(h.config.MemorySize, emu.WithConsole(console))

	if bench.Setup != nil {
		bench.Setup(memory)
	}
	memory.Load(0, bench.Program)

	opts := []core.Option{
		core.WithMaxCycles(h.config.MaxCycles),
		core.WithFrequency(h.config.ClockFreq),
	}
	if h.config.EnableCoSim {
		registry, err := cosim.ByName(h.config.Models)
		if err != nil {
			result.Error = err.Error()
			return result
		}
		opts = append(opts, core.WithRegistry(registry))
	}
	if h.config.Trace {
		opts = append(opts, core.WithTracer(trace.NewTracer(h.config.Output)))
	}

	pipe := pipeline.NewPipeline(&emu.RegFile{})
	c := core.NewCore(pipe, memory, opts...)

	start := time.Now()
	err := c.Run()
	result.WallTime = time.Since(start)

	if err != nil {
		result.Error = err.Error()
	}

	stats := c.Stats()
	pipeStats := pipe.Stats()
	result.SimulatedCycles = stats.Cycles
	result.InstructionsRetired = stats.Instructions
	result.CPI = stats.CPI()
	result.StallCycles = pipeStats.Stalls
	result.MemStalls = pipeStats.MemStalls
	result.DataHazards = pipeStats.DataHazards
	result.PipelineFlushes = pipeStats.Flushes
	result.SimulatedDecodes = stats.DecodeSimulations
	result.SimulatedExecutes = stats.ExecuteSimulations
	result.SimulatedTime = stats.SimulatedTime
	result.ExitCode = c.ExitCode()
	result.Output = console.String()

	return result
}

// Validate compares a result against the expectations of its benchmark.
func Validate(bench Benchmark, r BenchmarkResult) error {
	if r.Error != "" {
		return fmt.Errorf("%s: %s", bench.Name, r.Error)
	}
	if r.ExitCode != bench.ExpectedExit {
		return fmt.Errorf("%s: exit code %d, expected %d",
			bench.Name, r.ExitCode, bench.ExpectedExit)
	}
	if r.Output != bench.ExpectedOutput {
		return fmt.Errorf("%s: output %q, expected %q",
			bench.Name, r.Output, bench.ExpectedOutput)
	}
	return nil
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== rv32tb Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(h.config.Output, "  Exit Code: %d\n", r.ExitCode)
		if r.Error != "" {
			_, _ = fmt.Fprintf(h.config.Output, "  Error: %s\n", r.Error)
		}
		_, _ = fmt.Fprintln(h.config.Output, "  --- Timing ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(h.config.Output, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(h.config.Output, "  Stall Cycles:         %d\n", r.StallCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Mem Stalls:           %d\n", r.MemStalls)
		_, _ = fmt.Fprintf(h.config.Output, "  Data Hazards:         %d\n", r.DataHazards)
		_, _ = fmt.Fprintf(h.config.Output, "  Pipeline Flushes:     %d\n", r.PipelineFlushes)
		_, _ = fmt.Fprintf(h.config.Output, "  Simulated Time:       %v\n", r.SimulatedTime)

		if r.SimulatedDecodes > 0 || r.SimulatedExecutes > 0 {
			_, _ = fmt.Fprintln(h.config.Output, "  --- Co-simulation ---")
			_, _ = fmt.Fprintf(h.config.Output, "  Decodes:  %d\n", r.SimulatedDecodes)
			_, _ = fmt.Fprintf(h.config.Output, "  Executes: %d\n", r.SimulatedExecutes)
		}

		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,instructions,cpi,stalls,mem_stalls,data_hazards,flushes,simulated_decodes,simulated_executes,exit_code")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%.3f,%d,%d,%d,%d,%d,%d,%d\n",
			r.Name,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.StallCycles,
			r.MemStalls,
			r.DataHazards,
			r.PipelineFlushes,
			r.SimulatedDecodes,
			r.SimulatedExecutes,
			r.ExitCode,
		)
	}
}

// Helper functions for building RV32 programs

// BuildProgram assembles instruction words into a byte slice.
func BuildProgram(instrs ...uint32) []byte {
	program := make([]byte, 0, len(instrs)*4)
	for _, inst := range instrs {
		program = binary.LittleEndian.AppendUint32(program, inst)
	}
	return program
}

// Concat joins instruction sequences.
func Concat(parts ...[]uint32) []uint32 {
	var instrs []uint32
	for _, p := range parts {
		instrs = append(instrs, p...)
	}
	return instrs
}

// ExitReg is the register the exit sequence uses for the MMIO base.
const ExitReg = 31

// EncodeADDI encodes addi rd, rs1, imm
func EncodeADDI(rd, rs1 uint8, imm int32) uint32 {
	return insts.EncodeI(insts.OpcodeIntegerImm, rd, 0b000, rs1, imm)
}

// EncodeSLLI encodes slli rd, rs1, shamt
func EncodeSLLI(rd, rs1, shamt uint8) uint32 {
	return insts.EncodeI(insts.OpcodeIntegerImm, rd, 0b001, rs1, int32(shamt&0x1F))
}

// EncodeADD encodes add rd, rs1, rs2
func EncodeADD(rd, rs1, rs2 uint8) uint32 {
	return insts.EncodeR(insts.OpcodeIntegerReg, rd, 0b000, rs1, rs2, 0)
}

// EncodeSUB encodes sub rd, rs1, rs2
func EncodeSUB(rd, rs1, rs2 uint8) uint32 {
	return insts.EncodeR(insts.OpcodeIntegerReg, rd, 0b000, rs1, rs2, 0b0100000)
}

// EncodeAND encodes and rd, rs1, rs2
func EncodeAND(rd, rs1, rs2 uint8) uint32 {
	return insts.EncodeR(insts.OpcodeIntegerReg, rd, 0b111, rs1, rs2, 0)
}

// EncodeOR encodes or rd, rs1, rs2
func EncodeOR(rd, rs1, rs2 uint8) uint32 {
	return insts.EncodeR(insts.OpcodeIntegerReg, rd, 0b110, rs1, rs2, 0)
}

// EncodeXOR encodes xor rd, rs1, rs2
func EncodeXOR(rd, rs1, rs2 uint8) uint32 {
	return insts.EncodeR(insts.OpcodeIntegerReg, rd, 0b100, rs1, rs2, 0)
}

// EncodeMUL encodes mul rd, rs1, rs2 (RV32M, co-simulated)
func EncodeMUL(rd, rs1, rs2 uint8) uint32 {
	return insts.EncodeR(insts.OpcodeIntegerReg, rd, 0b000, rs1, rs2, 0b0000001)
}

// EncodeFxMadd encodes the CUSTOM-1 fixed-point multiply-add
// rd = (rs1 * rs2 >> scale[funct3]) + rs3
func EncodeFxMadd(rd, rs1, rs2, rs3, funct3 uint8) uint32 {
	return insts.EncodeR4(insts.OpcodeCustom1, rd, funct3, rs1, rs2, rs3, 0)
}

// EncodeLUI encodes lui rd, imm (upper 20 bits of imm)
func EncodeLUI(rd uint8, imm uint32) uint32 {
	return insts.EncodeU(insts.OpcodeLUI, rd, imm)
}

// EncodeLW encodes lw rd, imm(rs1)
func EncodeLW(rd, rs1 uint8, imm int32) uint32 {
	return insts.EncodeI(insts.OpcodeLoad, rd, 0b010, rs1, imm)
}

// EncodeSW encodes sw rs2, imm(rs1)
func EncodeSW(rs2, rs1 uint8, imm int32) uint32 {
	return insts.EncodeS(insts.OpcodeStore, 0b010, rs1, rs2, imm)
}

// EncodeBEQ encodes beq rs1, rs2, offset
func EncodeBEQ(rs1, rs2 uint8, offset int32) uint32 {
	return insts.EncodeB(uint8(insts.BranchEQ), rs1, rs2, offset)
}

// EncodeBNE encodes bne rs1, rs2, offset
func EncodeBNE(rs1, rs2 uint8, offset int32) uint32 {
	return insts.EncodeB(uint8(insts.BranchNE), rs1, rs2, offset)
}

// EncodeJAL encodes jal rd, offset
func EncodeJAL(rd uint8, offset int32) uint32 {
	return insts.EncodeJ(rd, offset)
}

// EncodeJALR encodes jalr rd, imm(rs1)
func EncodeJALR(rd, rs1 uint8, imm int32) uint32 {
	return insts.EncodeI(insts.OpcodeJALR, rd, 0b000, rs1, imm)
}

// ExitWith stores reg to the exit register and spins until the store is
// seen. It clobbers ExitReg.
func ExitWith(reg uint8) []uint32 {
	return []uint32{
		EncodeLUI(ExitReg, emu.DefaultExitAddr),
		EncodeSW(reg, ExitReg, 0),
		EncodeJAL(0, 0),
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// Config describes the benchmark configuration
	Config BenchmarkConfig `json:"config"`
}

// BenchmarkConfig describes the harness configuration used.
type BenchmarkConfig struct {
	CoSimEnabled bool     `json:"cosim_enabled"`
	Models       []string `json:"models"`
	MaxCycles    uint64   `json:"max_cycles"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	// TotalBenchmarks is the number of benchmarks run
	TotalBenchmarks int `json:"total_benchmarks"`

	// Failed is the number of benchmarks that faulted or hit the cycle limit
	Failed int `json:"failed"`

	// TotalCycles is the sum of all simulated cycles
	TotalCycles uint64 `json:"total_cycles"`

	// TotalInstructions is the sum of all instructions retired
	TotalInstructions uint64 `json:"total_instructions"`

	// AverageCPI is the average cycles per instruction
	AverageCPI float64 `json:"average_cpi"`

	// TotalWallTime is the total wall clock time for all benchmarks
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	var totalCycles, totalInstructions uint64
	var totalWallTime time.Duration
	failed := 0
	for _, r := range results {
		totalCycles += r.SimulatedCycles
		totalInstructions += r.InstructionsRetired
		totalWallTime += r.WallTime
		if r.Error != "" {
			failed++
		}
	}

	avgCPI := float64(0)
	if totalInstructions > 0 {
		avgCPI = float64(totalCycles) / float64(totalInstructions)
	}

	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Config: BenchmarkConfig{
				CoSimEnabled: h.config.EnableCoSim,
				Models:       h.config.Models,
				MaxCycles:    h.config.MaxCycles,
			},
		},
		Results: results,
		Summary: ReportSummary{
			TotalBenchmarks:   len(results),
			Failed:            failed,
			TotalCycles:       totalCycles,
			TotalInstructions: totalInstructions,
			AverageCPI:        avgCPI,
			TotalWallTime:     totalWallTime,
		},
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
