// Package core drives a cycle-stepped RV32 pipeline model against the
// memory model, the co-simulation registry and the trace renderer.
//
// Every clock cycle runs the same sequence: the pipeline evaluates its
// stages, the registry patches decode and then execute, the memory answers
// the instruction request and then the data request, the cycle is traced and
// finally the pipeline latches its next state. A store to the exit register
// ends the run before the cycle is committed.
package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/rv32tb/cosim"
	"github.com/sarchlab/rv32tb/emu"
	"github.com/sarchlab/rv32tb/log"
	"github.com/sarchlab/rv32tb/timing/pipeline"
	"github.com/sarchlab/rv32tb/trace"
)

// ErrCycleLimit is returned by Run when the program does not exit within the
// configured number of cycles.
var ErrCycleLimit = errors.New("cycle limit exceeded")

// DefaultFrequency is the clock used to report simulated time.
const DefaultFrequency = 100 * sim.MHz

// Stepper is the boundary of a cycle-stepped pipeline model. Eval computes
// the outputs of a cycle, Commit latches its next state; between the two the
// caller answers the memory requests and may install overrides.
type Stepper interface {
	cosim.DecodePort
	cosim.ExecutePort

	Eval()
	Commit() error
	Halted() bool

	InstructionRequest() emu.MemoryRequest
	SetInstructionResponse(resp emu.MemoryResponse)
	DataRequest() emu.MemoryRequest
	SetDataResponse(resp emu.MemoryResponse)

	Snapshot() pipeline.Snapshot
}

// statser is implemented by steppers that count pipeline events.
type statser interface {
	Stats() pipeline.Statistics
}

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated, including the cycle
	// of the exit store.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Stalls is the number of stall cycles.
	Stalls uint64
	// Flushes is the number of pipeline flushes.
	Flushes uint64
	// DecodeSimulations and ExecuteSimulations count the cycles the
	// registry overrode the decode and execute stages.
	DecodeSimulations  uint64
	ExecuteSimulations uint64
	// SimulatedTime is Cycles at the configured clock frequency.
	SimulatedTime time.Duration
}

// CPI returns the cycles per instruction.
func (s Stats) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// Option is a functional option for configuring the Core.
type Option func(*Core)

// WithRegistry enables co-simulation with the given registry.
func WithRegistry(r *cosim.Registry) Option {
	return func(c *Core) {
		c.registry = r
	}
}

// WithTracer traces every cycle.
func WithTracer(t *trace.Tracer) Option {
	return func(c *Core) {
		c.tracer = t
	}
}

// WithMaxCycles bounds Run. Zero means no bound.
func WithMaxCycles(n uint64) Option {
	return func(c *Core) {
		c.maxCycles = n
	}
}

// WithFrequency sets the clock used to report simulated time.
func WithFrequency(f sim.Freq) Option {
	return func(c *Core) {
		c.freq = f
	}
}

// WithLogger replaces the harness logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Core) {
		c.logger = l
	}
}

// Core is the per-cycle harness around a Stepper.
type Core struct {
	stepper Stepper
	memory  *emu.Memory

	registry  *cosim.Registry
	tracer    *trace.Tracer
	maxCycles uint64
	freq      sim.Freq
	logger    zerolog.Logger

	cycles      uint64
	decodeSims  uint64
	executeSims uint64

	halted bool
	exited bool
	err    error
}

// NewCore creates a harness driving stepper against memory.
func NewCore(stepper Stepper, memory *emu.Memory, opts ...Option) *Core {
	c := &Core{
		stepper: stepper,
		memory:  memory,
		freq:    DefaultFrequency,
		logger:  log.Harness,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Halted returns true once the program exited or the pipeline faulted.
func (c *Core) Halted() bool {
	return c.halted
}

// Exited reports whether the program stored to the exit register.
func (c *Core) Exited() bool {
	return c.exited
}

// ExitCode returns the value the program stored to the exit register.
func (c *Core) ExitCode() uint32 {
	return c.memory.ExitCode()
}

// Err returns the error that halted the core, if any.
func (c *Core) Err() error {
	return c.err
}

// Tick runs one clock cycle.
func (c *Core) Tick() error {
	if c.halted {
		return c.err
	}

	s := c.stepper
	s.Eval()

	if c.registry != nil {
		if c.registry.SimulateDecode(s) {
			c.decodeSims++
		}
		if c.registry.SimulateExecute(s) {
			c.executeSims++
		}
	}

	s.SetInstructionResponse(c.memory.HandleRequest(s.InstructionRequest()))
	s.SetDataResponse(c.memory.HandleRequest(s.DataRequest()))
	c.cycles++

	if c.tracer != nil {
		if err := c.tracer.Trace(s.Snapshot()); err != nil {
			return c.halt(fmt.Errorf("writing trace: %w", err))
		}
	}

	if c.memory.Exited() {
		c.halted = true
		c.exited = true
		c.logger.Info().
			Uint64("cycle", c.cycles).
			Uint32("status", c.memory.ExitCode()).
			Msg("program exited")
		return nil
	}

	if err := s.Commit(); err != nil {
		return c.halt(err)
	}
	if s.Halted() {
		c.halted = true
	}

	return nil
}

func (c *Core) halt(err error) error {
	c.halted = true
	c.err = err
	c.logger.Error().Err(err).Uint64("cycle", c.cycles).Msg("core halted")
	return err
}

// Run ticks until the program exits, the pipeline faults or the cycle limit
// is reached.
func (c *Core) Run() error {
	for !c.halted {
		if c.maxCycles > 0 && c.cycles >= c.maxCycles {
			return c.halt(fmt.Errorf("%w: %d cycles", ErrCycleLimit, c.maxCycles))
		}

		if err := c.Tick(); err != nil {
			return err
		}
	}

	return c.err
}

// RunCycles executes the core for the specified number of cycles.
// Returns true if still running, false if halted.
func (c *Core) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles && !c.halted; i++ {
		_ = c.Tick()
	}
	return !c.halted
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	stats := Stats{
		Cycles:             c.cycles,
		DecodeSimulations:  c.decodeSims,
		ExecuteSimulations: c.executeSims,
		SimulatedTime: time.Duration(
			float64(c.cycles) * float64(time.Second) / float64(c.freq)),
	}

	if ps, ok := c.stepper.(statser); ok {
		pipeStats := ps.Stats()
		stats.Instructions = pipeStats.Instructions
		stats.Stalls = pipeStats.Stalls
		stats.Flushes = pipeStats.Flushes
	}

	return stats
}
