// Package cosim co-simulates instructions the hardware pipeline does not
// implement.
//
// When the decoder flags the instruction it is decoding as invalid, the
// Registry looks for a software model matching it and overrides the decoder
// outputs the pipeline timing depends on: the register read ports and the
// writeback enable. When that instruction reaches execute, the model computes
// its result from the bypassed operands and the result replaces the execute
// stage output. Forwarding, stalls and writeback then proceed as if the
// hardware had produced the result.
//
// Usage:
//
//	registry := cosim.DefaultRegistry()
//	for !done {
//		pipe.Eval()
//		registry.SimulateDecode(pipe)
//		registry.SimulateExecute(pipe)
//		...
//	}
package cosim

import (
	"github.com/sarchlab/rv32tb/insts"
	"github.com/sarchlab/rv32tb/timing/pipeline"
)

// ControlSignals is the control a model supplies in place of the hardware
// decoder.
type ControlSignals struct {
	// UseRS marks the register file read ports the instruction reads.
	UseRS [insts.NumReadPorts]bool

	// WB enables the write of the result to rd.
	WB bool
}

// SimulatedInstruction is a software model of one instruction family.
// Implementations hold no mutable state.
type SimulatedInstruction interface {
	// Match reports whether the model implements instr.
	Match(instr insts.Instruction) bool

	// Decode returns the control to install when the model matches.
	Decode() ControlSignals

	// Execute computes the result of the instruction in input from its
	// bypassed operands.
	Execute(input pipeline.DecodeStageData, regs pipeline.BypassRegisterData) uint32
}

// DecodePort is the view of the decode stage the registry needs.
type DecodePort interface {
	DecodeInvalid() bool
	DecoderInput() insts.Instruction
	DecoderOutput() insts.DecodedInstruction
	SetDecodeOverride(o pipeline.DecodeOverride)
}

// ExecutePort is the view of the execute stage the registry needs.
type ExecutePort interface {
	ExecuteInvalid() bool
	ExecInput() pipeline.DecodeStageData
	ExecOutput() pipeline.ExecutionStageData
	ExecutionContext() pipeline.ExecutionContext
	SetExecuteOverride(o pipeline.ExecuteOverride)
}
