// Package pipeline provides the stage buffers, the hazard unit and a
// behavioral 5-stage RV32I reference pipeline.
package pipeline

import "github.com/sarchlab/rv32tb/insts"

// FetchStageData holds state between the Fetch and Decode stages.
type FetchStageData struct {
	// Valid indicates if the buffer holds a fetched instruction rather than
	// a bubble.
	Valid bool

	PC    uint32
	Instr insts.Instruction
}

// DecodeStageData holds state between the Decode and Execute stages.
type DecodeStageData struct {
	// Valid indicates if the buffer holds an instruction rather than a
	// bubble.
	Valid bool

	PC      uint32
	Instr   insts.Instruction
	Decoded insts.DecodedInstruction

	// RegData holds the register file values read at decode, one per read
	// port.
	RegData [insts.NumReadPorts]uint32
}

// ExecutionStageData holds state between the Execute and Memory stages.
type ExecutionStageData struct {
	Valid bool

	PC      uint32
	Instr   insts.Instruction
	Decoded insts.DecodedInstruction

	// DataResult[0] is the value forwarded and written back: the ALU
	// result, the link address for jumps, or the address of a memory
	// access. DataResult[1] is the store data.
	DataResult [2]uint32

	BranchTaken  bool
	BranchTarget uint32
}

// MemoryStageData holds state between the Memory and Writeback stages.
type MemoryStageData struct {
	Valid bool

	PC      uint32
	Instr   insts.Instruction
	Decoded insts.DecodedInstruction

	// WBResult is the value written to Rd when Decoded.RegisterWB is set.
	WBResult uint32
}

// WritebackStageData is the view of the writeback stage. The writeback
// stage consumes the memory stage buffer as is.
type WritebackStageData = MemoryStageData

// DecodeOverride replaces the decode stage outputs for one cycle.
type DecodeOverride struct {
	Active bool

	// UseRS replaces the read ports used by the instruction, which feeds the
	// load-use stall check.
	UseRS [insts.NumReadPorts]bool

	// Control replaces the control bundle latched into the execute stage.
	Control insts.DecodedInstruction
}

// ExecuteOverride replaces the execute stage output for one cycle.
type ExecuteOverride struct {
	Active bool
	Data   ExecutionStageData
}

// Bubbles carry a NOP so that every stage sees a well-formed instruction.
var (
	bubbleInstr   = insts.NewInstruction(insts.NopWord)
	bubbleDecoded = func() insts.DecodedInstruction {
		dec, _ := insts.NewDecoder().Decode(bubbleInstr)
		return dec
	}()
)

func fetchBubble() FetchStageData {
	return FetchStageData{Instr: bubbleInstr}
}

func decodeBubble() DecodeStageData {
	return DecodeStageData{Instr: bubbleInstr, Decoded: bubbleDecoded}
}

func executionBubble() ExecutionStageData {
	return ExecutionStageData{Instr: bubbleInstr, Decoded: bubbleDecoded}
}

func memoryBubble() MemoryStageData {
	return MemoryStageData{Instr: bubbleInstr, Decoded: bubbleDecoded}
}

// writesRegister reports whether a stage holding the given instruction will
// write a non-zero register.
func writesRegister(valid bool, instr insts.Instruction, dec insts.DecodedInstruction) bool {
	return valid && dec.RegisterWB && instr.Rd != 0
}
