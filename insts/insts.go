// Package insts provides RV32 instruction definitions, the hardware decoder
// model and the symbolic tables used to label hardware signals.
//
// The enumerations in this package mirror the control buses of a 5-stage
// RV32 core: the decoder produces a DecodedInstruction that selects the ALU
// operation, its two operand sources, the branch condition, the writeback
// source and the memory operation.
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	instr := insts.NewInstruction(0x00208133) // add x2, x1, x2
//	dec, useRS := decoder.Decode(instr)
//	fmt.Println(instr.Opcode, dec.ALUOp, dec.ALUIn1, useRS)
package insts

// NumReadPorts is the number of register file read ports of the core.
// Standard RV32I instructions use at most two; R4-type custom instructions use
// the third.
const NumReadPorts = 3

// NopWord encodes addi x0, x0, 0, the instruction a pipeline bubble carries.
const NopWord uint32 = 0x00000013

// Opcode is the 7-bit major opcode of an instruction.
type Opcode uint8

// RV32 major opcodes.
const (
	OpcodeLoad       Opcode = 0b0000011
	OpcodeCustom0    Opcode = 0b0001011
	OpcodeBarrier    Opcode = 0b0001111
	OpcodeIntegerImm Opcode = 0b0010011
	OpcodeAUIPC      Opcode = 0b0010111
	OpcodeStore      Opcode = 0b0100011
	OpcodeCustom1    Opcode = 0b0101011
	OpcodeIntegerReg Opcode = 0b0110011
	OpcodeLUI        Opcode = 0b0110111
	OpcodeBranch     Opcode = 0b1100011
	OpcodeJALR       Opcode = 0b1100111
	OpcodeJAL        Opcode = 0b1101111
	OpcodeZicsr      Opcode = 0b1110011
)

// InstrType is the encoding format of an instruction.
type InstrType uint8

// Instruction formats.
const (
	InstrR InstrType = iota
	InstrI
	InstrS
	InstrB
	InstrU
	InstrJ
)

// ALUOp selects the integer ALU operation.
type ALUOp uint8

// Integer ALU operations.
const (
	ALUAdd ALUOp = iota
	ALUSll
	ALUSlt
	ALUSltu
	ALUXor
	ALUSrl
	ALUOr
	ALUAnd
	ALUSra
	ALUSub
)

// ALUInput selects where an ALU operand comes from. ALUInImm only says the
// operand is an immediate; the instruction format tells which shape.
type ALUInput uint8

// ALU operand sources.
const (
	ALUInZero ALUInput = iota
	ALUInReg1
	ALUInReg2
	ALUInPC
	ALUInImm
)

// BranchOp is the branch condition evaluated in the execute stage. The
// conditional values share the funct3 encoding of the branch instructions.
type BranchOp uint8

// Branch conditions.
const (
	BranchEQ  BranchOp = 0b000
	BranchNE  BranchOp = 0b001
	BranchJ   BranchOp = 0b010
	BranchNOP BranchOp = 0b011
	BranchLT  BranchOp = 0b100
	BranchGE  BranchOp = 0b101
	BranchLTU BranchOp = 0b110
	BranchGEU BranchOp = 0b111
)

// WBSource selects the value written back to the destination register.
type WBSource uint8

// Writeback sources.
const (
	WBPC4 WBSource = iota
	WBIntALU
	WBMemData
)

// BypassSource selects where the execute stage takes an operand from.
type BypassSource uint8

// Bypass sources.
const (
	// NoBypass reads the value latched from the register file at decode.
	NoBypass BypassSource = iota
	// BypassExecBuff forwards the result held in the execute/memory buffer.
	BypassExecBuff
	// BypassMemBuff forwards the result held in the memory/writeback buffer.
	BypassMemBuff
)

// MemOp is the operation carried by a memory request. The zero value means
// no request.
type MemOp uint8

// Memory operations.
const (
	MemNOP MemOp = iota
	MemLB
	MemLH
	MemLW
	MemLBU
	MemLHU
	MemSB
	MemSH
	MemSW
)

// IsLoad reports whether op reads memory.
func (op MemOp) IsLoad() bool {
	return op >= MemLB && op <= MemLHU
}

// IsStore reports whether op writes memory.
func (op MemOp) IsStore() bool {
	return op >= MemSB && op <= MemSW
}

// Instruction holds the fields of a raw instruction word.
type Instruction struct {
	// Raw is the encoded instruction word.
	Raw uint32

	Opcode Opcode
	Rd     uint8
	Funct3 uint8
	Rs1    uint8
	Rs2    uint8
	// Rs3 overlaps funct7 and is only meaningful for R4-type encodings.
	Rs3    uint8
	Funct7 uint8
}

// NewInstruction splits an instruction word into its fields.
func NewInstruction(word uint32) Instruction {
	return Instruction{
		Raw:    word,
		Opcode: Opcode(word & 0x7F),
		Rd:     uint8((word >> 7) & 0x1F),
		Funct3: uint8((word >> 12) & 0x7),
		Rs1:    uint8((word >> 15) & 0x1F),
		Rs2:    uint8((word >> 20) & 0x1F),
		Rs3:    uint8((word >> 27) & 0x1F),
		Funct7: uint8((word >> 25) & 0x7F),
	}
}

// Word returns the raw instruction word.
func (i Instruction) Word() uint32 {
	return i.Raw
}

// Rs returns the source register index read through port n.
func (i Instruction) Rs(n int) uint8 {
	switch n {
	case 0:
		return i.Rs1
	case 1:
		return i.Rs2
	case 2:
		return i.Rs3
	}
	return 0
}

// Imm returns the sign-extended immediate for the given format.
func (i Instruction) Imm(t InstrType) uint32 {
	w := i.Raw
	switch t {
	case InstrI:
		return uint32(int32(w) >> 20)
	case InstrS:
		return uint32(int32(w&0xFE000000)>>20) | (w>>7)&0x1F
	case InstrB:
		return uint32(int32(w&0x80000000)>>19) |
			(w<<4)&0x800 |
			(w>>20)&0x7E0 |
			(w>>7)&0x1E
	case InstrU:
		return w & 0xFFFFF000
	case InstrJ:
		return uint32(int32(w&0x80000000)>>11) |
			w&0xFF000 |
			(w>>9)&0x800 |
			(w>>20)&0x7FE
	}
	return 0
}

// DecodedInstruction is the control bundle produced by the decoder.
type DecodedInstruction struct {
	Type     InstrType
	ALUOp    ALUOp
	ALUIn1   ALUInput
	ALUIn2   ALUInput
	BranchOp BranchOp
	WBSource WBSource

	// RegisterWB enables the write of the result to Rd.
	RegisterWB bool

	MemOp MemOp

	// Bypass selects the source of each operand in the execute stage.
	Bypass [NumReadPorts]BypassSource

	// Invalid is raised when the decoder does not implement the instruction.
	Invalid bool
}
