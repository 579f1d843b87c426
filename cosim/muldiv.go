package cosim

import (
	"math"

	"github.com/sarchlab/rv32tb/insts"
	"github.com/sarchlab/rv32tb/timing/pipeline"
)

const funct7MulDiv = 0b0000001

// RV32M operations, selected by funct3.
const (
	funct3MUL    = 0b000
	funct3MULH   = 0b001
	funct3MULHSU = 0b010
	funct3MULHU  = 0b011
	funct3DIV    = 0b100
	funct3DIVU   = 0b101
	funct3REM    = 0b110
	funct3REMU   = 0b111
)

// MulDiv models the RV32M extension. Division by zero and signed overflow
// produce the results the ISA defines instead of trapping.
type MulDiv struct{}

// NewMulDiv creates the RV32M model.
func NewMulDiv() *MulDiv {
	return &MulDiv{}
}

// Match reports whether instr is an RV32M instruction.
func (m *MulDiv) Match(instr insts.Instruction) bool {
	return instr.Opcode == insts.OpcodeIntegerReg && instr.Funct7 == funct7MulDiv
}

// Decode reads rs1 and rs2 and writes back.
func (m *MulDiv) Decode() ControlSignals {
	return ControlSignals{UseRS: [insts.NumReadPorts]bool{true, true, false}, WB: true}
}

// Execute computes the operation selected by funct3.
func (m *MulDiv) Execute(
	input pipeline.DecodeStageData,
	regs pipeline.BypassRegisterData,
) uint32 {
	a, b := regs.RegData[0], regs.RegData[1]
	sa, sb := int32(a), int32(b)

	switch input.Instr.Funct3 {
	case funct3MUL:
		return a * b
	case funct3MULH:
		return uint32(uint64(int64(sa)*int64(sb)) >> 32)
	case funct3MULHSU:
		return uint32(uint64(int64(sa)*int64(b)) >> 32)
	case funct3MULHU:
		return uint32(uint64(a) * uint64(b) >> 32)
	case funct3DIV:
		switch {
		case b == 0:
			return math.MaxUint32
		case sa == math.MinInt32 && sb == -1:
			return a
		}
		return uint32(sa / sb)
	case funct3DIVU:
		if b == 0 {
			return math.MaxUint32
		}
		return a / b
	case funct3REM:
		switch {
		case b == 0:
			return a
		case sa == math.MinInt32 && sb == -1:
			return 0
		}
		return uint32(sa % sb)
	case funct3REMU:
		if b == 0 {
			return a
		}
		return a % b
	}

	return 0
}
