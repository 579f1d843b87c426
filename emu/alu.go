package emu

import "github.com/sarchlab/rv32tb/insts"

// ALU implements the RV32I integer operations selected by insts.ALUOp.
type ALU struct{}

// NewALU creates a new ALU.
func NewALU() *ALU {
	return &ALU{}
}

// Compute returns op applied to a and b. Shift amounts use the low five bits
// of b. Unknown operations yield 0.
func (a *ALU) Compute(op insts.ALUOp, in1, in2 uint32) uint32 {
	shamt := in2 & 0x1F

	switch op {
	case insts.ALUAdd:
		return in1 + in2
	case insts.ALUSub:
		return in1 - in2
	case insts.ALUSll:
		return in1 << shamt
	case insts.ALUSrl:
		return in1 >> shamt
	case insts.ALUSra:
		return uint32(int32(in1) >> shamt)
	case insts.ALUSlt:
		return boolToWord(int32(in1) < int32(in2))
	case insts.ALUSltu:
		return boolToWord(in1 < in2)
	case insts.ALUXor:
		return in1 ^ in2
	case insts.ALUOr:
		return in1 | in2
	case insts.ALUAnd:
		return in1 & in2
	}

	return 0
}

func boolToWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
