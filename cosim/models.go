package cosim

import (
	"github.com/sarchlab/rv32tb/insts"
	"github.com/sarchlab/rv32tb/timing/pipeline"
)

// FxMadd is a fixed-point fused multiply-add on the CUSTOM-1 opcode:
//
//	rd = (int32(rs1 * rs2) >> scale[funct3]) + rs3
//
// The shift is arithmetic. scale is a fixed table of eight shift amounts.
type FxMadd struct {
	scales [8]uint8
}

// NewFxMadd creates the fxmadd model.
func NewFxMadd() *FxMadd {
	return &FxMadd{scales: [8]uint8{1, 2, 3, 4, 5, 6, 7, 8}}
}

// Match reports whether instr uses the CUSTOM-1 opcode.
func (f *FxMadd) Match(instr insts.Instruction) bool {
	return instr.Opcode == insts.OpcodeCustom1
}

// Decode reads all three ports and writes back.
func (f *FxMadd) Decode() ControlSignals {
	return ControlSignals{UseRS: [insts.NumReadPorts]bool{true, true, true}, WB: true}
}

// Execute computes the scaled product plus the accumulator.
func (f *FxMadd) Execute(
	input pipeline.DecodeStageData,
	regs pipeline.BypassRegisterData,
) uint32 {
	scale := f.scales[input.Instr.Funct3&0x7]
	m := int32(regs.RegData[0]*regs.RegData[1]) >> scale
	return uint32(m) + regs.RegData[2]
}

// Sum3 matches every instruction and returns the sum of its three operands.
// Placed first in a registry it shadows every other model.
type Sum3 struct{}

// NewSum3 creates the sum3 model.
func NewSum3() *Sum3 {
	return &Sum3{}
}

// Match always reports true.
func (s *Sum3) Match(insts.Instruction) bool {
	return true
}

// Decode reads all three ports and writes back.
func (s *Sum3) Decode() ControlSignals {
	return ControlSignals{UseRS: [insts.NumReadPorts]bool{true, true, true}, WB: true}
}

// Execute returns rs1 + rs2 + rs3.
func (s *Sum3) Execute(_ pipeline.DecodeStageData, regs pipeline.BypassRegisterData) uint32 {
	return regs.RegData[0] + regs.RegData[1] + regs.RegData[2]
}
