package emu

import "github.com/sarchlab/rv32tb/insts"

// BranchUnit evaluates branch conditions in the execute stage.
type BranchUnit struct{}

// NewBranchUnit creates a new BranchUnit.
func NewBranchUnit() *BranchUnit {
	return &BranchUnit{}
}

// CheckCondition reports whether a branch with condition op is taken for the
// register operands rs1 and rs2. Jumps are always taken; BranchNOP never is.
func (b *BranchUnit) CheckCondition(op insts.BranchOp, rs1, rs2 uint32) bool {
	switch op {
	case insts.BranchEQ:
		return rs1 == rs2
	case insts.BranchNE:
		return rs1 != rs2
	case insts.BranchLT:
		return int32(rs1) < int32(rs2)
	case insts.BranchGE:
		return int32(rs1) >= int32(rs2)
	case insts.BranchLTU:
		return rs1 < rs2
	case insts.BranchGEU:
		return rs1 >= rs2
	case insts.BranchJ:
		return true
	}

	return false
}

// Target returns the branch target computed by the ALU. Bit 0 is cleared as
// JALR requires; every other target is already even.
func (b *BranchUnit) Target(aluResult uint32) uint32 {
	return aluResult &^ 1
}
