package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32tb/emu"
	"github.com/sarchlab/rv32tb/insts"
)

var _ = Describe("BranchUnit", func() {
	var branchUnit *emu.BranchUnit

	BeforeEach(func() {
		branchUnit = emu.NewBranchUnit()
	})

	DescribeTable("CheckCondition",
		func(op insts.BranchOp, rs1, rs2 uint32, taken bool) {
			Expect(branchUnit.CheckCondition(op, rs1, rs2)).To(Equal(taken))
		},
		Entry("BEQ equal", insts.BranchEQ, uint32(5), uint32(5), true),
		Entry("BEQ different", insts.BranchEQ, uint32(5), uint32(6), false),
		Entry("BNE different", insts.BranchNE, uint32(5), uint32(6), true),
		Entry("BLT signed", insts.BranchLT, uint32(0xFFFFFFFF), uint32(1), true),
		Entry("BLTU unsigned", insts.BranchLTU, uint32(0xFFFFFFFF), uint32(1), false),
		Entry("BGE equal", insts.BranchGE, uint32(3), uint32(3), true),
		Entry("BGE signed", insts.BranchGE, uint32(1), uint32(0x80000000), true),
		Entry("BGEU unsigned", insts.BranchGEU, uint32(1), uint32(0x80000000), false),
		Entry("J always", insts.BranchJ, uint32(0), uint32(1), true),
		Entry("NOP never", insts.BranchNOP, uint32(0), uint32(0), false),
	)

	It("should clear bit 0 of the target", func() {
		Expect(branchUnit.Target(0x1001)).To(Equal(uint32(0x1000)))
		Expect(branchUnit.Target(0x1004)).To(Equal(uint32(0x1004)))
	})
})
