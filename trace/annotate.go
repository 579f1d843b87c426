package trace

import (
	"fmt"
	"strings"

	"github.com/sarchlab/rv32tb/emu"
	"github.com/sarchlab/rv32tb/insts"
)

// hex left-justifies v in ten columns. Annotations drop trailing padding;
// the canvas pads cells.
func hex(v uint32) string {
	return fmt.Sprintf("%-#10x", v)
}

func regName(port int, reg uint8) string {
	return fmt.Sprintf("rs%d(x%d)", port+1, reg)
}

// AddressLine labels a stage with the address and word of its instruction.
func AddressLine(pc, word uint32) string {
	return strings.TrimRight("@ "+hex(pc)+" I "+hex(word), " ")
}

// NextPCLine labels the address the fetch stage requests next.
func NextPCLine(pc uint32) string {
	return strings.TrimRight("@ <- "+hex(pc), " ")
}

// OpcodeLine names the major opcode of instr.
func OpcodeLine(instr insts.Instruction) string {
	return "Opcode " + instr.Opcode.String()
}

// UsesLine lists the registers read through the ports in useRS, or returns
// an empty string when none are.
func UsesLine(instr insts.Instruction, useRS [insts.NumReadPorts]bool) string {
	var regs []string
	for i, used := range useRS {
		if used {
			regs = append(regs, regName(i, instr.Rs(i)))
		}
	}

	if len(regs) == 0 {
		return ""
	}
	return "Uses " + strings.Join(regs, " ")
}

// BypassLine lists the used operands that are forwarded, with their source,
// e.g. "!EXEC rs1(x1) !MEM rs2(x2)".
func BypassLine(
	instr insts.Instruction,
	dec insts.DecodedInstruction,
	useRS [insts.NumReadPorts]bool,
) string {
	var parts []string
	for i, used := range useRS {
		name := insts.BypassName(dec.Bypass[i])
		if !used || name == insts.NoBypass.String() {
			continue
		}
		parts = append(parts, "!"+name+" "+regName(i, instr.Rs(i)))
	}
	return strings.Join(parts, " ")
}

// WBSourceLine shows where the result written to rd comes from, or an empty
// string when the instruction does not write back.
func WBSourceLine(instr insts.Instruction, dec insts.DecodedInstruction) string {
	if !dec.RegisterWB {
		return ""
	}
	return fmt.Sprintf("%s -> x%d", dec.WBSource, instr.Rd)
}

func aluInputLine(in insts.ALUInput, instr insts.Instruction, t insts.InstrType) string {
	switch in {
	case insts.ALUInReg1:
		return regName(0, instr.Rs1)
	case insts.ALUInReg2:
		return regName(1, instr.Rs2)
	}
	return insts.ALUInputName(in, t)
}

// ALULine shows the ALU operation and its two operands, e.g.
// "ADD rs1(x1) I_IMM".
func ALULine(instr insts.Instruction, dec insts.DecodedInstruction) string {
	return dec.ALUOp.String() + " " +
		aluInputLine(dec.ALUIn1, instr, dec.Type) + " " +
		aluInputLine(dec.ALUIn2, instr, dec.Type)
}

// BranchLine names the branch condition; plain instructions show nothing.
func BranchLine(dec insts.DecodedInstruction) string {
	if dec.BranchOp == insts.BranchNOP {
		return ""
	}
	return dec.BranchOp.String()
}

// MemoryLine describes a data request: "SW [0x100] <- 0x2a" for stores and
// "LW addr 0x100" for loads. No request shows nothing.
func MemoryLine(req emu.MemoryRequest) string {
	switch {
	case req.Op == insts.MemNOP:
		return ""
	case req.Op.IsStore():
		return fmt.Sprintf("%s [%#x] <- %#x", req.Op, req.Addr, req.Data)
	}
	return fmt.Sprintf("%s addr %#x", req.Op, req.Addr)
}

// WriteLine shows the value written back to rd, or nothing.
func WriteLine(instr insts.Instruction, dec insts.DecodedInstruction, value uint32) string {
	if !dec.RegisterWB {
		return ""
	}
	return strings.TrimRight(fmt.Sprintf("x%d <- %s", instr.Rd, hex(value)), " ")
}
