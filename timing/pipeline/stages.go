package pipeline

import (
	"github.com/sarchlab/rv32tb/emu"
	"github.com/sarchlab/rv32tb/insts"
)

// FetchStage issues instruction requests.
type FetchStage struct{}

// NewFetchStage creates a new fetch stage.
func NewFetchStage() *FetchStage {
	return &FetchStage{}
}

// Request returns the instruction memory request for pc.
func (s *FetchStage) Request(pc uint32) emu.MemoryRequest {
	return emu.MemoryRequest{Op: insts.MemLW, Addr: pc}
}

// Complete builds the IF/ID buffer from the instruction response. A response
// that is not ready yields a bubble.
func (s *FetchStage) Complete(pc uint32, resp emu.MemoryResponse) FetchStageData {
	if !resp.Ready {
		return fetchBubble()
	}

	return FetchStageData{
		Valid: true,
		PC:    pc,
		Instr: insts.NewInstruction(resp.Data),
	}
}

// DecodeStage handles instruction decode, register read and bypass selection.
type DecodeStage struct {
	regFile    *emu.RegFile
	decoder    *insts.Decoder
	hazardUnit *HazardUnit
}

// NewDecodeStage creates a new decode stage.
func NewDecodeStage(regFile *emu.RegFile, hazardUnit *HazardUnit) *DecodeStage {
	return &DecodeStage{
		regFile:    regFile,
		decoder:    insts.NewDecoder(),
		hazardUnit: hazardUnit,
	}
}

// Decode decodes the instruction in ifid. It returns the ID/EX buffer and the
// read ports the decoder marked as used.
//
// The register file is written at the end of the cycle, so a value being
// written back by memwb is forwarded into the read directly.
func (s *DecodeStage) Decode(
	ifid *FetchStageData,
	idex *DecodeStageData,
	exmem *ExecutionStageData,
	memwb *MemoryStageData,
) (DecodeStageData, [insts.NumReadPorts]bool) {
	dec, useRS := s.decoder.Decode(ifid.Instr)
	dec.Bypass = s.hazardUnit.DetectForwarding(ifid.Instr, idex, exmem)

	out := DecodeStageData{
		Valid:   ifid.Valid,
		PC:      ifid.PC,
		Instr:   ifid.Instr,
		Decoded: dec,
	}

	for i := range out.RegData {
		reg := ifid.Instr.Rs(i)
		if writesRegister(memwb.Valid, memwb.Instr, memwb.Decoded) &&
			memwb.Instr.Rd == reg {
			out.RegData[i] = memwb.WBResult
			continue
		}
		out.RegData[i] = s.regFile.ReadReg(reg)
	}

	return out, useRS
}

// ExecuteStage handles ALU operations and branch resolution.
type ExecuteStage struct {
	alu        *emu.ALU
	branchUnit *emu.BranchUnit
}

// NewExecuteStage creates a new execute stage.
func NewExecuteStage() *ExecuteStage {
	return &ExecuteStage{
		alu:        emu.NewALU(),
		branchUnit: emu.NewBranchUnit(),
	}
}

// Execute computes the EX/MEM buffer for the instruction in ctx.Input.
// Branches compare the first two bypassed operands while the ALU computes the
// target.
func (s *ExecuteStage) Execute(ctx ExecutionContext) ExecutionStageData {
	in := ctx.Input
	dec := in.Decoded
	ops := ctx.Resolve()

	in1 := s.aluInput(dec.ALUIn1, &in, &ops)
	in2 := s.aluInput(dec.ALUIn2, &in, &ops)
	result := s.alu.Compute(dec.ALUOp, in1, in2)

	out := ExecutionStageData{
		Valid:   in.Valid,
		PC:      in.PC,
		Instr:   in.Instr,
		Decoded: dec,
	}

	out.DataResult[0] = result
	if dec.WBSource == insts.WBPC4 {
		out.DataResult[0] = in.PC + 4
	}
	out.DataResult[1] = ops.RegData[1]

	if in.Valid &&
		s.branchUnit.CheckCondition(dec.BranchOp, ops.RegData[0], ops.RegData[1]) {
		out.BranchTaken = true
		out.BranchTarget = s.branchUnit.Target(result)
	}

	return out
}

func (s *ExecuteStage) aluInput(
	sel insts.ALUInput,
	in *DecodeStageData,
	ops *BypassRegisterData,
) uint32 {
	switch sel {
	case insts.ALUInReg1:
		return ops.RegData[0]
	case insts.ALUInReg2:
		return ops.RegData[1]
	case insts.ALUInPC:
		return in.PC
	case insts.ALUInImm:
		return in.Instr.Imm(in.Decoded.Type)
	}

	return 0
}

// MemoryStage issues data requests and completes loads.
type MemoryStage struct{}

// NewMemoryStage creates a new memory stage.
func NewMemoryStage() *MemoryStage {
	return &MemoryStage{}
}

// Request returns the data memory request of the instruction in exmem.
func (s *MemoryStage) Request(exmem *ExecutionStageData) emu.MemoryRequest {
	if !exmem.Valid || exmem.Decoded.MemOp == insts.MemNOP {
		return emu.MemoryRequest{}
	}

	return emu.MemoryRequest{
		Op:   exmem.Decoded.MemOp,
		Addr: exmem.DataResult[0],
		Data: exmem.DataResult[1],
	}
}

// Complete builds the MEM/WB buffer. The memory returns the aligned word;
// the lane and extension of narrow loads are applied here.
func (s *MemoryStage) Complete(
	exmem *ExecutionStageData,
	resp emu.MemoryResponse,
) MemoryStageData {
	out := MemoryStageData{
		Valid:    exmem.Valid,
		PC:       exmem.PC,
		Instr:    exmem.Instr,
		Decoded:  exmem.Decoded,
		WBResult: exmem.DataResult[0],
	}

	if exmem.Decoded.WBSource == insts.WBMemData && exmem.Decoded.MemOp.IsLoad() {
		out.WBResult = emu.ExtractLoad(
			exmem.Decoded.MemOp, exmem.DataResult[0], resp.Data)
	}

	return out
}

// WritebackStage handles register file writeback.
type WritebackStage struct {
	regFile *emu.RegFile
}

// NewWritebackStage creates a new writeback stage.
func NewWritebackStage(regFile *emu.RegFile) *WritebackStage {
	return &WritebackStage{
		regFile: regFile,
	}
}

// Writeback writes the result to the register file. It reports whether an
// instruction retired.
func (s *WritebackStage) Writeback(memwb *MemoryStageData) bool {
	if !memwb.Valid {
		return false
	}

	if memwb.Decoded.RegisterWB {
		s.regFile.WriteReg(memwb.Instr.Rd, memwb.WBResult)
	}

	return true
}
