package pipeline

import "github.com/sarchlab/rv32tb/insts"

// BypassRegisterData holds the operand values seen by the execute stage after
// bypassing, one per read port.
type BypassRegisterData struct {
	RegData [insts.NumReadPorts]uint32
}

// ExecutionContext is everything the execute stage needs to resolve its
// operands: the instruction it executes and the two buffers results are
// forwarded from.
type ExecutionContext struct {
	// Input is the instruction in the execute stage.
	Input DecodeStageData

	// ExecBuffer is the previous instruction, now in the memory stage.
	ExecBuffer ExecutionStageData

	// MemBuffer is the instruction before that, now in the writeback stage.
	MemBuffer MemoryStageData
}

// Operand returns the value of read port i as selected by the bypass source
// the decoder assigned to it.
func (c ExecutionContext) Operand(i int) uint32 {
	switch c.Input.Decoded.Bypass[i] {
	case insts.BypassExecBuff:
		return c.ExecBuffer.DataResult[0]
	case insts.BypassMemBuff:
		return c.MemBuffer.WBResult
	default:
		return c.Input.RegData[i]
	}
}

// Resolve returns the bypassed value of every read port.
func (c ExecutionContext) Resolve() BypassRegisterData {
	var data BypassRegisterData
	for i := range data.RegData {
		data.RegData[i] = c.Operand(i)
	}
	return data
}

// HazardUnit detects data hazards and assigns bypass sources.
type HazardUnit struct{}

// NewHazardUnit creates a new hazard detection unit.
func NewHazardUnit() *HazardUnit {
	return &HazardUnit{}
}

// DetectForwarding assigns the bypass source of every read port of instr,
// which is being decoded. idex holds the instruction one ahead and exmem the
// instruction two ahead; by the time instr executes they sit in the memory
// and writeback stages.
//
// Ports are tagged whether or not the decoder marks them as used, so that a
// simulated decode that enables extra ports still sees forwarded values.
// The more recent producer wins.
func (h *HazardUnit) DetectForwarding(
	instr insts.Instruction,
	idex *DecodeStageData,
	exmem *ExecutionStageData,
) [insts.NumReadPorts]insts.BypassSource {
	var sources [insts.NumReadPorts]insts.BypassSource

	for i := range sources {
		reg := instr.Rs(i)
		if reg == 0 {
			continue
		}

		switch {
		case writesRegister(idex.Valid, idex.Instr, idex.Decoded) &&
			idex.Instr.Rd == reg:
			sources[i] = insts.BypassExecBuff
		case writesRegister(exmem.Valid, exmem.Instr, exmem.Decoded) &&
			exmem.Instr.Rd == reg:
			sources[i] = insts.BypassMemBuff
		}
	}

	return sources
}

// DetectLoadUseHazard reports whether instr, being decoded, reads the
// destination of the load in idex through one of the ports in useRS. The
// loaded value is only available after the memory stage, so the decode
// stage must stall for one cycle.
func (h *HazardUnit) DetectLoadUseHazard(
	idex *DecodeStageData,
	instr insts.Instruction,
	useRS [insts.NumReadPorts]bool,
) bool {
	if !idex.Decoded.MemOp.IsLoad() ||
		!writesRegister(idex.Valid, idex.Instr, idex.Decoded) {
		return false
	}

	for i, used := range useRS {
		if used && instr.Rs(i) == idex.Instr.Rd {
			return true
		}
	}

	return false
}
