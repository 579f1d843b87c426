package insts

// Decoder models the hardware instruction decoder of an RV32I core. It does
// not implement the M extension or any custom opcode: those are reported as
// invalid so that a software model can take over.
type Decoder struct{}

// NewDecoder creates a new RV32I decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode produces the control bundle for instr and the register file read
// ports it uses. Bypass sources are left as NoBypass; they are assigned by the
// hazard unit.
func (d *Decoder) Decode(instr Instruction) (DecodedInstruction, [NumReadPorts]bool) {
	dec := DecodedInstruction{
		Type:     InstrI,
		ALUOp:    ALUAdd,
		ALUIn1:   ALUInZero,
		ALUIn2:   ALUInZero,
		BranchOp: BranchNOP,
		WBSource: WBIntALU,
		MemOp:    MemNOP,
	}
	var useRS [NumReadPorts]bool

	ok := true
	switch instr.Opcode {
	case OpcodeLUI:
		dec.Type = InstrU
		dec.ALUIn2 = ALUInImm
		dec.RegisterWB = true
	case OpcodeAUIPC:
		dec.Type = InstrU
		dec.ALUIn1 = ALUInPC
		dec.ALUIn2 = ALUInImm
		dec.RegisterWB = true
	case OpcodeJAL:
		dec.Type = InstrJ
		dec.ALUIn1 = ALUInPC
		dec.ALUIn2 = ALUInImm
		dec.BranchOp = BranchJ
		dec.WBSource = WBPC4
		dec.RegisterWB = true
	case OpcodeJALR:
		ok = instr.Funct3 == 0
		dec.ALUIn1 = ALUInReg1
		dec.ALUIn2 = ALUInImm
		dec.BranchOp = BranchJ
		dec.WBSource = WBPC4
		dec.RegisterWB = true
		useRS[0] = true
	case OpcodeBranch:
		ok = d.decodeBranch(instr, &dec, &useRS)
	case OpcodeLoad:
		ok = d.decodeLoad(instr, &dec, &useRS)
	case OpcodeStore:
		ok = d.decodeStore(instr, &dec, &useRS)
	case OpcodeIntegerImm:
		ok = d.decodeIntegerImm(instr, &dec, &useRS)
	case OpcodeIntegerReg:
		ok = d.decodeIntegerReg(instr, &dec, &useRS)
	case OpcodeBarrier, OpcodeZicsr:
		// FENCE and SYSTEM retire as no-ops: there is no CSR file.
	default:
		ok = false
	}

	if !ok {
		return invalidInstruction(), [NumReadPorts]bool{}
	}

	return dec, useRS
}

// invalidInstruction is the bundle driven when the decoder gives up. The
// writeback source is left on the ALU so that an execute override result can
// be written back once a simulated decode enables the write.
func invalidInstruction() DecodedInstruction {
	return DecodedInstruction{
		Type:     InstrR,
		ALUOp:    ALUAdd,
		ALUIn1:   ALUInZero,
		ALUIn2:   ALUInZero,
		BranchOp: BranchNOP,
		WBSource: WBIntALU,
		MemOp:    MemNOP,
		Invalid:  true,
	}
}

func (d *Decoder) decodeBranch(
	instr Instruction,
	dec *DecodedInstruction,
	useRS *[NumReadPorts]bool,
) bool {
	op := BranchOp(instr.Funct3)
	if op == BranchJ || op == BranchNOP {
		return false
	}

	dec.Type = InstrB
	dec.ALUIn1 = ALUInPC
	dec.ALUIn2 = ALUInImm
	dec.BranchOp = op
	useRS[0] = true
	useRS[1] = true
	return true
}

func (d *Decoder) decodeLoad(
	instr Instruction,
	dec *DecodedInstruction,
	useRS *[NumReadPorts]bool,
) bool {
	switch instr.Funct3 {
	case 0b000:
		dec.MemOp = MemLB
	case 0b001:
		dec.MemOp = MemLH
	case 0b010:
		dec.MemOp = MemLW
	case 0b100:
		dec.MemOp = MemLBU
	case 0b101:
		dec.MemOp = MemLHU
	default:
		return false
	}

	dec.ALUIn1 = ALUInReg1
	dec.ALUIn2 = ALUInImm
	dec.WBSource = WBMemData
	dec.RegisterWB = true
	useRS[0] = true
	return true
}

func (d *Decoder) decodeStore(
	instr Instruction,
	dec *DecodedInstruction,
	useRS *[NumReadPorts]bool,
) bool {
	switch instr.Funct3 {
	case 0b000:
		dec.MemOp = MemSB
	case 0b001:
		dec.MemOp = MemSH
	case 0b010:
		dec.MemOp = MemSW
	default:
		return false
	}

	dec.Type = InstrS
	dec.ALUIn1 = ALUInReg1
	dec.ALUIn2 = ALUInImm
	useRS[0] = true
	useRS[1] = true
	return true
}

// funct3ALUOps maps funct3 to the ALU operation of the integer instructions
// whose funct7 is zero.
var funct3ALUOps = [8]ALUOp{
	ALUAdd, ALUSll, ALUSlt, ALUSltu, ALUXor, ALUSrl, ALUOr, ALUAnd,
}

func (d *Decoder) decodeIntegerImm(
	instr Instruction,
	dec *DecodedInstruction,
	useRS *[NumReadPorts]bool,
) bool {
	dec.ALUOp = funct3ALUOps[instr.Funct3]
	switch instr.Funct3 {
	case 0b001:
		if instr.Funct7 != 0 {
			return false
		}
	case 0b101:
		switch instr.Funct7 {
		case 0b0000000:
		case 0b0100000:
			dec.ALUOp = ALUSra
		default:
			return false
		}
	}

	dec.ALUIn1 = ALUInReg1
	dec.ALUIn2 = ALUInImm
	dec.RegisterWB = true
	useRS[0] = true
	return true
}

func (d *Decoder) decodeIntegerReg(
	instr Instruction,
	dec *DecodedInstruction,
	useRS *[NumReadPorts]bool,
) bool {
	switch instr.Funct7 {
	case 0b0000000:
		dec.ALUOp = funct3ALUOps[instr.Funct3]
	case 0b0100000:
		switch instr.Funct3 {
		case 0b000:
			dec.ALUOp = ALUSub
		case 0b101:
			dec.ALUOp = ALUSra
		default:
			return false
		}
	default:
		return false
	}

	dec.Type = InstrR
	dec.ALUIn1 = ALUInReg1
	dec.ALUIn2 = ALUInReg2
	dec.RegisterWB = true
	useRS[0] = true
	useRS[1] = true
	return true
}
