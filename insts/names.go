package insts

// Unknown is the label of any value missing from a symbol table. Tables never
// fail: a malformed hardware signal must not stop the trace.
const Unknown = "???"

var opcodeNames = map[Opcode]string{
	OpcodeLUI:        "LUI",
	OpcodeAUIPC:      "AUIPC",
	OpcodeJAL:        "JAL",
	OpcodeJALR:       "JALR",
	OpcodeBranch:     "BRANCH",
	OpcodeLoad:       "LOAD",
	OpcodeStore:      "STORE",
	OpcodeIntegerImm: "INT IMM",
	OpcodeIntegerReg: "INT REG",
	OpcodeZicsr:      "ZICSR",
	OpcodeBarrier:    "BARRIER",
}

var instrTypeNames = map[InstrType]string{
	InstrR: "R",
	InstrI: "I",
	InstrS: "S",
	InstrB: "B",
	InstrU: "U",
	InstrJ: "J",
}

// immNames labels an immediate operand by the format that produced it. An
// R-type instruction has no immediate.
var immNames = map[InstrType]string{
	InstrI: "I_IMM",
	InstrS: "S_IMM",
	InstrB: "B_IMM",
	InstrU: "U_IMM",
	InstrJ: "J_IMM",
}

var aluOpNames = map[ALUOp]string{
	ALUAdd:  "ADD",
	ALUSll:  "SLL",
	ALUSlt:  "SLT",
	ALUSltu: "SLTU",
	ALUXor:  "XOR",
	ALUSrl:  "SRL",
	ALUOr:   "OR",
	ALUAnd:  "AND",
	ALUSra:  "SRA",
	ALUSub:  "SUB",
}

var aluInputNames = map[ALUInput]string{
	ALUInZero: "0",
	ALUInReg1: "R1",
	ALUInReg2: "R2",
	ALUInPC:   "PC",
	ALUInImm:  "IMM",
}

var branchOpNames = map[BranchOp]string{
	BranchEQ:  "BEQ",
	BranchNE:  "BNE",
	BranchLT:  "BLT",
	BranchGE:  "BGE",
	BranchLTU: "BLTU",
	BranchGEU: "BGEU",
	BranchJ:   "J",
	BranchNOP: "NOP",
}

var wbSourceNames = map[WBSource]string{
	WBPC4:     "PC4",
	WBIntALU:  "ALU",
	WBMemData: "MEM",
}

var bypassNames = map[BypassSource]string{
	NoBypass:       "NO",
	BypassExecBuff: "EXEC",
	BypassMemBuff:  "MEM",
}

var memOpNames = map[MemOp]string{
	MemLB:  "LB",
	MemLH:  "LH",
	MemLW:  "LW",
	MemLBU: "LBU",
	MemLHU: "LHU",
	MemSB:  "SB",
	MemSH:  "SH",
	MemSW:  "SW",
	MemNOP: "NO MEM",
}

func lookup[K comparable](table map[K]string, key K) string {
	if s, ok := table[key]; ok {
		return s
	}
	return Unknown
}

func (op Opcode) String() string        { return lookup(opcodeNames, op) }
func (t InstrType) String() string      { return lookup(instrTypeNames, t) }
func (op ALUOp) String() string         { return lookup(aluOpNames, op) }
func (in ALUInput) String() string      { return lookup(aluInputNames, in) }
func (op BranchOp) String() string      { return lookup(branchOpNames, op) }
func (src WBSource) String() string     { return lookup(wbSourceNames, src) }
func (op MemOp) String() string         { return lookup(memOpNames, op) }
func (src BypassSource) String() string { return lookup(bypassNames, src) }

// ImmName returns the immediate label of a format, e.g. "S_IMM".
func ImmName(t InstrType) string {
	return lookup(immNames, t)
}

// ALUInputName labels an ALU operand source. A generic immediate is renamed
// after the format of the instruction, since the operand source alone does
// not say which immediate shape was selected.
func ALUInputName(in ALUInput, t InstrType) string {
	if in == ALUInImm {
		return ImmName(t)
	}
	return in.String()
}

// BypassName labels a bypass source. Values outside the table read as "NO":
// an unknown forwarding select is not worth flagging in the trace.
func BypassName(src BypassSource) string {
	if s, ok := bypassNames[src]; ok {
		return s
	}
	return bypassNames[NoBypass]
}
