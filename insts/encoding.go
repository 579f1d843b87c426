package insts

// Encoders build instruction words from fields. They are the inverse of
// NewInstruction and Imm and are used to assemble test programs; immediates
// are truncated to the width of their format.

// EncodeR encodes an R-type instruction.
func EncodeR(op Opcode, rd, funct3, rs1, rs2, funct7 uint8) uint32 {
	return uint32(funct7&0x7F)<<25 |
		uint32(rs2&0x1F)<<20 |
		uint32(rs1&0x1F)<<15 |
		uint32(funct3&0x7)<<12 |
		uint32(rd&0x1F)<<7 |
		uint32(op&0x7F)
}

// EncodeR4 encodes an R4-type instruction with three source registers.
func EncodeR4(op Opcode, rd, funct3, rs1, rs2, rs3, funct2 uint8) uint32 {
	return EncodeR(op, rd, funct3, rs1, rs2, (rs3&0x1F)<<2|funct2&0x3)
}

// EncodeI encodes an I-type instruction.
func EncodeI(op Opcode, rd, funct3, rs1 uint8, imm int32) uint32 {
	return uint32(imm&0xFFF)<<20 |
		uint32(rs1&0x1F)<<15 |
		uint32(funct3&0x7)<<12 |
		uint32(rd&0x1F)<<7 |
		uint32(op&0x7F)
}

// EncodeS encodes an S-type instruction.
func EncodeS(op Opcode, funct3, rs1, rs2 uint8, imm int32) uint32 {
	u := uint32(imm)
	return (u>>5&0x7F)<<25 |
		uint32(rs2&0x1F)<<20 |
		uint32(rs1&0x1F)<<15 |
		uint32(funct3&0x7)<<12 |
		(u&0x1F)<<7 |
		uint32(op&0x7F)
}

// EncodeB encodes a conditional branch. offset is in bytes and must be even.
func EncodeB(funct3, rs1, rs2 uint8, offset int32) uint32 {
	u := uint32(offset)
	return (u>>12&1)<<31 |
		(u>>5&0x3F)<<25 |
		uint32(rs2&0x1F)<<20 |
		uint32(rs1&0x1F)<<15 |
		uint32(funct3&0x7)<<12 |
		(u>>1&0xF)<<8 |
		(u>>11&1)<<7 |
		uint32(OpcodeBranch)
}

// EncodeU encodes a U-type instruction. Only the upper 20 bits of imm are
// kept.
func EncodeU(op Opcode, rd uint8, imm uint32) uint32 {
	return imm&0xFFFFF000 | uint32(rd&0x1F)<<7 | uint32(op&0x7F)
}

// EncodeJ encodes a JAL. offset is in bytes and must be even.
func EncodeJ(rd uint8, offset int32) uint32 {
	u := uint32(offset)
	return (u>>20&1)<<31 |
		(u>>1&0x3FF)<<21 |
		(u>>11&1)<<20 |
		(u>>12&0xFF)<<12 |
		uint32(rd&0x1F)<<7 |
		uint32(OpcodeJAL)
}
