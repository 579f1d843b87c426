// Package emu provides the functional building blocks of an RV32 core: the
// register file, the integer ALU, the branch unit and the memory model the
// core issues requests against.
package emu

// NumRegs is the number of integer registers.
const NumRegs = 32

// RegFile represents the RV32 integer register file.
// Register x0 is hardwired to zero.
type RegFile struct {
	// X holds registers x0-x31. X[0] is never written.
	X [NumRegs]uint32
}

// ReadReg reads a register value. Register 0 and out-of-range indices
// return 0.
func (r *RegFile) ReadReg(reg uint8) uint32 {
	if reg == 0 || reg >= NumRegs {
		return 0
	}
	return r.X[reg]
}

// WriteReg writes a register value. Writes to x0 are discarded.
func (r *RegFile) WriteReg(reg uint8, value uint32) {
	if reg == 0 || reg >= NumRegs {
		return
	}
	r.X[reg] = value
}

// Reset clears every register.
func (r *RegFile) Reset() {
	r.X = [NumRegs]uint32{}
}
