package emu

import "github.com/sarchlab/rv32tb/insts"

// ExtractLoad selects the value a load of kind op at addr writes back, given
// the aligned word the memory returned for addr. Byte and halfword loads pick
// their lane from the low address bits and extend it by op's signedness.
func ExtractLoad(op insts.MemOp, addr, word uint32) uint32 {
	shift := (addr & 3) * 8
	lane := word >> shift

	switch op {
	case insts.MemLB:
		return uint32(int32(int8(lane)))
	case insts.MemLBU:
		return lane & 0xFF
	case insts.MemLH:
		return uint32(int32(int16(lane)))
	case insts.MemLHU:
		return lane & 0xFFFF
	case insts.MemLW:
		return word
	}

	return 0
}

// StoreWidth returns the number of bytes written by a store of kind op, or 0
// when op is not a store.
func StoreWidth(op insts.MemOp) int {
	switch op {
	case insts.MemSB:
		return 1
	case insts.MemSH:
		return 2
	case insts.MemSW:
		return 4
	}

	return 0
}
