package benchmarks

import (
	"encoding/binary"

	"github.com/sarchlab/rv32tb/emu"
)

// GetMicrobenchmarks returns the standard set of microbenchmarks. Each one
// targets a specific pipeline behavior. Register x31 is reserved for the
// exit sequence.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		memorySequential(),
		functionCalls(),
		branchTaken(),
		mixedOperations(),
		matrixMultiply2x2(),
		loopSimulation(),
		fixedPointMultiplyAdd(),
		consolePrint(),
	}
}

// GetCoreBenchmarks returns a minimal set of 3 core benchmarks for quick
// validation: a loop, a matrix multiply and branch-heavy code.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		loopSimulation(),
		matrixMultiply2x2(),
		branchTaken(),
	}
}

// 1. Arithmetic Sequential - independent operations, no forwarding needed
func arithmeticSequential() Benchmark {
	instrs := make([]uint32, 0, 20)
	for i := 0; i < 20; i++ {
		reg := uint8(1 + i%5)
		instrs = append(instrs, EncodeADDI(reg, reg, 1))
	}

	return Benchmark{
		Name:         "arithmetic_sequential",
		Description:  "20 ADDIs over 5 registers - measures ALU throughput",
		Program:      BuildProgram(Concat(instrs, ExitWith(1))...),
		ExpectedExit: 4, // x1 = 4*1
	}
}

// 2. Dependency Chain - every instruction reads the previous result
func dependencyChain() Benchmark {
	return Benchmark{
		Name:         "dependency_chain",
		Description:  "20 dependent ADDIs (x1 = x1 + 1) - measures forwarding",
		Program:      buildDependencyChain(20),
		ExpectedExit: 20,
	}
}

func buildDependencyChain(n int) []byte {
	instrs := make([]uint32, 0, n)
	for i := 0; i < n; i++ {
		instrs = append(instrs, EncodeADDI(1, 1, 1))
	}
	return BuildProgram(Concat(instrs, ExitWith(1))...)
}

// 3. Memory Sequential - store/load pairs with a load-use hazard between
// each load and the next store
func memorySequential() Benchmark {
	instrs := []uint32{
		EncodeADDI(1, 0, 0x400), // x1 = base address
		EncodeADDI(2, 0, 42),    // x2 = value to store/load
	}
	for i := int32(0); i < 10; i++ {
		instrs = append(instrs,
			EncodeSW(2, 1, 4*i),
			EncodeLW(2, 1, 4*i),
		)
	}

	return Benchmark{
		Name:         "memory_sequential",
		Description:  "10 store/load pairs to sequential words - measures load-use stalls",
		Program:      BuildProgram(Concat(instrs, ExitWith(2))...),
		ExpectedExit: 42,
	}
}

// 4. Function Calls - JAL/JALR round trips
func functionCalls() Benchmark {
	return Benchmark{
		Name:        "function_calls",
		Description: "3 calls to a leaf function - measures JAL/JALR flushes",
		Program: BuildProgram(Concat(
			[]uint32{
				EncodeADDI(10, 0, 0), // 0x00: x10 = 0
				EncodeJAL(1, 24),     // 0x04: call add5
				EncodeJAL(1, 20),     // 0x08: call add5
				EncodeJAL(1, 16),     // 0x0c: call add5
			},
			ExitWith(10), // 0x10-0x18
			[]uint32{
				EncodeADDI(10, 10, 5), // 0x1c: add5
				EncodeJALR(0, 1, 0),   // 0x20: ret
			},
		)...),
		ExpectedExit: 15,
	}
}

// 5. Branch Taken - taken branches over poisoned instructions
func branchTaken() Benchmark {
	instrs := []uint32{EncodeADDI(1, 0, 0)}
	for i := 0; i < 5; i++ {
		instrs = append(instrs,
			EncodeBEQ(0, 0, 8),    // skip the poison
			EncodeADDI(1, 1, 100), // never retires
			EncodeADDI(1, 1, 1),
		)
	}

	return Benchmark{
		Name:         "branch_taken",
		Description:  "5 taken BEQs - measures branch flushes",
		Program:      BuildProgram(Concat(instrs, ExitWith(1))...),
		ExpectedExit: 5,
	}
}

// 6. Mixed Operations - register-register ALU mix
func mixedOperations() Benchmark {
	return Benchmark{
		Name:        "mixed_operations",
		Description: "ADD/SUB/AND/OR/XOR/SLLI mix with forwarding - measures ALU coverage",
		Program: BuildProgram(Concat(
			[]uint32{
				EncodeADDI(1, 0, 12), // x1 = 12
				EncodeADDI(2, 0, 10), // x2 = 10
				EncodeADD(3, 1, 2),   // x3 = 22
				EncodeSUB(4, 1, 2),   // x4 = 2
				EncodeAND(5, 1, 2),   // x5 = 8
				EncodeOR(6, 1, 2),    // x6 = 14
				EncodeXOR(7, 1, 2),   // x7 = 6
				EncodeSLLI(8, 4, 3),  // x8 = 16
				EncodeADD(9, 3, 8),   // x9 = 38
				EncodeSUB(9, 9, 7),   // x9 = 32
				EncodeADD(9, 9, 5),   // x9 = 40
				EncodeXOR(9, 9, 6),   // x9 = 38
			},
			ExitWith(9),
		)...),
		ExpectedExit: 38,
	}
}

const (
	matrixA = 0x400
	matrixB = 0x410
)

// 7. Matrix Multiply 2x2 - loads and co-simulated RV32M multiplies
func matrixMultiply2x2() Benchmark {
	return Benchmark{
		Name:        "matrix_multiply_2x2",
		Description: "2x2 integer matrix multiply with MUL - measures co-simulated execute",
		Setup: func(memory *emu.Memory) {
			storeWords(memory, matrixA, 1, 2, 3, 4)
			storeWords(memory, matrixB, 5, 6, 7, 8)
		},
		Program: BuildProgram(Concat(
			[]uint32{
				EncodeADDI(1, 0, matrixA),
				EncodeADDI(2, 0, matrixB),
				EncodeLW(3, 1, 0),   // a00
				EncodeLW(4, 1, 4),   // a01
				EncodeLW(5, 1, 8),   // a10
				EncodeLW(6, 1, 12),  // a11
				EncodeLW(7, 2, 0),   // b00
				EncodeLW(8, 2, 4),   // b01
				EncodeLW(9, 2, 8),   // b10
				EncodeLW(10, 2, 12), // b11

				EncodeMUL(11, 3, 7), // c00 = a00*b00 + a01*b10
				EncodeMUL(12, 4, 9),
				EncodeADD(13, 11, 12),
				EncodeMUL(11, 3, 8), // c01 = a00*b01 + a01*b11
				EncodeMUL(12, 4, 10),
				EncodeADD(14, 11, 12),
				EncodeMUL(11, 5, 7), // c10 = a10*b00 + a11*b10
				EncodeMUL(12, 6, 9),
				EncodeADD(15, 11, 12),
				EncodeMUL(11, 5, 8), // c11 = a10*b01 + a11*b11
				EncodeMUL(12, 6, 10),
				EncodeADD(16, 11, 12),

				EncodeSW(13, 2, 16),
				EncodeSW(14, 2, 20),
				EncodeSW(15, 2, 24),
				EncodeSW(16, 2, 28),

				EncodeADD(17, 13, 14),
				EncodeADD(17, 17, 15),
				EncodeADD(17, 17, 16),
			},
			ExitWith(17),
		)...),
		ExpectedExit: 134, // 19 + 22 + 43 + 50
	}
}

// 8. Loop Simulation - a counted loop closed by BNE
func loopSimulation() Benchmark {
	return Benchmark{
		Name:        "loop_simulation",
		Description: "10 iterations of a counted loop - measures backward branch flushes",
		Program: BuildProgram(Concat(
			[]uint32{
				EncodeADDI(1, 0, 10), // 0x00: counter
				EncodeADDI(2, 0, 0),  // 0x04: accumulator
				EncodeADDI(2, 2, 3),  // 0x08: loop
				EncodeADDI(1, 1, -1), // 0x0c
				EncodeBNE(1, 0, -8),  // 0x10: to loop
			},
			ExitWith(2),
		)...),
		ExpectedExit: 30,
	}
}

// 9. Fixed-point multiply-add - the CUSTOM-1 instruction through the
// co-simulation registry
func fixedPointMultiplyAdd() Benchmark {
	return Benchmark{
		Name:        "fxmadd_accumulate",
		Description: "Chained custom multiply-adds - measures co-simulated decode and forwarding",
		Program: BuildProgram(Concat(
			[]uint32{
				EncodeADDI(1, 0, 6),
				EncodeADDI(2, 0, 7),
				EncodeADDI(3, 0, 1),
				EncodeFxMadd(4, 1, 2, 3, 0), // x4 = (42 >> 1) + 1 = 22
				EncodeFxMadd(4, 1, 2, 4, 1), // x4 = (42 >> 2) + 22 = 32
			},
			ExitWith(4),
		)...),
		ExpectedExit: 32,
	}
}

// 10. Console Print - stores to the print register
func consolePrint() Benchmark {
	msg := "Hi!\n"
	instrs := []uint32{EncodeLUI(30, emu.DefaultPrintAddr)}
	for _, ch := range []byte(msg) {
		instrs = append(instrs,
			EncodeADDI(1, 0, int32(ch)),
			EncodeSW(1, 30, int32(emu.DefaultPrintAddr&0xFFF)),
		)
	}

	return Benchmark{
		Name:           "console_print",
		Description:    "Prints a short string through MMIO - measures store forwarding",
		Program:        BuildProgram(Concat(instrs, ExitWith(0))...),
		ExpectedExit:   0,
		ExpectedOutput: msg,
	}
}

func storeWords(memory *emu.Memory, addr uint32, words ...uint32) {
	data := make([]byte, 0, 4*len(words))
	for _, w := range words {
		data = binary.LittleEndian.AppendUint32(data, w)
	}
	memory.Load(addr, data)
}
