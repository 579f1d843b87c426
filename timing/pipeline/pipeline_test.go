package pipeline_test

import (
	"bytes"
	"encoding/binary"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32tb/emu"
	"github.com/sarchlab/rv32tb/insts"
	"github.com/sarchlab/rv32tb/timing/pipeline"
)

func addi(rd, rs1 uint8, imm int32) uint32 {
	return insts.EncodeI(insts.OpcodeIntegerImm, rd, 0b000, rs1, imm)
}

func add(rd, rs1, rs2 uint8) uint32 {
	return insts.EncodeR(insts.OpcodeIntegerReg, rd, 0b000, rs1, rs2, 0)
}

func lw(rd, rs1 uint8, imm int32) uint32 {
	return insts.EncodeI(insts.OpcodeLoad, rd, 0b010, rs1, imm)
}

func lb(rd, rs1 uint8, imm int32) uint32 {
	return insts.EncodeI(insts.OpcodeLoad, rd, 0b000, rs1, imm)
}

func lbu(rd, rs1 uint8, imm int32) uint32 {
	return insts.EncodeI(insts.OpcodeLoad, rd, 0b100, rs1, imm)
}

func sw(rs2, rs1 uint8, imm int32) uint32 {
	return insts.EncodeS(insts.OpcodeStore, 0b010, rs1, rs2, imm)
}

func sb(rs2, rs1 uint8, imm int32) uint32 {
	return insts.EncodeS(insts.OpcodeStore, 0b000, rs1, rs2, imm)
}

func bne(rs1, rs2 uint8, offset int32) uint32 {
	return insts.EncodeB(0b001, rs1, rs2, offset)
}

func jal(rd uint8, offset int32) uint32 {
	return insts.EncodeJ(rd, offset)
}

func jalr(rd, rs1 uint8, imm int32) uint32 {
	return insts.EncodeI(insts.OpcodeJALR, rd, 0b000, rs1, imm)
}

func nop() uint32 {
	return insts.NopWord
}

func custom(rd, rs1, rs2 uint8) uint32 {
	return insts.EncodeR(insts.OpcodeCustom1, rd, 0, rs1, rs2, 0)
}

// exitWith stores reg to the exit register and spins.
func exitWith(reg uint8) []uint32 {
	return []uint32{
		insts.EncodeU(insts.OpcodeLUI, 31, emu.DefaultExitAddr),
		sw(reg, 31, 0),
		jal(0, 0),
	}
}

type testBench struct {
	regFile *emu.RegFile
	memory  *emu.Memory
	pipe    *pipeline.Pipeline
	console *bytes.Buffer

	// onEval runs after Eval, before the memory requests are answered.
	onEval func(p *pipeline.Pipeline)
}

func newTestBench(program ...uint32) *testBench {
	image := make([]byte, 4*len(program))
	for i, word := range program {
		binary.LittleEndian.PutUint32(image[4*i:], word)
	}

	b := &testBench{
		regFile: &emu.RegFile{},
		console: &bytes.Buffer{},
	}
	b.memory = emu.NewMemory(0x1000, emu.WithConsole(b.console))
	b.memory.Load(0, image)
	b.pipe = pipeline.NewPipeline(b.regFile)

	return b
}

func (b *testBench) step() (exited bool, err error) {
	b.pipe.Eval()
	if b.onEval != nil {
		b.onEval(b.pipe)
	}

	b.pipe.SetInstructionResponse(b.memory.HandleRequest(b.pipe.InstructionRequest()))
	b.pipe.SetDataResponse(b.memory.HandleRequest(b.pipe.DataRequest()))
	if b.memory.Exited() {
		return true, nil
	}

	return false, b.pipe.Commit()
}

func (b *testBench) run() error {
	for i := 0; i < 1000; i++ {
		exited, err := b.step()
		if err != nil || exited {
			return err
		}
	}
	return errors.New("program did not exit")
}

func program(parts ...[]uint32) []uint32 {
	var words []uint32
	for _, p := range parts {
		words = append(words, p...)
	}
	return words
}

var _ = Describe("Pipeline", func() {
	It("should start with bubbles and fetch from the entry point", func() {
		b := newTestBench(addi(1, 0, 1))
		b.pipe = pipeline.NewPipeline(b.regFile, pipeline.WithEntry(0))

		b.pipe.Eval()
		b.pipe.SetInstructionResponse(b.memory.HandleRequest(b.pipe.InstructionRequest()))
		b.pipe.SetDataResponse(b.memory.HandleRequest(b.pipe.DataRequest()))

		snap := b.pipe.Snapshot()
		Expect(snap.InstructionRequest).To(Equal(emu.MemoryRequest{Op: insts.MemLW, Addr: 0}))
		Expect(snap.Fetched).To(Equal(addi(1, 0, 1)))
		Expect(snap.NextPC).To(Equal(uint32(4)))
		Expect(snap.Decode.Valid).To(BeFalse())
		Expect(snap.DataRequest).To(Equal(emu.MemoryRequest{}))

		Expect(b.pipe.Commit()).To(Succeed())
		Expect(b.pipe.PC()).To(Equal(uint32(4)))
	})

	It("should refuse to commit without eval", func() {
		b := newTestBench(nop())
		Expect(b.pipe.Commit()).NotTo(Succeed())
	})

	It("should forward results from both buffers", func() {
		b := newTestBench(program(
			[]uint32{
				addi(1, 0, 5),
				addi(2, 1, 3), // x1 from the execute buffer
				add(3, 1, 2),  // x1 from the memory buffer, x2 from the execute buffer
			},
			exitWith(3),
		)...)

		Expect(b.run()).To(Succeed())
		Expect(b.memory.ExitCode()).To(Equal(uint32(13)))
		Expect(b.pipe.Stats().DataHazards).To(BeNumerically(">=", 3))
		Expect(b.pipe.Stats().Stalls).To(BeZero())
	})

	It("should forward the value being written back into the register read", func() {
		b := newTestBench(program(
			[]uint32{addi(1, 0, 7), nop(), nop(), add(2, 1, 1)},
			exitWith(2),
		)...)

		Expect(b.run()).To(Succeed())
		Expect(b.memory.ExitCode()).To(Equal(uint32(14)))
	})

	It("should stall once on a load-use hazard", func() {
		b := newTestBench(program(
			[]uint32{
				addi(1, 0, 0x100),
				addi(2, 0, 42),
				sw(2, 1, 0),
				lw(3, 1, 0),
				addi(4, 3, 1),
			},
			exitWith(4),
		)...)

		Expect(b.run()).To(Succeed())
		Expect(b.memory.ExitCode()).To(Equal(uint32(43)))
		Expect(b.pipe.Stats().Stalls).To(Equal(uint64(1)))
	})

	It("should extract and extend narrow loads", func() {
		b := newTestBench(program(
			[]uint32{
				addi(1, 0, 0x100),
				addi(2, 0, -1),
				sb(2, 1, 1),
				lb(3, 1, 1),
				lbu(4, 1, 1),
				lw(5, 1, 0),
				nop(),
			},
			exitWith(4),
		)...)

		Expect(b.run()).To(Succeed())
		Expect(b.memory.ExitCode()).To(Equal(uint32(0xFF)))
		Expect(b.regFile.ReadReg(3)).To(Equal(uint32(0xFFFFFFFF)))
		Expect(b.regFile.ReadReg(5)).To(Equal(uint32(0xFF00)))
	})

	It("should resolve a loop of taken branches", func() {
		b := newTestBench(program(
			[]uint32{
				addi(1, 0, 5),
				addi(2, 0, 0),
				add(2, 2, 1),
				addi(1, 1, -1),
				bne(1, 0, -8),
			},
			exitWith(2),
		)...)

		Expect(b.run()).To(Succeed())
		Expect(b.memory.ExitCode()).To(Equal(uint32(15)))
		Expect(b.pipe.Stats().Flushes).To(Equal(uint64(4)))
	})

	It("should link and jump with JAL and JALR", func() {
		b := newTestBench(program(
			[]uint32{
				jal(1, 12),
				addi(10, 0, 1),
				addi(10, 0, 2),
				addi(5, 0, 29), // bit 0 of the JALR target is cleared
				jalr(6, 5, 0),
				addi(10, 0, 3),
				addi(10, 0, 4),
				add(7, 1, 6),
			},
			exitWith(7),
		)...)

		Expect(b.run()).To(Succeed())
		Expect(b.memory.ExitCode()).To(Equal(uint32(4 + 20)))
		Expect(b.regFile.ReadReg(10)).To(BeZero())
		Expect(b.pipe.Stats().Flushes).To(Equal(uint64(2)))
	})

	It("should print through the MMIO register", func() {
		b := newTestBench(program(
			[]uint32{
				insts.EncodeU(insts.OpcodeLUI, 30, emu.DefaultPrintAddr),
				addi(1, 0, 'H'),
				sw(1, 30, 4),
				addi(1, 0, 'i'),
				sw(1, 30, 4),
			},
			exitWith(0),
		)...)

		Expect(b.run()).To(Succeed())
		Expect(b.console.String()).To(Equal("Hi"))
	})

	It("should halt on an invalid instruction reaching execute", func() {
		b := newTestBench(
			addi(1, 0, 3),
			insts.EncodeR(insts.OpcodeIntegerReg, 3, 0, 1, 1, 1), // mul
			nop(),
		)

		err := b.run()
		Expect(errors.Is(err, pipeline.ErrInvalidInstruction)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("pc 0x4"))
		Expect(b.pipe.Halted()).To(BeTrue())
		Expect(b.pipe.Err()).To(MatchError(pipeline.ErrInvalidInstruction))

		b.pipe.Eval()
		Expect(b.pipe.Commit()).To(MatchError(pipeline.ErrInvalidInstruction))
	})

	Context("with overrides", func() {
		// multiply installs the overrides a software model of a custom
		// multiply would.
		multiply := func(p *pipeline.Pipeline) {
			if p.DecodeInvalid() {
				control := p.DecoderOutput()
				control.RegisterWB = true
				p.SetDecodeOverride(pipeline.DecodeOverride{
					Active:  true,
					UseRS:   [insts.NumReadPorts]bool{true, true, false},
					Control: control,
				})
			}
			if p.ExecuteInvalid() {
				ops := p.ExecutionContext().Resolve()
				data := p.ExecOutput()
				data.DataResult[0] = ops.RegData[0] * ops.RegData[1]
				p.SetExecuteOverride(pipeline.ExecuteOverride{Active: true, Data: data})
			}
		}

		It("should write back and forward an overridden result", func() {
			b := newTestBench(program(
				[]uint32{
					addi(1, 0, 6),
					addi(2, 0, 7),
					custom(5, 1, 2),
					addi(6, 5, 1),
				},
				exitWith(6),
			)...)
			b.onEval = multiply

			Expect(b.run()).To(Succeed())
			Expect(b.memory.ExitCode()).To(Equal(uint32(43)))
			Expect(b.pipe.Stats().DecodeOverrides).To(Equal(uint64(1)))
			Expect(b.pipe.Stats().ExecuteOverrides).To(Equal(uint64(1)))
		})

		It("should stall on ports enabled by a decode override", func() {
			b := newTestBench(program(
				[]uint32{
					addi(1, 0, 0x100),
					addi(2, 0, 9),
					sw(2, 1, 0),
					lw(3, 1, 0),
					custom(5, 2, 3),
				},
				exitWith(5),
			)...)
			b.onEval = multiply

			Expect(b.run()).To(Succeed())
			Expect(b.memory.ExitCode()).To(Equal(uint32(81)))
			Expect(b.pipe.Stats().Stalls).To(Equal(uint64(1)))
		})

		It("should not keep an override past its cycle", func() {
			b := newTestBench(custom(5, 1, 2), nop(), nop())
			b.onEval = multiply

			_, err := b.step()
			Expect(err).NotTo(HaveOccurred())
			_, err = b.step()
			Expect(err).NotTo(HaveOccurred())
			Expect(b.pipe.DecodeOverride().Active).To(BeFalse())

			b.pipe.Eval()
			Expect(b.pipe.DecodeOverride().Active).To(BeFalse())
			Expect(b.pipe.ExecuteOverride().Active).To(BeFalse())
		})
	})

	It("should freeze while a data response is not ready", func() {
		b := newTestBench(program(
			[]uint32{addi(1, 0, 0x100), sw(1, 1, 0)},
			exitWith(0),
		)...)

		for b.pipe.DataRequest().Op == insts.MemNOP {
			_, err := b.step()
			Expect(err).NotTo(HaveOccurred())
			b.pipe.Eval()
		}

		pc := b.pipe.PC()
		b.pipe.SetInstructionResponse(b.memory.HandleRequest(b.pipe.InstructionRequest()))
		b.pipe.SetDataResponse(emu.MemoryResponse{})
		Expect(b.pipe.Commit()).To(Succeed())

		Expect(b.pipe.PC()).To(Equal(pc))
		Expect(b.pipe.Stats().MemStalls).To(Equal(uint64(1)))
		Expect(b.run()).To(Succeed())
		Expect(b.memory.ReadWord(0x100)).To(Equal(uint32(0x100)))
	})
})
