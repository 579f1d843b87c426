package core_test

import (
	"bytes"
	"encoding/binary"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/rv32tb/cosim"
	"github.com/sarchlab/rv32tb/emu"
	"github.com/sarchlab/rv32tb/insts"
	"github.com/sarchlab/rv32tb/timing/core"
	"github.com/sarchlab/rv32tb/timing/pipeline"
	"github.com/sarchlab/rv32tb/trace"
)

func addi(rd, rs1 uint8, imm int32) uint32 {
	return insts.EncodeI(insts.OpcodeIntegerImm, rd, 0b000, rs1, imm)
}

func sw(rs2, rs1 uint8, imm int32) uint32 {
	return insts.EncodeS(insts.OpcodeStore, 0b010, rs1, rs2, imm)
}

func fxmadd(rd, rs1, rs2, rs3, funct3 uint8) uint32 {
	return insts.EncodeR4(insts.OpcodeCustom1, rd, funct3, rs1, rs2, rs3, 0)
}

func mul(rd, rs1, rs2 uint8) uint32 {
	return insts.EncodeR(insts.OpcodeIntegerReg, rd, 0b000, rs1, rs2, 1)
}

func exitWith(reg uint8) []uint32 {
	return []uint32{
		insts.EncodeU(insts.OpcodeLUI, 31, emu.DefaultExitAddr),
		sw(reg, 31, 0),
		insts.EncodeJ(0, 0),
	}
}

func image(parts ...[]uint32) []byte {
	var words []uint32
	for _, p := range parts {
		words = append(words, p...)
	}

	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[4*i:], w)
	}
	return buf
}

var _ = Describe("Core", func() {
	var (
		regFile *emu.RegFile
		memory  *emu.Memory
		console *bytes.Buffer
	)

	BeforeEach(func() {
		regFile = &emu.RegFile{}
		console = &bytes.Buffer{}
		memory = emu.NewMemory(0x1000, emu.WithConsole(console))
	})

	newCore := func(opts ...core.Option) *core.Core {
		return core.NewCore(pipeline.NewPipeline(regFile), memory, opts...)
	}

	It("should not be halted initially", func() {
		c := newCore()

		Expect(c.Halted()).To(BeFalse())
		Expect(c.Exited()).To(BeFalse())
		Expect(c.Err()).NotTo(HaveOccurred())
	})

	It("should run until the program exits", func() {
		memory.Load(0, image([]uint32{addi(1, 0, 42)}, exitWith(1)))
		c := newCore()

		Expect(c.Run()).To(Succeed())

		Expect(c.Halted()).To(BeTrue())
		Expect(c.Exited()).To(BeTrue())
		Expect(c.ExitCode()).To(Equal(uint32(42)))
		Expect(regFile.ReadReg(1)).To(Equal(uint32(42)))
	})

	It("should stop in the cycle of the exit store", func() {
		memory.Load(0, image([]uint32{addi(1, 0, 7)}, exitWith(1)))
		c := newCore()

		Expect(c.Run()).To(Succeed())

		// The exit store is the third instruction and reaches memory in
		// cycle 6. The lui after the add never writes back.
		stats := c.Stats()
		Expect(stats.Cycles).To(Equal(uint64(6)))
		Expect(stats.Instructions).To(Equal(uint64(1)))
		Expect(regFile.ReadReg(31)).To(BeZero())
	})

	It("should report simulated time at the configured clock", func() {
		memory.Load(0, image([]uint32{addi(1, 0, 7)}, exitWith(1)))

		c := newCore()
		Expect(c.Run()).To(Succeed())
		Expect(c.Stats().SimulatedTime.Nanoseconds()).To(Equal(int64(60)))

		memory = emu.NewMemory(0x1000)
		memory.Load(0, image([]uint32{addi(1, 0, 7)}, exitWith(1)))
		regFile.Reset()

		c = newCore(core.WithFrequency(1 * sim.GHz))
		Expect(c.Run()).To(Succeed())
		Expect(c.Stats().SimulatedTime.Nanoseconds()).To(Equal(int64(6)))
	})

	It("should tick one cycle at a time", func() {
		memory.Load(0, image([]uint32{addi(1, 0, 42)}, exitWith(1)))
		c := newCore()

		Expect(c.Tick()).To(Succeed())
		Expect(c.Tick()).To(Succeed())

		Expect(c.Stats().Cycles).To(Equal(uint64(2)))
		Expect(c.Halted()).To(BeFalse())
	})

	It("should run a bounded number of cycles", func() {
		memory.Load(0, image([]uint32{addi(1, 0, 42)}, exitWith(1)))
		c := newCore()

		Expect(c.RunCycles(3)).To(BeTrue())
		Expect(c.RunCycles(100)).To(BeFalse())
		Expect(c.Stats().Cycles).To(Equal(uint64(6)))
	})

	It("should fail when the cycle limit is reached", func() {
		memory.Load(0, image([]uint32{insts.EncodeJ(0, 0)}))
		c := newCore(core.WithMaxCycles(50))

		err := c.Run()

		Expect(errors.Is(err, core.ErrCycleLimit)).To(BeTrue())
		Expect(c.Halted()).To(BeTrue())
		Expect(c.Exited()).To(BeFalse())
		Expect(c.Stats().Cycles).To(Equal(uint64(50)))
	})

	It("should print through the console register", func() {
		memory.Load(0, image([]uint32{
			insts.EncodeU(insts.OpcodeLUI, 30, emu.DefaultPrintAddr),
			addi(1, 0, 'o'),
			addi(2, 0, 'k'),
			sw(1, 30, 4),
			sw(2, 30, 4),
			addi(3, 0, 0),
		}, exitWith(3)))
		c := newCore()

		Expect(c.Run()).To(Succeed())
		Expect(console.String()).To(Equal("ok"))
		Expect(c.ExitCode()).To(BeZero())
	})

	Context("with co-simulation", func() {
		program := func() []byte {
			return image([]uint32{
				addi(1, 0, 6),
				addi(2, 0, 7),
				addi(3, 0, 1),
				fxmadd(4, 1, 2, 3, 0),
			}, exitWith(4))
		}

		It("should fault on an instruction the decoder does not implement", func() {
			memory.Load(0, program())
			c := newCore()

			err := c.Run()

			Expect(errors.Is(err, pipeline.ErrInvalidInstruction)).To(BeTrue())
			Expect(c.Err()).To(MatchError(err))
			Expect(c.Halted()).To(BeTrue())
			Expect(c.Exited()).To(BeFalse())
			Expect(c.Tick()).To(MatchError(err))
		})

		It("should execute a custom instruction through a model", func() {
			memory.Load(0, program())
			c := newCore(core.WithRegistry(cosim.DefaultRegistry()))

			Expect(c.Run()).To(Succeed())

			// (6*7)>>1 + 1
			Expect(c.ExitCode()).To(Equal(uint32(22)))
			stats := c.Stats()
			Expect(stats.DecodeSimulations).To(Equal(uint64(1)))
			Expect(stats.ExecuteSimulations).To(Equal(uint64(1)))
		})

		It("should execute the M extension through a model", func() {
			memory.Load(0, image([]uint32{
				addi(1, 0, -6),
				addi(2, 0, 7),
				mul(3, 1, 2),
				addi(3, 3, 50),
			}, exitWith(3)))
			c := newCore(core.WithRegistry(cosim.DefaultRegistry()))

			Expect(c.Run()).To(Succeed())
			Expect(c.ExitCode()).To(Equal(uint32(8)))
		})
	})

	It("should trace every cycle", func() {
		memory.Load(0, image([]uint32{addi(1, 0, 42)}, exitWith(1)))
		out := &bytes.Buffer{}
		tracer := trace.NewTracer(out)
		c := newCore(core.WithTracer(tracer))

		Expect(c.Run()).To(Succeed())

		Expect(tracer.Cycles()).To(Equal(c.Stats().Cycles))
		Expect(out.String()).To(ContainSubstring("INT IMM"))
		Expect(out.String()).To(ContainSubstring("SW [0x80000000] <- 0x2a"))

		first, err := trace.Parse(out.String())
		Expect(err).NotTo(HaveOccurred())
		Expect(first.Get(trace.StageFetch, 0)).To(Equal(trace.AddressLine(0, addi(1, 0, 42))))
	})
})
