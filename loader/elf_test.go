package loader_test

import (
	"debug/elf"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32tb/loader"
)

const (
	emRISCV = 243
	em386   = 3
)

type segment struct {
	typ   uint32
	flags uint32
	vaddr uint32
	data  []byte
	memsz uint32
}

var _ = Describe("ELF Loader", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "elf-loader-test")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	code := []byte{
		0x93, 0x00, 0x50, 0x00, // addi x1, x0, 5
		0x6f, 0x00, 0x00, 0x00, // jal x0, 0
	}

	Describe("Load", func() {
		Context("with a valid RV32 ELF binary", func() {
			var elfPath string

			BeforeEach(func() {
				elfPath = filepath.Join(tempDir, "test.elf")
				createRV32ELF(elfPath, 0, []segment{
					attributes(),
					{typ: 1, flags: 0x7, vaddr: 0, data: code, memsz: 0x100},
				})
			})

			It("should load without error", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog).NotTo(BeNil())
			})

			It("should extract the entry point", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Entry).To(BeZero())
			})

			It("should skip the attributes segment", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Image[:len(code)]).To(Equal(code))
			})

			It("should size the image by the memory size", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.MemSize).To(Equal(uint32(0x100)))
				Expect(prog.Image).To(HaveLen(0x100))
			})

			It("should zero-fill the BSS", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Image[len(code):]).To(Equal(make([]byte, 0x100-len(code))))
			})
		})

		It("should load a segment without an attributes header", func() {
			elfPath := filepath.Join(tempDir, "plain.elf")
			createRV32ELF(elfPath, 0x10, []segment{
				{typ: 1, flags: 0x5, data: code, memsz: uint32(len(code))},
			})

			prog, err := loader.Load(elfPath)

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Entry).To(Equal(uint32(0x10)))
			Expect(prog.Image).To(Equal(code))
		})

		It("should reject a segment linked away from address 0", func() {
			elfPath := filepath.Join(tempDir, "linked.elf")
			createRV32ELF(elfPath, 0x10000, []segment{
				attributes(),
				{typ: 1, flags: 0x5, vaddr: 0x10000, data: code, memsz: uint32(len(code))},
			})

			_, err := loader.Load(elfPath)

			Expect(errors.Is(err, loader.ErrNotZeroBased)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("0x10000"))
		})

		It("should load only the first loadable segment", func() {
			elfPath := filepath.Join(tempDir, "multi.elf")
			createRV32ELF(elfPath, 0, []segment{
				attributes(),
				{typ: 1, flags: 0x5, data: code, memsz: uint32(len(code))},
				{typ: 1, flags: 0x6, vaddr: 0x1000, data: []byte{1, 2, 3, 4}, memsz: 4},
			})

			prog, err := loader.Load(elfPath)

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Image).To(Equal(code))
		})

		It("should handle a segment with no file data", func() {
			elfPath := filepath.Join(tempDir, "bss.elf")
			createRV32ELF(elfPath, 0, []segment{
				{typ: 1, flags: 0x6, memsz: 64},
			})

			prog, err := loader.Load(elfPath)

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Image).To(Equal(make([]byte, 64)))
		})

		Context("with an invalid file", func() {
			It("should return error for non-existent file", func() {
				_, err := loader.Load("/nonexistent/path/to/file.elf")
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("failed to open"))
			})

			It("should return error for non-ELF file", func() {
				notElfPath := filepath.Join(tempDir, "not-elf.bin")
				err := os.WriteFile(notElfPath, []byte("not an elf file"), 0644)
				Expect(err).NotTo(HaveOccurred())

				_, err = loader.Load(notElfPath)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("ELF"))
			})

			It("should return error for empty file", func() {
				emptyPath := filepath.Join(tempDir, "empty.elf")
				err := os.WriteFile(emptyPath, []byte{}, 0644)
				Expect(err).NotTo(HaveOccurred())

				_, err = loader.Load(emptyPath)
				Expect(err).To(HaveOccurred())
			})
		})

		It("should reject a 64-bit ELF", func() {
			elfPath := filepath.Join(tempDir, "elf64.elf")
			createMinimal64BitELF(elfPath)

			_, err := loader.Load(elfPath)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("not a 32-bit"))
		})

		It("should reject another machine", func() {
			elfPath := filepath.Join(tempDir, "x86.elf")
			writeELF32(elfPath, em386, 0, []segment{
				{typ: 1, flags: 0x5, data: code, memsz: uint32(len(code))},
			})

			_, err := loader.Load(elfPath)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("not a RISC-V"))
		})

		It("should reject a first segment that is not loadable", func() {
			elfPath := filepath.Join(tempDir, "note.elf")
			createRV32ELF(elfPath, 0, []segment{
				attributes(),
				{typ: uint32(elf.PT_NOTE), flags: 0x4, data: []byte{0, 0, 0, 0}, memsz: 4},
				{typ: 1, flags: 0x5, data: code, memsz: uint32(len(code))},
			})

			_, err := loader.Load(elfPath)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("not PT_LOAD"))
		})

		It("should reject a binary with no segments", func() {
			elfPath := filepath.Join(tempDir, "empty-phdrs.elf")
			createRV32ELF(elfPath, 0, []segment{attributes()})

			_, err := loader.Load(elfPath)
			Expect(errors.Is(err, loader.ErrNoLoadableSegment)).To(BeTrue())
		})
	})
})

func attributes() segment {
	return segment{typ: 0x70000003, flags: 0x4, data: []byte{'A', 0x1c, 0, 0}}
}

func createRV32ELF(path string, entry uint32, segs []segment) {
	writeELF32(path, emRISCV, entry, segs)
}

// writeELF32 writes a little-endian ELF32 executable with the given program
// headers, followed by the segment contents in order.
func writeELF32(path string, machine uint16, entry uint32, segs []segment) {
	const ehsize, phentsize = 52, 32

	elfHeader := make([]byte, ehsize)
	copy(elfHeader[0:4], []byte{0x7f, 'E', 'L', 'F'})

	elfHeader[4] = 1                                                   // 32-bit
	elfHeader[5] = 1                                                   // little endian
	elfHeader[6] = 1                                                   // version
	binary.LittleEndian.PutUint16(elfHeader[16:18], 2)                 // executable
	binary.LittleEndian.PutUint16(elfHeader[18:20], machine)           // machine
	binary.LittleEndian.PutUint32(elfHeader[20:24], 1)                 // version
	binary.LittleEndian.PutUint32(elfHeader[24:28], entry)             // entry
	binary.LittleEndian.PutUint32(elfHeader[28:32], ehsize)            // phoff
	binary.LittleEndian.PutUint16(elfHeader[40:42], ehsize)            // ehsize
	binary.LittleEndian.PutUint16(elfHeader[42:44], phentsize)         // phentsize
	binary.LittleEndian.PutUint16(elfHeader[44:46], uint16(len(segs))) // phnum

	offset := uint32(ehsize + phentsize*len(segs))
	var progHeaders, contents []byte
	for _, s := range segs {
		ph := make([]byte, phentsize)
		binary.LittleEndian.PutUint32(ph[0:4], s.typ)
		binary.LittleEndian.PutUint32(ph[4:8], offset)
		binary.LittleEndian.PutUint32(ph[8:12], s.vaddr)
		binary.LittleEndian.PutUint32(ph[12:16], s.vaddr)
		binary.LittleEndian.PutUint32(ph[16:20], uint32(len(s.data)))
		binary.LittleEndian.PutUint32(ph[20:24], s.memsz)
		binary.LittleEndian.PutUint32(ph[24:28], s.flags)
		binary.LittleEndian.PutUint32(ph[28:32], 4)

		progHeaders = append(progHeaders, ph...)
		contents = append(contents, s.data...)
		offset += uint32(len(s.data))
	}

	file, _ := os.Create(path)
	defer func() { _ = file.Close() }()
	_, _ = file.Write(elfHeader)
	_, _ = file.Write(progHeaders)
	_, _ = file.Write(contents)
}

// createMinimal64BitELF creates a minimal 64-bit ELF to test rejection.
func createMinimal64BitELF(path string) {
	elfHeader := make([]byte, 64)

	copy(elfHeader[0:4], []byte{0x7f, 'E', 'L', 'F'})
	elfHeader[4] = 2                                         // 64-bit
	elfHeader[5] = 1                                         // little endian
	elfHeader[6] = 1                                         // version
	binary.LittleEndian.PutUint16(elfHeader[16:18], 2)       // executable
	binary.LittleEndian.PutUint16(elfHeader[18:20], emRISCV) // RISC-V
	binary.LittleEndian.PutUint32(elfHeader[20:24], 1)       // version
	binary.LittleEndian.PutUint64(elfHeader[32:40], 64)      // phoff
	binary.LittleEndian.PutUint16(elfHeader[52:54], 64)      // ehsize
	binary.LittleEndian.PutUint16(elfHeader[54:56], 56)      // phentsize

	file, _ := os.Create(path)
	defer func() { _ = file.Close() }()
	_, _ = file.Write(elfHeader)
}
