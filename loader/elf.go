// Package loader provides ELF binary loading for RV32 bare-metal programs.
package loader

import (
	"debug/elf"
	"errors"
	"fmt"
	"io"
)

// PT_RISCV_ATTRIBUTES marks the segment the RISC-V toolchain emits for the
// build attributes. It is not loaded.
const PT_RISCV_ATTRIBUTES = elf.ProgType(0x70000003)

// ErrNoLoadableSegment is returned when the program headers hold nothing to
// load.
var ErrNoLoadableSegment = errors.New("no loadable segment")

// ErrNotZeroBased is returned when the loadable segment is linked at a
// non-zero address. The image is always placed at offset 0 of the memory
// model, so the program must be linked there.
var ErrNotZeroBased = errors.New("segment not linked at address 0")

// Program represents a loaded ELF program ready for execution.
type Program struct {
	// Entry is the address where execution should begin.
	Entry uint32
	// Image holds the segment contents, zero-filled up to MemSize.
	Image []byte
	// MemSize is the size of the segment in memory. It sizes the memory
	// model.
	MemSize uint32
}

// Load parses a RISC-V ELF32 binary and returns its first loadable segment.
// A leading attributes segment is skipped; the first remaining program header
// must be PT_LOAD.
func Load(path string) (*Program, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if f.Class != elf.ELFCLASS32 {
		return nil, fmt.Errorf("not a 32-bit ELF file")
	}

	if f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("not a RISC-V ELF file (machine type: %v)", f.Machine)
	}

	phdr, err := firstSegment(f.Progs)
	if err != nil {
		return nil, err
	}

	if phdr.Vaddr != 0 {
		return nil, fmt.Errorf("%w: linked at 0x%x", ErrNotZeroBased, phdr.Vaddr)
	}

	if phdr.Filesz > phdr.Memsz {
		return nil, fmt.Errorf("segment at 0x%x has file size %d larger than memory size %d",
			phdr.Vaddr, phdr.Filesz, phdr.Memsz)
	}

	// Bytes past Filesz stay zero: that is the BSS.
	image := make([]byte, phdr.Memsz)
	if phdr.Filesz > 0 {
		n, err := phdr.ReadAt(image[:phdr.Filesz], 0)
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to read segment at 0x%x: %w", phdr.Vaddr, err)
		}
		if uint64(n) != phdr.Filesz {
			return nil, fmt.Errorf("short read for segment at 0x%x: got %d bytes, expected %d",
				phdr.Vaddr, n, phdr.Filesz)
		}
	}

	return &Program{
		Entry:   uint32(f.Entry),
		Image:   image,
		MemSize: uint32(phdr.Memsz),
	}, nil
}

func firstSegment(progs []*elf.Prog) (*elf.Prog, error) {
	for _, phdr := range progs {
		if phdr.Type == PT_RISCV_ATTRIBUTES {
			continue
		}
		if phdr.Type != elf.PT_LOAD {
			return nil, fmt.Errorf("first segment is %v, not PT_LOAD", phdr.Type)
		}
		return phdr, nil
	}
	return nil, ErrNoLoadableSegment
}
