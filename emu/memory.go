package emu

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/akita/v4/mem/mem"

	"github.com/sarchlab/rv32tb/insts"
	"github.com/sarchlab/rv32tb/log"
)

// Default MMIO register addresses.
const (
	DefaultExitAddr  uint32 = 0x80000000
	DefaultPrintAddr uint32 = 0x80000004
)

// storagePageSize is the granularity the backing storage is allocated in.
const storagePageSize = 4096

// MemoryRequest is a request issued by the core on one of its memory ports.
// The zero value is "no operation".
type MemoryRequest struct {
	Op   insts.MemOp
	Addr uint32
	Data uint32
}

// MemoryResponse answers a MemoryRequest.
type MemoryResponse struct {
	Data  uint32
	Ready bool
}

// Memory is the byte-addressable memory of the core together with its MMIO
// device. It serves one request at a time, synchronously.
//
// A word store to the exit address stops the program; a word store to the
// print address writes its low byte to the console.
type Memory struct {
	storage *mem.Storage
	size    uint32

	exitAddr  uint32
	printAddr uint32
	console   io.Writer

	exited   bool
	exitCode uint32
}

// MemoryOption configures a Memory.
type MemoryOption func(*Memory)

// WithMMIO sets the addresses of the exit and print registers.
func WithMMIO(exitAddr, printAddr uint32) MemoryOption {
	return func(m *Memory) {
		m.exitAddr = exitAddr
		m.printAddr = printAddr
	}
}

// WithConsole sets the writer that receives printed characters.
func WithConsole(w io.Writer) MemoryOption {
	return func(m *Memory) {
		m.console = w
	}
}

// NewMemory creates a zero-filled memory of size bytes.
func NewMemory(size uint32, opts ...MemoryOption) *Memory {
	m := &Memory{
		size:      size,
		exitAddr:  DefaultExitAddr,
		printAddr: DefaultPrintAddr,
		console:   os.Stdout,
	}

	for _, opt := range opts {
		opt(m)
	}

	// Unaligned stores near the end and the aligned word read of the last
	// bytes may touch up to three bytes past size.
	capacity := (uint64(size) + 4 + storagePageSize - 1) /
		storagePageSize * storagePageSize
	m.storage = mem.NewStorage(capacity)

	return m
}

// Size returns the addressable size in bytes.
func (m *Memory) Size() uint32 {
	return m.size
}

// Exited reports whether the program stored to the exit register.
func (m *Memory) Exited() bool {
	return m.exited
}

// ExitCode returns the value stored to the exit register.
func (m *Memory) ExitCode() uint32 {
	return m.exitCode
}

// Load copies data into memory starting at offset.
func (m *Memory) Load(offset uint32, data []byte) {
	if uint64(offset)+uint64(len(data)) > uint64(m.size) {
		panic(fmt.Sprintf(
			"program image of %d bytes at 0x%x exceeds memory of %d bytes",
			len(data), offset, m.size))
	}

	m.write(offset, data)
}

// ReadWord returns the little-endian word at addr &^ 3.
func (m *Memory) ReadWord(addr uint32) uint32 {
	if addr >= m.size {
		panic(fmt.Sprintf("memory read at 0x%x out of range (size 0x%x)",
			addr, m.size))
	}

	return m.readAligned(addr)
}

// HandleRequest serves one request and returns the response for the same
// cycle.
func (m *Memory) HandleRequest(req MemoryRequest) MemoryResponse {
	resp := MemoryResponse{Ready: true}

	if req.Op == insts.MemNOP {
		return resp
	}

	if m.exited {
		panic(fmt.Sprintf("memory request %v at 0x%x after program exit",
			req.Op, req.Addr))
	}

	if req.Op == insts.MemSW {
		switch req.Addr {
		case m.exitAddr:
			m.exited = true
			m.exitCode = req.Data
			log.Memory.Info().Uint32("status", req.Data).Msg("program exit")
			return resp
		case m.printAddr:
			_, _ = m.console.Write([]byte{byte(req.Data)})
			return resp
		}
	}

	if req.Addr >= m.size {
		panic(fmt.Sprintf("memory access %v at 0x%x out of range (size 0x%x)",
			req.Op, req.Addr, m.size))
	}

	if width := StoreWidth(req.Op); width > 0 {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], req.Data)
		m.write(req.Addr, buf[:width])
		return resp
	}

	resp.Data = m.readAligned(req.Addr)
	return resp
}

func (m *Memory) readAligned(addr uint32) uint32 {
	data, err := m.storage.Read(uint64(addr&^3), 4)
	if err != nil {
		panic(err)
	}

	return binary.LittleEndian.Uint32(data)
}

func (m *Memory) write(addr uint32, data []byte) {
	if len(data) == 0 {
		return
	}

	if err := m.storage.Write(uint64(addr), data); err != nil {
		panic(err)
	}
}
