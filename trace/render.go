package trace

import (
	"io"

	"github.com/sarchlab/rv32tb/timing/pipeline"
)

// Render lays out one cycle of the pipeline.
func Render(snap pipeline.Snapshot) *Canvas {
	c := NewCanvas(NumStages, NumLines)

	c.Set(StageFetch, 0, AddressLine(snap.InstructionRequest.Addr, snap.Fetched))
	c.Set(StageFetch, 1, NextPCLine(snap.NextPC))

	dec := snap.Decode
	c.Set(StageDecode, 0, AddressLine(dec.PC, dec.Instr.Word()))
	c.Set(StageDecode, 1, OpcodeLine(dec.Instr))
	c.Set(StageDecode, 2, UsesLine(dec.Instr, snap.UseRS))
	c.Set(StageDecode, 3, BypassLine(dec.Instr, dec.Decoded, snap.UseRS))

	ex := snap.Execute
	c.Set(StageExecute, 0, AddressLine(ex.PC, ex.Instr.Word()))
	c.Set(StageExecute, 1, WBSourceLine(ex.Instr, ex.Decoded))
	c.Set(StageExecute, 2, ALULine(ex.Instr, ex.Decoded))
	c.Set(StageExecute, 3, BranchLine(ex.Decoded))

	mem := snap.Memory
	c.Set(StageMemory, 0, AddressLine(mem.PC, mem.Instr.Word()))
	c.Set(StageMemory, 1, WBSourceLine(mem.Instr, mem.Decoded))
	c.Set(StageMemory, 2, MemoryLine(snap.DataRequest))

	wb := snap.Writeback
	c.Set(StageWriteback, 0, AddressLine(wb.PC, wb.Instr.Word()))
	c.Set(StageWriteback, 1, WriteLine(wb.Instr, wb.Decoded, wb.WBResult))

	return c
}

// Tracer writes one rendered canvas per cycle.
type Tracer struct {
	w      io.Writer
	cycles uint64
}

// NewTracer creates a tracer writing to w.
func NewTracer(w io.Writer) *Tracer {
	return &Tracer{w: w}
}

// Trace renders snap and writes it.
func (t *Tracer) Trace(snap pipeline.Snapshot) error {
	if _, err := Render(snap).WriteTo(t.w); err != nil {
		return err
	}
	t.cycles++
	return nil
}

// Cycles returns the number of cycles written.
func (t *Tracer) Cycles() uint64 {
	return t.cycles
}
