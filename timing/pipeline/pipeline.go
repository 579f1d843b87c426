package pipeline

import (
	"errors"
	"fmt"

	"github.com/sarchlab/rv32tb/emu"
	"github.com/sarchlab/rv32tb/insts"
)

// ErrInvalidInstruction is returned when an instruction the decoder does not
// implement reaches the execute stage and nothing supplied its result.
var ErrInvalidInstruction = errors.New("invalid instruction")

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions completed (retired).
	Instructions uint64
	// Stalls is the number of load-use stall cycles.
	Stalls uint64
	// Flushes is the number of pipeline flushes due to taken branches.
	Flushes uint64
	// MemStalls is the number of cycles lost to data responses that were not
	// ready.
	MemStalls uint64
	// DataHazards is the number of instructions that read at least one
	// operand through a bypass.
	DataHazards uint64
	// DecodeOverrides is the number of cycles a simulated decode replaced the
	// decoder outputs.
	DecodeOverrides uint64
	// ExecuteOverrides is the number of cycles a simulated execute replaced
	// the execute stage output.
	ExecuteOverrides uint64
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// Snapshot is the per-cycle view of every stage, taken after the memory
// responses are known.
type Snapshot struct {
	InstructionRequest emu.MemoryRequest
	// Fetched is the instruction word returned for InstructionRequest.
	Fetched uint32
	// NextPC is the address the fetch stage requests next cycle.
	NextPC uint32

	// Decode is the decode stage output, with any decode override applied.
	Decode DecodeStageData
	UseRS  [insts.NumReadPorts]bool

	// Execute is the instruction in the execute stage.
	Execute DecodeStageData

	// Memory is the instruction in the memory stage and DataRequest the
	// request it issued.
	Memory      ExecutionStageData
	DataRequest emu.MemoryRequest

	Writeback WritebackStageData
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithEntry sets the address of the first fetch.
func WithEntry(pc uint32) PipelineOption {
	return func(p *Pipeline) {
		p.pc = pc
	}
}

// Pipeline is a behavioral model of an in-order 5-stage RV32I core. It
// predicts branches not taken and resolves them in the execute stage.
//
// Each clock cycle is split in two. Eval computes every combinational output
// from the current stage buffers and exposes the memory requests. The caller
// then answers the requests, may install decode and execute overrides, and
// calls Commit to latch the next state. The pipeline never accesses memory
// itself.
type Pipeline struct {
	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	memoryStage    *MemoryStage
	writebackStage *WritebackStage
	hazardUnit     *HazardUnit

	regFile *emu.RegFile

	pc    uint32
	ifid  FetchStageData
	idex  DecodeStageData
	exmem ExecutionStageData
	memwb MemoryStageData

	// Outputs of the current cycle, valid between Eval and Commit.
	evaluated bool
	decodeOut DecodeStageData
	useRS     [insts.NumReadPorts]bool
	execOut   ExecutionStageData
	instrReq  emu.MemoryRequest
	dataReq   emu.MemoryRequest
	instrResp emu.MemoryResponse
	dataResp  emu.MemoryResponse

	decodeOverride  DecodeOverride
	executeOverride ExecuteOverride

	stats Statistics

	halted bool
	err    error
}

// NewPipeline creates a new 5-stage pipeline with every stage holding a
// bubble.
func NewPipeline(regFile *emu.RegFile, opts ...PipelineOption) *Pipeline {
	hazardUnit := NewHazardUnit()
	p := &Pipeline{
		fetchStage:     NewFetchStage(),
		decodeStage:    NewDecodeStage(regFile, hazardUnit),
		executeStage:   NewExecuteStage(),
		memoryStage:    NewMemoryStage(),
		writebackStage: NewWritebackStage(regFile),
		hazardUnit:     hazardUnit,
		regFile:        regFile,
	}
	p.clearBuffers()

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// PC returns the address of the next fetch.
func (p *Pipeline) PC() uint32 {
	return p.pc
}

// SetPC sets the program counter.
func (p *Pipeline) SetPC(pc uint32) {
	p.pc = pc
}

// RegFile returns the architectural register file.
func (p *Pipeline) RegFile() *emu.RegFile {
	return p.regFile
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	return p.stats
}

// Halted returns true if the pipeline has halted.
func (p *Pipeline) Halted() bool {
	return p.halted
}

// Err returns the fault that halted the pipeline, if any.
func (p *Pipeline) Err() error {
	return p.err
}

// Reset clears all pipeline state. The register file is left untouched.
func (p *Pipeline) Reset() {
	p.clearBuffers()
	p.pc = 0
	p.stats = Statistics{}
	p.halted = false
	p.err = nil
}

func (p *Pipeline) clearBuffers() {
	p.ifid = fetchBubble()
	p.idex = decodeBubble()
	p.exmem = executionBubble()
	p.memwb = memoryBubble()
	p.clearCycle()
}

func (p *Pipeline) clearCycle() {
	p.evaluated = false
	p.decodeOut = decodeBubble()
	p.useRS = [insts.NumReadPorts]bool{}
	p.execOut = executionBubble()
	p.instrReq = emu.MemoryRequest{}
	p.dataReq = emu.MemoryRequest{}
	p.instrResp = emu.MemoryResponse{}
	p.dataResp = emu.MemoryResponse{}
	p.decodeOverride = DecodeOverride{}
	p.executeOverride = ExecuteOverride{}
}

// Eval computes the outputs of every stage for the current cycle.
func (p *Pipeline) Eval() {
	if p.halted {
		return
	}

	p.clearCycle()

	p.instrReq = p.fetchStage.Request(p.pc)
	p.decodeOut, p.useRS = p.decodeStage.Decode(&p.ifid, &p.idex, &p.exmem, &p.memwb)
	p.execOut = p.executeStage.Execute(p.ExecutionContext())
	p.dataReq = p.memoryStage.Request(&p.exmem)

	p.evaluated = true
}

// Commit latches the next state of every stage buffer. It must follow Eval
// and the answers to both memory requests. It returns a wrapped
// ErrInvalidInstruction when an unimplemented instruction reaches execute
// without an execute override; the pipeline is halted from then on.
func (p *Pipeline) Commit() error {
	if p.halted {
		return p.err
	}
	if !p.evaluated {
		return errors.New("pipeline: commit without eval")
	}

	defer p.clearCycle()

	p.stats.Cycles++

	if p.dataReq.Op != insts.MemNOP && !p.dataResp.Ready {
		p.stats.MemStalls++
		return nil
	}

	if p.decodeOverride.Active {
		p.stats.DecodeOverrides++
	}
	if p.executeOverride.Active {
		p.stats.ExecuteOverrides++
	}

	if p.writebackStage.Writeback(&p.memwb) {
		p.stats.Instructions++
	}
	p.memwb = p.memoryStage.Complete(&p.exmem, p.dataResp)

	if p.idex.Valid && p.idex.Decoded.Invalid && !p.executeOverride.Active {
		p.halted = true
		p.err = fmt.Errorf("%w 0x%08x at pc 0x%x",
			ErrInvalidInstruction, p.idex.Instr.Word(), p.idex.PC)
		return p.err
	}

	flush, stall, nextPC := p.resolveControl()
	dec, useRS := p.effectiveDecode()

	switch {
	case flush:
		p.ifid = fetchBubble()
		p.idex = decodeBubble()
		p.stats.Flushes++
	case stall:
		p.idex = decodeBubble()
		p.stats.Stalls++
	default:
		if dec.Valid && usesBypass(&dec, useRS) {
			p.stats.DataHazards++
		}
		p.idex = dec
		p.ifid = p.fetchStage.Complete(p.pc, p.instrResp)
	}

	p.exmem = p.effectiveExec()
	p.pc = nextPC

	return nil
}

// resolveControl decides how the front of the pipeline moves this cycle. A
// taken branch flushes the two younger instructions; otherwise a load-use
// hazard holds the decode and fetch stages.
func (p *Pipeline) resolveControl() (flush, stall bool, nextPC uint32) {
	exec := p.effectiveExec()
	if exec.BranchTaken {
		return true, false, exec.BranchTarget
	}

	dec, useRS := p.effectiveDecode()
	if dec.Valid && p.hazardUnit.DetectLoadUseHazard(&p.idex, dec.Instr, useRS) {
		return false, true, p.pc
	}

	if !p.instrResp.Ready {
		return false, false, p.pc
	}

	return false, false, p.pc + 4
}

func (p *Pipeline) effectiveDecode() (DecodeStageData, [insts.NumReadPorts]bool) {
	dec := p.decodeOut
	useRS := p.useRS
	if p.decodeOverride.Active {
		dec.Decoded = p.decodeOverride.Control
		useRS = p.decodeOverride.UseRS
	}
	return dec, useRS
}

func (p *Pipeline) effectiveExec() ExecutionStageData {
	if p.executeOverride.Active {
		return p.executeOverride.Data
	}
	return p.execOut
}

func usesBypass(dec *DecodeStageData, useRS [insts.NumReadPorts]bool) bool {
	for i, used := range useRS {
		if used && dec.Decoded.Bypass[i] != insts.NoBypass {
			return true
		}
	}
	return false
}

// InstructionRequest returns the fetch request of the current cycle.
func (p *Pipeline) InstructionRequest() emu.MemoryRequest {
	return p.instrReq
}

// SetInstructionResponse answers the fetch request.
func (p *Pipeline) SetInstructionResponse(resp emu.MemoryResponse) {
	p.instrResp = resp
}

// DataRequest returns the memory stage request of the current cycle.
func (p *Pipeline) DataRequest() emu.MemoryRequest {
	return p.dataReq
}

// SetDataResponse answers the memory stage request.
func (p *Pipeline) SetDataResponse(resp emu.MemoryResponse) {
	p.dataResp = resp
}

// DecoderInput returns the instruction in the decode stage.
func (p *Pipeline) DecoderInput() insts.Instruction {
	return p.ifid.Instr
}

// DecoderOutput returns the control bundle produced by the hardware decoder,
// before any override.
func (p *Pipeline) DecoderOutput() insts.DecodedInstruction {
	return p.decodeOut.Decoded
}

// DecoderUseRS returns the read ports the hardware decoder marked as used.
func (p *Pipeline) DecoderUseRS() [insts.NumReadPorts]bool {
	return p.useRS
}

// DecodeInvalid reports whether the hardware decoder flagged the instruction
// in the decode stage.
func (p *Pipeline) DecodeInvalid() bool {
	return p.decodeOut.Decoded.Invalid
}

// SetDecodeOverride installs or, with a zero value, clears the decode
// override of the current cycle.
func (p *Pipeline) SetDecodeOverride(o DecodeOverride) {
	p.decodeOverride = o
}

// DecodeOverride returns the decode override of the current cycle.
func (p *Pipeline) DecodeOverride() DecodeOverride {
	return p.decodeOverride
}

// ExecInput returns the instruction in the execute stage.
func (p *Pipeline) ExecInput() DecodeStageData {
	return p.idex
}

// ExecOutput returns the hardware execute stage output, before any override.
func (p *Pipeline) ExecOutput() ExecutionStageData {
	return p.execOut
}

// ExecuteInvalid reports whether the instruction in the execute stage was
// flagged invalid at decode.
func (p *Pipeline) ExecuteInvalid() bool {
	return p.idex.Decoded.Invalid
}

// ExecutionContext returns the operand sources of the execute stage. The
// buffers are copies; the context stays valid after Commit.
func (p *Pipeline) ExecutionContext() ExecutionContext {
	return ExecutionContext{
		Input:      p.idex,
		ExecBuffer: p.exmem,
		MemBuffer:  p.memwb,
	}
}

// SetExecuteOverride installs or, with a zero value, clears the execute
// override of the current cycle.
func (p *Pipeline) SetExecuteOverride(o ExecuteOverride) {
	p.executeOverride = o
}

// ExecuteOverride returns the execute override of the current cycle.
func (p *Pipeline) ExecuteOverride() ExecuteOverride {
	return p.executeOverride
}

// Snapshot returns the view of every stage for the current cycle.
func (p *Pipeline) Snapshot() Snapshot {
	dec, useRS := p.effectiveDecode()
	_, _, nextPC := p.resolveControl()

	return Snapshot{
		InstructionRequest: p.instrReq,
		Fetched:            p.instrResp.Data,
		NextPC:             nextPC,
		Decode:             dec,
		UseRS:              useRS,
		Execute:            p.idex,
		Memory:             p.exmem,
		DataRequest:        p.dataReq,
		Writeback:          p.memwb,
	}
}
