package cosim

import (
	"fmt"
	"sort"

	"github.com/sarchlab/rv32tb/insts"
	"github.com/sarchlab/rv32tb/log"
	"github.com/sarchlab/rv32tb/timing/pipeline"
)

// catalog maps the names accepted by ByName to model constructors.
var catalog = map[string]func() SimulatedInstruction{
	"fxmadd": func() SimulatedInstruction { return NewFxMadd() },
	"muldiv": func() SimulatedInstruction { return NewMulDiv() },
	"sum3":   func() SimulatedInstruction { return NewSum3() },
}

// DefaultModels lists the models of the default registry, in priority order.
var DefaultModels = []string{"fxmadd", "muldiv"}

// Registry is an ordered list of models. The first model that matches an
// instruction handles it, so the order is a priority policy.
type Registry struct {
	models []SimulatedInstruction
}

// NewRegistry creates a registry holding models in priority order.
func NewRegistry(models ...SimulatedInstruction) *Registry {
	r := &Registry{}
	for _, m := range models {
		r.Register(m)
	}
	return r
}

// DefaultRegistry returns a registry with every model of DefaultModels.
func DefaultRegistry() *Registry {
	r, err := ByName(DefaultModels)
	if err != nil {
		panic(err)
	}
	return r
}

// ByName builds a registry from model names, keeping their order.
func ByName(names []string) (*Registry, error) {
	r := NewRegistry()
	for _, name := range names {
		newModel, ok := catalog[name]
		if !ok {
			return nil, fmt.Errorf("unknown simulated instruction %q (available: %v)",
				name, ModelNames())
		}
		r.Register(newModel())
	}
	return r, nil
}

// ModelNames returns the names accepted by ByName, sorted.
func ModelNames() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register appends a model with the lowest priority.
func (r *Registry) Register(m SimulatedInstruction) {
	r.models = append(r.models, m)
}

// Len returns the number of registered models.
func (r *Registry) Len() int {
	return len(r.models)
}

// Lookup returns the first model matching instr.
func (r *Registry) Lookup(instr insts.Instruction) (SimulatedInstruction, bool) {
	for _, m := range r.models {
		if m.Match(instr) {
			return m, true
		}
	}
	return nil, false
}

// SimulateDecode overrides the decoder outputs when the decoder flags its
// instruction as invalid and a model matches it. The override of the previous
// cycle is always cleared first. Only RegisterWB of the hardware control is
// replaced. It reports whether an override was installed.
func (r *Registry) SimulateDecode(port DecodePort) bool {
	port.SetDecodeOverride(pipeline.DecodeOverride{})

	if !port.DecodeInvalid() {
		return false
	}

	instr := port.DecoderInput()
	m, ok := r.Lookup(instr)
	if !ok {
		return false
	}

	signals := m.Decode()
	control := port.DecoderOutput()
	control.RegisterWB = signals.WB

	port.SetDecodeOverride(pipeline.DecodeOverride{
		Active:  true,
		UseRS:   signals.UseRS,
		Control: control,
	})

	log.CoSim.Debug().
		Str("model", fmt.Sprintf("%T", m)).
		Str("instr", fmt.Sprintf("0x%08x", instr.Word())).
		Msg("simulated decode")

	return true
}

// SimulateExecute replaces the result of the execute stage when its
// instruction was flagged invalid and a model matches it. Operands are
// resolved through the execution context, so forwarded values are seen. It
// reports whether an override was installed.
func (r *Registry) SimulateExecute(port ExecutePort) bool {
	port.SetExecuteOverride(pipeline.ExecuteOverride{})

	if !port.ExecuteInvalid() {
		return false
	}

	input := port.ExecInput()
	m, ok := r.Lookup(input.Instr)
	if !ok {
		return false
	}

	regs := port.ExecutionContext().Resolve()
	result := m.Execute(input, regs)

	data := port.ExecOutput()
	data.DataResult[0] = result

	port.SetExecuteOverride(pipeline.ExecuteOverride{Active: true, Data: data})

	log.CoSim.Debug().
		Str("model", fmt.Sprintf("%T", m)).
		Uint32("pc", input.PC).
		Uint32("result", result).
		Msg("simulated execute")

	return true
}
