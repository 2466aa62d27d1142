// Package filter selects processors with CEL expressions.
//
// Expressions see one processor at a time through snake_case variables named
// after the listing's fields, and must evaluate to a bool:
//
//	f, err := filter.Compile(`"avx2" in flags && core_id == 0u`)
//	if err != nil {
//	    return err
//	}
//	selected, err := f.Select(info)
//
// Integer fields are CEL uint values, so literals compared against them need
// the u suffix. address_sizes is split into address_bits_physical and
// address_bits_virtual, and power_management is "" when the listing leaves it
// empty.
package filter

import (
	"errors"
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/zero-day-ai/cpuinfo/types"
)

// ErrInvalidExpression is returned by Compile for expressions that do not
// compile or do not evaluate to bool.
var ErrInvalidExpression = errors.New("invalid filter expression")

// Filter is a compiled expression. It is safe for concurrent use.
type Filter struct {
	expr    string
	program cel.Program
}

// Compile parses and type-checks expr.
func Compile(expr string) (*Filter, error) {
	env, err := newEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, iss := env.Compile(expr)
	if iss.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: expression returns %s, want bool", ErrInvalidExpression, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}

	return &Filter{expr: expr, program: prg}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	return f.expr
}

// Match evaluates the filter against p.
func (f *Filter) Match(p types.Processor) (bool, error) {
	out, _, err := f.program.Eval(activation(p))
	if err != nil {
		return false, fmt.Errorf("evaluating %q on processor %d: %w", f.expr, p.Processor, err)
	}

	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("evaluating %q on processor %d: got %T, want bool", f.expr, p.Processor, out.Value())
	}
	return matched, nil
}

// Select returns the processors of info that match, in input order.
// The first evaluation error aborts the selection.
func (f *Filter) Select(info *types.CPUInfo) ([]types.Processor, error) {
	selected := []types.Processor{}
	if info == nil {
		return selected, nil
	}

	for _, p := range info.Processors {
		ok, err := f.Match(p)
		if err != nil {
			return nil, err
		}
		if ok {
			selected = append(selected, p)
		}
	}
	return selected, nil
}

func newEnv() (*cel.Env, error) {
	strings := cel.ListType(cel.StringType)

	return cel.NewEnv(
		cel.Variable("processor", cel.UintType),
		cel.Variable("vendor_id", cel.StringType),
		cel.Variable("cpu_family", cel.UintType),
		cel.Variable("model", cel.UintType),
		cel.Variable("model_name", cel.StringType),
		cel.Variable("stepping", cel.UintType),
		cel.Variable("microcode", cel.UintType),
		cel.Variable("cpu_mhz", cel.DoubleType),
		cel.Variable("cache_size", cel.UintType),
		cel.Variable("physical_id", cel.UintType),
		cel.Variable("siblings", cel.UintType),
		cel.Variable("core_id", cel.UintType),
		cel.Variable("cpu_cores", cel.UintType),
		cel.Variable("apicid", cel.UintType),
		cel.Variable("initial_apicid", cel.UintType),
		cel.Variable("fpu", cel.BoolType),
		cel.Variable("fpu_exception", cel.BoolType),
		cel.Variable("cpuid_level", cel.UintType),
		cel.Variable("wp", cel.BoolType),
		cel.Variable("flags", strings),
		cel.Variable("vmx_flags", strings),
		cel.Variable("bugs", strings),
		cel.Variable("bogomips", cel.DoubleType),
		cel.Variable("clflush_size", cel.UintType),
		cel.Variable("cache_alignment", cel.UintType),
		cel.Variable("address_bits_physical", cel.UintType),
		cel.Variable("address_bits_virtual", cel.UintType),
		cel.Variable("power_management", cel.StringType),
	)
}

func activation(p types.Processor) map[string]any {
	return map[string]any{
		"processor":             uint64(p.Processor),
		"vendor_id":             p.VendorID,
		"cpu_family":            uint64(p.CPUFamily),
		"model":                 uint64(p.Model),
		"model_name":            p.ModelName,
		"stepping":              uint64(p.Stepping),
		"microcode":             uint64(p.Microcode),
		"cpu_mhz":               p.CPUMHz,
		"cache_size":            p.CacheSize,
		"physical_id":           uint64(p.PhysicalID),
		"siblings":              uint64(p.Siblings),
		"core_id":               uint64(p.CoreID),
		"cpu_cores":             uint64(p.CPUCores),
		"apicid":                uint64(p.APICID),
		"initial_apicid":        uint64(p.InitialAPICID),
		"fpu":                   p.FPU,
		"fpu_exception":         p.FPUException,
		"cpuid_level":           uint64(p.CPUIDLevel),
		"wp":                    p.WP,
		"flags":                 nonNil(p.Flags),
		"vmx_flags":             nonNil(p.VMXFlags),
		"bugs":                  nonNil(p.Bugs),
		"bogomips":              p.BogoMIPS,
		"clflush_size":          uint64(p.CLFlushSize),
		"cache_alignment":       uint64(p.CacheAlignment),
		"address_bits_physical": uint64(p.AddressSizes.Physical),
		"address_bits_virtual":  uint64(p.AddressSizes.Virtual),
		"power_management":      p.PowerManagementValue(),
	}
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
