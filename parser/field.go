package parser

import (
	"errors"
	"strings"

	"github.com/zero-day-ai/cpuinfo/types"
)

// fieldParser matches one "name: value" line and stores the decoded value.
type fieldParser struct {
	name  string
	parse func(c *cursor, p *types.Processor) error
}

// field binds a field name and value decoder to the Processor member it fills.
func field[T any](name string, decode func(*cursor) (T, error), assign func(*types.Processor, T)) fieldParser {
	return fieldParser{
		name: name,
		parse: func(c *cursor, p *types.Processor) error {
			v, err := parseField(c, name, decode)
			if err != nil {
				return err
			}
			assign(p, v)
			return nil
		},
	}
}

// parseField matches name, optional horizontal space, ":", optional
// horizontal space, the decoded value and a line terminator.
func parseField[T any](c *cursor, name string, decode func(*cursor) (T, error)) (T, error) {
	var zero T
	if err := fieldName(c, name); err != nil {
		return zero, err
	}
	if err := separator(c, name); err != nil {
		return zero, err
	}
	v, err := decode(c)
	if err != nil {
		var se *SyntaxError
		if errors.As(err, &se) {
			se.Field = name
		}
		return zero, err
	}
	if !c.lineEnding() {
		se := valueError(c, c.pos, "unexpected %s before end of line", describe(c.rest()))
		if c.eof() {
			se.Message = "line is not terminated"
		}
		se.Field = name
		return zero, se
	}
	return v, nil
}

// fieldName consumes name. When the line carries a different label it
// reports a malformed field naming what was found; when the label matches but
// no colon follows it reports a malformed separator.
func fieldName(c *cursor, name string) error {
	line := c.currentLine()
	label, hasColon := labelOf(line)
	if strings.HasPrefix(line, name) {
		after := strings.TrimLeft(line[len(name):], " \t")
		if strings.HasPrefix(after, ":") {
			c.pos += len(name)
			return nil
		}
		if !hasColon || label == name {
			se := c.fail(ErrCodeMalformedSeparator, c.pos+len(line)-len(after), "expected ':' after field name, found %s", describe(after))
			se.Field = name
			return se
		}
	}

	found := label
	if !hasColon {
		found = line
	}
	se := c.fail(ErrCodeMalformedField, c.pos, "expected field %q, found %s", name, describe(found)).WithFound(found)
	se.Field = name
	return se
}

// separator consumes optional horizontal space, ":" and optional horizontal space.
func separator(c *cursor, name string) error {
	c.skipHSpace()
	if !c.literal(":") {
		se := c.fail(ErrCodeMalformedSeparator, c.pos, "expected ':', found %s", describe(c.rest()))
		se.Field = name
		return se
	}
	c.skipHSpace()
	return nil
}

// labelOf returns the text before the first colon, without trailing
// horizontal space.
func labelOf(line string) (string, bool) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return "", false
	}
	return strings.TrimRight(line[:i], " \t"), true
}

// recordFields lists the field parsers in the order a record carries them.
var recordFields = []fieldParser{
	field("processor", decimalUint32, func(p *types.Processor, v uint32) { p.Processor = v }),
	field("vendor_id", alpha, func(p *types.Processor, v string) { p.VendorID = v }),
	field("cpu family", decimalUint32, func(p *types.Processor, v uint32) { p.CPUFamily = v }),
	field("model", decimalUint32, func(p *types.Processor, v uint32) { p.Model = v }),
	field("model name", restOfLine, func(p *types.Processor, v string) { p.ModelName = v }),
	field("stepping", decimalUint32, func(p *types.Processor, v uint32) { p.Stepping = v }),
	field("microcode", hexUint32, func(p *types.Processor, v uint32) { p.Microcode = v }),
	field("cpu MHz", float, func(p *types.Processor, v float64) { p.CPUMHz = v }),
	field("cache size", cacheSize, func(p *types.Processor, v uint64) { p.CacheSize = v }),
	field("physical id", decimalUint32, func(p *types.Processor, v uint32) { p.PhysicalID = v }),
	field("siblings", decimalUint32, func(p *types.Processor, v uint32) { p.Siblings = v }),
	field("core id", decimalUint32, func(p *types.Processor, v uint32) { p.CoreID = v }),
	field("cpu cores", decimalUint32, func(p *types.Processor, v uint32) { p.CPUCores = v }),
	field("apicid", decimalUint32, func(p *types.Processor, v uint32) { p.APICID = v }),
	field("initial apicid", decimalUint32, func(p *types.Processor, v uint32) { p.InitialAPICID = v }),
	field("fpu", boolean, func(p *types.Processor, v bool) { p.FPU = v }),
	field("fpu_exception", boolean, func(p *types.Processor, v bool) { p.FPUException = v }),
	field("cpuid level", decimalUint32, func(p *types.Processor, v uint32) { p.CPUIDLevel = v }),
	field("wp", boolean, func(p *types.Processor, v bool) { p.WP = v }),
	field("flags", tokenList, func(p *types.Processor, v []string) { p.Flags = v }),
	field("vmx flags", tokenList, func(p *types.Processor, v []string) { p.VMXFlags = v }),
	field("bugs", tokenList, func(p *types.Processor, v []string) { p.Bugs = v }),
	field("bogomips", float, func(p *types.Processor, v float64) { p.BogoMIPS = v }),
	field("clflush size", decimalUint32, func(p *types.Processor, v uint32) { p.CLFlushSize = v }),
	field("cache_alignment", decimalUint32, func(p *types.Processor, v uint32) { p.CacheAlignment = v }),
	field("address sizes", addressSizes, func(p *types.Processor, v types.AddressSizes) { p.AddressSizes = v }),
	field("power management", optionalAlphanumeric, func(p *types.Processor, v *string) { p.PowerManagement = v }),
}

// FieldNames returns the field names of a record, in order.
func FieldNames() []string {
	names := make([]string, len(recordFields))
	for i, f := range recordFields {
		names[i] = f.name
	}
	return names
}
