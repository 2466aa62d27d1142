package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/cpuinfo/types"
)

// parseOne runs the named field parser over line and returns the partially
// filled Processor.
func parseOne(t *testing.T, name, line string) (types.Processor, string, error) {
	t.Helper()
	for _, f := range recordFields {
		if f.name == name {
			var p types.Processor
			c := newCursor(line)
			err := f.parse(c, &p)
			return p, c.rest(), err
		}
	}
	t.Fatalf("no field parser named %q", name)
	return types.Processor{}, "", nil
}

func TestFieldParsers(t *testing.T) {
	pm := "performance"
	tests := []struct {
		name  string
		field string
		line  string
		check func(t *testing.T, p types.Processor)
	}{
		{"processor", "processor", "processor\t: 0\n", func(t *testing.T, p types.Processor) { assert.Equal(t, uint32(0), p.Processor) }},
		{"vendor id", "vendor_id", "vendor_id\t: GenuineIntel\n", func(t *testing.T, p types.Processor) { assert.Equal(t, "GenuineIntel", p.VendorID) }},
		{"cpu family", "cpu family", "cpu family\t: 6\n", func(t *testing.T, p types.Processor) { assert.Equal(t, uint32(6), p.CPUFamily) }},
		{"model", "model", "model\t\t: 94\n", func(t *testing.T, p types.Processor) { assert.Equal(t, uint32(94), p.Model) }},
		{"model name", "model name", "model name\t: Intel(R) Core(TM) i7-6700K CPU @ 4.00GHz\n", func(t *testing.T, p types.Processor) {
			assert.Equal(t, "Intel(R) Core(TM) i7-6700K CPU @ 4.00GHz", p.ModelName)
		}},
		{"stepping", "stepping", "stepping\t: 3\n", func(t *testing.T, p types.Processor) { assert.Equal(t, uint32(3), p.Stepping) }},
		{"microcode", "microcode", "microcode\t: 0xf0\n", func(t *testing.T, p types.Processor) { assert.Equal(t, uint32(240), p.Microcode) }},
		{"cpu mhz", "cpu MHz", "cpu MHz\t\t: 4000.000\n", func(t *testing.T, p types.Processor) { assert.Equal(t, 4000.0, p.CPUMHz) }},
		{"cache size", "cache size", "cache size\t: 8192 KB\n", func(t *testing.T, p types.Processor) { assert.Equal(t, uint64(8388608), p.CacheSize) }},
		{"physical id", "physical id", "physical id\t: 1\n", func(t *testing.T, p types.Processor) { assert.Equal(t, uint32(1), p.PhysicalID) }},
		{"siblings", "siblings", "siblings\t: 8\n", func(t *testing.T, p types.Processor) { assert.Equal(t, uint32(8), p.Siblings) }},
		{"core id", "core id", "core id\t\t: 3\n", func(t *testing.T, p types.Processor) { assert.Equal(t, uint32(3), p.CoreID) }},
		{"cpu cores", "cpu cores", "cpu cores\t: 4\n", func(t *testing.T, p types.Processor) { assert.Equal(t, uint32(4), p.CPUCores) }},
		{"apicid", "apicid", "apicid\t\t: 7\n", func(t *testing.T, p types.Processor) { assert.Equal(t, uint32(7), p.APICID) }},
		{"initial apicid", "initial apicid", "initial apicid\t: 7\n", func(t *testing.T, p types.Processor) { assert.Equal(t, uint32(7), p.InitialAPICID) }},
		{"fpu", "fpu", "fpu\t\t: yes\n", func(t *testing.T, p types.Processor) { assert.True(t, p.FPU) }},
		{"fpu exception", "fpu_exception", "fpu_exception\t: no\n", func(t *testing.T, p types.Processor) { assert.False(t, p.FPUException) }},
		{"cpuid level", "cpuid level", "cpuid level\t: 22\n", func(t *testing.T, p types.Processor) { assert.Equal(t, uint32(22), p.CPUIDLevel) }},
		{"wp", "wp", "wp\t\t: yes\n", func(t *testing.T, p types.Processor) { assert.True(t, p.WP) }},
		{"flags", "flags", "flags\t\t: fpu vme de\n", func(t *testing.T, p types.Processor) { assert.Equal(t, []string{"fpu", "vme", "de"}, p.Flags) }},
		{"vmx flags empty", "vmx flags", "vmx flags\t:\n", func(t *testing.T, p types.Processor) { assert.Equal(t, []string{}, p.VMXFlags) }},
		{"bugs", "bugs", "bugs\t\t: cpu_meltdown spectre_v1\n", func(t *testing.T, p types.Processor) {
			assert.Equal(t, []string{"cpu_meltdown", "spectre_v1"}, p.Bugs)
		}},
		{"bogomips", "bogomips", "bogomips\t: 8001.30\n", func(t *testing.T, p types.Processor) { assert.Equal(t, 8001.30, p.BogoMIPS) }},
		{"clflush size", "clflush size", "clflush size\t: 64\n", func(t *testing.T, p types.Processor) { assert.Equal(t, uint32(64), p.CLFlushSize) }},
		{"cache alignment", "cache_alignment", "cache_alignment\t: 64\n", func(t *testing.T, p types.Processor) { assert.Equal(t, uint32(64), p.CacheAlignment) }},
		{"address sizes", "address sizes", "address sizes\t: 39 bits physical, 48 bits virtual\n", func(t *testing.T, p types.Processor) {
			assert.Equal(t, types.AddressSizes{Physical: 39, Virtual: 48}, p.AddressSizes)
		}},
		{"power management absent", "power management", "power management:\n", func(t *testing.T, p types.Processor) { assert.Nil(t, p.PowerManagement) }},
		{"power management present", "power management", "power management: performance\n", func(t *testing.T, p types.Processor) { assert.Equal(t, &pm, p.PowerManagement) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, rest, err := parseOne(t, tt.field, tt.line)
			require.NoError(t, err)
			assert.Empty(t, rest, "field parser should consume its line terminator")
			tt.check(t, p)
		})
	}
}

func TestFieldParser_Separators(t *testing.T) {
	lines := []string{
		"processor: 5\n",
		"processor :5\n",
		"processor \t : \t 5\n",
		"processor\t: 5\r\n",
	}
	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			p, rest, err := parseOne(t, "processor", line)
			require.NoError(t, err)
			assert.Empty(t, rest)
			assert.Equal(t, uint32(5), p.Processor)
		})
	}
}

func TestFieldParser_Errors(t *testing.T) {
	tests := []struct {
		name      string
		field     string
		line      string
		code      string
		found     string
		column    int
		wantInMsg string
	}{
		{
			name:   "different field",
			field:  "vendor_id",
			line:   "cpu family\t: 6\n",
			code:   ErrCodeMalformedField,
			found:  "cpu family",
			column: 1,
		},
		{
			name:   "longer field sharing a prefix",
			field:  "model",
			line:   "model name\t: Intel\n",
			code:   ErrCodeMalformedField,
			found:  "model name",
			column: 1,
		},
		{
			name:   "underscore continuation",
			field:  "fpu",
			line:   "fpu_exception\t: yes\n",
			code:   ErrCodeMalformedField,
			found:  "fpu_exception",
			column: 1,
		},
		{
			name:   "line without colon",
			field:  "processor",
			line:   "processor 0\n",
			code:   ErrCodeMalformedSeparator,
			column: 11,
		},
		{
			name:   "wrong separator",
			field:  "stepping",
			line:   "stepping\t= 3\n",
			code:   ErrCodeMalformedSeparator,
			column: 10,
		},
		{
			name:   "unrelated line without colon",
			field:  "processor",
			line:   "garbage\n",
			code:   ErrCodeMalformedField,
			found:  "garbage",
			column: 1,
		},
		{
			name:   "bad boolean",
			field:  "fpu",
			line:   "fpu\t\t: maybe\n",
			code:   ErrCodeMalformedValue,
			column: 8,
		},
		{
			name:      "trailing characters",
			field:     "processor",
			line:      "processor\t: 0 extra\n",
			code:      ErrCodeMalformedValue,
			column:    14,
			wantInMsg: "before end of line",
		},
		{
			name:      "invalid flag token",
			field:     "flags",
			line:      "flags\t\t: fpu VME\n",
			code:      ErrCodeMalformedValue,
			column:    13,
			wantInMsg: "before end of line",
		},
		{
			name:      "unterminated line",
			field:     "processor",
			line:      "processor\t: 0",
			code:      ErrCodeMalformedValue,
			column:    14,
			wantInMsg: "not terminated",
		},
		{
			name:   "cache size without unit",
			field:  "cache size",
			line:   "cache size\t: 8192\n",
			code:   ErrCodeMalformedValue,
			column: 18,
		},
		{
			name:   "empty line",
			field:  "processor",
			line:   "\n",
			code:   ErrCodeMalformedField,
			column: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parseOne(t, tt.field, tt.line)
			require.Error(t, err)

			var se *SyntaxError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.code, se.Code)
			assert.Equal(t, tt.field, se.Field)
			assert.Equal(t, tt.found, se.Found)
			assert.Equal(t, 1, se.Line)
			assert.Equal(t, tt.column, se.Column)
			if tt.wantInMsg != "" {
				assert.Contains(t, se.Message, tt.wantInMsg)
			}
		})
	}
}

func TestFieldNames(t *testing.T) {
	names := FieldNames()
	require.Len(t, names, 27)
	assert.Equal(t, "processor", names[0])
	assert.Equal(t, "power management", names[len(names)-1])

	seen := make(map[string]bool)
	for _, n := range names {
		assert.False(t, seen[n], "duplicate field %q", n)
		seen[n] = true
	}
}
