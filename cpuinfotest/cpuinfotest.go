// Package cpuinfotest provides well-formed processor listings for tests.
package cpuinfotest

import (
	"fmt"
	"strings"

	"github.com/zero-day-ai/cpuinfo/types"
)

// Flag lists written into every generated record.
var (
	Flags = []string{
		"fpu", "vme", "de", "pse", "tsc", "msr", "pae", "mce", "cx8", "apic", "sep",
		"mtrr", "pge", "mca", "cmov", "pat", "pse36", "clflush", "mmx", "fxsr", "sse",
		"sse2", "ht", "syscall", "nx", "lm", "constant_tsc", "pni", "vmx", "ssse3",
		"sse4_1", "sse4_2", "x2apic", "popcnt", "aes", "xsave", "avx", "3dnowprefetch",
		"avx2", "bmi1", "bmi2", "md_clear", "flush_l1d",
	}
	VMXFlags = []string{"vnmi", "preemption_timer", "invvpid", "ept_x_only", "ept_ad", "tsc_offset", "vtpr"}
	Bugs     = []string{"cpu_meltdown", "spectre_v1", "spectre_v2", "spec_store_bypass", "l1tf", "mds"}
)

const (
	ModelName = "Intel(R) Core(TM) i7-6700K CPU @ 4.00GHz"
	Vendor    = "GenuineIntel"
)

// Lines returns the lines of the record for logical processor n, without
// terminators. The record describes one package with four cores and two
// threads per core.
func Lines(n int) []string {
	return []string{
		fmt.Sprintf("processor\t: %d", n),
		"vendor_id\t: " + Vendor,
		"cpu family\t: 6",
		"model\t\t: 94",
		"model name\t: " + ModelName,
		"stepping\t: 3",
		"microcode\t: 0xf0",
		"cpu MHz\t\t: 4000.000",
		"cache size\t: 8192 KB",
		"physical id\t: 0",
		"siblings\t: 8",
		fmt.Sprintf("core id\t\t: %d", n%4),
		"cpu cores\t: 4",
		fmt.Sprintf("apicid\t\t: %d", n),
		fmt.Sprintf("initial apicid\t: %d", n),
		"fpu\t\t: yes",
		"fpu_exception\t: yes",
		"cpuid level\t: 22",
		"wp\t\t: yes",
		"flags\t\t: " + strings.Join(Flags, " "),
		"vmx flags\t: " + strings.Join(VMXFlags, " "),
		"bugs\t\t: " + strings.Join(Bugs, " "),
		"bogomips\t: 8001.30",
		"clflush size\t: 64",
		"cache_alignment\t: 64",
		"address sizes\t: 39 bits physical, 48 bits virtual",
		"power management:",
	}
}

// Join terminates every line with "\n" and concatenates them.
func Join(lines []string) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}

// Record returns the text of the record for logical processor n.
func Record(n int) string {
	return Join(Lines(n))
}

// Listing returns n records separated by single blank lines, with nothing
// after the last record.
func Listing(n int) string {
	records := make([]string, n)
	for i := range records {
		records[i] = Record(i)
	}
	return strings.Join(records, "\n")
}

// KernelListing returns Listing(n) followed by the blank line the kernel
// writes after the last record.
func KernelListing(n int) string {
	return Listing(n) + "\n"
}

// Processor returns the value a parser must produce for Record(n).
func Processor(n int) types.Processor {
	return types.Processor{
		Processor:      uint32(n),
		VendorID:       Vendor,
		CPUFamily:      6,
		Model:          94,
		ModelName:      ModelName,
		Stepping:       3,
		Microcode:      0xf0,
		CPUMHz:         4000.0,
		CacheSize:      8192 * 1024,
		PhysicalID:     0,
		Siblings:       8,
		CoreID:         uint32(n % 4),
		CPUCores:       4,
		APICID:         uint32(n),
		InitialAPICID:  uint32(n),
		FPU:            true,
		FPUException:   true,
		CPUIDLevel:     22,
		WP:             true,
		Flags:          append([]string(nil), Flags...),
		VMXFlags:       append([]string(nil), VMXFlags...),
		Bugs:           append([]string(nil), Bugs...),
		BogoMIPS:       8001.30,
		CLFlushSize:    64,
		CacheAlignment: 64,
		AddressSizes:   types.AddressSizes{Physical: 39, Virtual: 48},
	}
}
