package types

import "sort"

// CPUInfo is a parsed processor-information listing.
// Processors appear in input order; nothing is re-sorted.
type CPUInfo struct {
	Processors []Processor `json:"processors" yaml:"processors"`
}

// AddressSizes holds the physical and virtual address widths in bits.
type AddressSizes struct {
	Physical uint32 `json:"physical" yaml:"physical"`
	Virtual  uint32 `json:"virtual" yaml:"virtual"`
}

// Processor is the attribute block of one logical processor.
// Every field is populated by a successful parse.
type Processor struct {
	// Identity
	Processor uint32 `json:"processor" yaml:"processor"`
	VendorID  string `json:"vendor_id" yaml:"vendor_id"`
	CPUFamily uint32 `json:"cpu_family" yaml:"cpu_family"`
	Model     uint32 `json:"model" yaml:"model"`
	ModelName string `json:"model_name" yaml:"model_name"`
	Stepping  uint32 `json:"stepping" yaml:"stepping"`
	Microcode uint32 `json:"microcode" yaml:"microcode"`

	// Performance
	CPUMHz float64 `json:"cpu_mhz" yaml:"cpu_mhz"`

	// CacheSize is in bytes. The listing declares kilobytes.
	CacheSize uint64 `json:"cache_size" yaml:"cache_size"`

	// Topology
	PhysicalID    uint32 `json:"physical_id" yaml:"physical_id"`
	Siblings      uint32 `json:"siblings" yaml:"siblings"`
	CoreID        uint32 `json:"core_id" yaml:"core_id"`
	CPUCores      uint32 `json:"cpu_cores" yaml:"cpu_cores"`
	APICID        uint32 `json:"apicid" yaml:"apicid"`
	InitialAPICID uint32 `json:"initial_apicid" yaml:"initial_apicid"`

	FPU          bool   `json:"fpu" yaml:"fpu"`
	FPUException bool   `json:"fpu_exception" yaml:"fpu_exception"`
	CPUIDLevel   uint32 `json:"cpuid_level" yaml:"cpuid_level"`
	WP           bool   `json:"wp" yaml:"wp"`

	// Capability flags, in listing order. Duplicates are kept.
	Flags    []string `json:"flags" yaml:"flags"`
	VMXFlags []string `json:"vmx_flags" yaml:"vmx_flags"`
	Bugs     []string `json:"bugs" yaml:"bugs"`

	BogoMIPS       float64      `json:"bogomips" yaml:"bogomips"`
	CLFlushSize    uint32       `json:"clflush_size" yaml:"clflush_size"`
	CacheAlignment uint32       `json:"cache_alignment" yaml:"cache_alignment"`
	AddressSizes   AddressSizes `json:"address_sizes" yaml:"address_sizes"`

	// PowerManagement is nil when the listing leaves the value empty.
	PowerManagement *string `json:"power_management,omitempty" yaml:"power_management,omitempty"`
}

// HasFlag reports whether flag is in the processor's feature flags.
func (p Processor) HasFlag(flag string) bool {
	return contains(p.Flags, flag)
}

// HasVMXFlag reports whether flag is in the processor's virtualization flags.
func (p Processor) HasVMXFlag(flag string) bool {
	return contains(p.VMXFlags, flag)
}

// HasBug reports whether the processor lists the given hardware bug.
func (p Processor) HasBug(bug string) bool {
	return contains(p.Bugs, bug)
}

// PowerManagementValue returns the power management token, or "" when absent.
func (p Processor) PowerManagementValue() string {
	if p.PowerManagement == nil {
		return ""
	}
	return *p.PowerManagement
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Len returns the number of logical processors.
func (c *CPUInfo) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Processors)
}

// Packages returns the distinct physical package ids in ascending order.
func (c *CPUInfo) Packages() []uint32 {
	if c == nil {
		return nil
	}
	seen := make(map[uint32]struct{})
	var ids []uint32
	for _, p := range c.Processors {
		if _, ok := seen[p.PhysicalID]; ok {
			continue
		}
		seen[p.PhysicalID] = struct{}{}
		ids = append(ids, p.PhysicalID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// PhysicalCores counts distinct (physical id, core id) pairs.
func (c *CPUInfo) PhysicalCores() int {
	if c == nil {
		return 0
	}
	type coreKey struct{ pkg, core uint32 }
	seen := make(map[coreKey]struct{})
	for _, p := range c.Processors {
		seen[coreKey{p.PhysicalID, p.CoreID}] = struct{}{}
	}
	return len(seen)
}

// Summary is a condensed, host-level view of a CPUInfo.
type Summary struct {
	Vendor            string   `json:"vendor" yaml:"vendor"`
	ModelName         string   `json:"model_name" yaml:"model_name"`
	Packages          int      `json:"packages" yaml:"packages"`
	PhysicalCores     int      `json:"physical_cores" yaml:"physical_cores"`
	LogicalProcessors int      `json:"logical_processors" yaml:"logical_processors"`
	MaxMHz            float64  `json:"max_mhz" yaml:"max_mhz"`
	CommonFlags       []string `json:"common_flags" yaml:"common_flags"`
}

// Summary condenses the listing. Vendor and model name come from the first
// processor; CommonFlags keeps the first processor's flag order and drops any
// flag missing from another processor.
func (c *CPUInfo) Summary() Summary {
	if c.Len() == 0 {
		return Summary{}
	}
	first := c.Processors[0]
	s := Summary{
		Vendor:            first.VendorID,
		ModelName:         first.ModelName,
		Packages:          len(c.Packages()),
		PhysicalCores:     c.PhysicalCores(),
		LogicalProcessors: len(c.Processors),
	}
	for _, p := range c.Processors {
		if p.CPUMHz > s.MaxMHz {
			s.MaxMHz = p.CPUMHz
		}
	}

	s.CommonFlags = []string{}
	for _, flag := range first.Flags {
		if contains(s.CommonFlags, flag) {
			continue
		}
		everywhere := true
		for _, p := range c.Processors[1:] {
			if !p.HasFlag(flag) {
				everywhere = false
				break
			}
		}
		if everywhere {
			s.CommonFlags = append(s.CommonFlags, flag)
		}
	}
	return s
}
