// Package types defines the data model shared by the cpuinfo packages.
//
// # Processor Listings
//
// CPUInfo holds one Processor per record of a listing, in input order:
//
//	for _, p := range info.Processors {
//	    if p.HasFlag("avx2") && !p.HasBug("mds") {
//	        // ...
//	    }
//	}
//
// Numeric values keep their listed units except CacheSize, which is
// converted from kilobytes to bytes. PowerManagement is nil when the listing
// leaves it empty; the token lists are never nil after a parse.
//
// Summary condenses a listing into host-level figures:
//
//	s := info.Summary()
//	fmt.Printf("%s: %d packages, %d cores, %d threads\n",
//	    s.ModelName, s.Packages, s.PhysicalCores, s.LogicalProcessors)
//
// # Health Types
//
// HealthStatus reports whether a listing source is usable:
//
//	status := types.NewUnhealthyStatus("listing rejected", map[string]any{
//	    "code": "MALFORMED_FIELD",
//	    "line": 2,
//	})
//	if status.IsUnhealthy() {
//	    // ...
//	}
package types
