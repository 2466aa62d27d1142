// Package health provides health checks for cpuinfo listing sources and the
// services the collector depends on.
//
// # Health Check Functions
//
//   - FileCheck: verify a listing file exists and is readable
//   - SourceCheck: read a listing and verify it parses, optionally with
//     required flags, a minimum processor count and a read-time threshold
//   - EndpointCheck: verify TCP connectivity to a host:port
//   - Combine: aggregate multiple checks into a single status
//
// # Usage Example
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//
//	overall := health.Combine(
//	    health.FileCheck("/proc/cpuinfo"),
//	    health.SourceCheck(ctx, source.Config{}, health.SourceOptions{
//	        RequiredFlags: []string{"sse4_2"},
//	    }),
//	    health.EndpointCheck(ctx, "localhost:6379"),
//	)
//	if overall.IsUnhealthy() {
//	    log.Printf("Health check failed: %s", overall.Message)
//	    log.Printf("Details: %+v", overall.Details)
//	}
//
// # Health Status Priority
//
// Combine reports unhealthy if any check is unhealthy, degraded if any check
// is degraded and none unhealthy, and healthy otherwise.
package health
