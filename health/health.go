package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/zero-day-ai/cpuinfo"
	"github.com/zero-day-ai/cpuinfo/parser"
	"github.com/zero-day-ai/cpuinfo/source"
	"github.com/zero-day-ai/cpuinfo/types"
)

// FileCheck verifies that a regular file exists at path and can be opened
// for reading.
//
// Example:
//
//	status := health.FileCheck("/proc/cpuinfo")
//	if status.IsUnhealthy() {
//	    log.Fatal(status.Message)
//	}
func FileCheck(path string) types.HealthStatus {
	if path == "" {
		return types.NewUnhealthyStatus("path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.NewUnhealthyStatus(
				fmt.Sprintf("path '%s' does not exist", path),
				map[string]any{"path": path},
			)
		}
		return types.NewUnhealthyStatus(
			fmt.Sprintf("failed to stat path '%s'", path),
			map[string]any{
				"path":  path,
				"error": err.Error(),
			},
		)
	}
	if info.IsDir() {
		return types.NewUnhealthyStatus(
			fmt.Sprintf("path '%s' is a directory", path),
			map[string]any{"path": path},
		)
	}

	f, err := os.Open(path)
	if err != nil {
		return types.NewUnhealthyStatus(
			fmt.Sprintf("path '%s' is not readable", path),
			map[string]any{
				"path":  path,
				"error": err.Error(),
			},
		)
	}
	f.Close()

	return types.NewHealthyStatus(fmt.Sprintf("file '%s' is readable", path))
}

// SourceOptions tunes SourceCheck.
type SourceOptions struct {
	// Parser parses the listing. Nil means a parser that accepts the
	// kernel's trailing blank line.
	Parser *cpuinfo.Parser

	// SlowThreshold marks the source degraded when acquiring the listing
	// takes longer. Zero disables the check.
	SlowThreshold time.Duration

	// MinProcessors marks the source degraded when fewer records parse.
	MinProcessors int

	// RequiredFlags marks the source unhealthy when any processor lacks one
	// of these flags.
	RequiredFlags []string
}

// SourceCheck reads a listing as described by cfg and parses it. It is
// unhealthy when the listing cannot be read, does not parse or misses a
// required flag. Parse failures report their code and position in Details.
//
// Example:
//
//	status := health.SourceCheck(ctx, source.Config{}, health.SourceOptions{
//	    RequiredFlags: []string{"avx2"},
//	})
func SourceCheck(ctx context.Context, cfg source.Config, opts SourceOptions) types.HealthStatus {
	origin := cfg.Origin()

	res, err := source.Read(ctx, cfg)
	if err != nil {
		return types.NewUnhealthyStatus(
			fmt.Sprintf("failed to read listing from %s", origin),
			map[string]any{
				"origin": origin,
				"error":  err.Error(),
			},
		)
	}

	p := opts.Parser
	if p == nil {
		p, err = cpuinfo.New(cpuinfo.WithTrailingSeparator())
		if err != nil {
			return types.NewUnhealthyStatus("failed to create parser", map[string]any{"error": err.Error()})
		}
	}

	info, err := p.Parse(ctx, res.Text)
	if err != nil {
		details := map[string]any{
			"origin": origin,
			"error":  err.Error(),
		}
		var se *parser.SyntaxError
		if errors.As(err, &se) {
			for k, v := range se.Details() {
				details[k] = v
			}
		}
		return types.NewUnhealthyStatus(fmt.Sprintf("listing from %s is malformed", origin), details)
	}

	for _, flag := range opts.RequiredFlags {
		for _, proc := range info.Processors {
			if !proc.HasFlag(flag) {
				return types.NewUnhealthyStatus(
					fmt.Sprintf("processor %d lacks required flag '%s'", proc.Processor, flag),
					map[string]any{
						"origin":    origin,
						"processor": proc.Processor,
						"flag":      flag,
					},
				)
			}
		}
	}

	if opts.MinProcessors > 0 && info.Len() < opts.MinProcessors {
		return types.NewDegradedStatus(
			fmt.Sprintf("listing from %s has %d processor(s), want at least %d", origin, info.Len(), opts.MinProcessors),
			map[string]any{
				"origin":         origin,
				"processors":     info.Len(),
				"min_processors": opts.MinProcessors,
			},
		)
	}

	if opts.SlowThreshold > 0 && res.Duration > opts.SlowThreshold {
		return types.NewDegradedStatus(
			fmt.Sprintf("reading %s took %v", origin, res.Duration),
			map[string]any{
				"origin":       origin,
				"duration_ms":  res.Duration.Milliseconds(),
				"threshold_ms": opts.SlowThreshold.Milliseconds(),
			},
		)
	}

	return types.NewHealthyStatus(
		fmt.Sprintf("listing from %s parsed %d processor(s)", origin, info.Len()),
	)
}

// EndpointCheck verifies TCP connectivity to address ("host:port"), such
// as the snapshot store or the registry.
//
// Example:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//	status := health.EndpointCheck(ctx, "localhost:6379")
func EndpointCheck(ctx context.Context, address string) types.HealthStatus {
	if address == "" {
		return types.NewUnhealthyStatus("address cannot be empty", nil)
	}
	if _, _, err := net.SplitHostPort(address); err != nil {
		return types.NewUnhealthyStatus(
			fmt.Sprintf("invalid address '%s'", address),
			map[string]any{
				"address": address,
				"error":   err.Error(),
			},
		)
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return types.NewUnhealthyStatus(
			fmt.Sprintf("failed to connect to %s", address),
			map[string]any{
				"address": address,
				"error":   err.Error(),
			},
		)
	}
	conn.Close()

	return types.NewHealthyStatus(fmt.Sprintf("successfully connected to %s", address))
}

// Combine aggregates checks into one status: unhealthy if any check is
// unhealthy, else degraded if any is degraded, else healthy.
//
// Example:
//
//	status := health.Combine(
//	    health.FileCheck("/proc/cpuinfo"),
//	    health.SourceCheck(ctx, source.Config{}, health.SourceOptions{}),
//	    health.EndpointCheck(ctx, "localhost:6379"),
//	)
func Combine(checks ...types.HealthStatus) types.HealthStatus {
	if len(checks) == 0 {
		return types.NewHealthyStatus("no checks provided")
	}

	var unhealthyChecks []string
	var degradedChecks []string
	var healthyCount int

	for _, check := range checks {
		msg := check.Message
		if msg == "" {
			msg = "unnamed check"
		}
		switch check.Severity() {
		case 2:
			unhealthyChecks = append(unhealthyChecks, msg)
		case 1:
			degradedChecks = append(degradedChecks, msg)
		default:
			healthyCount++
		}
	}

	if len(unhealthyChecks) > 0 {
		return types.NewUnhealthyStatus(
			fmt.Sprintf("%d check(s) failed", len(unhealthyChecks)),
			map[string]any{
				"total":         len(checks),
				"unhealthy":     len(unhealthyChecks),
				"degraded":      len(degradedChecks),
				"healthy":       healthyCount,
				"failed_checks": unhealthyChecks,
			},
		)
	}

	if len(degradedChecks) > 0 {
		return types.NewDegradedStatus(
			fmt.Sprintf("%d check(s) degraded", len(degradedChecks)),
			map[string]any{
				"total":           len(checks),
				"degraded":        len(degradedChecks),
				"healthy":         healthyCount,
				"degraded_checks": degradedChecks,
			},
		)
	}

	return types.NewHealthyStatus(fmt.Sprintf("all %d check(s) passed", len(checks)))
}
