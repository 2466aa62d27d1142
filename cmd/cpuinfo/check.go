package main

import (
	"context"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/cpuinfo"
	"github.com/zero-day-ai/cpuinfo/collector"
	"github.com/zero-day-ai/cpuinfo/health"
	"github.com/zero-day-ai/cpuinfo/source"
	"github.com/zero-day-ai/cpuinfo/types"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Check that a listing source is readable and well formed",
		Long: `Check that a listing source is readable and parses, and that the
configured snapshot store, registry and collector are reachable.

The source defaults to the config file's source section, then /proc/cpuinfo.
The command exits with status 1 when any check is unhealthy.`,
		Args: cobra.MaximumNArgs(1),
		RunE: checkHandler,
	}

	cmd.Flags().StringP("config", "c", "", "Path to cpuinfo.yaml or its directory")
	cmd.Flags().StringP("format", "f", formatTable, "Output format: table, json or yaml")
	cmd.Flags().StringSlice("require-flag", nil, "Flag every processor must have (repeatable)")
	cmd.Flags().Int("min-processors", 0, "Minimum number of processors")
	cmd.Flags().Duration("slow-threshold", 0, "Mark the source degraded when reading takes longer")
	cmd.Flags().String("collector", "", "Address of a running collector's health service")
	cmd.Flags().Bool("strict", false, "Reject a blank line after the last record")
	cmd.Flags().Duration("timeout", 10*time.Second, "Timeout for all checks")

	return cmd
}

func checkHandler(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)

	format, _ := cmd.Flags().GetString("format")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	collectorAddr, _ := cmd.Flags().GetString("collector")

	src := cfg.SourceConfig()
	if len(args) == 1 {
		src = source.Config{Path: args[0], Timeout: src.Timeout}
	}
	src.Stdin = cmd.InOrStdin()

	opts := append(cfg.ParserOptions(), cpuinfo.WithLogger(logger))
	if strict, _ := cmd.Flags().GetBool("strict"); strict {
		opts = []cpuinfo.Option{cpuinfo.WithLogger(logger)}
	}
	p, err := cpuinfo.New(opts...)
	if err != nil {
		return err
	}

	checkOpts := cfg.Checks.SourceOptions(p)
	if flags, _ := cmd.Flags().GetStringSlice("require-flag"); len(flags) > 0 {
		checkOpts.RequiredFlags = flags
	}
	if n, _ := cmd.Flags().GetInt("min-processors"); n > 0 {
		checkOpts.MinProcessors = n
	}
	if d, _ := cmd.Flags().GetDuration("slow-threshold"); d > 0 {
		checkOpts.SlowThreshold = d
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	var checks []types.HealthStatus
	if src.Command == "" && src.Path != source.StdinPath {
		checks = append(checks, health.FileCheck(src.Path))
	}
	checks = append(checks, health.SourceCheck(ctx, src, checkOpts))

	if cfg.Redis.Enabled() {
		if addr := redisAddress(cfg.Redis.URL); addr != "" {
			checks = append(checks, health.EndpointCheck(ctx, addr))
		}
	}
	if cfg.Etcd.Enabled() {
		for _, endpoint := range cfg.Etcd.Endpoints {
			checks = append(checks, health.EndpointCheck(ctx, endpointAddress(endpoint)))
		}
	}
	if collectorAddr != "" {
		checks = append(checks, health.ServiceCheck(ctx, collectorAddr, collector.ServiceName))
	}

	status := checks[0]
	if len(checks) > 1 {
		status = health.Combine(checks...)
		if !status.IsHealthy() {
			// Report the individual results alongside the aggregate
			for _, c := range checks {
				if !c.IsHealthy() {
					if err := writeHealth(cmd.OutOrStdout(), format, c); err != nil {
						return err
					}
				}
			}
		}
	}

	if err := writeHealth(cmd.OutOrStdout(), format, status); err != nil {
		return err
	}
	if status.IsUnhealthy() {
		return errUnhealthy
	}
	return nil
}

// redisAddress extracts host:port from a redis:// or rediss:// URL.
func redisAddress(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Port() == "" {
		return u.Host + ":6379"
	}
	return u.Host
}

// endpointAddress strips the scheme from an etcd endpoint.
func endpointAddress(endpoint string) string {
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		return u.Host
	}
	return endpoint
}
