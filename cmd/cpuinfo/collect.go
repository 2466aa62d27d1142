package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/cpuinfo"
	"github.com/zero-day-ai/cpuinfo/collector"
	"github.com/zero-day-ai/cpuinfo/config"
	"github.com/zero-day-ai/cpuinfo/registry"
	"github.com/zero-day-ai/cpuinfo/snapshot"
	"github.com/zero-day-ai/cpuinfo/telemetry"
)

func newCollectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect the listing periodically into the snapshot store and registry",
		Long: `Read, parse and store this host's processor listing every collector
interval. Snapshots are saved to Redis and the summary is published to etcd
when the config file configures them. The collector's gRPC health service
listens on collector.listen_addr when set.`,
		Args: cobra.NoArgs,
		RunE: collectHandler,
	}

	cmd.Flags().StringP("config", "c", "", "Path to cpuinfo.yaml or its directory")
	cmd.Flags().Bool("once", false, "Collect once, print the snapshot summary and exit")
	cmd.Flags().Duration("interval", 0, "Override collector.interval")
	cmd.Flags().Bool("trace", false, "Log a span per parse (visible at --log-level debug)")

	return cmd
}

func collectHandler(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)

	once, _ := cmd.Flags().GetBool("once")
	interval, _ := cmd.Flags().GetDuration("interval")
	if interval <= 0 {
		interval = cfg.Collector.GetInterval()
	}

	var parserOpts []cpuinfo.Option
	if trace, _ := cmd.Flags().GetBool("trace"); trace {
		tp := telemetry.NewTracerProvider("cpuinfo-collector", cfg.GetHost(), logger)
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Warn("tracer shutdown", "error", err)
			}
		}()
		parserOpts = append(parserOpts, cpuinfo.WithTracer(tp.Tracer(telemetry.InstrumentationName)))
	}

	opts, cleanup, err := collectorOptions(cfg, logger, parserOpts...)
	if err != nil {
		return err
	}
	defer cleanup()

	c, err := collector.New(collector.Config{
		Host:     cfg.GetHost(),
		Source:   cfg.SourceConfig(),
		Interval: interval,
	}, opts...)
	if err != nil {
		return err
	}

	if once {
		snap, err := c.RunOnce(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Snapshot %s of %s from %s\n", snap.ID, snap.Host, snap.Origin)
		writeSummaryTable(cmd.OutOrStdout(), snap.CPUInfo.Summary())
		return nil
	}

	if addr := cfg.Collector.GetListenAddr(); addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", addr, err)
		}
		logger.Info("collector health service listening", "addr", lis.Addr().String())
		go func() {
			if err := c.Serve(lis); err != nil {
				logger.Error("collector health service stopped", "error", err)
			}
		}()
	}

	err = c.Run(cmd.Context(), interval)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := c.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("collector shutdown", "error", serr)
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// collectorOptions connects the snapshot store and registry configured in cfg.
// cleanup closes whatever was connected; on error nothing is left open.
func collectorOptions(cfg *config.Config, logger *slog.Logger, parserOpts ...cpuinfo.Option) ([]collector.Option, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	parserOpts = append(append(cfg.ParserOptions(), cpuinfo.WithLogger(logger)), parserOpts...)
	p, err := cpuinfo.New(parserOpts...)
	if err != nil {
		return nil, nil, err
	}
	opts := []collector.Option{collector.WithLogger(logger), collector.WithParser(p)}

	if cfg.Redis.Enabled() {
		store, err := snapshot.NewRedisStore(cfg.Redis.Options())
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { cpuinfo.CloseWithLog(store, logger, "snapshot store") })
		opts = append(opts, collector.WithStore(store))
	}

	if cfg.Etcd.Enabled() {
		client, err := registry.NewClient(cfg.Etcd.RegistryConfig())
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		client.WithLogger(logger)
		closers = append(closers, func() { cpuinfo.CloseWithLog(client, logger, "registry") })
		opts = append(opts, collector.WithRegistry(client))
	}

	return opts, cleanup, nil
}
