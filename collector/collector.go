// Package collector periodically reads a host's processor listing, parses
// it, saves it as a snapshot and publishes its summary to the registry.
//
// The collector exposes the standard gRPC health service. Its status is
// NOT_SERVING until the first successful collection and after any failed
// one, so load balancers and orchestrators can probe it like any other
// gRPC service:
//
//	c, err := collector.New(collector.Config{Host: "node-a"},
//	    collector.WithStore(store),
//	    collector.WithRegistry(reg),
//	)
//	if err != nil {
//	    return err
//	}
//	lis, _ := net.Listen("tcp", ":50051")
//	go c.Serve(lis)
//	err = c.Run(ctx, time.Minute)
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/zero-day-ai/cpuinfo"
	"github.com/zero-day-ai/cpuinfo/registry"
	"github.com/zero-day-ai/cpuinfo/snapshot"
	"github.com/zero-day-ai/cpuinfo/source"
	"github.com/zero-day-ai/cpuinfo/types"
)

// ServiceName is the gRPC health service name reported by the collector,
// alongside the server-wide "" service.
const ServiceName = "cpuinfo.collector"

// Config holds collector configuration.
type Config struct {
	// Host names this machine in snapshots and the registry.
	// Default: os.Hostname()
	Host string

	// Source is where listings are read from. The zero value reads
	// /proc/cpuinfo.
	Source source.Config

	// Interval between collections in Run when none is given.
	// Default: 60 seconds
	Interval time.Duration

	// GracefulTimeout bounds the health server's graceful shutdown.
	// Default: 30 seconds
	GracefulTimeout time.Duration

	// TLSCertFile and TLSKeyFile enable TLS on the health server when both
	// are set.
	TLSCertFile string
	TLSKeyFile  string
}

func (cfg Config) withDefaults() Config {
	if cfg.Host == "" {
		if host, err := os.Hostname(); err == nil && host != "" {
			cfg.Host = host
		} else {
			cfg.Host = "localhost"
		}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.GracefulTimeout <= 0 {
		cfg.GracefulTimeout = 30 * time.Second
	}
	return cfg
}

// Collector runs the read, parse, save, publish pipeline.
type Collector struct {
	config   Config
	parser   *cpuinfo.Parser
	store    snapshot.Store
	registry registry.Registry
	logger   *slog.Logger

	grpcServer   *grpc.Server
	healthServer *health.Server

	mu        sync.Mutex
	status    types.HealthStatus
	published bool
	runs      int
	failures  int
}

// New creates a collector. Store and registry are optional; without them
// RunOnce only reads and parses.
func New(cfg Config, opts ...Option) (*Collector, error) {
	c := &Collector{
		config: cfg.withDefaults(),
		logger: slog.Default(),
		status: types.NewDegradedStatus("no collection yet", nil),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.parser == nil {
		p, err := cpuinfo.New(cpuinfo.WithLogger(c.logger), cpuinfo.WithTrailingSeparator())
		if err != nil {
			return nil, fmt.Errorf("failed to create parser: %w", err)
		}
		c.parser = p
	}

	var serverOpts []grpc.ServerOption
	if c.config.TLSCertFile != "" && c.config.TLSKeyFile != "" {
		creds, err := credentials.NewServerTLSFromFile(c.config.TLSCertFile, c.config.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS credentials: %w", err)
		}
		serverOpts = append(serverOpts, grpc.Creds(creds))
	}

	c.grpcServer = grpc.NewServer(serverOpts...)
	c.healthServer = health.NewServer()
	grpc_health_v1.RegisterHealthServer(c.grpcServer, c.healthServer)
	c.setServing(false)

	return c, nil
}

// Host returns the host name the collector reports.
func (c *Collector) Host() string {
	return c.config.Host
}

// GRPCServer returns the underlying gRPC server.
// This allows callers to register additional services.
func (c *Collector) GRPCServer() *grpc.Server {
	return c.grpcServer
}

// Status returns the outcome of the last collection.
func (c *Collector) Status() types.HealthStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// RunOnce performs one collection: read the source, parse the listing,
// save the snapshot and publish the summary. The health status is SERVING
// after it succeeds and NOT_SERVING after it fails.
func (c *Collector) RunOnce(ctx context.Context) (*snapshot.Snapshot, error) {
	start := time.Now()
	snap, err := c.collect(ctx)
	elapsed := time.Since(start)

	c.mu.Lock()
	c.runs++
	if err != nil {
		c.failures++
		details := map[string]any{
			"host":     c.config.Host,
			"error":    err.Error(),
			"failures": c.failures,
		}
		var cerr *cpuinfo.Error
		if errors.As(err, &cerr) {
			for k, v := range cerr.Context {
				details[k] = v
			}
		}
		c.status = types.NewUnhealthyStatus("collection failed", details)
	} else {
		c.published = c.published || c.registry != nil
		c.status = types.NewHealthyStatus(fmt.Sprintf("collected %d processors", snap.CPUInfo.Len()))
	}
	c.mu.Unlock()

	c.setServing(err == nil)

	if err != nil {
		c.logger.WarnContext(ctx, "cpuinfo collection failed",
			"host", c.config.Host,
			"error", err,
			"duration", elapsed,
		)
		return nil, err
	}

	c.logger.InfoContext(ctx, "cpuinfo collected",
		"host", c.config.Host,
		"snapshot", snap.ID,
		"processors", snap.CPUInfo.Len(),
		"duration", elapsed,
	)
	return snap, nil
}

func (c *Collector) collect(ctx context.Context) (*snapshot.Snapshot, error) {
	res, err := source.Read(ctx, c.config.Source)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}

	info, err := c.parser.Parse(ctx, res.Text)
	if err != nil {
		return nil, err
	}

	snap := snapshot.New(c.config.Host, res.Origin, info)

	if c.store != nil {
		if err := c.store.Save(ctx, snap); err != nil {
			return nil, fmt.Errorf("save snapshot: %w", err)
		}
	}

	if c.registry != nil {
		entry := registry.Entry{
			Host:       c.config.Host,
			SnapshotID: snap.ID,
			Summary:    info.Summary(),
		}
		if err := c.registry.Publish(ctx, entry); err != nil {
			return nil, fmt.Errorf("publish summary: %w", err)
		}
	}

	return snap, nil
}

// Run collects immediately and then every interval until ctx is done.
// A non-positive interval uses Config.Interval. Failed collections are
// logged and retried on the next tick.
func (c *Collector) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = c.config.Interval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		// Errors are reported through the logger and the health status
		_, _ = c.RunOnce(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Serve exposes the gRPC health service on lis and blocks until the server
// stops.
func (c *Collector) Serve(lis net.Listener) error {
	if err := c.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("gRPC server error: %w", err)
	}
	return nil
}

// Shutdown marks every service NOT_SERVING, withdraws the host from the
// registry and gracefully stops the health server, forcing it after
// Config.GracefulTimeout.
func (c *Collector) Shutdown(ctx context.Context) error {
	c.healthServer.Shutdown()

	var err error
	c.mu.Lock()
	published := c.published
	c.published = false
	c.mu.Unlock()
	if published {
		if werr := c.registry.Withdraw(ctx, c.config.Host); werr != nil {
			err = fmt.Errorf("withdraw %s: %w", c.config.Host, werr)
		}
	}

	timeout, cancel := context.WithTimeout(ctx, c.config.GracefulTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		c.grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Debug("collector stopped gracefully")
	case <-timeout.Done():
		c.logger.Warn("graceful shutdown timeout, forcing stop")
		c.grpcServer.Stop()
	}

	return err
}

func (c *Collector) setServing(ok bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if ok {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	c.healthServer.SetServingStatus("", status)
	c.healthServer.SetServingStatus(ServiceName, status)
}
