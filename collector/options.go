package collector

import (
	"log/slog"

	"github.com/zero-day-ai/cpuinfo"
	"github.com/zero-day-ai/cpuinfo/registry"
	"github.com/zero-day-ai/cpuinfo/snapshot"
)

// Option is a functional option for configuring a Collector.
type Option func(*Collector)

// WithParser sets the parser used on every listing.
// Default: a parser accepting the kernel's trailing blank line.
func WithParser(p *cpuinfo.Parser) Option {
	return func(c *Collector) {
		c.parser = p
	}
}

// WithStore saves every parsed listing to store.
func WithStore(store snapshot.Store) Option {
	return func(c *Collector) {
		c.store = store
	}
}

// WithRegistry publishes the summary of every parsed listing to reg, and
// withdraws it on Shutdown.
func WithRegistry(reg registry.Registry) Option {
	return func(c *Collector) {
		c.registry = reg
	}
}

// WithLogger sets the logger. Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(c *Collector) {
		if logger != nil {
			c.logger = logger
		}
	}
}
