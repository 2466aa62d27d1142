package cpuinfo

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a Parser.
type Option func(*parserConfig)

// parserConfig holds configuration for a Parser instance.
type parserConfig struct {
	logger                 *slog.Logger
	tracer                 trace.Tracer
	meterProvider          metric.MeterProvider
	allowTrailingSeparator bool
}

// WithLogger sets a custom logger for the parser.
// If not provided, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(c *parserConfig) {
		c.logger = logger
	}
}

// WithTracer sets an OpenTelemetry tracer. Every Parse call then records a
// "cpuinfo.parse" span under the span carried by its context.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *parserConfig) {
		c.tracer = tracer
	}
}

// WithMeterProvider enables parse metrics: a count of parses by result, a
// duration histogram in milliseconds and a histogram of processors per
// listing.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *parserConfig) {
		c.meterProvider = mp
	}
}

// WithTrailingSeparator accepts one blank line after the last record, the
// way the kernel writes /proc/cpuinfo. Parsers are strict without it.
func WithTrailingSeparator() Option {
	return func(c *parserConfig) {
		c.allowTrailingSeparator = true
	}
}
