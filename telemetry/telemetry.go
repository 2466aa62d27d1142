// Package telemetry sets up OpenTelemetry tracing for the cpuinfo command.
//
// Finished spans are written to a slog.Logger, one record per span, so a
// collector run can be traced without a tracing backend:
//
//	tp := telemetry.NewTracerProvider("cpuinfo-collector", host, logger)
//	defer tp.Shutdown(context.Background())
//
//	p, err := cpuinfo.New(cpuinfo.WithTracer(tp.Tracer(telemetry.InstrumentationName)))
package telemetry

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// InstrumentationName names the tracer handed to the parser.
const InstrumentationName = "github.com/zero-day-ai/cpuinfo"

// NewTracerProvider returns a provider that logs every finished span to
// logger at debug level, or warn level for spans ending in error.
func NewTracerProvider(serviceName, host string, logger *slog.Logger) *sdktrace.TracerProvider {
	if logger == nil {
		logger = slog.Default()
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.HostNameKey.String(host),
		),
	)
	if err != nil {
		logger.Warn("failed to create resource, using default", "error", err)
		res = resource.Default()
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(NewLogExporter(logger))),
		sdktrace.WithResource(res),
	)
}

// LogExporter implements sdktrace.SpanExporter by logging spans.
type LogExporter struct {
	logger *slog.Logger
}

// NewLogExporter creates an exporter writing to logger.
func NewLogExporter(logger *slog.Logger) *LogExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogExporter{logger: logger}
}

// ExportSpans logs each span. It never fails.
func (e *LogExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		sc := span.SpanContext()
		args := []any{
			"span", span.Name(),
			"trace_id", sc.TraceID().String(),
			"span_id", sc.SpanID().String(),
			"duration", span.EndTime().Sub(span.StartTime()),
		}
		if span.Parent().IsValid() {
			args = append(args, "parent_span_id", span.Parent().SpanID().String())
		}
		args = append(args, slog.Group("attributes", attrsToArgs(span.Attributes())...))

		level := slog.LevelDebug
		status := span.Status()
		if status.Code == codes.Error {
			level = slog.LevelWarn
			args = append(args, "status", status.Description)
		}

		e.logger.Log(ctx, level, "span finished", args...)
	}
	return nil
}

// Shutdown is a no-op; the logger outlives the exporter.
func (e *LogExporter) Shutdown(ctx context.Context) error {
	return nil
}

func attrsToArgs(attrs []attribute.KeyValue) []any {
	args := make([]any, 0, len(attrs))
	for _, kv := range attrs {
		args = append(args, slog.Any(string(kv.Key), kv.Value.AsInterface()))
	}
	return args
}
