package cpuinfo

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/cpuinfo/parser"
	"github.com/zero-day-ai/cpuinfo/types"
)

const instrumentationName = "github.com/zero-day-ai/cpuinfo"

// resultOK is the "result" attribute of a successful parse. Failed parses
// carry their error code instead.
const resultOK = "ok"

// parseMetrics holds the OpenTelemetry instruments of a Parser.
// They are created once in New and shared by all Parse calls.
type parseMetrics struct {
	// count increments once per parse, with a "result" attribute
	count metric.Int64Counter

	// duration records parse time in milliseconds
	duration metric.Float64Histogram

	// processors records the number of records in each accepted listing
	processors metric.Int64Histogram
}

func newParseMetrics(mp metric.MeterProvider) (*parseMetrics, error) {
	if mp == nil {
		return nil, nil
	}
	meter := mp.Meter(instrumentationName)

	m := &parseMetrics{}
	var err error

	m.count, err = meter.Int64Counter(
		"cpuinfo.parse.count",
		metric.WithDescription("Number of listings parsed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create count counter: %w", err)
	}

	m.duration, err = meter.Float64Histogram(
		"cpuinfo.parse.duration",
		metric.WithDescription("Parse duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	m.processors, err = meter.Int64Histogram(
		"cpuinfo.parse.processors",
		metric.WithDescription("Processor records per accepted listing"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create processors histogram: %w", err)
	}

	return m, nil
}

// record adds one parse outcome to the instruments. m may be nil.
func (m *parseMetrics) record(ctx context.Context, info *types.CPUInfo, se *parser.SyntaxError, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := resultOK
	if se != nil {
		result = se.Code
	}
	opts := metric.WithAttributes(attribute.String("result", result))

	m.count.Add(ctx, 1, opts)
	m.duration.Record(ctx, float64(elapsed.Microseconds())/1000, opts)
	if info != nil {
		m.processors.Record(ctx, int64(info.Len()))
	}
}

// startSpan opens the parse span when a tracer is configured. The returned
// span is never nil.
func (p *Parser) startSpan(ctx context.Context, inputLen int) (context.Context, trace.Span) {
	if p.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	ctx, span := p.tracer.Start(ctx, "cpuinfo.parse")
	span.SetAttributes(attribute.Int("cpuinfo.input_bytes", inputLen))
	return ctx, span
}

// endSpan records the parse outcome on span and ends it.
func (p *Parser) endSpan(span trace.Span, info *types.CPUInfo, se *parser.SyntaxError, err error) {
	if p.tracer == nil {
		return
	}
	defer span.End()

	if err != nil {
		if se != nil {
			span.SetAttributes(
				attribute.String("cpuinfo.error.code", se.Code),
				attribute.Int("cpuinfo.error.record", se.Record),
				attribute.Int("cpuinfo.error.line", se.Line),
				attribute.Int("cpuinfo.error.column", se.Column),
			)
			if se.Field != "" {
				span.SetAttributes(attribute.String("cpuinfo.error.field", se.Field))
			}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}

	span.SetAttributes(attribute.Int("cpuinfo.processors", info.Len()))
	span.SetStatus(codes.Ok, "")
}
