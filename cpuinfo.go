package cpuinfo

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/cpuinfo/parser"
	"github.com/zero-day-ai/cpuinfo/types"
)

// Parser parses cpuinfo listings with logging, tracing and metrics attached.
// A Parser holds no per-call state and is safe for concurrent use.
type Parser struct {
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *parseMetrics
	opts    parser.Options
}

// New creates a Parser configured by opts.
func New(opts ...Option) (*Parser, error) {
	cfg := &parserConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	metrics, err := newParseMetrics(cfg.meterProvider)
	if err != nil {
		return nil, newConfigurationError("New", errors.Join(ErrInvalidConfig, err))
	}

	return &Parser{
		logger:  cfg.logger,
		tracer:  cfg.tracer,
		metrics: metrics,
		opts:    parser.Options{AllowTrailingSeparator: cfg.allowTrailingSeparator},
	}, nil
}

// Parse parses a complete listing. The context only carries trace
// parentage; parsing is not interruptible.
//
// On failure the error is an *Error of KindMalformedInput wrapping the
// *parser.SyntaxError, and no partial result is returned.
func (p *Parser) Parse(ctx context.Context, input string) (*types.CPUInfo, error) {
	start := time.Now()
	ctx, span := p.startSpan(ctx, len(input))

	info, perr := parser.ParseWithOptions(input, p.opts)
	elapsed := time.Since(start)

	var se *parser.SyntaxError
	var err error
	if perr != nil {
		errors.As(perr, &se)
		err = wrapParseError("Parser.Parse", perr, se)
		info = nil
	}

	p.endSpan(span, info, se, err)
	p.metrics.record(ctx, info, se, elapsed)

	if err != nil {
		args := []any{"error", perr, "duration", elapsed}
		if se != nil {
			args = append(args, "code", se.Code, "field", se.Field, "record", se.Record, "line", se.Line, "column", se.Column)
		}
		p.logger.WarnContext(ctx, "cpuinfo listing rejected", args...)
		return nil, err
	}

	p.logger.DebugContext(ctx, "cpuinfo listing parsed",
		"processors", info.Len(),
		"duration", elapsed)
	return info, nil
}

// Parse parses a complete listing with strict grammar and no
// instrumentation. It is equivalent to calling Parse on a Parser built with
// no options, minus logging.
func Parse(input string) (*types.CPUInfo, error) {
	info, err := parser.Parse(input)
	if err != nil {
		var se *parser.SyntaxError
		errors.As(err, &se)
		return nil, wrapParseError("Parse", err, se)
	}
	return info, nil
}

func wrapParseError(op string, err error, se *parser.SyntaxError) *Error {
	e := newMalformedInputError(op, err)
	if se != nil {
		e = e.WithContext(se.Details())
	}
	return e
}
