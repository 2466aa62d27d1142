// Package cpuinfo parses the processor listing Linux exposes at /proc/cpuinfo
// into typed records.
//
// The grammar is strict. Every record carries the same 27 fields in a fixed
// order, records are separated by exactly one blank line, and the whole input
// must be consumed. Any deviation fails the parse with a single error that
// names the offending field and its line and column; no partial result is
// returned.
//
// # Getting Started
//
// Parse text that is already in memory:
//
//	info, err := cpuinfo.Parse(text)
//	if err != nil {
//		log.Fatal(err)
//	}
//	for _, p := range info.Processors {
//		fmt.Println(p.Processor, p.ModelName, p.HasFlag("avx2"))
//	}
//
// The kernel terminates the last record with a blank line. Listings read
// straight from /proc/cpuinfo therefore need a Parser built with
// WithTrailingSeparator:
//
//	p, err := cpuinfo.New(
//		cpuinfo.WithTrailingSeparator(),
//		cpuinfo.WithLogger(logger),
//		cpuinfo.WithTracer(tracer),
//		cpuinfo.WithMeterProvider(meterProvider),
//	)
//	if err != nil {
//		return err
//	}
//	info, err := p.Parse(ctx, text)
//
// # Errors
//
// Every parse failure matches ErrMalformedInput. The wrapped
// *parser.SyntaxError carries the failure code and position:
//
//	var se *parser.SyntaxError
//	if errors.As(err, &se) {
//		fmt.Printf("%s at line %d column %d\n", se.Code, se.Line, se.Column)
//	}
//
// # Related Packages
//
// The grammar itself lives in the parser package and the data model in
// types. The source, filter, snapshot, registry and collector packages build
// a collection pipeline on top of it, driven by the cpuinfo command.
package cpuinfo
