// Package parser implements the grammar of a processor-information listing
// (the /proc/cpuinfo convention).
//
// A listing is one or more records separated by exactly one blank line. Each
// record is a fixed sequence of "name: value" lines, one per field, in the
// order returned by FieldNames. The grammar is strict: a missing, renamed or
// reordered field fails the parse, as does a malformed value or a missing line
// terminator. Parsing never backtracks across consumed records and reports
// only the first failure.
//
// # Usage
//
//	info, err := parser.Parse(text)
//	if err != nil {
//		var se *parser.SyntaxError
//		if errors.As(err, &se) {
//			fmt.Printf("line %d: %s\n", se.Line, se.Code)
//		}
//	}
//
// The kernel terminates the last record with a blank line too. Accept it
// with:
//
//	info, err := parser.ParseWithOptions(text, parser.Options{AllowTrailingSeparator: true})
//
// # Errors
//
// Every failure is a *SyntaxError carrying one of the ErrCode constants.
// errors.Is matches it against the sentinel of its code:
//
//	if errors.Is(err, parser.ErrMalformedField) {
//		// field missing or out of order
//	}
package parser
