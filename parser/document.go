package parser

import (
	"strings"

	"github.com/zero-day-ai/cpuinfo/types"
)

// Options adjusts document-level grammar. The zero value is strict.
type Options struct {
	// AllowTrailingSeparator accepts exactly one blank line after the last
	// record, as the kernel writes it.
	AllowTrailingSeparator bool
}

// Parse parses a complete listing with the strict default options.
func Parse(input string) (*types.CPUInfo, error) {
	return ParseWithOptions(input, Options{})
}

// ParseWithOptions parses one or more records separated by single blank
// lines. The whole input must be consumed. On failure the error is a
// *SyntaxError describing the first point of failure.
func ParseWithOptions(input string, opts Options) (*types.CPUInfo, error) {
	c := newCursor(input)
	if strings.TrimSpace(input) == "" {
		return nil, c.fail(ErrCodeEmptyInput, 0, "no processor records found")
	}
	if c.atLineEnding() {
		return nil, c.fail(ErrCodeMalformedRecordBoundary, 0, "blank line before first record")
	}

	info := &types.CPUInfo{}
	for {
		c.record = len(info.Processors)
		p, err := parseRecord(c)
		if err != nil {
			return nil, err
		}
		info.Processors = append(info.Processors, p)

		if c.eof() {
			return info, nil
		}
		if !c.lineEnding() {
			return nil, c.fail(ErrCodeMalformedRecordBoundary, c.pos,
				"expected blank line after record, found %s", describe(c.rest()))
		}
		if c.eof() {
			if opts.AllowTrailingSeparator {
				return info, nil
			}
			return nil, c.fail(ErrCodeMalformedRecordBoundary, c.pos, "blank line after last record")
		}
		if c.atLineEnding() {
			return nil, c.fail(ErrCodeMalformedRecordBoundary, c.pos, "more than one blank line between records")
		}
	}
}
