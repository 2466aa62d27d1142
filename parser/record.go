package parser

import "github.com/zero-day-ai/cpuinfo/types"

// parseRecord applies every field parser in order. It stops at the first
// field that fails.
func parseRecord(c *cursor) (types.Processor, error) {
	var p types.Processor
	for _, f := range recordFields {
		if err := f.parse(c, &p); err != nil {
			return types.Processor{}, err
		}
	}
	return p, nil
}

// ParseRecord parses a single processor record from the start of input and
// returns it with the unconsumed remainder.
func ParseRecord(input string) (types.Processor, string, error) {
	c := newCursor(input)
	p, err := parseRecord(c)
	if err != nil {
		return types.Processor{}, input, err
	}
	return p, c.rest(), nil
}
