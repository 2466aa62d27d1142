package parser

import (
	"strconv"

	"github.com/zero-day-ai/cpuinfo/types"
)

// Decoders read one typed value at the cursor and stop before the line
// terminator, which the field parser checks.

func valueError(c *cursor, offset int, format string, args ...any) *SyntaxError {
	return c.fail(ErrCodeMalformedValue, offset, format, args...)
}

// decimalUint32 reads one or more ASCII digits that fit in 32 bits.
func decimalUint32(c *cursor) (uint32, error) {
	start := c.pos
	for !c.eof() && isDigit(c.peek()) {
		c.pos++
	}
	if c.pos == start {
		return 0, valueError(c, start, "expected decimal integer, found %s", describe(c.rest()))
	}
	v, err := strconv.ParseUint(c.src[start:c.pos], 10, 32)
	if err != nil {
		return 0, valueError(c, start, "integer out of range").WithCause(err)
	}
	return uint32(v), nil
}

// float reads [+-]? (digits [. digits] | . digits) ([eE] [+-]? digits)?.
func float(c *cursor) (float64, error) {
	start := c.pos
	i := c.pos
	n := len(c.src)
	if i < n && (c.src[i] == '+' || c.src[i] == '-') {
		i++
	}
	mantissa := 0
	for i < n && isDigit(c.src[i]) {
		i++
		mantissa++
	}
	if i < n && c.src[i] == '.' {
		i++
		for i < n && isDigit(c.src[i]) {
			i++
			mantissa++
		}
	}
	if mantissa == 0 {
		return 0, valueError(c, start, "expected decimal number, found %s", describe(c.rest()))
	}
	if i < n && (c.src[i] == 'e' || c.src[i] == 'E') {
		j := i + 1
		if j < n && (c.src[j] == '+' || c.src[j] == '-') {
			j++
		}
		digits := j
		for j < n && isDigit(c.src[j]) {
			j++
		}
		// An exponent marker without digits is left for the terminator check.
		if j > digits {
			i = j
		}
	}
	v, err := strconv.ParseFloat(c.src[start:i], 64)
	if err != nil {
		return 0, valueError(c, start, "decimal number out of range").WithCause(err)
	}
	c.pos = i
	return v, nil
}

// hexUint32 reads a 0x or 0X prefixed hexadecimal literal.
func hexUint32(c *cursor) (uint32, error) {
	start := c.pos
	if !c.literal("0x") && !c.literal("0X") {
		return 0, valueError(c, start, "expected 0x prefix, found %s", describe(c.rest()))
	}
	digits := c.pos
	for !c.eof() && isHexDigit(c.peek()) {
		c.pos++
	}
	if c.pos == digits {
		return 0, valueError(c, digits, "expected hexadecimal digits after prefix, found %s", describe(c.rest()))
	}
	v, err := strconv.ParseUint(c.src[digits:c.pos], 16, 32)
	if err != nil {
		return 0, valueError(c, start, "hexadecimal value out of range").WithCause(err)
	}
	return uint32(v), nil
}

// boolean reads exactly "yes" or "no".
func boolean(c *cursor) (bool, error) {
	switch {
	case c.literal("yes"):
		return true, nil
	case c.literal("no"):
		return false, nil
	}
	return false, valueError(c, c.pos, "expected yes or no, found %s", describe(c.rest()))
}

// tokenList reads zero or more single-space separated [a-z0-9_]+ tokens.
// A space not followed by a token is left unconsumed.
func tokenList(c *cursor) ([]string, error) {
	tokens := []string{}
	tok, ok := scanToken(c)
	if !ok {
		return tokens, nil
	}
	tokens = append(tokens, tok)
	for c.peek() == ' ' {
		save := c.pos
		c.pos++
		tok, ok := scanToken(c)
		if !ok {
			c.pos = save
			break
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

func scanToken(c *cursor) (string, bool) {
	start := c.pos
	for !c.eof() && isTokenByte(c.peek()) {
		c.pos++
	}
	return c.src[start:c.pos], c.pos > start
}

// alpha reads one or more ASCII letters.
func alpha(c *cursor) (string, error) {
	start := c.pos
	for !c.eof() && isAlpha(c.peek()) {
		c.pos++
	}
	if c.pos == start {
		return "", valueError(c, start, "expected letters, found %s", describe(c.rest()))
	}
	return c.src[start:c.pos], nil
}

// restOfLine reads everything up to the line terminator. It may be empty.
func restOfLine(c *cursor) (string, error) {
	line := c.currentLine()
	c.pos += len(line)
	return line, nil
}

// optionalAlphanumeric reads one or more ASCII letters or digits, or nothing.
func optionalAlphanumeric(c *cursor) (*string, error) {
	start := c.pos
	for !c.eof() && (isAlpha(c.peek()) || isDigit(c.peek())) {
		c.pos++
	}
	if c.pos == start {
		return nil, nil
	}
	v := c.src[start:c.pos]
	return &v, nil
}

// cacheSize reads "<n> KB" (spacing optional) and scales it to bytes.
func cacheSize(c *cursor) (uint64, error) {
	kb, err := decimalUint32(c)
	if err != nil {
		return 0, err
	}
	c.skipHSpace()
	if !c.literal("KB") {
		return 0, valueError(c, c.pos, "expected KB suffix, found %s", describe(c.rest()))
	}
	return uint64(kb) * 1024, nil
}

// addressSizes reads "<n> bits physical, <n> bits virtual".
func addressSizes(c *cursor) (types.AddressSizes, error) {
	var sizes types.AddressSizes
	physical, err := decimalUint32(c)
	if err != nil {
		return sizes, err
	}
	if !c.literal(" bits physical") {
		return sizes, valueError(c, c.pos, `expected " bits physical", found %s`, describe(c.rest()))
	}
	if !c.literal(", ") {
		return sizes, valueError(c, c.pos, `expected ", ", found %s`, describe(c.rest()))
	}
	virtual, err := decimalUint32(c)
	if err != nil {
		return sizes, err
	}
	if !c.literal(" bits virtual") {
		return sizes, valueError(c, c.pos, `expected " bits virtual", found %s`, describe(c.rest()))
	}
	sizes.Physical = physical
	sizes.Virtual = virtual
	return sizes, nil
}
