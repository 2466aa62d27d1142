package parser

import (
	"fmt"
	"strings"
)

// cursor is a read position into the input. It only ever moves forward.
type cursor struct {
	src    string
	pos    int
	record int
}

func newCursor(src string) *cursor {
	return &cursor{src: src}
}

func (c *cursor) eof() bool {
	return c.pos >= len(c.src)
}

// peek returns the current byte, or 0 at end of input.
func (c *cursor) peek() byte {
	if c.eof() {
		return 0
	}
	return c.src[c.pos]
}

func (c *cursor) rest() string {
	return c.src[c.pos:]
}

// literal consumes s if the input continues with it.
func (c *cursor) literal(s string) bool {
	if !strings.HasPrefix(c.rest(), s) {
		return false
	}
	c.pos += len(s)
	return true
}

// skipHSpace consumes spaces and tabs.
func (c *cursor) skipHSpace() {
	for !c.eof() && isHSpace(c.peek()) {
		c.pos++
	}
}

// atLineEnding reports whether the input continues with "\n" or "\r\n".
func (c *cursor) atLineEnding() bool {
	rest := c.rest()
	return strings.HasPrefix(rest, "\n") || strings.HasPrefix(rest, "\r\n")
}

// lineEnding consumes one "\n" or "\r\n".
func (c *cursor) lineEnding() bool {
	return c.literal("\n") || c.literal("\r\n")
}

// currentLine returns the text from the cursor to the end of its line,
// without the terminator.
func (c *cursor) currentLine() string {
	rest := c.rest()
	if i := strings.IndexAny(rest, "\r\n"); i >= 0 {
		return rest[:i]
	}
	return rest
}

// position converts a byte offset into a 1-based line and column.
func (c *cursor) position(offset int) (line, column int) {
	if offset > len(c.src) {
		offset = len(c.src)
	}
	before := c.src[:offset]
	line = strings.Count(before, "\n") + 1
	column = offset - (strings.LastIndexByte(before, '\n') + 1) + 1
	return line, column
}

// fail builds a SyntaxError at the given offset.
func (c *cursor) fail(code string, offset int, format string, args ...any) *SyntaxError {
	line, column := c.position(offset)
	return &SyntaxError{
		Code:    code,
		Record:  c.record,
		Offset:  offset,
		Line:    line,
		Column:  column,
		Message: fmt.Sprintf(format, args...),
	}
}

func isHSpace(b byte) bool {
	return b == ' ' || b == '\t'
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isTokenByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || isDigit(b) || b == '_'
}

// describe renders the next few bytes for error messages.
func describe(s string) string {
	if s == "" {
		return "end of input"
	}
	if i := strings.IndexAny(s, "\r\n"); i == 0 {
		return "end of line"
	} else if i > 0 {
		s = s[:i]
	}
	if len(s) > 24 {
		s = s[:24] + "..."
	}
	return fmt.Sprintf("%q", s)
}
