package parser

import (
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyntaxError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *SyntaxError
		want string
	}{
		{
			name: "field error",
			err: &SyntaxError{
				Code: ErrCodeMalformedValue, Field: "fpu", Record: 2, Line: 72, Column: 8,
				Message: `expected "yes" or "no"`,
			},
			want: `line 72, column 8: record 2: field "fpu" [MALFORMED_VALUE]: expected "yes" or "no"`,
		},
		{
			name: "boundary error",
			err: &SyntaxError{
				Code: ErrCodeMalformedRecordBoundary, Line: 28, Column: 1,
				Message: "expected blank line after record",
			},
			want: "line 28, column 1: record 0: [MALFORMED_RECORD_BOUNDARY]: expected blank line after record",
		},
		{
			name: "with cause",
			err: (&SyntaxError{
				Code: ErrCodeMalformedValue, Field: "processor", Line: 1, Column: 13,
				Message: "value out of range",
			}).WithCause(errors.New("boom")),
			want: `line 1, column 13: record 0: field "processor" [MALFORMED_VALUE]: value out of range: boom`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestSyntaxError_Is(t *testing.T) {
	err := &SyntaxError{Code: ErrCodeMalformedField, Field: "vendor_id", Found: "cpu family"}

	assert.True(t, errors.Is(err, ErrMalformedField))
	assert.False(t, errors.Is(err, ErrMalformedValue))
	assert.True(t, errors.Is(err, &SyntaxError{Code: ErrCodeMalformedField}))
	assert.True(t, errors.Is(err, &SyntaxError{Code: ErrCodeMalformedField, Field: "vendor_id"}))
	assert.False(t, errors.Is(err, &SyntaxError{Code: ErrCodeMalformedField, Field: "model"}))
	assert.False(t, errors.Is(err, &SyntaxError{Code: ErrCodeMalformedSeparator}))

	wrapped := fmt.Errorf("reading /proc/cpuinfo: %w", err)
	assert.ErrorIs(t, wrapped, ErrMalformedField)

	var se *SyntaxError
	require.ErrorAs(t, wrapped, &se)
	assert.Equal(t, "cpu family", se.Found)
}

func TestSyntaxError_Unwrap(t *testing.T) {
	cause := &strconv.NumError{Func: "ParseUint", Num: "4294967296", Err: strconv.ErrRange}
	err := (&SyntaxError{Code: ErrCodeMalformedValue}).WithCause(cause)

	assert.ErrorIs(t, err, strconv.ErrRange)
	assert.ErrorIs(t, err, ErrMalformedValue)
}

func TestSyntaxError_Details(t *testing.T) {
	err := &SyntaxError{
		Code: ErrCodeMalformedField, Field: "vendor_id", Found: "cpu family",
		Record: 1, Offset: 42, Line: 30, Column: 1,
	}
	assert.Equal(t, map[string]any{
		"code":   ErrCodeMalformedField,
		"record": 1,
		"offset": 42,
		"line":   30,
		"column": 1,
		"field":  "vendor_id",
		"found":  "cpu family",
	}, err.Details())

	boundary := &SyntaxError{Code: ErrCodeEmptyInput, Line: 1, Column: 1}
	details := boundary.Details()
	assert.NotContains(t, details, "field")
	assert.NotContains(t, details, "found")
}
