package jsfe

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyntaxErrorMessageWithFileName(t *testing.T) {
	err := &SyntaxError{FileName: "a.js", LineNumber: 12, Message: "unexpected token"}
	assert.Equal(t, `SyntaxError: unexpected token (a.js:12)`, err.Error())
}

func TestSyntaxErrorMessageWithoutFileName(t *testing.T) {
	err := &SyntaxError{LineNumber: 3, Message: "unexpected token"}
	assert.Equal(t, `SyntaxError: unexpected token (line 3)`, err.Error())
}

func TestRangeErrorMessage(t *testing.T) {
	err := &RangeError{Message: "too many atoms"}
	assert.Equal(t, "RangeError: too many atoms", err.Error())
}

func TestInternalErrorUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := wrapInternal(cause, "resolver invariant")
	require.ErrorContains(t, err, "resolver invariant")
	require.ErrorContains(t, err, "boom")
	assert.ErrorIs(t, err, cause)
}

func TestBacktraceStopsAtBarrier(t *testing.T) {
	frames := []Frame{
		{FunctionName: "inner", FileName: "a.js", Line: 3},
		{FunctionName: "wrapper", FileName: "a.js", Line: 10, BacktraceBarrier: true},
		{FunctionName: "outer", FileName: "a.js", Line: 20},
	}
	trace := Backtrace(frames)
	assert.Contains(t, trace, "inner")
	assert.Contains(t, trace, "wrapper")
	assert.NotContains(t, trace, "outer", "a barrier frame truncates the trace, hiding engine-internal callers")
}

func TestBacktraceAnonymousFrame(t *testing.T) {
	trace := Backtrace([]Frame{{FileName: "a.js", Line: 1}})
	assert.Contains(t, trace, "<anonymous>")
}

func TestPC2LineEncodeDecodeRoundTrip(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindTopLevel)
	fd.Line = 1
	fd.lineMarks = []lineMark{
		{Pos: 0, Line: 1},
		{Pos: 10, Line: 2},
		{Pos: 10, Line: 5},
		{Pos: 25, Line: 4},
	}
	fd.encodePC2Line()

	assert.Nil(t, fd.lineMarks, "encoding clears the raw accumulator")
	assert.Equal(t, 1, fd.LineForPC(0))
	assert.Equal(t, 5, fd.LineForPC(10))
	assert.Equal(t, 5, fd.LineForPC(20))
	assert.Equal(t, 4, fd.LineForPC(30))
}

func TestLEB128RoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 127, 128, 300, 1 << 20, 1 << 40} {
		buf := encodeLEB128(nil, v)
		got, n := decodeLEB128(buf)
		assert.Equal(t, v, got)
		assert.Equal(t, len(buf), n)
	}
}

func TestZigzagRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, -1, 2, -2, 1000, -1000} {
		assert.Equal(t, n, zigzagDecode(zigzagEncode(n)))
	}
}
