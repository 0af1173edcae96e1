package jsfe

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// SyntaxError is raised by the scanner/parser for any input that does
// not conform to the grammar or to an early (parse-time) semantic check
// (duplicate parameter names in strict mode, invalid destructuring
// target, etc).
type SyntaxError struct {
	FileName   string
	LineNumber int
	Message    string
}

func (e *SyntaxError) Error() string {
	if e.FileName == "" {
		return fmt.Sprintf("SyntaxError: %s (line %d)", e.Message, e.LineNumber)
	}
	return fmt.Sprintf("SyntaxError: %s (%s:%d)", e.Message, e.FileName, e.LineNumber)
}

// RangeError is raised for resource-exhaustion failures that aren't
// grammar violations: too many atoms, a FunctionDef nesting past the
// recursion guard, a bytecode buffer too large to address.
type RangeError struct {
	Message string
}

func (e *RangeError) Error() string { return "RangeError: " + e.Message }

// InternalError wraps a failure this package considers a bug in itself
// (an invariant the resolver expected but didn't find) rather than bad
// input; it always carries an underlying cause via github.com/pkg/errors
// so a caller can unwrap to the original stack.
type InternalError struct {
	cause error
}

func (e *InternalError) Error() string { return "internal error: " + e.cause.Error() }
func (e *InternalError) Unwrap() error { return e.cause }

func newInternalf(format string, args ...any) error {
	return &InternalError{cause: errors.Errorf(format, args...)}
}

func wrapInternal(err error, msg string) error {
	return &InternalError{cause: errors.Wrap(err, msg)}
}

// Backtrace renders a newline-joined call-stack trace from innermost to
// outermost frame, truncating at the first frame marked
// backtraceBarrier (the boundary a generator's resumption or a Function
// constructor's synthetic wrapper installs so the trace doesn't leak
// engine-internal frames to script).
type Frame struct {
	FunctionName   string
	FileName       string
	Line           int
	BacktraceBarrier bool
}

func Backtrace(frames []Frame) string {
	var b strings.Builder
	for _, f := range frames {
		name := f.FunctionName
		if name == "" {
			name = "<anonymous>"
		}
		fmt.Fprintf(&b, "    at %s (%s:%d)\n", name, f.FileName, f.Line)
		if f.BacktraceBarrier {
			break
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// --- pc2line codec -----------------------------------------------------
//
// The debug line table is a stream of (pc_delta, line_delta) pairs
// LEB128-varint-encoded, one pair per lineMark recorded during emission.
// pc_delta is always non-negative (marks are recorded in emission
// order); line_delta is zigzag-encoded since a line can move backward
// relative to the previous mark (e.g. a multi-line expression whose
// nested arrow function's body was emitted out of source order relative
// to its own start).

func encodeLEB128(buf []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		buf = append(buf, b)
		if v == 0 {
			return buf
		}
	}
}

func decodeLEB128(buf []byte) (uint64, int) {
	var v uint64
	var shift uint
	for i, b := range buf {
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, i + 1
		}
		shift += 7
	}
	return v, len(buf)
}

func zigzagEncode(n int) uint64 {
	return uint64((n << 1) ^ (n >> 63))
}

func zigzagDecode(v uint64) int {
	return int((v >> 1)) ^ -int(v&1)
}

// encodePC2Line compresses fd.lineMarks into fd.PC2Line and clears the
// raw accumulator; called once by the resolver after a FunctionDef's
// bytecode is finalized (label fixups do not change instruction
// lengths, so positions recorded pre-resolution remain valid).
func (fd *FunctionDef) encodePC2Line() {
	var buf []byte
	lastPos, lastLine := 0, fd.Line
	for _, m := range fd.lineMarks {
		buf = encodeLEB128(buf, uint64(m.Pos-lastPos))
		buf = encodeLEB128(buf, zigzagEncode(m.Line-lastLine))
		lastPos, lastLine = m.Pos, m.Line
	}
	fd.PC2Line = buf
	fd.lineMarks = nil
}

// LineForPC decodes fd.PC2Line to find the source line active at
// bytecode offset pc, used by error reporting when unwinding a captured
// backtrace down to a specific FunctionDef/pc pair.
func (fd *FunctionDef) LineForPC(pc int) int {
	pos, line := 0, fd.Line
	buf := fd.PC2Line
	result := line
	for len(buf) > 0 {
		dPos, n := decodeLEB128(buf)
		buf = buf[n:]
		dLine, n2 := decodeLEB128(buf)
		buf = buf[n2:]
		pos += int(dPos)
		line += zigzagDecode(dLine)
		if pos > pc {
			break
		}
		result = line
	}
	return result
}
