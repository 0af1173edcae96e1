package jsfe

import "go.uber.org/zap"

// LogField is one structured key/value pair passed to a Logger call.
// Kept as a tiny local type rather than importing zap.Field directly
// into every call site, so a caller that doesn't want zap at all can
// still implement Logger against the standard library.
type LogField struct {
	Key   string
	Value any
}

// Logger is the structured-logging seam this package threads through
// ParserState. ZapLogger adapts *zap.Logger to it; NopLogger discards
// everything and is the default when no logger is supplied.
type Logger interface {
	Debug(msg string, fields ...LogField)
	Warn(msg string, fields ...LogField)
	Error(msg string, fields ...LogField)
}

// NopLogger discards every call. It is the zero-cost default so callers
// that don't care about diagnostics pay nothing for this seam.
type NopLogger struct{}

func (NopLogger) Debug(string, ...LogField) {}
func (NopLogger) Warn(string, ...LogField)  {}
func (NopLogger) Error(string, ...LogField) {}

// ZapLogger adapts a *zap.Logger to the Logger interface.
type ZapLogger struct {
	L *zap.Logger
}

// NewZapLogger wraps l, or builds a no-op zap logger when l is nil.
func NewZapLogger(l *zap.Logger) ZapLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return ZapLogger{L: l}
}

func toZapFields(fields []LogField) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

func (z ZapLogger) Debug(msg string, fields ...LogField) { z.L.Debug(msg, toZapFields(fields)...) }
func (z ZapLogger) Warn(msg string, fields ...LogField)  { z.L.Warn(msg, toZapFields(fields)...) }
func (z ZapLogger) Error(msg string, fields ...LogField) { z.L.Error(msg, toZapFields(fields)...) }
