package log

import "context"

// NopLogger discards every log entry. It is the nil-safe default used by
// components whose logger was never configured, and by tests.
type NopLogger struct{}

// Compile-time assertion: *NopLogger implements Logger.
var _ Logger = (*NopLogger)(nil)

// NewNop returns a Logger that discards all entries.
func NewNop() Logger {
	return &NopLogger{}
}

// Log discards the entry.
func (l *NopLogger) Log(context.Context, Level, string, ...Field) {}

// With returns the receiver unchanged.
func (l *NopLogger) With(...Field) Logger { return l }

// Enabled always reports false.
func (l *NopLogger) Enabled(Level) bool { return false }
