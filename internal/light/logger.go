package light

// Logger is the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type tracer interface {
	Trace(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// traceLog logs below debug when the logger supports it.
func traceLog(l Logger, msg string, args ...any) {
	if t, ok := l.(tracer); ok {
		t.Trace(msg, args...)
		return
	}
	l.Debug(msg, args...)
}
